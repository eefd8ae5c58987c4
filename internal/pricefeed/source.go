// Package pricefeed supplies the current price of a symbol to the control
// loop, from a replayed series, the REST ticker or the websocket stream.
package pricefeed

import (
	"context"

	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
)

// Source returns the current price of a symbol. Failures are connectivity
// errors.
type Source interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// connectivity makes sure err carries a connectivity code.
func connectivity(err error, format string, args ...any) error {
	if errors.IsConnectivity(err) {
		return errors.Wrapf(errors.GetCode(err), err, format, args...)
	}
	return errors.Wrapf(errors.ErrCodeConnectivity, err, format, args...)
}
