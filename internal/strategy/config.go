package strategy

import (
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/validation"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Config holds the trigger parameters of one grid. Percentages are expressed
// in percent, so 1.5 means 1.5%.
type Config struct {
	BuyDropPercent    decimal.Decimal `validate:"gt=0,lt=100"`
	TakeProfitPercent decimal.Decimal `validate:"gt=0"`
	InvestPercent     decimal.Decimal `validate:"gt=0,lte=100"`

	// StopLossPercent is None when stop-loss exits are disabled.
	StopLossPercent optional.Option[decimal.Decimal]
	// MaxPositions caps the number of concurrently open positions.
	MaxPositions optional.Option[int]
}

// Validate checks the numeric inputs and fails with a configuration error.
func (c Config) Validate() error {
	if err := validation.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	if c.StopLossPercent.IsSome() {
		sl := c.StopLossPercent.Unwrap()
		if !sl.IsPositive() || sl.GreaterThanOrEqual(hundred) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "stop loss percent must be in (0, 100), got %s", sl)
		}
	}

	if c.MaxPositions.IsSome() && c.MaxPositions.Unwrap() < 1 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "max positions must be at least 1, got %d", c.MaxPositions.Unwrap())
	}

	return nil
}

var hundred = decimal.NewFromInt(100)

// fraction converts a percentage into a fraction of one.
func fraction(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}
