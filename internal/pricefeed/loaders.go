package pricefeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"binance-grid-bot-go/internal/binance"
	"binance-grid-bot-go/internal/errors"
	"github.com/shopspring/decimal"
)

// LoadKlines returns the candle closes of symbol over the lookback window
// ending at now.
func LoadKlines(ctx context.Context, client binance.RestClientInterface, symbol, interval string, lookback time.Duration, now time.Time) ([]decimal.Decimal, error) {
	klines, err := client.GetKlines(ctx, symbol, interval, now.Add(-lookback), now)
	if err != nil {
		return nil, connectivity(err, "load replay klines for %s", symbol)
	}
	if len(klines) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoPrice, "no klines for %s in the last %s", symbol, lookback)
	}

	closes := make([]decimal.Decimal, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return closes, nil
}

// LoadCSV reads prices for symbol from a CSV file with a header row. The price
// column is named "close" or "price"; when a "symbol" column is present only
// matching rows are used.
func LoadCSV(path, symbol string) ([]decimal.Decimal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "open replay file %s", path)
	}
	defer f.Close()

	prices, err := readCSV(f, symbol)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read replay file %s", path)
	}
	return prices, nil
}

func readCSV(r io.Reader, symbol string) ([]decimal.Decimal, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	priceCol, symbolCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "close", "price":
			priceCol = i
		case "symbol":
			symbolCol = i
		}
	}
	if priceCol < 0 {
		return nil, fmt.Errorf("no close or price column in header %v", header)
	}

	var prices []decimal.Decimal
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if symbolCol >= 0 && !strings.EqualFold(rec[symbolCol], symbol) {
			continue
		}
		p, err := decimal.NewFromString(strings.TrimSpace(rec[priceCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !p.IsPositive() {
			return nil, fmt.Errorf("line %d: non-positive price %s", line, p)
		}
		prices = append(prices, p)
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("no prices for %s", symbol)
	}
	return prices, nil
}

// RandomWalk generates a deterministic series of points prices starting at
// start, each step moving by at most vol (a fraction) up or down. The seed is
// mixed with the symbol so grids on different symbols do not move in lockstep.
func RandomWalk(seed int64, symbol string, start, vol float64, points int) []decimal.Decimal {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	r := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))

	prices := make([]decimal.Decimal, points)
	price := start
	for i := range prices {
		prices[i] = decimal.NewFromFloat(price).Round(8)
		price *= 1 + (r.Float64()-0.5)*2*vol
	}
	return prices
}
