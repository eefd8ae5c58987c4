// Package futures computes the payoff of a leveraged futures position: the
// take-profit and stop-loss prices, the profit or loss at each, and how far
// the price must move to earn a target share of the capital.
package futures

import (
	"sort"

	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/validation"
	"github.com/shopspring/decimal"
)

// Scenario is one set of calculator inputs. Percentages are in percent.
type Scenario struct {
	Capital              float64 `json:"capital" yaml:"capital" validate:"gt=0"`
	InvestPercent        float64 `json:"invest_percent" yaml:"invest_percent" validate:"gt=0,lte=100"`
	Leverage             int     `json:"leverage" yaml:"leverage" validate:"min=1,max=125"`
	EntryPrice           float64 `json:"entry_price" yaml:"entry_price" validate:"gt=0"`
	TakeProfitPercent    float64 `json:"tp_percent" yaml:"tp_percent" validate:"gt=0"`
	StopLossPercent      float64 `json:"sl_percent" yaml:"sl_percent" validate:"gt=0,lt=100"`
	TargetCapitalPercent float64 `json:"target_capital_percent" yaml:"target_capital_percent" validate:"gt=0"`
}

// DefaultScenario returns the calculator's starting inputs.
func DefaultScenario() Scenario {
	return Scenario{
		Capital:              100,
		InvestPercent:        1,
		Leverage:             10,
		EntryPrice:           50000,
		TakeProfitPercent:    2,
		StopLossPercent:      1,
		TargetCapitalPercent: 1,
	}
}

// Result holds the derived values, all in quote currency except the percent.
type Result struct {
	Investment          decimal.Decimal `json:"investment"`
	PositionSize        decimal.Decimal `json:"position_size"`
	TakeProfitPrice     decimal.Decimal `json:"tp_price"`
	StopLossPrice       decimal.Decimal `json:"sl_price"`
	ProfitAtTakeProfit  decimal.Decimal `json:"profit_at_tp"`
	LossAtStopLoss      decimal.Decimal `json:"loss_at_sl"`
	RequiredMovePercent decimal.Decimal `json:"required_move_percent"`
	RequiredPriceUp     decimal.Decimal `json:"required_price_up"`
	RequiredPriceDown   decimal.Decimal `json:"required_price_down"`
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

func pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(hundred)
}

// Validate checks the inputs and fails with a configuration error.
func (s Scenario) Validate() error {
	if err := validation.New().Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid futures scenario", err)
	}
	return nil
}

// Calculate derives the payoff of s. LossAtStopLoss is negative.
func Calculate(s Scenario) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	capital := decimal.NewFromFloat(s.Capital)
	entry := decimal.NewFromFloat(s.EntryPrice)

	var r Result
	r.Investment = pct(s.InvestPercent).Mul(capital)
	r.PositionSize = r.Investment.Mul(decimal.NewFromInt(int64(s.Leverage)))

	r.TakeProfitPrice = entry.Mul(one.Add(pct(s.TakeProfitPercent)))
	r.StopLossPrice = entry.Mul(one.Sub(pct(s.StopLossPercent)))

	r.ProfitAtTakeProfit = pnl(r.PositionSize, entry, r.TakeProfitPrice)
	r.LossAtStopLoss = pnl(r.PositionSize, entry, r.StopLossPrice)

	move := pct(s.TargetCapitalPercent).Mul(capital).Div(r.PositionSize)
	r.RequiredMovePercent = move.Mul(hundred)
	r.RequiredPriceUp = entry.Mul(one.Add(move))
	r.RequiredPriceDown = entry.Mul(one.Sub(move))

	return r, nil
}

// pnl is the profit of a long position of notional size opened at entry and
// closed at exit.
func pnl(size, entry, exit decimal.Decimal) decimal.Decimal {
	return size.Mul(exit.Sub(entry)).Div(entry)
}

// Level is a named price on the payoff chart.
type Level struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Levels returns the entry, TP, SL and target prices sorted from high to low.
func (r Result) Levels(entry float64) []Level {
	levels := []Level{
		{Name: "entry", Price: decimal.NewFromFloat(entry)},
		{Name: "take profit", Price: r.TakeProfitPrice},
		{Name: "stop loss", Price: r.StopLossPrice},
		{Name: "target up", Price: r.RequiredPriceUp},
		{Name: "target down", Price: r.RequiredPriceDown},
	}
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.GreaterThan(levels[j].Price)
	})
	return levels
}
