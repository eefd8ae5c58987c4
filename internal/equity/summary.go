package equity

import (
	"time"

	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
)

// StatsDetail holds trade statistics for one period.
type StatsDetail struct {
	TotalTrades      int64           `json:"total_trades"`
	ProfitableTrades int64           `json:"profitable_trades"`
	WinRate          float64         `json:"win_rate"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GrossLoss        decimal.Decimal `json:"gross_loss"`
	// ProfitFactor is gross profit over gross loss, zero without losses.
	ProfitFactor float64 `json:"profit_factor"`
}

// Summary is the performance overview served by the status endpoints.
type Summary struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`

	StartEquity   decimal.Decimal `json:"start_equity"`
	CurrentEquity decimal.Decimal `json:"current_equity"`
	// MaxDrawdownPercent is the deepest peak-to-trough equity drop, <= 0.
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
}

// Summarize computes trade statistics over closed and drawdown over samples.
func Summarize(closed []ledger.ClosedTrade, samples []Sample, now time.Time) Summary {
	since := now.Add(-24 * time.Hour)

	var all, recent statsAccumulator
	for _, t := range closed {
		all.add(t.RealizedProfit)
		if t.ClosedAt.After(since) {
			recent.add(t.RealizedProfit)
		}
	}

	s := Summary{
		AllTime:            all.detail(),
		Since24h:           recent.detail(),
		MaxDrawdownPercent: MaxDrawdownPercent(samples),
	}
	if len(samples) > 0 {
		s.StartEquity = samples[0].TotalEquity
		s.CurrentEquity = samples[len(samples)-1].TotalEquity
	}
	return s
}

// MaxDrawdownPercent walks the series keeping the running peak.
func MaxDrawdownPercent(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}

	peak := samples[0].TotalEquity
	worst := decimal.Zero
	for _, s := range samples {
		if s.TotalEquity.GreaterThan(peak) {
			peak = s.TotalEquity
		}
		if !peak.IsPositive() {
			continue
		}
		dd := s.TotalEquity.Sub(peak).Div(peak).Mul(decimal.NewFromInt(100))
		if dd.LessThan(worst) {
			worst = dd
		}
	}
	f, _ := worst.Float64()
	return f
}

type statsAccumulator struct {
	trades, wins int64
	gross, loss  decimal.Decimal
}

func (a *statsAccumulator) add(profit decimal.Decimal) {
	a.trades++
	if profit.IsPositive() {
		a.wins++
	}
	if profit.IsNegative() {
		a.loss = a.loss.Add(profit.Neg())
	} else {
		a.gross = a.gross.Add(profit)
	}
}

func (a *statsAccumulator) detail() StatsDetail {
	d := StatsDetail{
		TotalTrades:      a.trades,
		ProfitableTrades: a.wins,
		TotalProfit:      a.gross.Sub(a.loss),
		GrossProfit:      a.gross,
		GrossLoss:        a.loss,
	}
	if a.trades > 0 {
		d.WinRate = float64(a.wins) / float64(a.trades)
	}
	if a.loss.IsPositive() {
		d.ProfitFactor, _ = a.gross.Div(a.loss).Float64()
	}
	return d
}
