// Package equity aggregates the total account value across grids into an
// append-only time series, one sample per control loop tick.
package equity

import (
	"time"

	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
)

// Sample is the total equity observed at the end of one tick.
type Sample struct {
	Seq         int64           `json:"seq"`
	Timestamp   time.Time       `json:"timestamp"`
	TotalEquity decimal.Decimal `json:"total_equity"`
}

// Tracker keeps the equity series. It is not safe for concurrent use.
type Tracker struct {
	samples []Sample
	after   int64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Record sums free balance and marked open positions over all ledgers and
// appends the result. Positions of a symbol missing from prices are marked at
// their entry price. The ledgers are only read.
func (t *Tracker) Record(ts time.Time, ledgers []*ledger.Ledger, prices map[string]decimal.Decimal) Sample {
	total := decimal.Zero
	for _, l := range ledgers {
		total = total.Add(Value(l, prices))
	}

	s := Sample{Seq: t.nextSeq(), Timestamp: ts, TotalEquity: total}
	t.samples = append(t.samples, s)
	return s
}

// Value is the equity of a single ledger at the given prices.
func Value(l *ledger.Ledger, prices map[string]decimal.Decimal) decimal.Decimal {
	if price, ok := prices[l.Symbol()]; ok && price.IsPositive() {
		return l.Equity(price)
	}

	total := l.RealizedCapital()
	for _, p := range l.OpenPositions() {
		total = total.Add(p.Cost())
	}
	return total
}

func (t *Tracker) nextSeq() int64 {
	next := t.after + 1
	if n := len(t.samples); n > 0 && t.samples[n-1].Seq >= next {
		next = t.samples[n-1].Seq + 1
	}
	return next
}

// ResumeAfter makes the next recorded sample take a sequence number above
// seq, so a fresh series does not reuse numbers already persisted.
func (t *Tracker) ResumeAfter(seq int64) {
	if seq > t.after {
		t.after = seq
	}
}

// Samples returns a copy of the series in recording order.
func (t *Tracker) Samples() []Sample {
	return append([]Sample(nil), t.samples...)
}

// Last returns the latest sample, if any.
func (t *Tracker) Last() (Sample, bool) {
	if len(t.samples) == 0 {
		return Sample{}, false
	}
	return t.samples[len(t.samples)-1], true
}

func (t *Tracker) Len() int { return len(t.samples) }

// Restore replaces the series with previously persisted samples. Recording
// continues after the highest restored sequence number.
func (t *Tracker) Restore(samples []Sample) {
	t.samples = append([]Sample(nil), samples...)
}
