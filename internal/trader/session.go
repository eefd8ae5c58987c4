package trader

import (
	"sort"
	"sync"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/ledger"
	"binance-grid-bot-go/internal/store"
	"binance-grid-bot-go/internal/strategy"
	"github.com/shopspring/decimal"
)

// Grid is one independently configured strategy with its own ledger.
type Grid struct {
	Name      string
	Symbol    string
	evaluator *strategy.Evaluator
	ledger    *ledger.Ledger
}

// Session is the state of one run of the control loop. The engine is its only
// writer; every read method returns detached copies.
type Session struct {
	mu sync.RWMutex

	id      string
	mode    string
	grids   []*Grid
	tracker *equity.Tracker
	prices  map[string]decimal.Decimal

	running   bool
	startedAt time.Time
	lastTick  time.Time
	ticks     int64
	failures  int
	lastErr   string
}

// NewSession builds a fresh ledger for every configured grid.
func NewSession(id string, cfg *config.Config, opts ...ledger.Option) (*Session, error) {
	capital := cfg.GridCapital()
	s := &Session{
		id:      id,
		mode:    cfg.Trading.Mode,
		tracker: equity.NewTracker(),
		prices:  make(map[string]decimal.Decimal),
	}

	for i, gc := range cfg.Grids {
		ev, err := strategy.NewEvaluator(gc.StrategyConfig())
		if err != nil {
			return nil, err
		}
		s.grids = append(s.grids, &Grid{
			Name:      gc.Name,
			Symbol:    gc.Symbol,
			evaluator: ev,
			ledger:    ledger.New(gc.Name, gc.Symbol, capital[i], opts...),
		})
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Restore replaces grid ledgers with persisted states matched by key and
// symbol, and restores the equity series. It returns the keys restored.
// States of grids no longer configured are ignored.
func (s *Session) Restore(snap *store.Snapshot, opts ...ledger.Option) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[string]ledger.State, len(snap.Ledgers))
	for _, st := range snap.Ledgers {
		byKey[st.Key] = st
	}

	var restored []string
	for _, g := range s.grids {
		st, ok := byKey[g.Name]
		if !ok || st.Symbol != g.Symbol {
			continue
		}
		g.ledger = ledger.FromState(st, opts...)
		restored = append(restored, g.Name)
	}
	s.tracker.Restore(snap.Equity)
	return restored
}

// LastPrice returns the last price evaluated for symbol.
func (s *Session) LastPrice(symbol string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	return p, ok
}

func (s *Session) evaluate(g *Grid, price decimal.Decimal) []strategy.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[g.Symbol] = price
	return g.evaluator.Evaluate(price, g.ledger)
}

func (s *Session) apply(g *Grid, a strategy.Action) (strategy.Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return g.evaluator.Apply(g.ledger, a)
}

// resumeEquityAfter continues the equity numbering above seq.
func (s *Session) resumeEquityAfter(seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.ResumeAfter(seq)
}

// endTick records an equity sample and returns the state to persist.
func (s *Session) endTick(at time.Time) (equity.Sample, store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledgers := make([]*ledger.Ledger, 0, len(s.grids))
	for _, g := range s.grids {
		ledgers = append(ledgers, g.ledger)
	}
	sample := s.tracker.Record(at, ledgers, s.prices)
	s.lastTick = at
	s.ticks++
	return sample, s.snapshotLocked()
}

// Snapshot returns a deep copy of all ledgers and the equity series.
func (s *Session) Snapshot() store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() store.Snapshot {
	snap := store.Snapshot{Equity: s.tracker.Samples()}
	for _, g := range s.grids {
		snap.Ledgers = append(snap.Ledgers, g.ledger.State())
	}
	return snap
}

func (s *Session) setRunning(running bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
	if running {
		s.startedAt = at
		s.failures = 0
		s.lastErr = ""
	}
}

// recordOutcome updates the failure streak. A nil err resets it; a
// connectivity failure extends it. It returns the current streak.
func (s *Session) recordOutcome(err error, connectivity bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.failures = 0
		s.lastErr = ""
	case connectivity:
		s.failures++
		s.lastErr = err.Error()
	default:
		s.lastErr = err.Error()
	}
	return s.failures
}

// halt marks the session stopped because of err.
func (s *Session) halt(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil {
		s.lastErr = err.Error()
	}
}

// GridStatus is the read-only view of one grid.
type GridStatus struct {
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	LastPrice       decimal.Decimal `json:"last_price"`
	ReferencePrice  decimal.Decimal `json:"reference_price"`
	OpenPositions   int             `json:"open_positions"`
	OpenQuantity    decimal.Decimal `json:"open_quantity"`
	ClosedTrades    int             `json:"closed_trades"`
	RealizedCapital decimal.Decimal `json:"realized_capital"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
	Equity          decimal.Decimal `json:"equity"`
}

// Status is the read-only view of the session.
type Status struct {
	SessionID           string          `json:"session_id"`
	Mode                string          `json:"mode"`
	Running             bool            `json:"running"`
	StartedAt           time.Time       `json:"started_at"`
	LastTick            time.Time       `json:"last_tick"`
	Ticks               int64           `json:"ticks"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	LastError           string          `json:"last_error,omitempty"`
	TotalEquity         decimal.Decimal `json:"total_equity"`
	Grids               []GridStatus    `json:"grids"`
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		SessionID:           s.id,
		Mode:                s.mode,
		Running:             s.running,
		StartedAt:           s.startedAt,
		LastTick:            s.lastTick,
		Ticks:               s.ticks,
		ConsecutiveFailures: s.failures,
		LastError:           s.lastErr,
		TotalEquity:         decimal.Zero,
	}
	for _, g := range s.grids {
		value := equity.Value(g.ledger, s.prices)
		st.TotalEquity = st.TotalEquity.Add(value)
		st.Grids = append(st.Grids, GridStatus{
			Name:            g.Name,
			Symbol:          g.Symbol,
			LastPrice:       s.prices[g.Symbol],
			ReferencePrice:  g.ledger.ReferencePrice(),
			OpenPositions:   g.ledger.Len(),
			OpenQuantity:    g.ledger.OpenQuantity(),
			ClosedTrades:    len(g.ledger.ClosedTrades()),
			RealizedCapital: g.ledger.RealizedCapital(),
			RealizedProfit:  g.ledger.RealizedProfit(),
			Equity:          value,
		})
	}
	return st
}

// Running reports whether the control loop is active.
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GridPositions lists the open positions of one grid.
type GridPositions struct {
	Grid      string            `json:"grid"`
	Symbol    string            `json:"symbol"`
	Positions []ledger.Position `json:"positions"`
}

func (s *Session) Positions() []GridPositions {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]GridPositions, 0, len(s.grids))
	for _, g := range s.grids {
		out = append(out, GridPositions{Grid: g.Name, Symbol: g.Symbol, Positions: g.ledger.OpenPositions()})
	}
	return out
}

// GridTrade is a closed trade tagged with its grid.
type GridTrade struct {
	Grid   string `json:"grid"`
	Symbol string `json:"symbol"`
	ledger.ClosedTrade
}

// Trades returns the closed trades of every grid, most recent first, at most
// limit of them when limit > 0.
func (s *Session) Trades(limit int) []GridTrade {
	s.mu.RLock()
	var out []GridTrade
	for _, g := range s.grids {
		for _, t := range g.ledger.ClosedTrades() {
			out = append(out, GridTrade{Grid: g.Name, Symbol: g.Symbol, ClosedTrade: t})
		}
	}
	s.mu.RUnlock()

	sortTradesDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Session) Equity() []equity.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Samples()
}

// Summary computes trade statistics across all grids.
func (s *Session) Summary(now time.Time) equity.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var closed []ledger.ClosedTrade
	for _, g := range s.grids {
		closed = append(closed, g.ledger.ClosedTrades()...)
	}
	return equity.Summarize(closed, s.tracker.Samples(), now)
}

func sortTradesDesc(trades []GridTrade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ClosedAt.After(trades[j].ClosedAt)
	})
}
