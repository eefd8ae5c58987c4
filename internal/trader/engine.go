package trader

import (
	"context"
	"sync"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/exchange"
	"binance-grid-bot-go/internal/pricefeed"
	"binance-grid-bot-go/internal/store"
	"binance-grid-bot-go/internal/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine runs the control loop over a session: fetch prices, evaluate and
// apply every grid, place orders, record equity and persist.
type Engine struct {
	logger  *zap.Logger
	cfg     *config.Config
	session *Session
	prices  pricefeed.Source
	orders  exchange.Client
	store   store.Store
	journal store.Journal
	now     func() time.Time

	mu     sync.Mutex
	loaded bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new engine. If st also implements store.Journal every
// executed order is journaled.
func NewEngine(logger *zap.Logger, cfg *config.Config, session *Session, prices pricefeed.Source, orders exchange.Client, st store.Store) *Engine {
	e := &Engine{
		logger:  logger.Named("engine"),
		cfg:     cfg,
		session: session,
		prices:  prices,
		orders:  orders,
		store:   st,
		now:     time.Now,
	}
	if j, ok := st.(store.Journal); ok {
		e.journal = j
	}
	return e
}

func (e *Engine) Session() *Session { return e.session }

// Start restores persisted state on first use and launches the loop, which
// lives until Stop, a fatal error, or ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		select {
		case <-e.done:
			e.cancel()
		default:
			return errors.New(errors.ErrCodeInvalidParameter, "engine already running")
		}
	}

	if !e.loaded {
		e.restore(ctx)
		e.loaded = true
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.session.setRunning(true, e.now())

	go e.run(runCtx, e.done)
	return nil
}

func (e *Engine) restore(ctx context.Context) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		e.logger.Error("Failed to load persisted state, starting fresh", zap.Error(err))
		e.resumeEquity(ctx)
		return
	}
	if snap == nil {
		e.logger.Info("No persisted state found, starting fresh")
		return
	}
	restored := e.session.Restore(snap)
	e.logger.Info("Restored persisted state",
		zap.Strings("grids", restored),
		zap.Int("equity_samples", len(snap.Equity)))
}

// resumeEquity numbers new equity samples after the ones an appending store
// already holds. Otherwise they would collide with persisted rows and be
// dropped.
func (e *Engine) resumeEquity(ctx context.Context) {
	head, ok := e.store.(store.EquityHead)
	if !ok {
		return
	}
	seq, err := head.LastEquitySeq(ctx)
	if err != nil {
		e.logger.Warn("Failed to read persisted equity head, new samples may be dropped until their numbers pass it",
			zap.Error(err))
		return
	}
	if seq > 0 {
		e.session.resumeEquityAfter(seq)
		e.logger.Info("Equity samples continue after persisted history", zap.Int64("seq", seq))
	}
}

// Stop cancels the loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	e.logger.Info("Engine stopped")
}

// Wait blocks until the loop exits.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := e.cfg.Trading.CheckInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting control loop",
		zap.String("session", e.session.ID()),
		zap.String("mode", e.cfg.Trading.Mode),
		zap.Duration("interval", interval))

	for {
		if err := e.Tick(ctx); err != nil && ctx.Err() == nil {
			if errors.IsFatal(err) {
				e.logger.Error("Fatal error, stopping control loop", zap.Error(err))
				e.session.halt(err)
				return
			}
			e.logger.Warn("Tick finished with errors", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			e.session.halt(nil)
			e.logger.Info("Stopping control loop", zap.String("session", e.session.ID()))
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one synchronous pass over all grids in config order. Failures of
// one grid do not affect the others. A fatal error or cancellation ends the
// pass early, but the state reached so far is still recorded and saved. The
// returned error is the first grid failure, or the error that ended the pass.
func (e *Engine) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	symbols := make([]string, 0, len(e.session.grids))
	for _, g := range e.session.grids {
		symbols = append(symbols, g.Symbol)
	}
	quotes := fetchQuotes(ctx, e.prices, symbols, e.cfg.Trading.FetchTimeout, e.logger)
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		tickErr      error
		stopErr      error
		connectivity bool
	)
	for _, g := range e.session.grids {
		q := quotes[g.Symbol]
		err := q.err
		if err == nil {
			err = e.trade(ctx, g, q.price)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			stopErr = ctx.Err()
			break
		}
		if errors.IsFatal(err) {
			stopErr = err
			break
		}
		if tickErr == nil {
			tickErr = errors.Wrapf(errors.GetCode(err), err, "grid %s", g.Name)
		}
		if errors.IsConnectivity(err) && !errors.HasCode(err, errors.ErrCodeOrderRejected) {
			connectivity = true
		}
	}

	// Grids handled before a stop may already hold filled orders.
	sample, snap := e.session.endTick(e.now())
	e.logger.Debug("Equity recorded", zap.Int64("seq", sample.Seq), zap.String("total_equity", sample.TotalEquity.String()))

	if err := e.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		e.logger.Error("Failed to persist state", zap.Error(err))
	}
	if stopErr != nil {
		return stopErr
	}

	failures := e.session.recordOutcome(tickErr, connectivity)
	if limit := e.cfg.Trading.MaxConsecutiveFailures; connectivity && limit > 0 && failures >= limit {
		return errors.Wrapf(errors.ErrCodeRetriesExhausted, tickErr, "%d consecutive ticks with connectivity failures", failures)
	}
	return tickErr
}

// trade evaluates one grid at price, applies each action and places its
// order. A failed order aborts the remaining actions of the grid.
func (e *Engine) trade(ctx context.Context, g *Grid, price decimal.Decimal) error {
	l := e.logger.With(zap.String("grid", g.Name), zap.String("symbol", g.Symbol))

	for _, a := range e.session.evaluate(g, price) {
		fill, err := e.session.apply(g, a)
		if err != nil {
			l.Error("Failed to apply action", zap.Stringer("action", a.Kind), zap.Error(err))
			return err
		}

		al := l.With(
			zap.Stringer("action", a.Kind),
			zap.String("price", a.Price.String()),
			zap.String("quantity", a.Quantity.String()),
		)
		al.Info("Action applied")

		order, err := e.orders.PlaceMarketOrder(ctx, g.Symbol, exchange.Side(a.Kind.Side()), a.Quantity)
		if err != nil {
			al.Error("Failed to place order, skipping remaining actions", zap.Error(err))
			return err
		}
		al.Info("Order filled", zap.String("order_id", order.OrderID), zap.String("fill_price", order.Price.String()))

		e.record(ctx, al, g, fill, order)
	}
	return nil
}

func (e *Engine) record(ctx context.Context, l *zap.Logger, g *Grid, fill strategy.Fill, order exchange.OrderResult) {
	if e.journal == nil {
		return
	}

	rec := store.OrderRecord{
		Grid:      g.Name,
		Symbol:    g.Symbol,
		Side:      string(order.Side),
		Reason:    fill.Action.Kind.String(),
		OrderID:   order.OrderID,
		Price:     order.Price,
		Quantity:  order.Quantity,
		Simulated: e.cfg.Trading.Mode == config.ModeSimulate,
		Time:      order.Time,
	}
	if fill.Action.Kind == strategy.Buy {
		rec.PositionID = fill.Position.ID
	} else {
		rec.PositionID = fill.Trade.PositionID
		rec.Profit = fill.Trade.RealizedProfit
	}

	if err := e.journal.RecordOrder(ctx, rec); err != nil {
		l.Error("Failed to journal order", zap.Error(err))
	}
}
