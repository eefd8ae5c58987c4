package store

import (
	"context"
	"sync"
	"time"

	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/ledger"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
	grid_key         TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	realized_capital NUMERIC NOT NULL,
	realized_profit  NUMERIC NOT NULL,
	reference_price  NUMERIC NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	ledger_key  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	opened_at   TIMESTAMPTZ NOT NULL,
	entry_price NUMERIC NOT NULL,
	quantity    NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_position_ledger_seq ON positions (ledger_key, seq);
CREATE TABLE IF NOT EXISTS closed_trades (
	position_id     TEXT PRIMARY KEY,
	ledger_key      TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	opened_at       TIMESTAMPTZ NOT NULL,
	closed_at       TIMESTAMPTZ NOT NULL,
	entry_price     NUMERIC NOT NULL,
	exit_price      NUMERIC NOT NULL,
	quantity        NUMERIC NOT NULL,
	realized_profit NUMERIC NOT NULL,
	exit            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closed_ledger_seq ON closed_trades (ledger_key, seq);
CREATE TABLE IF NOT EXISTS equity_samples (
	seq          BIGINT PRIMARY KEY,
	timestamp    TIMESTAMPTZ NOT NULL,
	total_equity NUMERIC NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	id             BIGSERIAL PRIMARY KEY,
	grid           TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	type           TEXT NOT NULL,
	reason         TEXT NOT NULL,
	order_id       TEXT NOT NULL,
	position_id    TEXT NOT NULL,
	price          NUMERIC NOT NULL,
	quantity       NUMERIC NOT NULL,
	quote_quantity NUMERIC NOT NULL,
	profit         NUMERIC NOT NULL,
	timestamp      BIGINT NOT NULL,
	is_simulation  BOOLEAN NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore keeps snapshots in PostgreSQL using NUMERIC columns.
// Decimals travel as text in both directions.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	mark watermark
}

// OpenPostgres connects to url and creates the schema if needed.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, loadFailed(err, "postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, loadFailed(err, "postgres ping")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, saveFailed(err, "postgres schema")
	}
	return &PostgresStore{pool: pool, mark: newWatermark()}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := psql.Select("grid_key", "symbol", "realized_capital::text", "realized_profit::text",
		"reference_price::text", "updated_at").
		From("ledgers").OrderBy("grid_key").ToSql()
	if err != nil {
		return nil, loadFailed(err, "ledgers")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, loadFailed(err, "ledgers")
	}
	var states []ledger.State
	for rows.Next() {
		var (
			st                     ledger.State
			capital, profit, price string
		)
		if err := rows.Scan(&st.Key, &st.Symbol, &capital, &profit, &price, &st.UpdatedAt); err != nil {
			rows.Close()
			return nil, loadFailed(err, "ledgers")
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&st.RealizedCapital: capital,
			&st.RealizedProfit:  profit,
			&st.ReferencePrice:  price,
		}); err != nil {
			rows.Close()
			return nil, loadFailed(err, "ledgers")
		}
		st.UpdatedAt = st.UpdatedAt.UTC()
		states = append(states, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, loadFailed(err, "ledgers")
	}

	for i := range states {
		if states[i].Open, err = s.loadOpen(ctx, states[i].Key); err != nil {
			return nil, err
		}
		if states[i].Closed, err = s.loadClosed(ctx, states[i].Key); err != nil {
			return nil, err
		}
	}

	samples, err := s.loadEquity(ctx)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 && len(samples) == 0 {
		return nil, nil
	}

	snap := &Snapshot{Ledgers: states, Equity: samples}
	s.mark.advance(*snap)
	return snap, nil
}

func (s *PostgresStore) loadOpen(ctx context.Context, key string) ([]ledger.Position, error) {
	query, args, err := psql.Select("position_id", "opened_at", "entry_price::text", "quantity::text").
		From("positions").Where(squirrel.Eq{"ledger_key": key}).OrderBy("seq").ToSql()
	if err != nil {
		return nil, loadFailed(err, "open positions")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, loadFailed(err, "open positions")
	}
	defer rows.Close()

	var out []ledger.Position
	for rows.Next() {
		var (
			p          ledger.Position
			entry, qty string
		)
		if err := rows.Scan(&p.ID, &p.OpenedAt, &entry, &qty); err != nil {
			return nil, loadFailed(err, "open positions")
		}
		if err := parseDecimals(map[*decimal.Decimal]string{&p.EntryPrice: entry, &p.Quantity: qty}); err != nil {
			return nil, loadFailed(err, "open positions")
		}
		p.OpenedAt = p.OpenedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, loadFailed(err, "open positions")
	}
	return out, nil
}

func (s *PostgresStore) loadClosed(ctx context.Context, key string) ([]ledger.ClosedTrade, error) {
	query, args, err := psql.Select("position_id", "opened_at", "closed_at", "entry_price::text",
		"exit_price::text", "quantity::text", "realized_profit::text", "exit").
		From("closed_trades").Where(squirrel.Eq{"ledger_key": key}).OrderBy("seq").ToSql()
	if err != nil {
		return nil, loadFailed(err, "closed trades")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, loadFailed(err, "closed trades")
	}
	defer rows.Close()

	var out []ledger.ClosedTrade
	for rows.Next() {
		var (
			t                        ledger.ClosedTrade
			entry, exit, qty, profit string
			kind                     string
		)
		if err := rows.Scan(&t.PositionID, &t.OpenedAt, &t.ClosedAt, &entry, &exit, &qty, &profit, &kind); err != nil {
			return nil, loadFailed(err, "closed trades")
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&t.EntryPrice:     entry,
			&t.ExitPrice:      exit,
			&t.Quantity:       qty,
			&t.RealizedProfit: profit,
		}); err != nil {
			return nil, loadFailed(err, "closed trades")
		}
		t.OpenedAt = t.OpenedAt.UTC()
		t.ClosedAt = t.ClosedAt.UTC()
		t.Exit = ledger.ExitKind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, loadFailed(err, "closed trades")
	}
	return out, nil
}

func (s *PostgresStore) LastEquitySeq(ctx context.Context) (int64, error) {
	query, args, err := psql.Select("COALESCE(MAX(seq), 0)").From("equity_samples").ToSql()
	if err != nil {
		return 0, loadFailed(err, "equity head")
	}
	var seq int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, loadFailed(err, "equity head")
	}
	return seq, nil
}

func (s *PostgresStore) loadEquity(ctx context.Context) ([]equity.Sample, error) {
	query, args, err := psql.Select("seq", "timestamp", "total_equity::text").
		From("equity_samples").OrderBy("seq").ToSql()
	if err != nil {
		return nil, loadFailed(err, "equity samples")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, loadFailed(err, "equity samples")
	}
	defer rows.Close()

	var out []equity.Sample
	for rows.Next() {
		var (
			e     equity.Sample
			total string
		)
		if err := rows.Scan(&e.Seq, &e.Timestamp, &total); err != nil {
			return nil, loadFailed(err, "equity samples")
		}
		if e.TotalEquity, err = decimal.NewFromString(total); err != nil {
			return nil, loadFailed(err, "equity samples")
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, loadFailed(err, "equity samples")
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, st := range snap.Ledgers {
			if err := s.saveLedger(ctx, tx, st); err != nil {
				return err
			}
		}

		fresh := s.mark.newSamples(snap.Equity)
		if len(fresh) == 0 {
			return nil
		}
		ins := psql.Insert("equity_samples").Columns("seq", "timestamp", "total_equity")
		for _, e := range fresh {
			ins = ins.Values(e.Seq, e.Timestamp, e.TotalEquity.String())
		}
		return exec(ctx, tx, ins.Suffix("ON CONFLICT (seq) DO NOTHING"), "equity samples")
	})
	if err != nil {
		return err
	}

	s.mark.advance(snap)
	return nil
}

func (s *PostgresStore) saveLedger(ctx context.Context, tx pgx.Tx, st ledger.State) error {
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	upsert := psql.Insert("ledgers").
		Columns("grid_key", "symbol", "realized_capital", "realized_profit", "reference_price", "updated_at").
		Values(st.Key, st.Symbol, st.RealizedCapital.String(), st.RealizedProfit.String(), st.ReferencePrice.String(), updated).
		Suffix(`ON CONFLICT (grid_key) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			realized_capital = EXCLUDED.realized_capital,
			realized_profit = EXCLUDED.realized_profit,
			reference_price = EXCLUDED.reference_price,
			updated_at = EXCLUDED.updated_at`)
	if err := exec(ctx, tx, upsert, "ledger "+st.Key); err != nil {
		return err
	}

	if err := exec(ctx, tx, psql.Delete("positions").Where(squirrel.Eq{"ledger_key": st.Key}), "open positions"); err != nil {
		return err
	}
	if len(st.Open) > 0 {
		ins := psql.Insert("positions").Columns("position_id", "ledger_key", "seq", "opened_at", "entry_price", "quantity")
		for i, p := range st.Open {
			ins = ins.Values(p.ID, st.Key, i, p.OpenedAt, p.EntryPrice.String(), p.Quantity.String())
		}
		if err := exec(ctx, tx, ins, "open positions"); err != nil {
			return err
		}
	}

	fresh, from := s.mark.newClosed(st)
	if len(fresh) == 0 {
		return nil
	}
	ins := psql.Insert("closed_trades").Columns("position_id", "ledger_key", "seq", "opened_at", "closed_at",
		"entry_price", "exit_price", "quantity", "realized_profit", "exit")
	for i, t := range fresh {
		ins = ins.Values(t.PositionID, st.Key, from+i, t.OpenedAt, t.ClosedAt, t.EntryPrice.String(),
			t.ExitPrice.String(), t.Quantity.String(), t.RealizedProfit.String(), string(t.Exit))
	}
	return exec(ctx, tx, ins.Suffix("ON CONFLICT (position_id) DO NOTHING"), "closed trades")
}

// RecordOrder appends an executed order to the trades table.
func (s *PostgresStore) RecordOrder(ctx context.Context, rec OrderRecord) error {
	ins := psql.Insert("trades").
		Columns("grid", "symbol", "type", "reason", "order_id", "position_id", "price", "quantity",
			"quote_quantity", "profit", "timestamp", "is_simulation").
		Values(rec.Grid, rec.Symbol, rec.Side, rec.Reason, rec.OrderID, rec.PositionID, rec.Price.String(),
			rec.Quantity.String(), rec.Price.Mul(rec.Quantity).String(), rec.Profit.String(),
			rec.Time.UnixMilli(), rec.Simulated)
	return exec(ctx, s.pool, ins, "order "+rec.OrderID)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func exec(ctx context.Context, db execer, b squirrel.Sqlizer, what string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return saveFailed(err, what)
	}
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return saveFailed(err, what)
	}
	return nil
}

func parseDecimals(fields map[*decimal.Decimal]string) error {
	for dst, raw := range fields {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
