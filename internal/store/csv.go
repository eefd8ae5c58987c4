package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/errors"
	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
)

var (
	openHeader   = []string{"Time", "Buy Price", "Amount", "ID"}
	closedHeader = []string{"Time", "Buy Price", "Sell Price", "Amount", "Profit", "Opened", "Exit", "ID"}
	stateHeader  = []string{"Key", "Symbol", "Realized Capital", "Realized Profit", "Reference Price", "Updated At"}
	equityHeader = []string{"Seq", "Time", "Equity"}

	unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

const equityFile = "equity_history.csv"

// CSVStore writes one set of spreadsheet-friendly files per grid into dir:
// state_<key>.csv, open_positions_<key>.csv and closed_positions_<key>.csv,
// plus a shared equity_history.csv. Every file is replaced atomically.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

func (s *CSVStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statePaths, err := filepath.Glob(filepath.Join(s.dir, "state_*.csv"))
	if err != nil {
		return nil, loadFailed(err, "csv state files")
	}
	sort.Strings(statePaths)

	snap := &Snapshot{}
	for _, path := range statePaths {
		st, err := readState(path)
		if err != nil {
			return nil, loadFailed(err, path)
		}
		name := fileKey(st.Key)
		if st.Open, err = readOpen(filepath.Join(s.dir, "open_positions_"+name+".csv")); err != nil {
			return nil, loadFailed(err, "open positions of "+st.Key)
		}
		if st.Closed, err = readClosed(filepath.Join(s.dir, "closed_positions_"+name+".csv")); err != nil {
			return nil, loadFailed(err, "closed positions of "+st.Key)
		}
		snap.Ledgers = append(snap.Ledgers, st)
	}

	if snap.Equity, err = readEquity(filepath.Join(s.dir, equityFile)); err != nil {
		return nil, loadFailed(err, "equity history")
	}

	if len(snap.Ledgers) == 0 && len(snap.Equity) == 0 {
		return nil, nil
	}
	return snap, nil
}

func (s *CSVStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return saveFailed(err, "csv directory")
	}

	for _, st := range snap.Ledgers {
		name := fileKey(st.Key)

		state := [][]string{{st.Key, st.Symbol, st.RealizedCapital.String(), st.RealizedProfit.String(),
			st.ReferencePrice.String(), formatTime(st.UpdatedAt)}}
		if err := writeCSV(filepath.Join(s.dir, "state_"+name+".csv"), stateHeader, state); err != nil {
			return saveFailed(err, "state of "+st.Key)
		}

		open := make([][]string, 0, len(st.Open))
		for _, p := range st.Open {
			open = append(open, []string{formatTime(p.OpenedAt), p.EntryPrice.String(), p.Quantity.String(), p.ID})
		}
		if err := writeCSV(filepath.Join(s.dir, "open_positions_"+name+".csv"), openHeader, open); err != nil {
			return saveFailed(err, "open positions of "+st.Key)
		}

		closed := make([][]string, 0, len(st.Closed))
		for _, t := range st.Closed {
			closed = append(closed, []string{formatTime(t.ClosedAt), t.EntryPrice.String(), t.ExitPrice.String(),
				t.Quantity.String(), t.RealizedProfit.String(), formatTime(t.OpenedAt), string(t.Exit), t.PositionID})
		}
		if err := writeCSV(filepath.Join(s.dir, "closed_positions_"+name+".csv"), closedHeader, closed); err != nil {
			return saveFailed(err, "closed positions of "+st.Key)
		}
	}

	samples := make([][]string, 0, len(snap.Equity))
	for _, e := range snap.Equity {
		samples = append(samples, []string{strconv.FormatInt(e.Seq, 10), formatTime(e.Timestamp), e.TotalEquity.String()})
	}
	if err := writeCSV(filepath.Join(s.dir, equityFile), equityHeader, samples); err != nil {
		return saveFailed(err, "equity history")
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func fileKey(key string) string {
	return unsafeName.ReplaceAllString(key, "_")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// writeCSV replaces path with header and rows through a temp file and rename.
func writeCSV(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readCSV returns the data rows of path, or nil if it does not exist.
func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

func readState(path string) (ledger.State, error) {
	rows, err := readCSV(path, stateHeader)
	if err != nil {
		return ledger.State{}, err
	}
	if len(rows) != 1 {
		return ledger.State{}, errors.Newf(errors.ErrCodeLoadFailed, "%s: expected one state row, got %d", path, len(rows))
	}
	row := rows[0]

	st := ledger.State{Key: row[0], Symbol: row[1]}
	if err := parseDecimals(map[*decimal.Decimal]string{
		&st.RealizedCapital: row[2],
		&st.RealizedProfit:  row[3],
		&st.ReferencePrice:  row[4],
	}); err != nil {
		return ledger.State{}, err
	}
	if st.UpdatedAt, err = parseTime(row[5]); err != nil {
		return ledger.State{}, err
	}
	return st, nil
}

func readOpen(path string) ([]ledger.Position, error) {
	rows, err := readCSV(path, openHeader)
	if err != nil {
		return nil, err
	}
	var out []ledger.Position
	for _, row := range rows {
		p := ledger.Position{ID: row[3]}
		if p.OpenedAt, err = parseTime(row[0]); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{&p.EntryPrice: row[1], &p.Quantity: row[2]}); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func readClosed(path string) ([]ledger.ClosedTrade, error) {
	rows, err := readCSV(path, closedHeader)
	if err != nil {
		return nil, err
	}
	var out []ledger.ClosedTrade
	for _, row := range rows {
		t := ledger.ClosedTrade{Exit: ledger.ExitKind(row[6]), PositionID: row[7]}
		if t.ClosedAt, err = parseTime(row[0]); err != nil {
			return nil, err
		}
		if t.OpenedAt, err = parseTime(row[5]); err != nil {
			return nil, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&t.EntryPrice:     row[1],
			&t.ExitPrice:      row[2],
			&t.Quantity:       row[3],
			&t.RealizedProfit: row[4],
		}); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func readEquity(path string) ([]equity.Sample, error) {
	rows, err := readCSV(path, equityHeader)
	if err != nil {
		return nil, err
	}
	var out []equity.Sample
	for _, row := range rows {
		var e equity.Sample
		if e.Seq, err = strconv.ParseInt(row[0], 10, 64); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(row[1]); err != nil {
			return nil, err
		}
		if e.TotalEquity, err = decimal.NewFromString(row[2]); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
