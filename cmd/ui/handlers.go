package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"binance-grid-bot-go/internal/equity"
	"binance-grid-bot-go/internal/ledger"
	"binance-grid-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTradeLimit = 500

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
	now func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log.Named("ui"), db: db, now: time.Now}
}

// Routes registers the read-only dashboard endpoints.
func (h *APIHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", h.StatusHandler)
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("GET /api/positions", h.PositionsHandler)
	mux.HandleFunc("GET /api/equity", h.EquityHandler)
	mux.HandleFunc("GET /api/statistics", h.StatisticsHandler)
	return mux
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

// GridStatus summarizes one persisted ledger.
type GridStatus struct {
	Grid            string          `json:"grid"`
	Symbol          string          `json:"symbol"`
	OpenPositions   int64           `json:"open_positions"`
	OpenCost        decimal.Decimal `json:"open_cost"`
	RealizedCapital decimal.Decimal `json:"realized_capital"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`
	ReferencePrice  decimal.Decimal `json:"reference_price"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StatusHandler returns the state of every persisted grid.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	var ledgers []models.Ledger
	if err := h.db.Order("grid_key").Find(&ledgers).Error; err != nil {
		h.log.Error("Failed to get ledgers from database", zap.Error(err))
		http.Error(w, "Failed to get status", http.StatusInternalServerError)
		return
	}

	out := make([]GridStatus, 0, len(ledgers))
	for _, l := range ledgers {
		var open []models.Position
		if err := h.db.Where("ledger_key = ?", l.Key).Find(&open).Error; err != nil {
			h.log.Error("Failed to get positions from database", zap.Error(err))
			http.Error(w, "Failed to get status", http.StatusInternalServerError)
			return
		}
		cost := decimal.Zero
		for _, p := range open {
			cost = cost.Add(p.EntryPrice.Mul(p.Quantity))
		}
		out = append(out, GridStatus{
			Grid:            l.Key,
			Symbol:          l.Symbol,
			OpenPositions:   int64(len(open)),
			OpenCost:        cost,
			RealizedCapital: l.RealizedCapital,
			RealizedProfit:  l.RealizedProfit,
			ReferencePrice:  l.ReferencePrice,
			UpdatedAt:       l.UpdatedAt,
		})
	}
	h.writeJSON(w, out)
}

// TradesHandler returns the order journal, most recent first. It accepts
// optional grid and limit query parameters.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	q := h.db.Order("timestamp desc").Order("id desc").Limit(limit)
	if grid := r.URL.Query().Get("grid"); grid != "" {
		q = q.Where("grid = ?", grid)
	}

	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, trades)
}

// PositionsHandler returns the open positions, oldest first within a grid.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	var positions []models.Position
	if err := h.db.Order("ledger_key").Order("seq").Find(&positions).Error; err != nil {
		h.log.Error("Failed to get positions from database", zap.Error(err))
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, positions)
}

// EquityHandler returns the equity series.
func (h *APIHandler) EquityHandler(w http.ResponseWriter, r *http.Request) {
	samples, err := h.samples()
	if err != nil {
		h.log.Error("Failed to get equity samples from database", zap.Error(err))
		http.Error(w, "Failed to get equity", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, samples)
}

// StatisticsHandler calculates and returns trading statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	var rows []models.ClosedTrade
	if err := h.db.Order("closed_at").Find(&rows).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	samples, err := h.samples()
	if err != nil {
		h.log.Error("Failed to get equity for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	closed := make([]ledger.ClosedTrade, 0, len(rows))
	for _, t := range rows {
		closed = append(closed, ledger.ClosedTrade{
			PositionID:     t.PositionID,
			OpenedAt:       t.OpenedAt,
			ClosedAt:       t.ClosedAt,
			EntryPrice:     t.EntryPrice,
			ExitPrice:      t.ExitPrice,
			Quantity:       t.Quantity,
			RealizedProfit: t.RealizedProfit,
			Exit:           ledger.ExitKind(t.Exit),
		})
	}
	h.writeJSON(w, equity.Summarize(closed, samples, h.now()))
}

func (h *APIHandler) samples() ([]equity.Sample, error) {
	var rows []models.EquitySample
	if err := h.db.Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]equity.Sample, 0, len(rows))
	for _, e := range rows {
		out = append(out, equity.Sample{Seq: e.Seq, Timestamp: e.Timestamp, TotalEquity: e.TotalEquity})
	}
	return out, nil
}
