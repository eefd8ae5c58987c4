package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"binance-grid-bot-go/internal/config"
	"binance-grid-bot-go/internal/errors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the trading engine.
type APIServer struct {
	ctx    context.Context
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer. ctx is the lifetime of loops started
// through POST /start.
func NewAPIServer(ctx context.Context, engine *Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		ctx:    ctx,
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              config.Address(port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the routes of the control API.
func (s *APIServer) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware)

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/status", s.statusHandler).Methods("GET")
	router.HandleFunc("/positions", s.positionsHandler).Methods("GET")
	router.HandleFunc("/trades", s.tradesHandler).Methods("GET")
	router.HandleFunc("/equity", s.equityHandler).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	router.HandleFunc("/start", s.startHandler).Methods("POST")
	router.HandleFunc("/stop", s.stopHandler).Methods("POST")
	return router
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// recoverMiddleware turns handler panics into a 500 so a broken view never
// takes the process down.
func (s *APIServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := errors.Newf(errors.ErrCodeDisplay, "handler panic: %v", rec)
				s.logger.Error("Recovered from handler panic", zap.String("path", r.URL.Path), zap.Error(err))
				s.writeError(w, http.StatusInternalServerError, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Session().Status())
}

func (s *APIServer) positionsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Session().Positions())
}

func (s *APIServer) tradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit %q", raw))
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.engine.Session().Trades(limit))
}

func (s *APIServer) equityHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Session().Equity())
}

func (s *APIServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Session().Summary(time.Now()))
}

func (s *APIServer) startHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(s.ctx); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Session().Status())
}

func (s *APIServer) stopHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	s.writeJSON(w, http.StatusOK, s.engine.Session().Status())
}
