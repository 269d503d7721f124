// Package api serves the operational HTTP surface: health probes,
// Prometheus metrics and a small read-only JSON API over the pipeline state
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/ingest"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/internal/pipeline"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// Server exposes pipeline state over HTTP. All endpoints are read-only
// except the alert history reset.
type Server struct {
	pipe   *pipeline.Pipeline
	source ingest.Source
	engine *alert.Engine
	server *http.Server
}

// NewServer builds the router and binds it to the given port
func NewServer(port int, pipe *pipeline.Pipeline, source ingest.Source, engine *alert.Engine) *Server {
	s := &Server{
		pipe:   pipe,
		source: source,
		engine: engine,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/pairs", s.handlePairs).Methods(http.MethodGet)
	api.HandleFunc("/pairs/{y}/{x}", s.handlePair).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleClearAlerts).Methods(http.MethodDelete)
	api.HandleFunc("/bars/{symbol}/{timeframe}", s.handleBarsCSV).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.Info("HTTP server listening", logger.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.pipe.Store()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"source":      s.source.Name(),
		"connected":   s.source.IsConnected(),
		"tick_count":  st.TickCount(),
		"last_update": st.LastUpdate(),
		"symbols":     st.Symbols(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleReady reports ready once the store has seen data. Replay sources
// disconnect at EOF but remain ready; the data is already in memory.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pipe.Store().TickCount() == 0 && !s.source.IsConnected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.Latest())
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	analysis := s.pipe.Analysis(vars["y"], vars["x"])
	if analysis == nil {
		writeError(w, http.StatusNotFound, "no analysis for pair")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	filter := alert.HistoryFilter{
		Severity: alert.Severity(strings.ToUpper(r.URL.Query().Get("severity"))),
		Type:     alert.AlertType(strings.ToLower(r.URL.Query().Get("type"))),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	writeJSON(w, http.StatusOK, s.engine.History(filter))
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBarsCSV(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tf, err := models.ParseTimeframe(vars["timeframe"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown timeframe")
		return
	}
	symbol := strings.ToUpper(vars["symbol"])

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s_%s.csv", strings.ToLower(symbol), tf))
	if err := s.pipe.Store().ExportCSV(w, symbol, tf); err != nil {
		logger.Error("CSV export failed",
			logger.ErrorField(err),
			logger.String("symbol", symbol),
		)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.pipe.Store()
	writeJSON(w, http.StatusOK, map[string]any{
		"tick_count":  st.TickCount(),
		"bar_counts":  st.BarCount("", ""),
		"last_update": st.LastUpdate(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
