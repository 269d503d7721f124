package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/config"
	"github.com/udayhese96/Gemscap-Assignment/internal/ingest"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/internal/pipeline"
	"github.com/udayhese96/Gemscap-Assignment/internal/store"
)

func testServer(t *testing.T) (*Server, *store.MemoryStore, *alert.Engine) {
	t.Helper()
	cfg := &config.Config{
		Symbols:           []string{"btcusdt", "ethusdt"},
		Timeframes:        []models.Timeframe{models.Timeframe1m},
		AnalysisTimeframe: models.Timeframe1m,
		RollingWindow:     20,
		ZScoreUpper:       2,
		ZScoreLower:       -2,
		ADFSignificance:   0.05,
		MaxTicks:          100,
		MaxBars:           100,
		MaxAlertHistory:   10,
	}
	st := store.NewMemoryStore(cfg.MaxTicks, cfg.MaxBars)
	engine := alert.NewEngine(alert.DefaultZScoreRules(2, -2, time.Minute), 10)
	source := ingest.NewReplaySource("unused.ndjson", false)
	pipe := pipeline.New(cfg, source, st, engine)
	return NewServer(0, pipe, source, engine), st, engine
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s, st, _ := testServer(t)
	st.AddTick(&models.Tick{
		Symbol: "BTCUSDT", Timestamp: time.Now(), Price: 100, Quantity: 1,
	})

	rec := doRequest(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "replay", body["source"])
	assert.Equal(t, float64(1), body["tick_count"])
}

func TestServer_LiveAlwaysOK(t *testing.T) {
	s, _, _ := testServer(t)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live").Code)
}

func TestServer_ReadyRequiresData(t *testing.T) {
	s, st, _ := testServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(s, http.MethodGet, "/ready").Code)

	st.AddTick(&models.Tick{
		Symbol: "BTCUSDT", Timestamp: time.Now(), Price: 100, Quantity: 1,
	})
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/ready").Code)
}

func TestServer_PairsEmpty(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/pairs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{}\n", rec.Body.String())
}

func TestServer_PairNotFound(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/pairs/btcusdt/ethusdt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Alerts(t *testing.T) {
	s, _, engine := testServer(t)
	engine.CheckZScore("BTCUSDT/ETHUSDT", 2.5, time.Now())

	rec := doRequest(s, http.MethodGet, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []alert.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "zscore_upper", alerts[0].Rule)

	// Severity filter excludes the warning
	rec = doRequest(s, http.MethodGet, "/api/v1/alerts?severity=critical")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Empty(t, alerts)

	// Bad limit rejected
	rec = doRequest(s, http.MethodGet, "/api/v1/alerts?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ClearAlerts(t *testing.T) {
	s, _, engine := testServer(t)
	engine.CheckZScore("P", 2.5, time.Now())

	rec := doRequest(s, http.MethodDelete, "/api/v1/alerts")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, engine.History(alert.HistoryFilter{}))
}

func TestServer_BarsCSV(t *testing.T) {
	s, st, _ := testServer(t)
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	st.AddBar(&models.Bar{
		Symbol: "BTCUSDT", Start: start,
		Open: 1, High: 2, Low: 1, Close: 2, Volume: 3, VWAP: 1.5, TradeCount: 2,
	}, models.Timeframe1m)

	rec := doRequest(s, http.MethodGet, "/api/v1/bars/btcusdt/1m")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "btcusdt_1m.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2026-01-02T10:00:00Z,1,2,1,2,3,1.5,2"))
}

func TestServer_BarsCSVBadTimeframe(t *testing.T) {
	s, _, _ := testServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/bars/btcusdt/9h")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Stats(t *testing.T) {
	s, st, _ := testServer(t)
	st.AddTick(&models.Tick{
		Symbol: "BTCUSDT", Timestamp: time.Now(), Price: 100, Quantity: 1,
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["tick_count"])
}
