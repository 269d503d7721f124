package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/config"
	"github.com/udayhese96/Gemscap-Assignment/internal/ingest"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		LogLevel:          "error",
		Symbols:           []string{"btcusdt", "ethusdt"},
		Timeframes:        []models.Timeframe{models.Timeframe1s},
		AnalysisTimeframe: models.Timeframe1s,
		RollingWindow:     20,
		ZScoreUpper:       2.0,
		ZScoreLower:       -2.0,
		ADFSignificance:   0.05,
		MaxTicks:          10000,
		MaxBars:           1000,
		AlertCooldown:     time.Minute,
		MaxAlertHistory:   100,
	}
}

// writeDivergingPair writes one tick per symbol per second. BTC tracks
// 2x ETH throughout, then breaks away over the last three seconds, hard
// enough to push the spread z-score over the alert threshold while leaving
// the hedge fit essentially untouched.
func writeDivergingPair(t *testing.T, seconds int) string {
	t.Helper()
	var b strings.Builder
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < seconds; i++ {
		ts := base.Add(time.Duration(i)*time.Second + 100*time.Millisecond)
		eth := 100 + 0.05*float64(i) + 0.2*math.Sin(float64(i))
		btc := 2*eth + 0.2*math.Sin(1.7*float64(i))
		if i >= seconds-3 {
			btc += 5
		}
		fmt.Fprintf(&b, `{"symbol":"ethusdt","ts":"%s","price":%.6f,"size":1}`+"\n",
			ts.Format(time.RFC3339Nano), eth)
		fmt.Fprintf(&b, `{"symbol":"btcusdt","ts":"%s","price":%.6f,"size":1}`+"\n",
			ts.Format(time.RFC3339Nano), btc)
	}
	path := filepath.Join(t.TempDir(), "pair.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func runReplay(t *testing.T, cfg *config.Config, path string) (*Pipeline, *alert.Engine) {
	t.Helper()
	source := ingest.NewReplaySource(path, false)
	st := store.NewMemoryStore(cfg.MaxTicks, cfg.MaxBars)
	engine := alert.NewEngine(
		alert.DefaultZScoreRules(cfg.ZScoreUpper, cfg.ZScoreLower, cfg.AlertCooldown),
		cfg.MaxAlertHistory,
	)
	pipe := New(cfg, source, st, engine)

	require.NoError(t, pipe.Run(context.Background()))
	require.NoError(t, source.Close())
	return pipe, engine
}

func TestPipeline_ReplayEndToEnd(t *testing.T) {
	cfg := testConfig()
	path := writeDivergingPair(t, 140)

	pipe, engine := runReplay(t, cfg, path)
	st := pipe.Store()

	assert.Equal(t, int64(280), st.TickCount())
	counts := st.BarCount("", "")
	assert.Equal(t, 140, counts["BTCUSDT"][models.Timeframe1s])
	assert.Equal(t, 140, counts["ETHUSDT"][models.Timeframe1s])

	analysis := pipe.Analysis("btcusdt", "ethusdt")
	require.NotNil(t, analysis)
	require.NotNil(t, analysis.Hedge)
	assert.InDelta(t, 2.0, analysis.Hedge.Beta, 0.2)
	assert.Greater(t, analysis.ZScore, 2.0)
	assert.Equal(t, "sell", analysis.Signal)
	assert.Greater(t, analysis.Correlation, 0.5)
	require.NotNil(t, analysis.ADF)
	assert.Equal(t, "adf", analysis.ADF.Method)

	history := engine.History(alert.HistoryFilter{})
	require.NotEmpty(t, history)
	rules := make(map[string]bool)
	for _, a := range history {
		rules[a.Rule] = true
		assert.Equal(t, "BTCUSDT/ETHUSDT", a.Symbol)
	}
	assert.True(t, rules["zscore_upper"])
}

func TestPipeline_ReplayIsDeterministic(t *testing.T) {
	cfg := testConfig()
	path := writeDivergingPair(t, 140)

	first, firstEngine := runReplay(t, cfg, path)
	second, secondEngine := runReplay(t, cfg, path)

	a := first.Analysis("btcusdt", "ethusdt")
	b := second.Analysis("btcusdt", "ethusdt")
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, a.Hedge.Beta, b.Hedge.Beta)
	assert.Equal(t, a.Hedge.Alpha, b.Hedge.Alpha)
	assert.Equal(t, a.ZScore, b.ZScore)
	assert.Equal(t, a.SpreadLast, b.SpreadLast)
	assert.Equal(t, a.Correlation, b.Correlation)
	assert.Equal(t, first.Store().TickCount(), second.Store().TickCount())

	// The alert sequence must reproduce too, including the tail bars
	// flushed at EOF
	ha := firstEngine.History(alert.HistoryFilter{})
	hb := secondEngine.History(alert.HistoryFilter{})
	require.Equal(t, len(ha), len(hb))
	for i := range ha {
		assert.Equal(t, ha[i].Rule, hb[i].Rule)
		assert.Equal(t, ha[i].Symbol, hb[i].Symbol)
		assert.Equal(t, ha[i].Value, hb[i].Value)
		assert.Equal(t, ha[i].Timestamp, hb[i].Timestamp)
	}
}

func TestPipeline_NoAnalysisBeforeMinimumSample(t *testing.T) {
	cfg := testConfig()
	// Only five bars: far below the regression minimum
	path := writeDivergingPair(t, 5)

	pipe, engine := runReplay(t, cfg, path)

	analysis := pipe.Analysis("btcusdt", "ethusdt")
	require.NotNil(t, analysis)
	assert.Nil(t, analysis.Hedge)
	assert.True(t, math.IsNaN(analysis.ZScore))
	assert.Equal(t, "neutral", analysis.Signal)
	assert.Empty(t, engine.History(alert.HistoryFilter{}))
}

func TestPipeline_LatestSnapshotCopies(t *testing.T) {
	cfg := testConfig()
	path := writeDivergingPair(t, 40)

	pipe, _ := runReplay(t, cfg, path)
	latest := pipe.Latest()
	require.Contains(t, latest, "BTCUSDT/ETHUSDT")

	// Mutating the snapshot must not affect the pipeline's state
	snap := latest["BTCUSDT/ETHUSDT"]
	snap.Signal = "mutated"
	fresh := pipe.Latest()
	assert.NotEqual(t, "mutated", fresh["BTCUSDT/ETHUSDT"].Signal)
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "BTCUSDT/ETHUSDT", PairKey("btcusdt", "ethusdt"))
}

func TestPairCombinations(t *testing.T) {
	pairs := pairCombinations([]string{"a", "b", "c"})
	require.Len(t, pairs, 3)
	assert.Equal(t, [2]string{"A", "B"}, pairs[0])
	assert.Equal(t, [2]string{"A", "C"}, pairs[1])
	assert.Equal(t, [2]string{"B", "C"}, pairs[2])
}
