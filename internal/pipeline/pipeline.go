// Package pipeline wires the tick source, storage, resamplers, analytics
// and alerting into one running unit
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/analytics"
	"github.com/udayhese96/Gemscap-Assignment/internal/config"
	"github.com/udayhese96/Gemscap-Assignment/internal/ingest"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/internal/resample"
	"github.com/udayhese96/Gemscap-Assignment/internal/store"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// PairAnalysis is the latest analytics snapshot for one symbol pair
type PairAnalysis struct {
	SymbolY     string                `json:"symbol_y"`
	SymbolX     string                `json:"symbol_x"`
	Hedge       *analytics.HedgeRatio `json:"hedge,omitempty"`
	SpreadLast  float64               `json:"spread_last"`
	ZScore      float64               `json:"z_score"`
	Signal      string                `json:"signal"`
	Correlation float64               `json:"correlation"`
	HalfLife    float64               `json:"half_life,omitempty"`
	HasHalfLife bool                  `json:"has_half_life"`
	ADF         *analytics.ADFResult  `json:"adf,omitempty"`
	Samples     int                   `json:"samples"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// MarshalJSON renders NaN metrics as null so snapshots survive JSON
// encoding before the rolling window fills
func (a PairAnalysis) MarshalJSON() ([]byte, error) {
	type alias PairAnalysis
	return json.Marshal(struct {
		alias
		SpreadLast  *float64 `json:"spread_last"`
		ZScore      *float64 `json:"z_score"`
		Correlation *float64 `json:"correlation"`
	}{
		alias:       alias(a),
		SpreadLast:  nanToNil(a.SpreadLast),
		ZScore:      nanToNil(a.ZScore),
		Correlation: nanToNil(a.Correlation),
	})
}

func nanToNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// PairKey identifies a pair as "Y/X" with both legs upper-case
func PairKey(symbolY, symbolX string) string {
	return strings.ToUpper(symbolY) + "/" + strings.ToUpper(symbolX)
}

// Pipeline consumes ticks from a source on a single goroutine and keeps the
// store, the per-timeframe resamplers and the pair analytics current. Pair
// analytics recompute on every completed bar of the analysis timeframe, so
// replaying the same file yields identical results run to run.
type Pipeline struct {
	cfg        *config.Config
	source     ingest.Source
	store      *store.MemoryStore
	engine     *alert.Engine
	resamplers map[models.Timeframe]*resample.Resampler
	pairs      [][2]string

	mu     sync.Mutex
	latest map[string]*PairAnalysis

	wg sync.WaitGroup
}

// New assembles a pipeline. Every configured timeframe gets a resampler
// whose completed bars land in the store; the analysis timeframe
// additionally drives pair analytics and alerting.
func New(cfg *config.Config, source ingest.Source, st *store.MemoryStore, engine *alert.Engine) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		source:     source,
		store:      st,
		engine:     engine,
		resamplers: make(map[models.Timeframe]*resample.Resampler),
		pairs:      pairCombinations(cfg.Symbols),
		latest:     make(map[string]*PairAnalysis),
	}

	timeframes := cfg.Timeframes
	if !containsTimeframe(timeframes, cfg.AnalysisTimeframe) {
		timeframes = append(append([]models.Timeframe{}, timeframes...), cfg.AnalysisTimeframe)
	}
	for _, tf := range timeframes {
		r := resample.New(tf)
		tf := tf
		r.OnBar(func(bar *models.Bar) {
			st.AddBar(bar, tf)
		})
		p.resamplers[tf] = r
	}
	// Analytics run after the bar is stored; registration order guarantees it.
	p.resamplers[cfg.AnalysisTimeframe].OnBar(p.onAnalysisBar)

	return p
}

func pairCombinations(symbols []string) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			pairs = append(pairs, [2]string{
				strings.ToUpper(symbols[i]),
				strings.ToUpper(symbols[j]),
			})
		}
	}
	return pairs
}

func containsTimeframe(tfs []models.Timeframe, tf models.Timeframe) bool {
	for _, t := range tfs {
		if t == tf {
			return true
		}
	}
	return false
}

// Run consumes the tick stream until the context is cancelled or the source
// channel closes (replay EOF). On exit every open bar is flushed so the
// final partial interval is analyzed too.
func (p *Pipeline) Run(ctx context.Context) error {
	ticks, err := p.source.Subscribe(ctx, p.cfg.Symbols)
	if err != nil {
		return err
	}

	logger.Info("Pipeline started",
		logger.String("source", p.source.Name()),
		logger.Int("symbols", len(p.cfg.Symbols)),
		logger.Int("pairs", len(p.pairs)),
		logger.String("analysis_timeframe", string(p.cfg.AnalysisTimeframe)),
	)

	p.wg.Add(1)
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				p.flush()
				return nil
			}
			p.store.AddTick(tick)
			for _, r := range p.resamplers {
				r.AddTick(tick)
			}
		}
	}
}

// flush finalizes every open bar in a fixed order so the alert history of
// a replay is reproducible run to run.
func (p *Pipeline) flush() {
	tfs := make([]models.Timeframe, 0, len(p.resamplers))
	for tf := range p.resamplers {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i].Duration() < tfs[j].Duration() })
	for _, tf := range tfs {
		p.resamplers[tf].FlushAll()
	}
	logger.Info("Pipeline flushed",
		logger.Int64("ticks", p.store.TickCount()),
	)
}

// onAnalysisBar recomputes analytics for every pair the completed bar's
// symbol participates in
func (p *Pipeline) onAnalysisBar(bar *models.Bar) {
	for _, pair := range p.pairs {
		if pair[0] != bar.Symbol && pair[1] != bar.Symbol {
			continue
		}
		p.analyzePair(pair[0], pair[1], bar.Start.Add(p.cfg.AnalysisTimeframe.Duration()))
	}
}

// analyzePair runs the full pair workflow: hedge ratio, spread, rolling
// z-score, correlation, half-life and a stationarity check, then feeds the
// z-score to the alert engine. Insufficient data is not an error; the pair
// snapshot simply stays empty until enough bars accumulate.
func (p *Pipeline) analyzePair(symbolY, symbolX string, now time.Time) {
	tf := p.cfg.AnalysisTimeframe
	window := p.cfg.RollingWindow

	pricesY := p.store.Prices(symbolY, tf, 0)
	pricesX := p.store.Prices(symbolX, tf, 0)

	analysis := &PairAnalysis{
		SymbolY:    symbolY,
		SymbolX:    symbolX,
		ZScore:     math.NaN(),
		SpreadLast: math.NaN(),
		Signal:     "neutral",
		UpdatedAt:  now,
	}
	defer p.storeAnalysis(analysis)

	hedge, err := analytics.OLSHedgeRatio(pricesY, pricesX)
	if err != nil {
		if !errors.Is(err, analytics.ErrInsufficientData) {
			logger.ErrorsTotal.WithLabelValues("analytics", "hedge_fit").Inc()
			logger.Warn("Hedge ratio fit failed",
				logger.ErrorField(err),
				logger.String("pair", PairKey(symbolY, symbolX)),
			)
		}
		return
	}
	analysis.Hedge = hedge

	spread := analytics.Spread(pricesY, pricesX, hedge.Beta, false)
	analysis.Samples = spread.Len()
	if last, ok := spread.Last(); ok {
		analysis.SpreadLast = last
	}

	if hl, err := analytics.HalfLife(spread); err == nil {
		analysis.HalfLife = hl
		analysis.HasHalfLife = true
	}

	zscores := analytics.ZScore(spread, window)
	if z, ok := zscores.Last(); ok && !math.IsNaN(z) {
		analysis.ZScore = z
		analysis.Signal = analytics.Signal(z, p.cfg.ZScoreUpper, p.cfg.ZScoreLower)
		p.engine.CheckZScore(PairKey(symbolY, symbolX), z, now)
	}

	corr := analytics.RollingCorrelation(pricesY, pricesX, window)
	if c, ok := corr.Last(); ok {
		analysis.Correlation = c
	}

	if adf, err := analytics.ADF(spread, -1, "c", p.cfg.ADFSignificance); err == nil {
		analysis.ADF = adf
	} else if errors.Is(err, analytics.ErrInsufficientData) {
		if vr, err := analytics.VarianceRatioCheck(spread, p.cfg.ADFSignificance); err == nil {
			analysis.ADF = vr
		}
	}
}

func (p *Pipeline) storeAnalysis(a *PairAnalysis) {
	p.mu.Lock()
	p.latest[PairKey(a.SymbolY, a.SymbolX)] = a
	p.mu.Unlock()
}

// Latest returns a snapshot of the most recent analysis per pair
func (p *Pipeline) Latest() map[string]PairAnalysis {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]PairAnalysis, len(p.latest))
	for k, v := range p.latest {
		out[k] = *v
	}
	return out
}

// Analysis returns the latest snapshot for one pair, nil when none exists
func (p *Pipeline) Analysis(symbolY, symbolX string) *PairAnalysis {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.latest[PairKey(symbolY, symbolX)]
	if !ok {
		return nil
	}
	copied := *a
	return &copied
}

// Resampler returns the resampler for a timeframe, nil when not configured
func (p *Pipeline) Resampler(tf models.Timeframe) *resample.Resampler {
	return p.resamplers[tf]
}

// Store returns the backing store
func (p *Pipeline) Store() *store.MemoryStore {
	return p.store
}

// Wait blocks until the consumer goroutine has exited
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
