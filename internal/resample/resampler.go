package resample

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// BarHandler receives completed bars
type BarHandler func(*models.Bar)

// Resampler converts a tick stream into fixed-width OHLCV bars for one
// timeframe. Bar boundaries are aligned to the Unix epoch so independent
// instances produce identical bars.
//
// A bar is emitted when a tick arrives whose aligned start is newer than
// the open bar's start. Ticks older than the open bar are dropped; ticks
// inside it accumulate regardless of intra-bar order.
type Resampler struct {
	mu             sync.Mutex
	tf             models.Timeframe
	builders       map[string]*models.BarBuilder
	currentBarTime map[string]time.Time
	barCount       map[string]int
	handlers       []BarHandler
}

// New creates a resampler for the given timeframe
func New(tf models.Timeframe) *Resampler {
	return &Resampler{
		tf:             tf,
		builders:       make(map[string]*models.BarBuilder),
		currentBarTime: make(map[string]time.Time),
		barCount:       make(map[string]int),
	}
}

// Timeframe returns the resampler's interval width
func (r *Resampler) Timeframe() models.Timeframe {
	return r.tf
}

// OnBar registers a handler for completed bars. Handlers run synchronously
// in registration order; a panicking handler is isolated and must not
// affect later handlers or the pipeline.
func (r *Resampler) OnBar(handler BarHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// AddTick feeds one tick into the resampler and returns the completed bar
// when the tick crossed an interval boundary, nil otherwise.
func (r *Resampler) AddTick(tick *models.Tick) *models.Bar {
	if tick == nil {
		return nil
	}
	if err := tick.Validate(); err != nil {
		logger.Warn("Invalid tick, skipping",
			logger.ErrorField(err),
			logger.String("symbol", tick.Symbol),
		)
		return nil
	}

	symbol := strings.ToUpper(tick.Symbol)
	barStart := r.tf.Align(tick.Timestamp)

	r.mu.Lock()
	defer r.mu.Unlock()

	builder, ok := r.builders[symbol]
	if !ok {
		builder = &models.BarBuilder{Symbol: symbol}
		r.builders[symbol] = builder
		r.currentBarTime[symbol] = barStart
		builder.Add(tick)
		return nil
	}

	current := r.currentBarTime[symbol]
	switch {
	case barStart.After(current):
		completed := builder.Build(current)
		builder.Reset()
		r.currentBarTime[symbol] = barStart
		builder.Add(tick)
		if completed != nil {
			r.emitLocked(completed)
		}
		return completed

	case barStart.Before(current):
		// Out-of-order tick from before the open bar: drop it
		logger.TicksDropped.WithLabelValues(symbol, string(r.tf)).Inc()
		logger.Debug("Dropped out-of-order tick",
			logger.String("symbol", symbol),
			logger.Time("tick_time", tick.Timestamp),
			logger.Time("bar_start", current),
		)
		return nil

	default:
		builder.Add(tick)
		return nil
	}
}

// emitLocked notifies handlers with the completed bar. Called under the lock
// so per-symbol bar order is preserved end-to-end.
func (r *Resampler) emitLocked(bar *models.Bar) {
	r.barCount[bar.Symbol]++
	logger.BarsEmitted.WithLabelValues(bar.Symbol, string(r.tf)).Inc()
	for _, handler := range r.handlers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Bar handler panicked",
						logger.Any("panic", rec),
						logger.String("symbol", bar.Symbol),
						logger.String("timeframe", string(r.tf)),
					)
				}
			}()
			handler(bar)
		}()
	}
}

// CurrentBar returns a snapshot of the open bar for a symbol without
// resetting the builder, nil when the symbol has no open bar. The snapshot
// is informational; completed bars are canonical.
func (r *Resampler) CurrentBar(symbol string) *models.Bar {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbol = strings.ToUpper(symbol)
	builder, ok := r.builders[symbol]
	if !ok {
		return nil
	}
	return builder.Build(r.currentBarTime[symbol])
}

// FlushAll finalizes every open builder, emitting the tail bars. Used on
// shutdown so the last partial interval is not lost. Symbols flush in
// sorted order so identical replays emit identical flush sequences.
func (r *Resampler) FlushAll() []*models.Bar {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbols := make([]string, 0, len(r.builders))
	for s := range r.builders {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	flushed := make([]*models.Bar, 0, len(symbols))
	for _, symbol := range symbols {
		bar := r.builders[symbol].Build(r.currentBarTime[symbol])
		if bar == nil {
			continue
		}
		r.builders[symbol].Reset()
		r.emitLocked(bar)
		flushed = append(flushed, bar)
	}
	return flushed
}

// Symbols returns the symbols with open builders
func (r *Resampler) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.builders))
	for s := range r.builders {
		out = append(out, s)
	}
	return out
}

// BarCount returns the number of completed bars per symbol
func (r *Resampler) BarCount() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.barCount))
	for s, n := range r.barCount {
		out[s] = n
	}
	return out
}

// Clear resets accumulated state for one symbol, or all symbols when empty
func (r *Resampler) Clear(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if symbol != "" {
		symbol = strings.ToUpper(symbol)
		delete(r.builders, symbol)
		delete(r.currentBarTime, symbol)
		delete(r.barCount, symbol)
		return
	}
	r.builders = make(map[string]*models.BarBuilder)
	r.currentBarTime = make(map[string]time.Time)
	r.barCount = make(map[string]int)
}
