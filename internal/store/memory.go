package store

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

// symbolData holds all buffers for one symbol
type symbolData struct {
	ticks Ring[models.Tick]
	bars  map[models.Timeframe]Ring[models.Bar]
}

// MemoryStore is bounded, thread-safe in-memory storage for ticks and bars.
// Callers always receive copies; no internal state escapes the lock.
type MemoryStore struct {
	mu       sync.Mutex
	maxTicks int
	maxBars  int
	data     map[string]*symbolData

	tickCount  atomic.Int64
	lastUpdate atomic.Int64 // unix nanoseconds, best-effort lock-free read
}

// NewMemoryStore creates a store with the given ring capacities
func NewMemoryStore(maxTicks, maxBars int) *MemoryStore {
	return &MemoryStore{
		maxTicks: maxTicks,
		maxBars:  maxBars,
		data:     make(map[string]*symbolData),
	}
}

func (m *MemoryStore) symbolLocked(symbol string) *symbolData {
	sd, ok := m.data[symbol]
	if !ok {
		sd = &symbolData{
			ticks: NewRing[models.Tick](m.maxTicks),
			bars:  make(map[models.Timeframe]Ring[models.Bar]),
		}
		m.data[symbol] = sd
	}
	return sd
}

// AddTick appends a tick to the symbol's ring
func (m *MemoryStore) AddTick(tick *models.Tick) {
	symbol := strings.ToUpper(tick.Symbol)
	m.mu.Lock()
	m.symbolLocked(symbol).ticks.Append(*tick)
	m.mu.Unlock()
	m.tickCount.Add(1)
	m.lastUpdate.Store(tick.Timestamp.UnixNano())
}

// AddBar appends a completed bar to the (symbol, timeframe) ring
func (m *MemoryStore) AddBar(bar *models.Bar, tf models.Timeframe) {
	symbol := strings.ToUpper(bar.Symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	sd := m.symbolLocked(symbol)
	ring, ok := sd.bars[tf]
	if !ok {
		ring = NewRing[models.Bar](m.maxBars)
		sd.bars[tf] = ring
	}
	ring.Append(*bar)
}

// Ticks returns the most recent n ticks in chronological order.
// n <= 0 returns all retained ticks.
func (m *MemoryStore) Ticks(symbol string, n int) []models.Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	sd, ok := m.data[strings.ToUpper(symbol)]
	if !ok {
		return []models.Tick{}
	}
	if n <= 0 {
		return sd.ticks.Snapshot()
	}
	return sd.ticks.Tail(n)
}

// Bars returns the most recent n bars in chronological order.
// n <= 0 returns all retained bars.
func (m *MemoryStore) Bars(symbol string, tf models.Timeframe, n int) []models.Bar {
	m.mu.Lock()
	defer m.mu.Unlock()
	sd, ok := m.data[strings.ToUpper(symbol)]
	if !ok {
		return []models.Bar{}
	}
	ring, ok := sd.bars[tf]
	if !ok {
		return []models.Bar{}
	}
	if n <= 0 {
		return ring.Snapshot()
	}
	return ring.Tail(n)
}

// Prices returns the close-price series for a symbol and timeframe,
// duplicates collapsed keeping the last write
func (m *MemoryStore) Prices(symbol string, tf models.Timeframe, n int) models.Series {
	bars := m.Bars(symbol, tf, n)
	s := models.NewSeries(len(bars))
	for i := range bars {
		s.Append(bars[i].Start, bars[i].Close)
	}
	return s.Dedup()
}

// Frame returns the OHLCV table for a symbol and timeframe
func (m *MemoryStore) Frame(symbol string, tf models.Timeframe, n int) models.Frame {
	bars := m.Bars(symbol, tf, n)
	f := models.Frame{
		Times:      make([]time.Time, 0, len(bars)),
		Open:       make([]float64, 0, len(bars)),
		High:       make([]float64, 0, len(bars)),
		Low:        make([]float64, 0, len(bars)),
		Close:      make([]float64, 0, len(bars)),
		Volume:     make([]float64, 0, len(bars)),
		VWAP:       make([]float64, 0, len(bars)),
		TradeCount: make([]int, 0, len(bars)),
	}
	for i := range bars {
		f.Times = append(f.Times, bars[i].Start)
		f.Open = append(f.Open, bars[i].Open)
		f.High = append(f.High, bars[i].High)
		f.Low = append(f.Low, bars[i].Low)
		f.Close = append(f.Close, bars[i].Close)
		f.Volume = append(f.Volume, bars[i].Volume)
		f.VWAP = append(f.VWAP, bars[i].VWAP)
		f.TradeCount = append(f.TradeCount, bars[i].TradeCount)
	}
	return f
}

// MultiPrices returns column-aligned close prices for several symbols.
// The index is the sorted union of bar timestamps; missing cells are NaN.
func (m *MemoryStore) MultiPrices(symbols []string, tf models.Timeframe, n int) models.PriceTable {
	series := make([]models.Series, 0, len(symbols))
	kept := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		s := m.Prices(sym, tf, n)
		if s.Len() > 0 {
			series = append(series, s)
			kept = append(kept, strings.ToUpper(sym))
		}
	}
	if len(series) == 0 {
		return models.PriceTable{}
	}

	// Union of timestamps
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, t := range s.Times {
			seen[t.UnixNano()] = t
		}
	}
	times := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		times = append(times, t)
	}
	sortTimes(times)

	index := make(map[int64]int, len(times))
	for i, t := range times {
		index[t.UnixNano()] = i
	}

	columns := make([][]float64, len(series))
	for k, s := range series {
		col := make([]float64, len(times))
		for i := range col {
			col[i] = math.NaN()
		}
		for i, t := range s.Times {
			col[index[t.UnixNano()]] = s.Values[i]
		}
		columns[k] = col
	}

	return models.PriceTable{Times: times, Symbols: kept, Columns: columns}
}

func sortTimes(ts []time.Time) {
	// Insertion sort keeps this dependency-free; the union is already
	// nearly sorted because each source series is sorted.
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

// Symbols returns a snapshot of known symbols
func (m *MemoryStore) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for s := range m.data {
		out = append(out, s)
	}
	return out
}

// BarCount returns bar counts, optionally narrowed by symbol and timeframe
func (m *MemoryStore) BarCount(symbol string, tf models.Timeframe) map[string]map[models.Timeframe]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[models.Timeframe]int)
	for sym, sd := range m.data {
		if symbol != "" && sym != strings.ToUpper(symbol) {
			continue
		}
		counts := make(map[models.Timeframe]int)
		for t, ring := range sd.bars {
			if tf != "" && t != tf {
				continue
			}
			counts[t] = ring.Len()
		}
		out[sym] = counts
	}
	return out
}

// TickCount returns the total number of ticks added (best-effort, lock-free)
func (m *MemoryStore) TickCount() int64 {
	return m.tickCount.Load()
}

// LastUpdate returns the timestamp of the most recent tick, zero when none
func (m *MemoryStore) LastUpdate() time.Time {
	ns := m.lastUpdate.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Clear removes one symbol's state, or everything when symbol is empty
func (m *MemoryStore) Clear(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if symbol != "" {
		delete(m.data, strings.ToUpper(symbol))
		return
	}
	m.data = make(map[string]*symbolData)
	m.tickCount.Store(0)
	m.lastUpdate.Store(0)
}
