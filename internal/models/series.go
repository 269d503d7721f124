package models

import (
	"math"
	"time"
)

// Timeframe is the width of a bar interval
type Timeframe string

const (
	Timeframe1s  Timeframe = "1s"
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1s:  time.Second,
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe1h:  time.Hour,
}

// ParseTimeframe validates a timeframe string
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", ErrUnknownTimeframe
	}
	return tf, nil
}

// Duration returns the interval width of the timeframe
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Align floors t to the timeframe boundary, absolute to the Unix epoch
func (tf Timeframe) Align(t time.Time) time.Time {
	d := tf.Duration()
	return time.Unix(0, (t.UnixNano()/int64(d))*int64(d)).UTC()
}

// Series is a time-indexed sequence of float values. NaN marks missing
// observations, mirroring the gaps a sparse bar stream produces.
type Series struct {
	Times  []time.Time
	Values []float64
}

// NewSeries creates an empty series with the given capacity
func NewSeries(capacity int) Series {
	return Series{
		Times:  make([]time.Time, 0, capacity),
		Values: make([]float64, 0, capacity),
	}
}

// Len returns the number of observations including NaN
func (s Series) Len() int {
	return len(s.Values)
}

// Append adds an observation
func (s *Series) Append(t time.Time, v float64) {
	s.Times = append(s.Times, t)
	s.Values = append(s.Values, v)
}

// Last returns the most recent value, false when the series is empty
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Dedup collapses duplicate timestamps keeping the last write.
// Times are assumed non-decreasing.
func (s Series) Dedup() Series {
	if len(s.Times) < 2 {
		return s
	}
	out := NewSeries(len(s.Times))
	for i := 0; i < len(s.Times); i++ {
		if i+1 < len(s.Times) && s.Times[i+1].Equal(s.Times[i]) {
			continue
		}
		out.Append(s.Times[i], s.Values[i])
	}
	return out
}

// DropNaN removes missing observations
func (s Series) DropNaN() Series {
	out := NewSeries(len(s.Values))
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			out.Append(s.Times[i], v)
		}
	}
	return out
}

// AlignSeries intersects two series on their timestamps. Both inputs are
// assumed sorted ascending. Rows where either side is NaN are dropped.
func AlignSeries(a, b Series) (Series, Series) {
	outA := NewSeries(min(a.Len(), b.Len()))
	outB := NewSeries(min(a.Len(), b.Len()))
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		switch {
		case a.Times[i].Before(b.Times[j]):
			i++
		case b.Times[j].Before(a.Times[i]):
			j++
		default:
			if !math.IsNaN(a.Values[i]) && !math.IsNaN(b.Values[j]) {
				outA.Append(a.Times[i], a.Values[i])
				outB.Append(b.Times[j], b.Values[j])
			}
			i++
			j++
		}
	}
	return outA, outB
}

// Frame is a time-indexed OHLCV table
type Frame struct {
	Times      []time.Time
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64
	VWAP       []float64
	TradeCount []int
}

// Len returns the number of rows
func (f Frame) Len() int {
	return len(f.Times)
}

// PriceTable holds column-aligned close prices for several symbols.
// Missing observations are NaN.
type PriceTable struct {
	Times   []time.Time
	Symbols []string
	// Columns[k][i] is the price of Symbols[k] at Times[i]
	Columns [][]float64
}

// Column returns the price column for a symbol, false when absent
func (pt PriceTable) Column(symbol string) ([]float64, bool) {
	for k, s := range pt.Symbols {
		if s == symbol {
			return pt.Columns[k], true
		}
	}
	return nil, false
}
