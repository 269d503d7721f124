package models

import (
	"time"
)

// Tick represents a single executed trade
type Tick struct {
	Symbol       string    `json:"symbol"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	TradeID      int64     `json:"trade_id,omitempty"`
	IsBuyerMaker bool      `json:"is_buyer_maker,omitempty"`
}

// Validate validates a Tick
func (t *Tick) Validate() error {
	if t.Symbol == "" {
		return ErrInvalidSymbol
	}
	if t.Price <= 0 {
		return ErrInvalidPrice
	}
	if t.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if t.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// Bar represents a finalized OHLCV bar over the half-open interval
// [Start, Start+timeframe)
type Bar struct {
	Symbol     string    `json:"symbol"`
	Start      time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	VWAP       float64   `json:"vwap"`
	TradeCount int       `json:"trade_count"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Start.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	if b.TradeCount < 1 {
		return ErrInvalidBar
	}
	return nil
}

// BarBuilder accumulates ticks for a bar that is still open
type BarBuilder struct {
	Symbol     string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	VWAPNum    float64 // Sum of price * quantity
	TradeCount int
}

// Add updates the builder with a new tick
func (bb *BarBuilder) Add(tick *Tick) {
	if bb.TradeCount == 0 {
		bb.Open = tick.Price
		bb.High = tick.Price
		bb.Low = tick.Price
	}
	if tick.Price > bb.High {
		bb.High = tick.Price
	}
	if tick.Price < bb.Low {
		bb.Low = tick.Price
	}
	bb.Close = tick.Price
	bb.Volume += tick.Quantity
	bb.VWAPNum += tick.Price * tick.Quantity
	bb.TradeCount++
}

// Build produces the bar for the given start time, or nil when no ticks
// have been accumulated. VWAP falls back to the close when volume is zero.
func (bb *BarBuilder) Build(start time.Time) *Bar {
	if bb.TradeCount == 0 {
		return nil
	}
	vwap := bb.Close
	if bb.Volume > 0 {
		vwap = bb.VWAPNum / bb.Volume
	}
	return &Bar{
		Symbol:     bb.Symbol,
		Start:      start,
		Open:       bb.Open,
		High:       bb.High,
		Low:        bb.Low,
		Close:      bb.Close,
		Volume:     bb.Volume,
		VWAP:       vwap,
		TradeCount: bb.TradeCount,
	}
}

// Reset clears the builder for a new bar
func (bb *BarBuilder) Reset() {
	bb.Open = 0
	bb.High = 0
	bb.Low = 0
	bb.Close = 0
	bb.Volume = 0
	bb.VWAPNum = 0
	bb.TradeCount = 0
}
