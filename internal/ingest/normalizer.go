package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

var (
	// ErrInvalidMessage is returned when a message cannot be parsed
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNotTrade is returned for well-formed but non-trade events
	ErrNotTrade = errors.New("not a trade event")
)

// tradeEvent is the exchange's futures trade stream payload
type tradeEvent struct {
	EventType  string `json:"e"`
	EventTime  int64  `json:"E"`
	TradeTime  int64  `json:"T"`
	Symbol     string `json:"s"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeID    int64  `json:"t"`
	BuyerMaker bool   `json:"m"`
}

// NormalizeTrade converts a raw trade stream message to a Tick.
// Non-trade events return ErrNotTrade and are ignored by callers.
func NormalizeTrade(raw []byte) (*models.Tick, error) {
	var ev tradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if ev.EventType != "trade" {
		return nil, ErrNotTrade
	}

	// Trade time is authoritative; fall back to event time
	ms := ev.TradeTime
	if ms == 0 {
		ms = ev.EventTime
	}
	if ms == 0 {
		return nil, fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", ErrInvalidMessage, ev.Price)
	}
	quantity, err := strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid quantity %q", ErrInvalidMessage, ev.Quantity)
	}

	tick := &models.Tick{
		Symbol:       strings.ToUpper(ev.Symbol),
		Timestamp:    time.UnixMilli(ms).UTC(),
		Price:        price,
		Quantity:     quantity,
		TradeID:      ev.TradeID,
		IsBuyerMaker: ev.BuyerMaker,
	}
	if err := tick.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return tick, nil
}

// ndjsonRecord is one line of a tick replay file
type ndjsonRecord struct {
	Symbol   string   `json:"symbol"`
	TS       string   `json:"ts"`
	Price    float64  `json:"price"`
	Size     *float64 `json:"size"`
	Quantity *float64 `json:"quantity"`
}

// NormalizeNDJSON converts one replay file line to a Tick.
// "quantity" is accepted as a synonym of "size".
func NormalizeNDJSON(line []byte) (*models.Tick, error) {
	var rec ndjsonRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	ts, err := time.Parse(time.RFC3339, rec.TS)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp %q", ErrInvalidMessage, rec.TS)
	}

	quantity := 0.0
	if rec.Size != nil {
		quantity = *rec.Size
	} else if rec.Quantity != nil {
		quantity = *rec.Quantity
	}

	tick := &models.Tick{
		Symbol:    strings.ToUpper(rec.Symbol),
		Timestamp: ts.UTC(),
		Price:     rec.Price,
		Quantity:  quantity,
	}
	if err := tick.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return tick, nil
}
