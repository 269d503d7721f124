package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrade(t *testing.T) {
	raw := []byte(`{"e":"trade","E":1672515782136,"T":1672515782134,"s":"btcusdt","t":12345,"p":"16569.01","q":"0.014","m":true}`)

	tick, err := NormalizeTrade(raw)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, 16569.01, tick.Price)
	assert.Equal(t, 0.014, tick.Quantity)
	assert.Equal(t, int64(12345), tick.TradeID)
	assert.True(t, tick.IsBuyerMaker)
	// Trade time, not event time
	assert.Equal(t, time.UnixMilli(1672515782134).UTC(), tick.Timestamp)
}

func TestNormalizeTrade_FallsBackToEventTime(t *testing.T) {
	raw := []byte(`{"e":"trade","E":1672515782136,"s":"BTCUSDT","p":"100","q":"1"}`)
	tick, err := NormalizeTrade(raw)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1672515782136).UTC(), tick.Timestamp)
}

func TestNormalizeTrade_NonTradeEvent(t *testing.T) {
	raw := []byte(`{"e":"aggTrade","E":1672515782136,"s":"BTCUSDT","p":"100","q":"1"}`)
	_, err := NormalizeTrade(raw)
	assert.ErrorIs(t, err, ErrNotTrade)
}

func TestNormalizeTrade_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"e":"trade"`,
		"bad price":      `{"e":"trade","T":1672515782134,"s":"BTCUSDT","p":"abc","q":"1"}`,
		"bad quantity":   `{"e":"trade","T":1672515782134,"s":"BTCUSDT","p":"100","q":""}`,
		"zero price":     `{"e":"trade","T":1672515782134,"s":"BTCUSDT","p":"0","q":"1"}`,
		"no timestamp":   `{"e":"trade","s":"BTCUSDT","p":"100","q":"1"}`,
		"missing symbol": `{"e":"trade","T":1672515782134,"p":"100","q":"1"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeTrade([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestNormalizeNDJSON(t *testing.T) {
	tick, err := NormalizeNDJSON([]byte(`{"symbol":"ethusdt","ts":"2026-01-02T10:00:01Z","price":3000.5,"size":0.25}`))
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", tick.Symbol)
	assert.Equal(t, 3000.5, tick.Price)
	assert.Equal(t, 0.25, tick.Quantity)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 1, 0, time.UTC), tick.Timestamp)
}

func TestNormalizeNDJSON_QuantitySynonym(t *testing.T) {
	tick, err := NormalizeNDJSON([]byte(`{"symbol":"BTCUSDT","ts":"2026-01-02T10:00:01Z","price":100,"quantity":2}`))
	require.NoError(t, err)
	assert.Equal(t, 2.0, tick.Quantity)
}

func TestNormalizeNDJSON_MissingSizeDefaultsToZero(t *testing.T) {
	tick, err := NormalizeNDJSON([]byte(`{"symbol":"BTCUSDT","ts":"2026-01-02T10:00:01Z","price":100}`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, tick.Quantity)
}

func TestNormalizeNDJSON_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `nope`,
		"bad timestamp": `{"symbol":"BTCUSDT","ts":"yesterday","price":100}`,
		"zero price":    `{"symbol":"BTCUSDT","ts":"2026-01-02T10:00:01Z","price":0}`,
		"no symbol":     `{"ts":"2026-01-02T10:00:01Z","price":100}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeNDJSON([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}
