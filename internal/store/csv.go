package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume", "vwap", "trade_count"}

// ExportCSV writes the bar history for a symbol and timeframe as UTF-8 CSV:
// ISO-8601 timestamp first, then open,high,low,close,volume,vwap,trade_count.
func (m *MemoryStore) ExportCSV(w io.Writer, symbol string, tf models.Timeframe) error {
	bars := m.Bars(symbol, tf, 0)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := range bars {
		record := []string{
			bars[i].Start.UTC().Format(time.RFC3339),
			formatFloat(bars[i].Open),
			formatFloat(bars[i].High),
			formatFloat(bars[i].Low),
			formatFloat(bars[i].Close),
			formatFloat(bars[i].Volume),
			formatFloat(bars[i].VWAP),
			strconv.Itoa(bars[i].TradeCount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
