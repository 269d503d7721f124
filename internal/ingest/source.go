package ingest

import (
	"context"
	"errors"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

var (
	// ErrSourceClosed is returned when subscribing on a closed source
	ErrSourceClosed = errors.New("source is closed")
	// ErrAlreadySubscribed is returned on a second Subscribe call
	ErrAlreadySubscribed = errors.New("source is already subscribed")
	// ErrNoSymbols is returned when Subscribe is called without symbols
	ErrNoSymbols = errors.New("no symbols to subscribe")
)

// Source yields normalized tick records. Implementations include the live
// exchange stream and the NDJSON file replay.
type Source interface {
	// Subscribe starts streaming ticks for the given symbols.
	// The returned channel is closed when the source stops.
	Subscribe(ctx context.Context, symbols []string) (<-chan *models.Tick, error)

	// Close stops the source and releases its connections. Idempotent.
	Close() error

	// IsConnected reports whether at least one stream is live
	IsConnected() bool

	// Name returns the source identifier, e.g. "binance" or "replay"
	Name() string
}
