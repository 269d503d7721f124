package ingest

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// ReplaySource replays ticks from a newline-delimited JSON file, one record
// per line. Malformed lines are skipped and counted. With pacing enabled the
// original inter-tick gaps are reproduced; otherwise ticks are emitted as
// fast as the consumer drains them.
type ReplaySource struct {
	path string
	pace bool

	mu      sync.Mutex
	started bool
	running bool
	closed  bool

	ticks  chan *models.Tick
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReplaySource creates a replay source for the given NDJSON file
func NewReplaySource(path string, pace bool) *ReplaySource {
	return &ReplaySource{
		path:  path,
		pace:  pace,
		ticks: make(chan *models.Tick, 1024),
	}
}

// Name returns the source identifier
func (s *ReplaySource) Name() string {
	return "replay"
}

// IsConnected reports whether the file is still being replayed
func (s *ReplaySource) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Subscribe starts replaying the file. Only ticks for the given symbols are
// emitted; an empty filter passes everything. The channel closes at EOF.
func (s *ReplaySource) Subscribe(ctx context.Context, symbols []string) (<-chan *models.Tick, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	s.started = true
	s.running = true
	s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.running = false
		s.mu.Unlock()
		return nil, err
	}

	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[strings.ToUpper(strings.TrimSpace(sym))] = true
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer file.Close()
		defer close(s.ticks)
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		var prev time.Time
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-runCtx.Done():
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			tick, err := NormalizeNDJSON(line)
			if err != nil {
				logger.ParseErrors.WithLabelValues(s.Name()).Inc()
				continue
			}
			if len(wanted) > 0 && !wanted[tick.Symbol] {
				continue
			}

			if s.pace && !prev.IsZero() {
				gap := tick.Timestamp.Sub(prev)
				if gap > 0 {
					select {
					case <-runCtx.Done():
						return
					case <-time.After(gap):
					}
				}
			}
			prev = tick.Timestamp

			select {
			case s.ticks <- tick:
				logger.TicksIngested.WithLabelValues(tick.Symbol).Inc()
			case <-runCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("Replay read failed", logger.ErrorField(err))
		}
	}()

	return s.ticks, nil
}

// Close stops the replay. Idempotent.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	return nil
}
