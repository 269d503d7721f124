package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// BinanceConfig holds connection settings for the futures trade stream
type BinanceConfig struct {
	BaseURL             string
	ReconnectDelay      time.Duration
	MaxReconnectDelay   time.Duration
	ReconnectMultiplier float64
	HandshakeTimeout    time.Duration
	PongWait            time.Duration
}

// DefaultBinanceConfig returns the default stream configuration
func DefaultBinanceConfig() BinanceConfig {
	return BinanceConfig{
		BaseURL:             "wss://fstream.binance.com/ws",
		ReconnectDelay:      1 * time.Second,
		MaxReconnectDelay:   30 * time.Second,
		ReconnectMultiplier: 2.0,
		HandshakeTimeout:    10 * time.Second,
		PongWait:            60 * time.Second,
	}
}

// BinanceSource streams trades from the exchange, one socket per symbol.
// Each symbol reconnects independently with exponential backoff; the delay
// resets after a successfully processed frame.
type BinanceSource struct {
	config BinanceConfig

	mu         sync.Mutex
	subscribed bool
	closed     bool
	connected  map[string]bool
	conns      map[string]*websocket.Conn

	ticks  chan *models.Tick
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBinanceSource creates a source for the futures trade stream
func NewBinanceSource(config BinanceConfig) *BinanceSource {
	return &BinanceSource{
		config:    config,
		connected: make(map[string]bool),
		conns:     make(map[string]*websocket.Conn),
		ticks:     make(chan *models.Tick, 1024),
	}
}

// Name returns the source identifier
func (s *BinanceSource) Name() string {
	return "binance"
}

// IsConnected reports whether at least one symbol stream is live
func (s *BinanceSource) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ok := range s.connected {
		if ok {
			return true
		}
	}
	return false
}

// Subscribe opens one trade socket per symbol and returns the merged tick
// channel. Per-symbol tick order is preserved; across symbols no global
// order is guaranteed.
func (s *BinanceSource) Subscribe(ctx context.Context, symbols []string) (<-chan *models.Tick, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if s.subscribed {
		s.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	s.subscribed = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, symbol := range symbols {
		symbol = strings.ToLower(strings.TrimSpace(symbol))
		s.wg.Add(1)
		go func(sym string) {
			defer s.wg.Done()
			s.streamSymbol(runCtx, sym)
		}(symbol)
	}

	go func() {
		s.wg.Wait()
		close(s.ticks)
	}()

	return s.ticks, nil
}

// streamSymbol drives the connect / read / backoff loop for one symbol
func (s *BinanceSource) streamSymbol(ctx context.Context, symbol string) {
	url := fmt.Sprintf("%s/%s@trade", s.config.BaseURL, symbol)
	delay := s.config.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := s.dial(ctx, symbol, url)
		if err != nil {
			logger.Warn("Failed to connect trade stream",
				logger.ErrorField(err),
				logger.String("symbol", symbol),
			)
		} else {
			delay = s.readLoop(ctx, symbol, conn, delay)
			s.dropConn(symbol)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		logger.Reconnects.WithLabelValues(strings.ToUpper(symbol)).Inc()
		logger.Info("Reconnecting trade stream",
			logger.String("symbol", symbol),
			logger.Duration("delay", delay),
		)
		delay = NextBackoff(delay, s.config.ReconnectMultiplier, s.config.MaxReconnectDelay)
	}
}

func (s *BinanceSource) dial(ctx context.Context, symbol, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
		return nil
	})

	s.mu.Lock()
	s.conns[symbol] = conn
	s.connected[symbol] = true
	s.mu.Unlock()

	logger.Info("Connected trade stream", logger.String("symbol", symbol))
	return conn, nil
}

// readLoop consumes frames until the socket fails or the context is
// cancelled. Returns the backoff delay to use next: reset to the base after
// any successfully processed frame, unchanged otherwise.
func (s *BinanceSource) readLoop(ctx context.Context, symbol string, conn *websocket.Conn, delay time.Duration) time.Duration {
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return delay
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Trade stream read error",
					logger.ErrorField(err),
					logger.String("symbol", symbol),
				)
			}
			conn.Close()
			return delay
		}
		delay = s.config.ReconnectDelay

		tick, err := NormalizeTrade(message)
		if err != nil {
			if !errors.Is(err, ErrNotTrade) {
				logger.ParseErrors.WithLabelValues(s.Name()).Inc()
			}
			continue
		}

		select {
		case s.ticks <- tick:
			logger.TicksIngested.WithLabelValues(tick.Symbol).Inc()
		case <-ctx.Done():
			conn.Close()
			return delay
		}
	}
}

func (s *BinanceSource) dropConn(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, symbol)
	s.connected[symbol] = false
}

// Close stops all streams. Safe to call more than once; waits up to the
// shutdown budget for readers to finish.
func (s *BinanceSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for symbol, conn := range s.conns {
		conn.Close()
		delete(s.conns, symbol)
		s.connected[symbol] = false
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		logger.Warn("Timed out waiting for trade streams to stop")
	}
	return nil
}

// NextBackoff returns the delay to wait before the following reconnection
// attempt: current * multiplier, capped at max.
func NextBackoff(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		next = max
	}
	return next
}
