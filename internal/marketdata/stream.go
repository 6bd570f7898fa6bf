package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ladder-lab/internal/observability"
)

// Trade is one executed trade from the exchange stream.
type Trade struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// StreamConfig configures TradeStream connection behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the trades channel.
	Buffer int
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            10000,
	}
}

// TradeStream reads Binance combined trade streams and reconnects with
// exponential backoff.
type TradeStream struct {
	url     string
	config  StreamConfig
	logger  *zap.Logger
	metrics *observability.Metrics

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	trades chan Trade

	done chan struct{}
	wg   sync.WaitGroup
}

// StreamURL builds the combined trade stream URL for symbols under base,
// e.g. wss://stream.binance.com:9443.
func StreamURL(base string, symbols []string) string {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@trade"
	}
	return strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(streams, "/")
}

// NewTradeStream connects to url and starts reading. config may be nil.
func NewTradeStream(ctx context.Context, url string, config *StreamConfig, logger *zap.Logger, metrics *observability.Metrics) (*TradeStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &TradeStream{
		url:     url,
		config:  cfg,
		logger:  logger.Named("stream"),
		metrics: metrics,
		trades:  make(chan Trade, cfg.Buffer),
		done:    make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Trades returns the channel of decoded trades. It is closed after Close.
func (s *TradeStream) Trades() <-chan Trade {
	return s.trades
}

func (s *TradeStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Close stops the stream and waits for its goroutines.
func (s *TradeStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *TradeStream) readLoop() {
	defer s.wg.Done()
	defer close(s.trades)
	defer s.dropConn()

	delay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(&delay) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Warn("read failed", zap.Error(err), zap.Duration("retry_in", delay))

			s.dropConn()

			if !s.reconnect(&delay) {
				return
			}
			continue
		}

		delay = s.config.ReconnectDelay
		s.handleMessage(message)
	}
}

func (s *TradeStream) dropConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// reconnect waits delay, then dials once. It doubles delay up to the
// maximum and reports false when the stream is closing.
func (s *TradeStream) reconnect(delay *time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(*delay):
	}

	*delay *= 2
	if *delay > s.config.MaxReconnectDelay {
		*delay = s.config.MaxReconnectDelay
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Warn("reconnect failed", zap.Error(err))
		s.metrics.RecordIngestError("reconnect")
		return !s.closed.Load()
	}

	s.metrics.RecordReconnect()
	s.logger.Info("reconnected", zap.String("url", s.url))
	return true
}

func (s *TradeStream) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Data.Event != "trade" {
		return
	}

	price, err := strconv.ParseFloat(msg.Data.Price, 64)
	if err != nil || price <= 0 {
		s.metrics.RecordIngestError("decode")
		s.logger.Debug("bad trade price", zap.String("price", msg.Data.Price))
		return
	}

	t := Trade{
		Symbol: msg.Data.Symbol,
		Price:  price,
		Time:   time.UnixMilli(msg.Data.TradeTime),
	}
	s.metrics.RecordMessageDelay(time.Since(t.Time))

	// Block until we can send; trades are never dropped.
	select {
	case s.trades <- t:
	case <-s.done:
	}
}

func (s *TradeStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A dead connection surfaces as a read error.
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

type streamMessage struct {
	Stream string      `json:"stream"`
	Data   tradeFields `json:"data"`
}

type tradeFields struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}
