package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ladder-lab/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func tradeMessage(symbol, price string, ms int64) streamMessage {
	return streamMessage{
		Stream: strings.ToLower(symbol) + "@trade",
		Data: tradeFields{
			Event:     "trade",
			EventTime: ms,
			Symbol:    symbol,
			Price:     price,
			Quantity:  "0.1",
			TradeTime: ms,
		},
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func fastConfig() *StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.PingInterval = 20 * time.Millisecond
	return &cfg
}

func TestStreamURL(t *testing.T) {
	got := StreamURL("wss://stream.binance.com:9443/", []string{"BTCUSDT", "ethusdt"})
	assert.Equal(t, "wss://stream.binance.com:9443/stream?streams=btcusdt@trade/ethusdt@trade", got)
}

func TestTradeStream_DecodesTrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		_ = c.WriteJSON(tradeMessage("BTCUSDT", "42000.5", 1_700_000_000_123))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = c.WriteJSON(tradeMessage("BTCUSDT", "oops", 1_700_000_000_200))
		_ = c.WriteJSON(tradeMessage("ETHUSDT", "2500", 1_700_000_001_000))

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWith(reg, "test")

	s, err := NewTradeStream(context.Background(), wsURL(srv), fastConfig(), nil, m)
	require.NoError(t, err)

	var got []Trade
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case tr := <-s.Trades():
			got = append(got, tr)
		case <-timeout:
			t.Fatalf("timed out, got %d trades", len(got))
		}
	}
	require.NoError(t, s.Close())

	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, 42000.5, got[0].Price)
	assert.Equal(t, int64(1_700_000_000), got[0].Time.Unix())
	assert.Equal(t, "ETHUSDT", got[1].Symbol)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestErrors.WithLabelValues("decode")))

	_, open := <-s.Trades()
	assert.False(t, open, "trades channel should close after Close")
	assert.NoError(t, s.Close())
}

func TestTradeStream_Reconnects(t *testing.T) {
	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		n := connections.Add(1)
		_ = c.WriteJSON(tradeMessage("BTCUSDT", "100", int64(n)*1000))
		if n == 1 {
			return // drop the first connection
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWith(reg, "test")

	s, err := NewTradeStream(context.Background(), wsURL(srv), fastConfig(), nil, m)
	require.NoError(t, err)
	defer s.Close()

	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case tr := <-s.Trades():
			assert.Equal(t, int64(i+1), tr.Time.Unix())
		case <-timeout:
			t.Fatalf("timed out waiting for trade %d", i)
		}
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.WSReconnects), 1.0)
}

func TestNewTradeStream_DialError(t *testing.T) {
	_, err := NewTradeStream(context.Background(), "ws://127.0.0.1:1/none", fastConfig(), nil, nil)
	assert.Error(t, err)
}
