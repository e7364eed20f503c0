package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MarkPriceStream maintains a live mark-price cache fed by the exchange's
// combined-stream WebSocket, so the tracker's per-symbol price reads (T1,
// spec.md §4.8) don't each cost a rate-limited REST call. No ping frames
// are sent. Connection lifecycle (dial, reconnect-on-drop) is adapted from the
// teacher's websocket.Client
// (_examples/nofendian17-stockbit-haka-haki/websocket/client.go), minus its
// protobuf framing: Binance-style streams are plain JSON text frames, so
// this reads json.Unmarshal directly off each message instead of decoding a
// wrapper proto.
type MarkPriceStream struct {
	wsBaseURL string
	symbols   []string

	mu     sync.RWMutex
	prices map[string]float64

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewMarkPriceStream builds a stream over the given symbols. Run must be
// called before prices become available.
func NewMarkPriceStream(wsBaseURL string, symbols []string) *MarkPriceStream {
	return &MarkPriceStream{wsBaseURL: wsBaseURL, symbols: symbols, prices: make(map[string]float64)}
}

type markPriceFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Price  string `json:"p"`
	} `json:"data"`
}

func (s *MarkPriceStream) streamURL() string {
	streams := ""
	for i, sym := range s.symbols {
		if i > 0 {
			streams += "/"
		}
		streams += fmt.Sprintf("%s@markPrice@1s", lowerSymbol(sym))
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.wsBaseURL, streams)
}

func lowerSymbol(sym string) string {
	out := make([]byte, len(sym))
	for i := 0; i < len(sym); i++ {
		c := sym[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Run dials the combined stream and reconnects with backoff until ctx is
// cancelled. Intended to be run in its own goroutine.
func (s *MarkPriceStream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		return
	}
	delay := backoffBase
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connectAndRead(ctx); err != nil {
			log.Printf("⚠️  mark price stream: %v, reconnecting in %s", err, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if delay < backoffCap {
				delay *= backoffFactor
			}
			continue
		}
		delay = backoffBase
	}
}

func (s *MarkPriceStream) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer conn.Close()

	log.Printf("✅ mark price stream connected (%d symbols)", len(s.symbols))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var frame markPriceFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue // malformed frame, skip rather than drop the connection
		}
		price, err := strconv.ParseFloat(frame.Data.Price, 64)
		if err != nil || frame.Data.Symbol == "" {
			continue
		}
		s.mu.Lock()
		s.prices[frame.Data.Symbol] = price
		s.mu.Unlock()
	}
}

// MarkPrice implements the tracker's MarkPriceSource contract: a cache hit
// is a live push price, a miss means the stream hasn't delivered one yet and
// the caller should fall back to the last closed candle.
func (s *MarkPriceStream) MarkPrice(_ context.Context, symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	return price, ok
}

// Close drops the active connection, if any, causing Run's read loop to
// exit and reconnect (or exit if ctx is already done).
func (s *MarkPriceStream) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
