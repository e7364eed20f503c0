package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerSymbol(t *testing.T) {
	assert.Equal(t, "btcusdt", lowerSymbol("BTCUSDT"))
	assert.Equal(t, "ethusdt", lowerSymbol("ethusdt"))
}

func TestStreamURL_BuildsCombinedStreamForEverySymbol(t *testing.T) {
	s := NewMarkPriceStream("wss://fstream.binance.com", []string{"BTCUSDT", "ETHUSDT"})
	assert.Equal(t,
		"wss://fstream.binance.com/stream?streams=btcusdt@markPrice@1s/ethusdt@markPrice@1s",
		s.streamURL(),
	)
}

func TestMarkPrice_MissingSymbolReportsMiss(t *testing.T) {
	s := NewMarkPriceStream("wss://fstream.binance.com", []string{"BTCUSDT"})
	_, ok := s.MarkPrice(context.Background(), "BTCUSDT")
	assert.False(t, ok)
}

func TestMarkPrice_ReturnsCachedPush(t *testing.T) {
	s := NewMarkPriceStream("wss://fstream.binance.com", []string{"BTCUSDT"})
	s.prices["BTCUSDT"] = 65000.5

	price, ok := s.MarkPrice(context.Background(), "BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 65000.5, price)
}
