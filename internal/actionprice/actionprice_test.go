package actionprice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/storedata"
)

func cdl(t int, open, high, low, close, volume float64) *storedata.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &storedata.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "15m",
		OpenTime:  base.Add(time.Duration(t) * 15 * time.Minute),
		CloseTime: base.Add(time.Duration(t+1) * 15 * time.Minute),
		Open:      open, High: high, Low: low, Close: close, Volume: volume,
		Closed: true,
	}
}

func defaultConfig() Config {
	return Config{
		MaxSLPercent:   15.0,
		MinTotalScore:  6.0,
		TP2ScalpRR:     1.5,
		TP2StandardRR:  2.0,
		TP1Fraction:    0.30,
		TP2Fraction:    0.40,
		RunnerFraction: 0.30,
		TrailATRMult:   1.2,
	}
}

func TestRecognize_NoPatternReturnsNil(t *testing.T) {
	var candles []*storedata.Candle
	ema200 := make([]float64, 45)
	for i := 0; i < 45; i++ {
		candles = append(candles, cdl(i, 100, 101, 99, 100, 10))
		ema200[i] = 100
	}

	r := New(defaultConfig())
	sig, err := r.Recognize(candles, &indicator.Bundle{ATR: 1, EMA20: 100, EMA50: 100, EMA200: 100}, ema200)
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestComponents_TotalSumsAllEleven(t *testing.T) {
	c := Components{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	assert.Equal(t, 11.0, c.Total())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 2.0, clamp(5, 0, 2))
	assert.Equal(t, 0.0, clamp(-5, 0, 2))
	assert.Equal(t, 1.0, clamp(1, 0, 2))
}
