package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/indicator"
	"futuressignalengine/internal/regime"
	"futuressignalengine/internal/storedata"
	"futuressignalengine/internal/zone"
)

func candle(symbol string, t int, open, high, low, close, volume float64) *storedata.Candle {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &storedata.Candle{
		Symbol:    symbol,
		Timeframe: "15m",
		OpenTime:  base.Add(time.Duration(t) * 15 * time.Minute),
		CloseTime: base.Add(time.Duration(t+1) * 15 * time.Minute),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Closed:    true,
	}
}

func TestLiquiditySweep_BullishReclaim(t *testing.T) {
	var candles []*storedata.Candle
	for i := 0; i < 20; i++ {
		candles = append(candles, candle("BTCUSDT", i, 100, 101, 99, 100, 10))
	}
	// sweep bar: wick below 99, close back above
	candles = append(candles, candle("BTCUSDT", 20, 100, 101, 95, 99.5, 10))
	// confirm bar
	candles = append(candles, candle("BTCUSDT", 21, 99.5, 102, 99, 101, 20))

	s := NewLiquiditySweep()
	in := Input{
		Symbol:  "BTCUSDT",
		Candles: candles,
		Bundle:  &indicator.Bundle{ATR: 1.0, VolumeMean: 10},
		Zones:   zone.View{},
	}
	p, err := s.Evaluate(in)
	assert.NoError(t, err)
	if assert.NotNil(t, p) {
		assert.Equal(t, storedata.DirectionLong, p.Direction)
		assert.Less(t, p.SL, p.Entry)
		assert.Less(t, p.Entry, p.TP1)
	}
}

func TestBreakAndRetest_RequiresAllowedRegime(t *testing.T) {
	s := NewBreakAndRetest()
	in := Input{RegimeTag: regime.Range, Candles: make([]*storedata.Candle, 10)}
	p, err := s.Evaluate(in)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestATRMomentum_RequiresTrendRegime(t *testing.T) {
	s := NewATRMomentum()
	in := Input{RegimeTag: regime.Chop, Candles: make([]*storedata.Candle, 30)}
	p, err := s.Evaluate(in)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestDefaultSet_EvaluateAllSkipsNilProposals(t *testing.T) {
	set := DefaultSet()
	assert.Len(t, set, 6)

	in := Input{RegimeTag: regime.Undecided, Candles: nil, Bundle: &indicator.Bundle{}}
	proposals, err := set.EvaluateAll(in)
	assert.NoError(t, err)
	assert.Empty(t, proposals)
}
