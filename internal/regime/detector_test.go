package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/indicator"
)

func TestClassify_StrongADXAndSlopeIsTrend(t *testing.T) {
	b := &indicator.Bundle{ADX: 30, EMA200Slope: 0.01}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Trend, c.Tag)
	assert.Equal(t, Bullish, c.Bias)
}

func TestClassify_NegativeSlopeTrendIsBearish(t *testing.T) {
	b := &indicator.Bundle{ADX: 30, EMA200Slope: -0.01}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Trend, c.Tag)
	assert.Equal(t, Bearish, c.Bias)
}

func TestClassify_NarrowBandsWithinKeltnerIsSqueeze(t *testing.T) {
	b := &indicator.Bundle{
		ADX: 15, EMA200Slope: 0.0001,
		BBWidthPercentile: 10,
		BollingerUpper:    101, BollingerLower: 99,
		KeltnerUpper: 102, KeltnerLower: 98,
	}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Squeeze, c.Tag)
	assert.Equal(t, Neutral, c.Bias)
}

func TestClassify_FlatSlopeFallsToRange(t *testing.T) {
	b := &indicator.Bundle{ADX: 30, EMA200Slope: 0.0001, BBWidthPercentile: 50}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Range, c.Tag)
}

func TestClassify_WeakADXFallsToChop(t *testing.T) {
	b := &indicator.Bundle{ADX: 10, EMA200Slope: 0.002, BBWidthPercentile: 50}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Chop, c.Tag)
}

func TestClassify_StrongADXModerateSlopeIsUndecided(t *testing.T) {
	b := &indicator.Bundle{ADX: 30, EMA200Slope: 0.0005, BBWidthPercentile: 50}
	c := Classify("BTCUSDT", b)
	assert.Equal(t, Undecided, c.Tag)
}
