package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/storedata"
)

func cdl(openTime time.Time, tf string) *storedata.Candle {
	return &storedata.Candle{Symbol: "BTCUSDT", Timeframe: tf, OpenTime: openTime}
}

func TestIsDense_DetectsGap(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []*storedata.Candle{
		cdl(base, "15m"),
		cdl(base.Add(15*time.Minute), "15m"),
		cdl(base.Add(45*time.Minute), "15m"), // gap: missing the 30-minute bar
	}
	assert.False(t, IsDense(candles, "15m"))
}

func TestIsDense_TrueForContiguousSeries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []*storedata.Candle{
		cdl(base, "1h"),
		cdl(base.Add(time.Hour), "1h"),
		cdl(base.Add(2*time.Hour), "1h"),
	}
	assert.True(t, IsDense(candles, "1h"))
}

func TestIsDense_UnknownTimeframeDefaultsTrue(t *testing.T) {
	candles := []*storedata.Candle{cdl(time.Now(), "3m"), cdl(time.Now(), "3m")}
	assert.True(t, IsDense(candles, "3m"))
}
