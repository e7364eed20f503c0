package zone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futuressignalengine/internal/storedata"
)

func flatCandle(symbol string, t time.Time, high, low float64) *storedata.Candle {
	return &storedata.Candle{
		Symbol: symbol, Timeframe: "4h", OpenTime: t,
		Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2, Volume: 10,
	}
}

func TestDetectZones_FindsIsolatedSwingHighAndLow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []*storedata.Candle
	for i := 0; i < 15; i++ {
		high, low := 100.0, 95.0
		switch i {
		case 5:
			high = 110
		case 10:
			low = 85
		}
		candles = append(candles, flatCandle("BTCUSDT", base.Add(time.Duration(i)*4*time.Hour), high, low))
	}

	zones := detectZones("BTCUSDT", candles)

	var resistance, support *storedata.Zone
	for _, z := range zones {
		switch z.Kind {
		case storedata.ZoneResistance:
			resistance = z
		case storedata.ZoneSupport:
			support = z
		}
	}

	if assert.NotNil(t, resistance) {
		assert.Equal(t, 110.0, resistance.Low)
		assert.Equal(t, 110.0, resistance.High)
		assert.Equal(t, 1.0, resistance.Strength)
	}
	if assert.NotNil(t, support) {
		assert.Equal(t, 85.0, support.Low)
		assert.Equal(t, 85.0, support.High)
		assert.Equal(t, 1.0, support.Strength)
	}
}

func TestDetectZones_MergesSwingsWithinProximity(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []*storedata.Candle
	for i := 0; i < 21; i++ {
		high, low := 100.0, 95.0
		switch i {
		case 5:
			high = 110
		case 12:
			high = 110.1 // within mergeProximity of the first swing high
		}
		candles = append(candles, flatCandle("BTCUSDT", base.Add(time.Duration(i)*4*time.Hour), high, low))
	}

	zones := detectZones("BTCUSDT", candles)

	var resistances []*storedata.Zone
	for _, z := range zones {
		if z.Kind == storedata.ZoneResistance {
			resistances = append(resistances, z)
		}
	}

	if assert.Len(t, resistances, 1) {
		z := resistances[0]
		assert.Equal(t, 2.0, z.Strength)
		assert.Equal(t, 110.0, z.Low)
		assert.Equal(t, 110.1, z.High)
	}
}

func TestDetectZones_TooShortSeriesYieldsNoZones(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []*storedata.Candle
	for i := 0; i < 5; i++ {
		candles = append(candles, flatCandle("BTCUSDT", base.Add(time.Duration(i)*4*time.Hour), 100, 95))
	}

	assert.Empty(t, detectZones("BTCUSDT", candles))
}
