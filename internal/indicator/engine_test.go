package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuressignalengine/internal/storedata"
)

func TestCalculateSMA_AveragesTailWindow(t *testing.T) {
	assert.Equal(t, 2.0, calculateSMA([]float64{1, 2, 3}, 3))
	assert.Equal(t, 2.5, calculateSMA([]float64{1, 2, 3, 4}, 2))
}

func TestCalculateSMA_ShrinksPeriodWhenSeriesShorter(t *testing.T) {
	assert.Equal(t, 1.5, calculateSMA([]float64{1, 2}, 10))
}

func TestCalculateStdDev_ZeroForConstantSeries(t *testing.T) {
	assert.Equal(t, 0.0, calculateStdDev([]float64{5, 5, 5}, 3, 5))
}

func TestCalculateEMA_ConvergesTowardRisingSeries(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = float64(100 + i)
	}
	ema := calculateEMA(series, 10)
	assert.Greater(t, ema, 110.0)
	assert.Less(t, ema, 130.0)
}

func TestCalculateEMASeries_SeedsFirstPeriodWithSMA(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	out := calculateEMASeries(series, 3)
	seed := calculateSMA(series[:3], 3)
	assert.Equal(t, seed, out[0])
	assert.Equal(t, seed, out[1])
	assert.Equal(t, seed, out[2])
	assert.NotEqual(t, seed, out[4])
}

func TestPercentileRank_OutOfRangeValuesHitBounds(t *testing.T) {
	series := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 100.0, percentileRank(series, 60))
	assert.Equal(t, 0.0, percentileRank(series, 0))
}

func TestPercentileRank_EmptySeriesDefaultsToFifty(t *testing.T) {
	assert.Equal(t, 50.0, percentileRank(nil, 10))
}

func TestDonchian_TracksHighestHighAndLowestLow(t *testing.T) {
	candles := []*storedata.Candle{
		{High: 10, Low: 5},
		{High: 15, Low: 3},
		{High: 12, Low: 8},
	}
	high, low := donchian(candles, 3)
	assert.Equal(t, 15.0, high)
	assert.Equal(t, 3.0, low)
}

func synthCandles(n int, base time.Time) []*storedata.Candle {
	out := make([]*storedata.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.1
		out[i] = &storedata.Candle{
			Symbol: "BTCUSDT", Timeframe: "1h",
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      price - 0.1, High: price + 0.5, Low: price - 0.5, Close: price, Volume: 100 + float64(i%5),
		}
	}
	return out
}

func TestComputeBundle_RejectsTooShortSeries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewDefaultEngine().ComputeBundle(synthCandles(50, base))
	require.Error(t, err)
}

func TestComputeBundle_ProducesPopulatedBundleForRisingSeries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := synthCandles(emaSlowPeriod+slopeLookbackBars+50, base)

	bundle, err := NewDefaultEngine().ComputeBundle(candles)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", bundle.Symbol)
	assert.Equal(t, "1h", bundle.Timeframe)
	assert.Greater(t, bundle.EMA200Slope, 0.0) // steadily rising closes
	assert.Greater(t, bundle.ATR, 0.0)
	assert.GreaterOrEqual(t, bundle.DonchianHigh, bundle.DonchianLow)
}

func TestEMASeries_MatchesEngineInternalSeries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := synthCandles(250, base)

	series := EMASeries(candles, emaSlowPeriod)
	assert.Len(t, series, len(candles))
}
