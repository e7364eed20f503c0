package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV_TrimsEmptySegments(t *testing.T) {
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, splitCSV("BTCUSDT,ETHUSDT"))
	assert.Equal(t, []string{"BTCUSDT"}, splitCSV("BTCUSDT,"))
	assert.Nil(t, splitCSV(""))
}

func TestGetEnvOrDefault_FallsBackWhenUnset(t *testing.T) {
	t.Setenv("SIGNALENGINE_TEST_VAR", "")
	assert.Equal(t, "fallback", getEnvOrDefault("SIGNALENGINE_TEST_VAR", "fallback"))

	t.Setenv("SIGNALENGINE_TEST_VAR", "set")
	assert.Equal(t, "set", getEnvOrDefault("SIGNALENGINE_TEST_VAR", "fallback"))
}

func TestGetEnvInt_FallsBackOnUnsetOrUnparseable(t *testing.T) {
	t.Setenv("SIGNALENGINE_TEST_INT", "")
	assert.Equal(t, 42, getEnvInt("SIGNALENGINE_TEST_INT", 42))

	t.Setenv("SIGNALENGINE_TEST_INT", "not-a-number")
	assert.Equal(t, 42, getEnvInt("SIGNALENGINE_TEST_INT", 42))

	t.Setenv("SIGNALENGINE_TEST_INT", "7")
	assert.Equal(t, 7, getEnvInt("SIGNALENGINE_TEST_INT", 42))
}

func TestGetEnvFloat_FallsBackOnUnsetOrUnparseable(t *testing.T) {
	t.Setenv("SIGNALENGINE_TEST_FLOAT", "")
	assert.Equal(t, 0.55, getEnvFloat("SIGNALENGINE_TEST_FLOAT", 0.55))

	t.Setenv("SIGNALENGINE_TEST_FLOAT", "0.75")
	assert.Equal(t, 0.75, getEnvFloat("SIGNALENGINE_TEST_FLOAT", 0.55))
}

func TestLoadFromEnv_AppliesDocumentedDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, "https://fapi.binance.com", cfg.Exchange.BaseURL)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Exchange.Symbols)
	assert.Equal(t, 0.55, cfg.Rate.ThresholdFraction)
}
