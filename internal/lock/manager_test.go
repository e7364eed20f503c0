package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKey_IsStableAcrossCallsForSameInputs(t *testing.T) {
	a := redisKey("BTCUSDT", "LONG", "BREAK_AND_RETEST")
	b := redisKey("BTCUSDT", "LONG", "BREAK_AND_RETEST")
	assert.Equal(t, a, b)
}

func TestRedisKey_DiffersByDirection(t *testing.T) {
	a := redisKey("BTCUSDT", "LONG", "BREAK_AND_RETEST")
	b := redisKey("BTCUSDT", "SHORT", "BREAK_AND_RETEST")
	assert.NotEqual(t, a, b)
}
