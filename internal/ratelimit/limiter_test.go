package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S6 from spec.md §8: threshold 0.55, hard limit 2400/min => threshold=1320.
// Reserve(weight=50) succeeds while used+50 <= 1320 (used <= 1270) and is
// refused once used+weight > 1320.
func TestReserve_RefusesAtThreshold(t *testing.T) {
	l := New(2400, 0.55, nil)
	l.used = 1320 - 50 // exactly at the edge: used+weight == threshold, should succeed
	l.windowStart = time.Now().UTC().Truncate(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Reserve(ctx, 50))

	// One more unit of weight now pushes past the threshold and the
	// deadline is too short to wait for the next minute, so it must fail
	// fast rather than block.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	err := l.Reserve(ctx2, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestObserveUsed_RaisesToServerValueButNeverLowers(t *testing.T) {
	l := New(2400, 0.55, nil)
	l.used = 100
	l.windowStart = time.Now().UTC().Truncate(time.Minute)

	l.ObserveUsed(500)
	assert.Equal(t, 500, l.used)

	// Server value lower than ours should not roll us backwards.
	l.ObserveUsed(10)
	assert.Equal(t, 500, l.used)
}

func TestTripBan_NotifiesOnce(t *testing.T) {
	var calls int
	l := New(2400, 0.55, func(time.Time) { calls++ })

	until := time.Now().Add(50 * time.Millisecond)
	l.TripBan(until)
	l.TripBan(until)
	l.TripBan(until)

	assert.Equal(t, 1, calls)
}

func TestTripBan_NotifiesAgainOnNewEpisodeAfterPreviousExpired(t *testing.T) {
	var calls int
	l := New(2400, 0.55, func(time.Time) { calls++ })

	firstUntil := time.Now().Add(-time.Second) // already expired
	l.TripBan(firstUntil)
	assert.Equal(t, 1, calls)

	secondUntil := time.Now().Add(50 * time.Millisecond)
	l.TripBan(secondUntil)
	l.TripBan(secondUntil)

	assert.Equal(t, 2, calls)
}
