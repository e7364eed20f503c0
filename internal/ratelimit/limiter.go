// Package ratelimit implements the sliding-minute-window request-weight
// budget (spec.md §4.1, R1) that every exchange call must pass through.
//
// The accounting itself — used+weight<=threshold, reconciliation against the
// exchange's reported counter, a ban deadline — has no equivalent in
// golang.org/x/time/rate (a classic token bucket has no notion of a
// server-reported counter or of a ban window), so it is hand-rolled under a
// mutex in the style of the teacher's mutex-guarded trackers (see
// _examples/yohannesjx-sniperterminal/predator_engine.go). The
// one-notification-per-ban-episode requirement, however, is exactly what
// rate.Sometimes exists for, so TripBan uses one to gate the broadcast.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when a deadline would expire before the
// minute bucket resets.
var ErrUnavailable = errors.New("ratelimit: unavailable before deadline")

// BanNotifier receives exactly one call per ban episode.
type BanNotifier func(until time.Time)

// Limiter is the sliding-minute-window budget described by R1.
type Limiter struct {
	mu sync.Mutex

	hardLimit         int
	thresholdFraction float64

	windowStart time.Time
	used        int

	bannedUntil time.Time
	banNotice   rate.Sometimes

	notify BanNotifier
}

// New builds a Limiter with the exchange's hard per-minute weight limit and
// the configured safety-threshold fraction (default 0.55 per spec.md §6).
func New(hardLimit int, thresholdFraction float64, notify BanNotifier) *Limiter {
	if notify == nil {
		notify = func(time.Time) {}
	}
	return &Limiter{
		hardLimit:         hardLimit,
		thresholdFraction: thresholdFraction,
		windowStart:       time.Now().UTC().Truncate(time.Minute),
		notify:            notify,
	}
}

func (l *Limiter) threshold() int {
	return int(float64(l.hardLimit) * l.thresholdFraction)
}

// rolloverLocked resets the bucket if the current minute has elapsed.
// Caller must hold l.mu.
func (l *Limiter) rolloverLocked(now time.Time) {
	windowStart := now.Truncate(time.Minute)
	if windowStart.After(l.windowStart) {
		l.windowStart = windowStart
		l.used = 0
	}
}

// Reserve atomically adds weight to the current minute bucket if doing so
// would not cross the safety threshold. If the bucket is full or a ban is
// active, it blocks the caller (without busy-looping) until the bucket
// resets or the ban clears, or until ctx's deadline would be missed, in
// which case it fails fast with ErrUnavailable.
func (l *Limiter) Reserve(ctx context.Context, weight int) error {
	for {
		l.mu.Lock()
		now := time.Now().UTC()
		l.rolloverLocked(now)

		if !l.bannedUntil.IsZero() && now.Before(l.bannedUntil) {
			wait := l.bannedUntil.Sub(now)
			l.mu.Unlock()
			if !l.canWait(ctx, wait) {
				return ErrUnavailable
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return ErrUnavailable
			}
			continue
		}

		if l.used+weight <= l.threshold() {
			l.used += weight
			l.mu.Unlock()
			return nil
		}

		// Bucket is full for this minute: earliest reset is the start of
		// the next minute window.
		nextWindow := l.windowStart.Add(time.Minute)
		wait := nextWindow.Sub(now)
		l.mu.Unlock()

		if !l.canWait(ctx, wait) {
			return ErrUnavailable
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return ErrUnavailable
		}
	}
}

func (l *Limiter) canWait(ctx context.Context, wait time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Now().Add(wait).Before(deadline)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ObserveUsed raises the local counter to an observed used-weight value for
// the current minute. The counter only moves up: a value lower than the
// local count is ignored, so a server window that has rolled over ahead of
// the local one is not followed until the local minute rolls over too.
func (l *Limiter) ObserveUsed(serverUsed int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	l.rolloverLocked(now)

	if serverUsed > l.used {
		l.used = serverUsed
	}
}

// TripBan records a ban deadline and broadcasts exactly one notification per
// ban episode, suppressing duplicate notifications raised while the ban is
// still active. A ban episode that starts after the previous one has
// already expired resets the notice gate, since rate.Sometimes's zero value
// otherwise only ever fires once for the lifetime of the Limiter.
func (l *Limiter) TripBan(until time.Time) {
	l.mu.Lock()
	if l.bannedUntil.Before(time.Now().UTC()) {
		l.banNotice = rate.Sometimes{}
	}
	l.bannedUntil = until
	l.mu.Unlock()

	l.banNotice.Do(func() {
		l.notify(until)
	})
}

// bannedUntilValue exposes the current ban deadline for observability/tests.
func (l *Limiter) bannedUntilValue() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bannedUntil
}

// Snapshot returns the current window start, used weight, and ban deadline
// for durable persistence (spec.md §3's rate ledger row), so a restart
// doesn't reopen a fresh budget mid-ban or mid-window.
func (l *Limiter) Snapshot() (windowStart time.Time, used int, bannedUntil time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windowStart, l.used, l.bannedUntil
}

// Restore seeds the limiter from a previously persisted ledger row. Stale
// windows (older than the current minute) are discarded rather than
// restored, since their used-weight no longer applies.
func (l *Limiter) Restore(windowStart time.Time, used int, bannedUntil time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	if windowStart.Equal(now.Truncate(time.Minute)) {
		l.windowStart = windowStart
		l.used = used
	}
	if bannedUntil.After(now) {
		l.bannedUntil = bannedUntil
	}
}

// clearBan resets the ban-notice gate so a fresh episode can fire
// again; only used by tests, since production bans are cleared by the
// deadline passing.
func (l *Limiter) clearBan() {
	l.mu.Lock()
	l.bannedUntil = time.Time{}
	l.mu.Unlock()
	l.banNotice = rate.Sometimes{}
}
