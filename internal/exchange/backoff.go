package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"futuressignalengine/internal/ratelimit"
	"futuressignalengine/internal/xerrors"
)

const (
	backoffBase   = 1 * time.Second
	backoffFactor = 2
	backoffCap    = 30 * time.Second
	maxAttempts   = 5
)

// withBackoff retries call up to maxAttempts times with exponential backoff
// (base 1s, factor 2, cap 30s) on transient errors only; bad-request and
// invariant errors surface immediately, matching spec.md §4.2's HTTP
// contract.
func withBackoff(ctx context.Context, call func() error) error {
	delay := backoffBase
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !xerrors.Retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= backoffFactor
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	return lastErr
}

// statusError carries the HTTP status code of a non-2xx response up through
// go-binance's call stack, since the vendor client's typed *common.APIError
// only appears when the exchange returns a JSON error body — bans and
// gateway errors often don't. rateAwareTransport below attaches one to every
// non-2xx response so classify can always recover the status.
type statusError struct {
	status     int
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.status)
}

// rateAwareTransport wraps the default transport, intercepting non-2xx
// responses so the status code survives independent of how go-binance
// chooses to parse (or fail to parse) the error body.
type rateAwareTransport struct {
	next http.RoundTripper
}

func (t *rateAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.next
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	se := &statusError{status: resp.StatusCode, retryAfter: retryAfter}

	// Drain and close so the underlying connection can be reused, then
	// surface the status via the error return rather than the response —
	// go-binance's Do() treats any transport-level error as the call's
	// error without attempting to unmarshal a body.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil, se
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return time.Minute
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}

// classify turns a raw call error into a typed xerrors.Error and, for ban
// responses, trips the rate limiter's ban deadline.
func classify(err error, limiter *ratelimit.Limiter) error {
	if err == nil {
		return nil
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.status == 418 || se.status == 429:
			limiter.TripBan(time.Now().Add(se.retryAfter))
			return xerrors.Wrap(xerrors.KindBanned, "exchange call", err)
		case se.status >= 500:
			return xerrors.Wrap(xerrors.KindTransient, "exchange call", err)
		default:
			return xerrors.Wrap(xerrors.KindBadRequest, "exchange call", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return xerrors.Wrap(xerrors.KindTransient, "exchange call", err)
	}

	// Unknown shape (e.g. a JSON decode error on a malformed 2xx body):
	// treat as transient so a flaky connection doesn't wedge the caller.
	return xerrors.Wrap(xerrors.KindTransient, "exchange call", err)
}
