package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(KindTransient, "Fetch", nil))
}

func TestWrap_FormatsKindOperationAndCause(t *testing.T) {
	err := Wrap(KindBanned, "MarkPrice", errors.New("418"))
	assert.Equal(t, "banned: MarkPrice: 418", err.Error())
}

func TestAs_MatchesWrappedKindThroughFmtErrorf(t *testing.T) {
	base := Wrap(KindStale, "Recent", errors.New("candle too old"))
	wrapped := fmt.Errorf("evaluateSymbol: %w", base)

	assert.True(t, As(wrapped, KindStale))
	assert.False(t, As(wrapped, KindBanned))
}

func TestAs_FalseForPlainError(t *testing.T) {
	assert.False(t, As(errors.New("plain"), KindTransient))
}

func TestRetryable_TrueOnlyForTransientAndRateCapped(t *testing.T) {
	assert.True(t, Retryable(Wrap(KindTransient, "op", errors.New("x"))))
	assert.True(t, Retryable(Wrap(KindRateCapped, "op", errors.New("x"))))
	assert.False(t, Retryable(Wrap(KindBanned, "op", errors.New("x"))))
	assert.False(t, Retryable(errors.New("plain")))
}
