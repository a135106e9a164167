package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPassesThroughAppErrors(t *testing.T) {
	orig := SeatsUnavailable([]string{"s1", "s2"})
	got := Classify(fmt.Errorf("saga step failed: %w", orig))

	assert.Same(t, orig, got)
	assert.Equal(t, http.StatusConflict, got.StatusCode)
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	got := Classify(errors.New("connection refused"))

	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.NotEmpty(t, got.SupportReference(), "internal errors carry a support reference")
	// The cause must never leak into the client-facing message.
	assert.Equal(t, "An unexpected error occurred", got.Message)
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", BookingExpired("b1")))

	assert.True(t, IsKind(err, KindBookingExpired))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindBookingExpired))
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{RateLimited(7), http.StatusTooManyRequests},
		{ReservationUnavailable(5), http.StatusLocked},
		{SeatsUnavailable([]string{"s1"}), http.StatusConflict},
		{EventNotBookable("Event has already started"), http.StatusBadRequest},
		{BookingExpired("b1"), http.StatusGone},
		{CancellationWindowClosed(), http.StatusBadRequest},
		{NotFound("booking"), http.StatusNotFound},
		{Validation("bad input"), http.StatusBadRequest},
		{Internal(errors.New("x")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode, string(tt.err.Kind))
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("redis timeout")
	err := ReservationUnavailable(5).WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "redis timeout")
}

func TestRateLimitedCarriesCurrentCount(t *testing.T) {
	err := RateLimited(11)
	assert.Equal(t, int64(11), err.Details["current_count"])
}
