package bookings

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"evently/internal/monitoring"
	"evently/internal/reservation"
	"evently/internal/shared/apperrors"
	"evently/internal/shared/config"
	"evently/pkg/breaker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidationService(maxSeats int) *service {
	return &service{
		cfg: &config.Config{
			Booking: config.BookingConfig{MaxSeatsPerBooking: maxSeats},
		},
	}
}

func TestValidateCreateInputRejectsBadEventID(t *testing.T) {
	svc := newValidationService(10)
	_, _, err := svc.validateCreateInput(CreateBookingRequest{
		EventID: "not-a-uuid",
		SeatIDs: []string{uuid.NewString()},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestValidateCreateInputRejectsDuplicateSeats(t *testing.T) {
	svc := newValidationService(10)
	seatID := uuid.NewString()
	_, _, err := svc.validateCreateInput(CreateBookingRequest{
		EventID: uuid.NewString(),
		SeatIDs: []string{seatID, seatID},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateCreateInputRejectsTooManySeats(t *testing.T) {
	svc := newValidationService(2)
	_, _, err := svc.validateCreateInput(CreateBookingRequest{
		EventID: uuid.NewString(),
		SeatIDs: []string{uuid.NewString(), uuid.NewString(), uuid.NewString()},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestValidateCreateInputSortsSeatIDs(t *testing.T) {
	svc := newValidationService(10)

	raw := make([]string, 5)
	for i := range raw {
		raw[i] = uuid.NewString()
	}

	eventID := uuid.New()
	gotEventID, seatIDs, err := svc.validateCreateInput(CreateBookingRequest{
		EventID: eventID.String(),
		SeatIDs: raw,
	})
	require.NoError(t, err)
	assert.Equal(t, eventID, gotEventID)
	require.Len(t, seatIDs, 5)

	strs := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		strs[i] = id.String()
	}
	assert.True(t, sort.StringsAreSorted(strs), "seat ids must come back sorted")
}

func TestFailureClassMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want monitoring.FailureClass
	}{
		{
			name: "breaker open is a redis failure",
			err:  fmt.Errorf("saga step failed: %w", breaker.ErrOpen),
			want: monitoring.FailureRedis,
		},
		{
			name: "store unavailable is a redis failure",
			err:  fmt.Errorf("step: %w", reservation.ErrStoreUnavailable),
			want: monitoring.FailureRedis,
		},
		{
			name: "reservation unavailable is a redis failure",
			err:  apperrors.ReservationUnavailable(5),
			want: monitoring.FailureRedis,
		},
		{
			name: "internal error is a database failure",
			err:  apperrors.Internal(errors.New("connection reset")),
			want: monitoring.FailureDatabase,
		},
		{
			name: "seats unavailable is a business rejection",
			err:  apperrors.SeatsUnavailable([]string{"s1"}),
			want: monitoring.FailureNone,
		},
		{
			name: "rate limited is a business rejection",
			err:  apperrors.RateLimited(11),
			want: monitoring.FailureNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := apperrors.Classify(tt.err)
			assert.Equal(t, tt.want, failureClass(tt.err, appErr))
		})
	}
}
