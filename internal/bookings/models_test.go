package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpiredAtBoundary(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	booking := Booking{Status: BookingStatusPending, ExpiresAt: expiry}

	assert.False(t, booking.IsExpiredAt(expiry.Add(-time.Second)), "before expiry")
	assert.True(t, booking.IsExpiredAt(expiry), "exactly at expiry counts as expired")
	assert.True(t, booking.IsExpiredAt(expiry.Add(time.Second)), "after expiry")
}

func TestIsExpiredAtOnlyAppliesToPending(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	for _, status := range []BookingStatus{BookingStatusConfirmed, BookingStatusCancelled, BookingStatusExpired} {
		booking := Booking{Status: status, ExpiresAt: past}
		assert.False(t, booking.IsExpiredAt(time.Now()), "status %s never expires", status)
	}
}

func TestIsCancellable(t *testing.T) {
	assert.True(t, BookingStatusPending.IsCancellable())
	assert.True(t, BookingStatusConfirmed.IsCancellable())
	assert.False(t, BookingStatusCancelled.IsCancellable())
	assert.False(t, BookingStatusExpired.IsCancellable())
}

func TestIsValidBookingStatus(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "cancelled", "expired"} {
		assert.True(t, IsValidBookingStatus(valid), valid)
	}
	assert.False(t, IsValidBookingStatus("refunded"))
	assert.False(t, IsValidBookingStatus(""))
}
