package bookings

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// IsCancellable reports whether the booking may still be cancelled by its
// owner. Expired and already-cancelled bookings are terminal.
func (s BookingStatus) IsCancellable() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func IsValidBookingStatus(status string) bool {
	switch BookingStatus(status) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusExpired:
		return true
	default:
		return false
	}
}
