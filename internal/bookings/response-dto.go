package bookings

import "time"

// BookingSummary is the response shape for every booking read and mutation.
type BookingSummary struct {
	ID          string            `json:"id"`
	BookingCode string            `json:"booking_code"`
	Event       BookingEventInfo  `json:"event"`
	Seats       []BookedSeatInfo  `json:"seats"`
	TotalAmount float64           `json:"total_amount"`
	Status      BookingStatus     `json:"status"`
	ExpiresAt   time.Time         `json:"expires_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type BookingEventInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	VenueName string    `json:"venue_name"`
	VenueCity string    `json:"venue_city"`
}

type BookedSeatInfo struct {
	ID         string  `json:"id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	SeatNumber string  `json:"seat_number"`
	Price      float64 `json:"price"`
}

type PaginatedBookings struct {
	Bookings   []BookingSummary `json:"bookings"`
	TotalCount int64            `json:"total_count"`
	Skip       int              `json:"skip"`
	Limit      int              `json:"limit"`
}
