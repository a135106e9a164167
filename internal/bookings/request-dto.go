package bookings

type CreateBookingRequest struct {
	EventID string   `json:"event_id" binding:"required,uuid"`
	SeatIDs []string `json:"seat_ids" binding:"required,min=1,dive,uuid"`
}

type ConfirmBookingRequest struct {
	PaymentReference string `form:"payment_reference" json:"payment_reference" binding:"omitempty,max=255"`
}

type BookingListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled expired"`
	Skip   int    `form:"skip" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
