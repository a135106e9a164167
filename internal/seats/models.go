package seats

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat is one sellable seat, scoped to an event. The seat row, not any
// counter on the event, is the record of truth for availability.
type Seat struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID    uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_seat" json:"event_id"`
	Section    string     `gorm:"not null;size:50;uniqueIndex:idx_event_seat" json:"section"`
	Row        string     `gorm:"not null;size:10;uniqueIndex:idx_event_seat" json:"row"`
	SeatNumber string     `gorm:"not null;size:10;uniqueIndex:idx_event_seat" json:"seat_number"`
	Price      float64    `gorm:"not null;check:price >= 0" json:"price"`
	Status     SeatStatus `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	ReservedBy *uuid.UUID `gorm:"type:uuid" json:"reserved_by,omitempty"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

func (s *Seat) IsAvailable() bool {
	return s.Status == SeatStatusAvailable
}

// SeatResponse for API responses
type SeatResponse struct {
	ID         string  `json:"id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	SeatNumber string  `json:"seat_number"`
	Price      float64 `json:"price"`
	Status     string  `json:"status"`
}

func (s *Seat) ToResponse() SeatResponse {
	return SeatResponse{
		ID:         s.ID.String(),
		Section:    s.Section,
		Row:        s.Row,
		SeatNumber: s.SeatNumber,
		Price:      s.Price,
		Status:     string(s.Status),
	}
}

// EventSeatMap groups an event's seats by section for availability views.
type EventSeatMap struct {
	EventID        string                    `json:"event_id"`
	TotalSeats     int                       `json:"total_seats"`
	AvailableSeats int                       `json:"available_seats"`
	Sections       map[string][]SeatResponse `json:"sections"`
}
