package events

import (
	"time"

	"evently/internal/venues"

	"github.com/google/uuid"
)

// Event is the catalog entry bookings are created against. Available seat
// count is derived from seat rows, never stored here.
type Event struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string      `json:"name" gorm:"not null;size:255"`
	Description string      `json:"description" gorm:"type:text"`
	VenueID     uuid.UUID   `json:"venue_id" gorm:"type:uuid;not null;index"`
	StartTime   time.Time   `json:"start_time" gorm:"not null"`
	EndTime     time.Time   `json:"end_time" gorm:"not null"`
	Capacity    int         `json:"capacity" gorm:"not null;check:capacity > 0"`
	Status      EventStatus `json:"status" gorm:"type:varchar(20);not null;default:'upcoming'"`

	Venue *venues.Venue `json:"venue,omitempty" gorm:"foreignKey:VenueID;constraint:OnDelete:RESTRICT;"`

	CreatedBy uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	UpdatedBy *uuid.UUID `json:"updated_by" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

type EventResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	VenueID        string      `json:"venue_id"`
	VenueName      string      `json:"venue_name,omitempty"`
	VenueCity      string      `json:"venue_city,omitempty"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        time.Time   `json:"end_time"`
	Capacity       int         `json:"capacity"`
	AvailableSeats int         `json:"available_seats"`
	Status         EventStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ToResponse converts the event without the derived availability, which the
// service fills in from seat counts.
func (e *Event) ToResponse() EventResponse {
	resp := EventResponse{
		ID:          e.ID.String(),
		Name:        e.Name,
		Description: e.Description,
		VenueID:     e.VenueID.String(),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Capacity:    e.Capacity,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Venue != nil {
		resp.VenueName = e.Venue.Name
		resp.VenueCity = e.Venue.City
	}
	return resp
}

// SeatBlock describes one section of identical-priced seats generated when
// the event is created.
type SeatBlock struct {
	Section     string  `json:"section" binding:"required,min=1,max=50"`
	Rows        int     `json:"rows" binding:"required,min=1,max=100"`
	SeatsPerRow int     `json:"seats_per_row" binding:"required,min=1,max=100"`
	Price       float64 `json:"price" binding:"min=0"`
}

type CreateEventRequest struct {
	Name        string      `json:"name" binding:"required,min=3,max=255"`
	Description string      `json:"description" binding:"max=2000"`
	VenueID     string      `json:"venue_id" binding:"required,uuid"`
	StartTime   time.Time   `json:"start_time" binding:"required"`
	EndTime     time.Time   `json:"end_time" binding:"required"`
	SeatBlocks  []SeatBlock `json:"seat_blocks" binding:"required,min=1,dive"`
}

// Capacity is the number of seats the blocks generate.
func (r CreateEventRequest) Capacity() int {
	total := 0
	for _, block := range r.SeatBlocks {
		total += block.Rows * block.SeatsPerRow
	}
	return total
}

type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=3,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Status      *string    `json:"status" binding:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

type EventListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	City     string `form:"city"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Status   string `form:"status" binding:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

type PaginatedEvents struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
