package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is the durable record of a seat purchase in flight or completed.
// It is created pending with an expiration and moves through the lifecycle
// pending -> confirmed | cancelled | expired.
type Booking struct {
	ID               uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	EventID          uuid.UUID     `gorm:"type:uuid;index;not null" json:"event_id"`
	BookingCode      string        `gorm:"uniqueIndex;not null;size:11" json:"booking_code"`
	Status           BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount      float64       `gorm:"not null" json:"total_amount"`
	ExpiresAt        time.Time     `gorm:"not null" json:"expires_at"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	PaymentReference string        `gorm:"size:255" json:"payment_reference,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	BookingSeats []BookingSeat `json:"booking_seats,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE;"`
}

// BookingSeat pins the price charged for one seat in one booking. Immutable
// after creation.
type BookingSeat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	SeatID    uuid.UUID `gorm:"type:uuid;index;not null" json:"seat_id"`
	Price     float64   `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// TableName sets the table name for BookingSeat
func (BookingSeat) TableName() string {
	return "booking_seats"
}

func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// IsExpiredAt reports whether the booking's expiration has been reached.
// The boundary itself counts as expired.
func (b *Booking) IsExpiredAt(now time.Time) bool {
	return b.Status == BookingStatusPending && !now.Before(b.ExpiresAt)
}
