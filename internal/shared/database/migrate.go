package database

import (
	"evently/internal/bookings"
	"evently/internal/events"
	"evently/internal/seats"
	"evently/internal/users"
	"evently/internal/venues"
	"evently/pkg/saga"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&venues.Venue{},
		&events.Event{},
		&seats.Seat{},
		&bookings.Booking{},
		&bookings.BookingSeat{},
		&saga.SagaState{},
	)
}
