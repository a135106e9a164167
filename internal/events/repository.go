package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"evently/internal/seats"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateWithSeats(ctx context.Context, event *Event, eventSeats []seats.Seat) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountAvailableSeats(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int, error)
	HasConfirmedBookings(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateWithSeats inserts the event and its full seat inventory in one
// transaction so the seat count always equals the capacity.
func (r *repository) CreateWithSeats(ctx context.Context, event *Event, eventSeats []seats.Seat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		for i := range eventSeats {
			eventSeats[i].EventID = event.ID
		}
		if err := tx.CreateInBatches(eventSeats, 500).Error; err != nil {
			return fmt.Errorf("failed to create seats: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Preload("Venue").Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) GetAll(ctx context.Context, query EventListQuery) ([]Event, int64, error) {
	var events []Event
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Event{}).
		Joins("JOIN venues ON venues.id = events.venue_id")

	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(events.name) LIKE ? OR LOWER(events.description) LIKE ? OR LOWER(venues.name) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if query.City != "" {
		db = db.Where("LOWER(venues.city) = ?", strings.ToLower(query.City))
	}

	if query.Status != "" {
		db = db.Where("events.status = ?", query.Status)
	}

	if query.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			db = db.Where("events.start_time >= ?", dateFrom)
		}
	}

	if query.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			dateTo = dateTo.Add(24 * time.Hour)
			db = db.Where("events.start_time < ?", dateTo)
		}
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}
	offset := (query.Page - 1) * query.Limit

	err := db.Preload("Venue").
		Order("events.start_time ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&events).Error

	return events, totalCount, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Event, error) {
	var event Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&event).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Preload("Venue").Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Delete removes the event with its seats. Callers must check for confirmed
// bookings first; the transaction removes only pending and terminal rows.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM booking_seats WHERE booking_id IN (SELECT id FROM bookings WHERE event_id = ?)", id,
		).Error; err != nil {
			return fmt.Errorf("failed to delete booking seats: %w", err)
		}
		if err := tx.Exec("DELETE FROM bookings WHERE event_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete bookings: %w", err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&seats.Seat{}).Error; err != nil {
			return fmt.Errorf("failed to delete seats: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&Event{}).Error; err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}

// CountAvailableSeats returns the derived availability for a set of events.
func (r *repository) CountAvailableSeats(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(eventIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	type row struct {
		EventID uuid.UUID `json:"event_id"`
		Count   int       `json:"count"`
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&seats.Seat{}).
		Select("event_id, COUNT(*) as count").
		Where("event_id IN ? AND status = ?", eventIDs, seats.SeatStatusAvailable).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.EventID] = r.Count
	}
	return counts, nil
}

func (r *repository) HasConfirmedBookings(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("bookings").
		Where("event_id = ? AND status = ?", id, "confirmed").
		Count(&count).Error
	return count > 0, err
}
