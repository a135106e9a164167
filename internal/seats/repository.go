package seats

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetByEventID(ctx context.Context, eventID uuid.UUID) ([]Seat, error)
	GetByIDs(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error)
	CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status SeatStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByEventID(ctx context.Context, eventID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("section ASC, row ASC, seat_number ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetByIDs(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND id IN ?", eventID, seatIDs).
		Order("id ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status SeatStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Seat{}).
		Where("event_id = ? AND status = ?", eventID, status).
		Count(&count).Error
	return count, err
}
