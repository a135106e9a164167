package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evently/internal/events"
	"evently/internal/seats"
	"evently/internal/shared/apperrors"
	"evently/pkg/pglock"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateParams carries everything the durable commit step needs.
type CreateParams struct {
	EventID    uuid.UUID
	UserID     uuid.UUID
	SeatIDs    []uuid.UUID // sorted ascending by the service
	Code       string
	Expiration time.Duration
}

type Repository interface {
	// CreateBooking runs the durable commit: event and seat rows locked,
	// availability re-checked, booking + booking-seat rows inserted, seats
	// transitioned to reserved. All inside one transaction.
	CreateBooking(ctx context.Context, params CreateParams) (*Booking, error)
	// ConfirmBooking transitions a pending booking to confirmed, or to
	// expired when observed past its expiration (committed inline).
	ConfirmBooking(ctx context.Context, bookingID, userID uuid.UUID, paymentReference string) (*Booking, error)
	// CancelBooking transitions a pending or confirmed booking to cancelled,
	// honouring the 24-hour window on confirmed bookings.
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error)
	GetDetail(ctx context.Context, bookingID, userID uuid.UUID) (*BookingSummary, error)
	ListForUser(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]BookingSummary, int64, error)
}

type repository struct {
	db                  *gorm.DB
	advisoryLockTimeout time.Duration
}

func NewRepository(db *gorm.DB, advisoryLockTimeout time.Duration) Repository {
	return &repository{db: db, advisoryLockTimeout: advisoryLockTimeout}
}

const cancellationWindow = 24 * time.Hour

func (r *repository) CreateBooking(ctx context.Context, params CreateParams) (*Booking, error) {
	var booking *Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockID := pglock.GenerateLockID("event_booking", params.EventID.String())
		acquired, err := pglock.Acquire(ctx, tx, lockID, r.advisoryLockTimeout)
		if err != nil {
			return fmt.Errorf("advisory lock error: %w", err)
		}
		if !acquired {
			return apperrors.ReservationUnavailable(5)
		}
		defer pglock.Release(tx, lockID)

		// Event row locked first, seats after, always in the same order.
		var event events.Event
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", params.EventID).
			First(&event).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.EventNotBookable("Event not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock event: %w", err)
		}

		now := time.Now()
		if !event.StartTime.After(now) {
			return apperrors.EventNotBookable("Event has already started")
		}
		if !event.Status.IsBookable() {
			return apperrors.EventNotBookable(fmt.Sprintf("Event is %s and not open for booking", event.Status))
		}

		var seatRows []seats.Seat
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ? AND id IN ? AND status = ?",
				params.EventID, params.SeatIDs, seats.SeatStatusAvailable).
			Order("id ASC").
			Find(&seatRows).Error
		if err != nil {
			return fmt.Errorf("failed to lock seats: %w", err)
		}

		if len(seatRows) < len(params.SeatIDs) {
			return apperrors.SeatsUnavailable(missingSeatIDs(params.SeatIDs, seatRows))
		}

		total := 0.0
		for _, seat := range seatRows {
			total += seat.Price
		}

		booking = &Booking{
			UserID:      params.UserID,
			EventID:     params.EventID,
			BookingCode: params.Code,
			Status:      BookingStatusPending,
			TotalAmount: total,
			ExpiresAt:   now.Add(params.Expiration),
		}
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		bookingSeats := make([]BookingSeat, len(seatRows))
		for i, seat := range seatRows {
			bookingSeats[i] = BookingSeat{
				BookingID: booking.ID,
				SeatID:    seat.ID,
				Price:     seat.Price,
			}
		}
		if err := tx.Create(&bookingSeats).Error; err != nil {
			return fmt.Errorf("failed to create booking seats: %w", err)
		}

		err = tx.Model(&seats.Seat{}).
			Where("id IN ?", params.SeatIDs).
			Updates(map[string]interface{}{
				"status":      seats.SeatStatusReserved,
				"reserved_by": params.UserID,
				"reserved_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reserve seats: %w", err)
		}

		booking.BookingSeats = bookingSeats
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *repository) ConfirmBooking(ctx context.Context, bookingID, userID uuid.UUID, paymentReference string) (*Booking, error) {
	var booking Booking
	var expired bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", bookingID, userID).
			First(&booking).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("booking")
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}
		if err := tx.Where("booking_id = ?", booking.ID).Find(&booking.BookingSeats).Error; err != nil {
			return fmt.Errorf("failed to load booking seats: %w", err)
		}

		if booking.Status != BookingStatusPending {
			return apperrors.Validation(fmt.Sprintf("booking is %s, only pending bookings can be confirmed", booking.Status))
		}

		now := time.Now()
		if booking.IsExpiredAt(now) {
			// Inline expiration: flip the booking and free its seats in this
			// same transaction, then report expired after commit.
			expired = true
			if err := tx.Model(&booking).Updates(map[string]interface{}{
				"status": BookingStatusExpired,
			}).Error; err != nil {
				return fmt.Errorf("failed to expire booking: %w", err)
			}
			return releaseBookingSeats(tx, booking.ID)
		}

		updates := map[string]interface{}{
			"status":       BookingStatusConfirmed,
			"confirmed_at": now,
		}
		if paymentReference != "" {
			updates["payment_reference"] = paymentReference
		}
		if err := tx.Model(&booking).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		err = tx.Model(&seats.Seat{}).
			Where("id IN (?)", tx.Model(&BookingSeat{}).Select("seat_id").Where("booking_id = ?", booking.ID)).
			Update("status", seats.SeatStatusBooked).Error
		if err != nil {
			return fmt.Errorf("failed to book seats: %w", err)
		}

		confirmedAt := now
		booking.Status = BookingStatusConfirmed
		booking.ConfirmedAt = &confirmedAt
		booking.PaymentReference = paymentReference
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return &booking, apperrors.BookingExpired(booking.ID.String())
	}
	return &booking, nil
}

func (r *repository) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	var booking Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", bookingID, userID).
			First(&booking).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("booking")
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}
		if err := tx.Where("booking_id = ?", booking.ID).Find(&booking.BookingSeats).Error; err != nil {
			return fmt.Errorf("failed to load booking seats: %w", err)
		}

		if !booking.Status.IsCancellable() {
			return apperrors.Validation(fmt.Sprintf("booking is %s and cannot be cancelled", booking.Status))
		}

		now := time.Now()
		if booking.Status == BookingStatusConfirmed {
			var event events.Event
			if err := tx.Where("id = ?", booking.EventID).First(&event).Error; err != nil {
				return fmt.Errorf("failed to load event: %w", err)
			}
			if event.StartTime.Sub(now) < cancellationWindow {
				return apperrors.CancellationWindowClosed()
			}
		}

		if err := tx.Model(&booking).Updates(map[string]interface{}{
			"status":       BookingStatusCancelled,
			"cancelled_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if err := releaseBookingSeats(tx, booking.ID); err != nil {
			return err
		}

		cancelledAt := now
		booking.Status = BookingStatusCancelled
		booking.CancelledAt = &cancelledAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// releaseBookingSeats returns a booking's seats to the available pool and
// clears the holder fields.
func releaseBookingSeats(tx *gorm.DB, bookingID uuid.UUID) error {
	err := tx.Model(&seats.Seat{}).
		Where("id IN (?)", tx.Model(&BookingSeat{}).Select("seat_id").Where("booking_id = ?", bookingID)).
		Updates(map[string]interface{}{
			"status":      seats.SeatStatusAvailable,
			"reserved_by": nil,
			"reserved_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

func (r *repository) GetDetail(ctx context.Context, bookingID, userID uuid.UUID) (*BookingSummary, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("BookingSeats").
		Where("id = ? AND user_id = ?", bookingID, userID).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	summaries, err := r.buildSummaries(ctx, []Booking{booking})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]BookingSummary, int64, error) {
	db := r.db.WithContext(ctx).Model(&Booking{}).Where("user_id = ?", userID)
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var totalCount int64
	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	if query.Limit == 0 {
		query.Limit = 20
	}

	var bookingRows []Booking
	err := db.Preload("BookingSeats").
		Order("created_at DESC").
		Offset(query.Skip).
		Limit(query.Limit).
		Find(&bookingRows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	summaries, err := r.buildSummaries(ctx, bookingRows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, totalCount, nil
}

// buildSummaries joins events, venues, and seats for response formatting.
// Read-only, no locks.
func (r *repository) buildSummaries(ctx context.Context, bookingRows []Booking) ([]BookingSummary, error) {
	if len(bookingRows) == 0 {
		return []BookingSummary{}, nil
	}

	eventIDs := make([]uuid.UUID, 0, len(bookingRows))
	seatIDs := make([]uuid.UUID, 0)
	for _, b := range bookingRows {
		eventIDs = append(eventIDs, b.EventID)
		for _, bs := range b.BookingSeats {
			seatIDs = append(seatIDs, bs.SeatID)
		}
	}

	var eventRows []events.Event
	err := r.db.WithContext(ctx).Preload("Venue").Where("id IN ?", eventIDs).Find(&eventRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	eventsByID := make(map[uuid.UUID]events.Event, len(eventRows))
	for _, e := range eventRows {
		eventsByID[e.ID] = e
	}

	seatsByID := make(map[uuid.UUID]seats.Seat)
	if len(seatIDs) > 0 {
		var seatRows []seats.Seat
		if err := r.db.WithContext(ctx).Where("id IN ?", seatIDs).Find(&seatRows).Error; err != nil {
			return nil, fmt.Errorf("failed to load seats: %w", err)
		}
		for _, s := range seatRows {
			seatsByID[s.ID] = s
		}
	}

	summaries := make([]BookingSummary, len(bookingRows))
	for i, b := range bookingRows {
		summary := BookingSummary{
			ID:          b.ID.String(),
			BookingCode: b.BookingCode,
			TotalAmount: b.TotalAmount,
			Status:      b.Status,
			ExpiresAt:   b.ExpiresAt,
			ConfirmedAt: b.ConfirmedAt,
			CreatedAt:   b.CreatedAt,
			UpdatedAt:   b.UpdatedAt,
			Seats:       make([]BookedSeatInfo, 0, len(b.BookingSeats)),
		}

		if event, ok := eventsByID[b.EventID]; ok {
			summary.Event = BookingEventInfo{
				ID:        event.ID.String(),
				Name:      event.Name,
				StartTime: event.StartTime,
			}
			if event.Venue != nil {
				summary.Event.VenueName = event.Venue.Name
				summary.Event.VenueCity = event.Venue.City
			}
		}

		for _, bs := range b.BookingSeats {
			info := BookedSeatInfo{
				ID:    bs.SeatID.String(),
				Price: bs.Price,
			}
			if seat, ok := seatsByID[bs.SeatID]; ok {
				info.Section = seat.Section
				info.Row = seat.Row
				info.SeatNumber = seat.SeatNumber
			}
			summary.Seats = append(summary.Seats, info)
		}
		summaries[i] = summary
	}
	return summaries, nil
}

func missingSeatIDs(requested []uuid.UUID, found []seats.Seat) []string {
	foundSet := make(map[uuid.UUID]struct{}, len(found))
	for _, seat := range found {
		foundSet[seat.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return missing
}
