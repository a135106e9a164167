package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"evently/internal/domainevents"
	"evently/internal/monitoring"
	"evently/internal/reservation"
	"evently/internal/seats"
	"evently/internal/shared/apperrors"
	"evently/internal/shared/config"
	"evently/internal/shared/constants"
	"evently/pkg/breaker"
	"evently/pkg/logger"
	"evently/pkg/saga"

	"github.com/google/uuid"
)

type Service interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*BookingSummary, error)
	ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID, paymentReference string) (*BookingSummary, error)
	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error)
	GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error)
	ListBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*PaginatedBookings, error)
}

type service struct {
	repo         Repository
	reservations *reservation.Client
	orchestrator *saga.Orchestrator
	metrics      *monitoring.Collector
	producer     domainevents.Producer
	seatsService seats.Service
	cfg          *config.Config
	log          *logger.Logger
}

func NewService(
	repo Repository,
	reservations *reservation.Client,
	orchestrator *saga.Orchestrator,
	metrics *monitoring.Collector,
	producer domainevents.Producer,
	seatsService seats.Service,
	cfg *config.Config,
	log *logger.Logger,
) Service {
	return &service{
		repo:         repo,
		reservations: reservations,
		orchestrator: orchestrator,
		metrics:      metrics,
		producer:     producer,
		seatsService: seatsService,
		cfg:          cfg,
		log:          log,
	}
}

// CreateBooking runs the two-step booking saga: soft-reserve the seats in
// the fast store, then commit the booking in the durable store. A failure
// in step 2 compensates by releasing the soft reservations.
func (s *service) CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*BookingSummary, error) {
	eventID, seatIDs, err := s.validateCreateInput(req)
	if err != nil {
		return nil, err
	}

	tracker := s.metrics.BeginBooking()

	limited, currentCount := s.reservations.IsRateLimited(ctx,
		constants.BuildUserBookingRateKey(userID.String()),
		s.cfg.Booking.BookingsPerUserPerMinute,
		time.Minute)
	if limited {
		s.metrics.RecordRateLimited()
		s.log.LogRateLimitExceeded(ctx, userID.String(), "POST /bookings")
		tracker.End(false, monitoring.FailureNone)
		return nil, apperrors.RateLimited(currentCount)
	}

	holderID := userID.String()
	seatStrings := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		seatStrings[i] = id.String()
	}

	bookingSaga := s.orchestrator.CreateSaga(ctx, "booking_creation_"+eventID.String(), map[string]interface{}{
		"event_id":        eventID.String(),
		"user_id":         holderID,
		"seat_ids":        seatStrings,
		"reservation_ttl": s.cfg.Booking.SoftReservationTTL.Seconds(),
	})

	var booking *Booking

	bookingSaga.AddStep("redis_seat_reservation",
		func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
			ok, failedSeats, err := s.reservations.ReserveSeats(ctx, eventID.String(), seatStrings, holderID, s.cfg.Booking.SoftReservationTTL)
			if err != nil {
				return nil, apperrors.ReservationUnavailable(5).WithCause(err)
			}
			if !ok {
				return nil, apperrors.SeatsUnavailable(failedSeats)
			}
			return map[string]interface{}{"reserved_seats": seatStrings}, nil
		},
		func(ctx context.Context, data, result map[string]interface{}) error {
			released, err := s.reservations.ReleaseReservation(ctx, eventID.String(), seatStrings, holderID)
			if err != nil {
				return err
			}
			s.log.InfoContext(ctx, "Released soft reservations during compensation",
				"event_id", eventID.String(), "released", released)
			return nil
		},
		nil, 2)

	bookingSaga.AddStep("database_booking_creation",
		func(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
			code, err := GenerateBookingCode()
			if err != nil {
				return nil, err
			}
			created, err := s.repo.CreateBooking(ctx, CreateParams{
				EventID:    eventID,
				UserID:     userID,
				SeatIDs:    seatIDs,
				Code:       code,
				Expiration: time.Duration(s.cfg.Booking.ExpirationMinutes) * time.Minute,
			})
			if err != nil {
				return nil, err
			}
			booking = created
			return map[string]interface{}{
				"booking_id":   created.ID.String(),
				"booking_code": created.BookingCode,
				"total_amount": created.TotalAmount,
			}, nil
		},
		nil, // rollback of the uncommitted transaction is the compensation
		nil, 1)

	if err := s.orchestrator.ExecuteSaga(ctx, bookingSaga); err != nil {
		appErr := apperrors.Classify(err)
		tracker.End(false, failureClass(err, appErr))
		if errors.Is(err, breaker.ErrOpen) {
			s.metrics.RecordBreakerOpen()
		}
		return nil, appErr
	}

	tracker.End(true, monitoring.FailureNone)
	s.log.LogBookingCreated(ctx, booking.ID.String(), eventID.String(), holderID)

	s.afterMutation(ctx, booking, domainevents.EventBookingCreated)

	return s.repo.GetDetail(ctx, booking.ID, userID)
}

func (s *service) ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID, paymentReference string) (*BookingSummary, error) {
	booking, err := s.repo.ConfirmBooking(ctx, bookingID, userID, paymentReference)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindBookingExpired) && booking != nil {
			// The expiration was committed inline; clean up the fast store
			// and tell the world, then surface the expired error.
			s.metrics.RecordExpired()
			s.log.LogBookingStatusChanged(ctx, booking.ID.String(), string(BookingStatusPending), string(BookingStatusExpired))
			s.afterMutation(ctx, booking, domainevents.EventBookingExpired)
		}
		return nil, err
	}

	s.metrics.RecordConfirmed()
	s.log.LogBookingStatusChanged(ctx, booking.ID.String(), string(BookingStatusPending), string(BookingStatusConfirmed))
	s.afterMutation(ctx, booking, domainevents.EventBookingConfirmed)

	return s.repo.GetDetail(ctx, booking.ID, userID)
}

func (s *service) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error) {
	booking, err := s.repo.CancelBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCancelled()
	s.log.LogBookingStatusChanged(ctx, booking.ID.String(), "", string(BookingStatusCancelled))
	s.afterMutation(ctx, booking, domainevents.EventBookingCancelled)

	return s.repo.GetDetail(ctx, booking.ID, userID)
}

func (s *service) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error) {
	return s.repo.GetDetail(ctx, bookingID, userID)
}

func (s *service) ListBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*PaginatedBookings, error) {
	summaries, totalCount, err := s.repo.ListForUser(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	if query.Limit == 0 {
		query.Limit = 20
	}
	return &PaginatedBookings{
		Bookings:   summaries,
		TotalCount: totalCount,
		Skip:       query.Skip,
		Limit:      query.Limit,
	}, nil
}

// validateCreateInput parses and normalises the request: ids must be valid,
// unique, within the per-booking limit, and sorted so every caller locks in
// the same order.
func (s *service) validateCreateInput(req CreateBookingRequest) (uuid.UUID, []uuid.UUID, error) {
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return uuid.Nil, nil, apperrors.Validation("invalid event_id")
	}

	if len(req.SeatIDs) == 0 {
		return uuid.Nil, nil, apperrors.Validation("seat_ids must not be empty")
	}
	if len(req.SeatIDs) > s.cfg.Booking.MaxSeatsPerBooking {
		return uuid.Nil, nil, apperrors.Validation(
			fmt.Sprintf("cannot book more than %d seats at once", s.cfg.Booking.MaxSeatsPerBooking))
	}

	seen := make(map[string]struct{}, len(req.SeatIDs))
	seatIDs := make([]uuid.UUID, 0, len(req.SeatIDs))
	for _, raw := range req.SeatIDs {
		if _, dup := seen[raw]; dup {
			return uuid.Nil, nil, apperrors.Validation("duplicate seat ids are not allowed")
		}
		seen[raw] = struct{}{}

		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, nil, apperrors.Validation(fmt.Sprintf("invalid seat id: %s", raw))
		}
		seatIDs = append(seatIDs, id)
	}

	sort.Slice(seatIDs, func(i, j int) bool {
		return seatIDs[i].String() < seatIDs[j].String()
	})
	return eventID, seatIDs, nil
}

// afterMutation performs the best-effort post-commit work shared by every
// booking transition: fast-store release, cache invalidation, pub/sub push,
// and the domain event. Failures here are logged, never raised.
func (s *service) afterMutation(ctx context.Context, booking *Booking, eventType domainevents.EventType) {
	seatStrings := make([]string, len(booking.BookingSeats))
	for i, bs := range booking.BookingSeats {
		seatStrings[i] = bs.SeatID.String()
	}

	if eventType != domainevents.EventBookingCreated && len(seatStrings) > 0 {
		if _, err := s.reservations.ReleaseReservation(ctx, booking.EventID.String(), seatStrings, booking.UserID.String()); err != nil {
			s.log.WarnContext(ctx, "Failed to release soft reservations",
				"booking_id", booking.ID.String(), "error", err)
		}
	}

	s.seatsService.InvalidateEventSeats(ctx, booking.EventID)

	if _, err := s.reservations.Publish(ctx, constants.BuildSeatUpdatesChannel(booking.EventID.String()), map[string]interface{}{
		"event_id":   booking.EventID.String(),
		"booking_id": booking.ID.String(),
		"type":       string(eventType),
	}); err != nil {
		s.log.DebugContext(ctx, "Failed to publish seat update", "error", err)
	}

	if err := s.producer.PublishBookingEvent(ctx, domainevents.BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID.String(),
		BookingCode: booking.BookingCode,
		EventID:     booking.EventID.String(),
		UserID:      booking.UserID.String(),
		TotalAmount: booking.TotalAmount,
	}); err != nil {
		s.log.WarnContext(ctx, "Failed to publish booking event",
			"booking_id", booking.ID.String(), "type", string(eventType), "error", err)
	}
}

// failureClass maps a terminal booking error to the typed metrics class.
// Business rejections carry no failure class.
func failureClass(err error, appErr *apperrors.AppError) monitoring.FailureClass {
	if errors.Is(err, breaker.ErrOpen) || errors.Is(err, reservation.ErrStoreUnavailable) {
		return monitoring.FailureRedis
	}
	switch appErr.Kind {
	case apperrors.KindReservationUnavailable:
		return monitoring.FailureRedis
	case apperrors.KindInternal:
		return monitoring.FailureDatabase
	default:
		return monitoring.FailureNone
	}
}
