package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"evently/internal/seats"
	"evently/internal/shared/apperrors"
	"evently/internal/shared/config"
	"evently/internal/shared/constants"
	"evently/internal/venues"
	"evently/pkg/cache"
	"evently/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	CreateEvent(ctx context.Context, adminID uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, adminID uuid.UUID, req UpdateEventRequest) (*EventResponse, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	venueRepo venues.Repository
	cache     *cache.Manager
	cfg       *config.Config
	log       *logger.Logger
}

func NewService(repo Repository, venueRepo venues.Repository, cacheManager *cache.Manager, cfg *config.Config, log *logger.Logger) Service {
	return &service{
		repo:      repo,
		venueRepo: venueRepo,
		cache:     cacheManager,
		cfg:       cfg,
		log:       log,
	}
}

func (s *service) CreateEvent(ctx context.Context, adminID uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.Validation("end_time must be after start_time")
	}
	if req.StartTime.Before(time.Now()) {
		return nil, apperrors.Validation("start_time must be in the future")
	}

	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return nil, apperrors.Validation("invalid venue_id")
	}
	venue, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("venue")
		}
		return nil, fmt.Errorf("failed to load venue: %w", err)
	}

	event := &Event{
		Name:        req.Name,
		Description: req.Description,
		VenueID:     venueID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity(),
		Status:      EventStatusUpcoming,
		CreatedBy:   adminID,
	}

	eventSeats := generateSeats(req.SeatBlocks)
	if err := s.repo.CreateWithSeats(ctx, event, eventSeats); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.invalidateAll(ctx)

	event.Venue = venue
	resp := event.ToResponse()
	resp.AvailableSeats = event.Capacity
	return &resp, nil
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	prefix := constants.CACHE_PREFIX_EVENT_DETAIL + ":" + id.String()
	key := cache.BuildKey(prefix, nil)

	var resp EventResponse
	err := s.cache.GetOrSet(ctx, key, s.cfg.Cache.EventsTTL, func() (interface{}, error) {
		return s.loadEvent(ctx, id)
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *service) loadEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	counts, err := s.repo.CountAvailableSeats(ctx, []uuid.UUID{event.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count available seats: %w", err)
	}

	resp := event.ToResponse()
	resp.AvailableSeats = counts[event.ID]
	return &resp, nil
}

func (s *service) GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	key := cache.BuildKey(constants.CACHE_PREFIX_EVENTS, map[string]interface{}{
		"page":      query.Page,
		"limit":     query.Limit,
		"search":    query.Search,
		"city":      query.City,
		"date_from": query.DateFrom,
		"date_to":   query.DateTo,
		"status":    query.Status,
	})

	var result PaginatedEvents
	err := s.cache.GetOrSet(ctx, key, s.cfg.Cache.EventsTTL, func() (interface{}, error) {
		return s.loadEvents(ctx, query)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) loadEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	eventList, totalCount, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	ids := make([]uuid.UUID, len(eventList))
	for i, e := range eventList {
		ids[i] = e.ID
	}
	counts, err := s.repo.CountAvailableSeats(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count available seats: %w", err)
	}

	responses := make([]EventResponse, len(eventList))
	for i, e := range eventList {
		responses[i] = e.ToResponse()
		responses[i].AvailableSeats = counts[e.ID]
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}
	totalPages := int((totalCount + int64(query.Limit) - 1) / int64(query.Limit))

	return &PaginatedEvents{
		Events:     responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, adminID uuid.UUID, req UpdateEventRequest) (*EventResponse, error) {
	updates := map[string]interface{}{"updated_by": adminID}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.StartTime != nil {
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		updates["end_time"] = *req.EndTime
	}
	if req.Status != nil {
		if !IsValidEventStatus(*req.Status) {
			return nil, apperrors.Validation("invalid event status")
		}
		updates["status"] = *req.Status
	}

	event, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("event")
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if !event.EndTime.After(event.StartTime) {
		return nil, apperrors.Validation("end_time must be after start_time")
	}

	s.invalidateEvent(ctx, id)

	counts, err := s.repo.CountAvailableSeats(ctx, []uuid.UUID{event.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count available seats: %w", err)
	}
	resp := event.ToResponse()
	resp.AvailableSeats = counts[event.ID]
	return &resp, nil
}

func (s *service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	hasConfirmed, err := s.repo.HasConfirmedBookings(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check bookings: %w", err)
	}
	if hasConfirmed {
		return apperrors.Validation("event has confirmed bookings and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.invalidateAll(ctx)
	return nil
}

// invalidateAll wipes every event-related cache namespace. Used on create
// and delete, where list membership changes.
func (s *service) invalidateAll(ctx context.Context) {
	err := s.cache.InvalidatePrefix(ctx,
		constants.CACHE_PREFIX_EVENTS,
		constants.CACHE_PREFIX_EVENT_DETAIL,
		constants.CACHE_PREFIX_EVENT_SEATS,
	)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate event caches", "error", err)
	}
}

// invalidateEvent wipes the one event's detail and seat namespaces plus the
// whole list namespace, whose results may include the mutated row.
func (s *service) invalidateEvent(ctx context.Context, id uuid.UUID) {
	err := s.cache.InvalidatePrefix(ctx,
		constants.CACHE_PREFIX_EVENTS,
		constants.CACHE_PREFIX_EVENT_DETAIL+":"+id.String(),
		constants.CACHE_PREFIX_EVENT_SEATS+":"+id.String(),
	)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate event caches", "event_id", id.String(), "error", err)
	}
}

// generateSeats expands seat blocks into individual seat rows. Rows are
// labelled A, B, ... Z, AA, AB within each section.
func generateSeats(blocks []SeatBlock) []seats.Seat {
	var out []seats.Seat
	for _, block := range blocks {
		for row := 0; row < block.Rows; row++ {
			rowLabel := rowLabel(row)
			for num := 1; num <= block.SeatsPerRow; num++ {
				out = append(out, seats.Seat{
					Section:    block.Section,
					Row:        rowLabel,
					SeatNumber: strconv.Itoa(num),
					Price:      block.Price,
					Status:     seats.SeatStatusAvailable,
				})
			}
		}
	}
	return out
}

func rowLabel(index int) string {
	label := ""
	index++
	for index > 0 {
		index--
		label = string(rune('A'+index%26)) + label
		index /= 26
	}
	return label
}
