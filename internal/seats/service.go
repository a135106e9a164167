package seats

import (
	"context"
	"fmt"
	"time"

	"evently/internal/shared/config"
	"evently/internal/shared/constants"
	"evently/pkg/cache"
	"evently/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	// GetEventSeatMap returns the event's seats grouped by section, served
	// from a short-TTL cache so availability stays near-real-time.
	GetEventSeatMap(ctx context.Context, eventID uuid.UUID) (*EventSeatMap, error)
	// InvalidateEventSeats drops the cached seat map after a mutation.
	InvalidateEventSeats(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo  Repository
	cache *cache.Manager
	cfg   *config.Config
	log   *logger.Logger
}

func NewService(repo Repository, cacheManager *cache.Manager, cfg *config.Config, log *logger.Logger) Service {
	return &service{repo: repo, cache: cacheManager, cfg: cfg, log: log}
}

// seatMapTTL prefers the configured seat cache TTL, falling back to the
// built-in default when unset.
func (s *service) seatMapTTL() time.Duration {
	if s.cfg != nil && s.cfg.Cache.SeatsTTL > 0 {
		return s.cfg.Cache.SeatsTTL
	}
	return constants.TTL_EVENT_SEATS
}

func (s *service) GetEventSeatMap(ctx context.Context, eventID uuid.UUID) (*EventSeatMap, error) {
	prefix := constants.CACHE_PREFIX_EVENT_SEATS + ":" + eventID.String()
	key := cache.BuildKey(prefix, nil)

	var seatMap EventSeatMap
	err := s.cache.GetOrSet(ctx, key, s.seatMapTTL(), func() (interface{}, error) {
		return s.buildSeatMap(ctx, eventID)
	}, &seatMap)
	if err != nil {
		return nil, err
	}
	return &seatMap, nil
}

func (s *service) buildSeatMap(ctx context.Context, eventID uuid.UUID) (*EventSeatMap, error) {
	seats, err := s.repo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}

	seatMap := &EventSeatMap{
		EventID:    eventID.String(),
		TotalSeats: len(seats),
		Sections:   make(map[string][]SeatResponse),
	}
	for _, seat := range seats {
		if seat.IsAvailable() {
			seatMap.AvailableSeats++
		}
		seatMap.Sections[seat.Section] = append(seatMap.Sections[seat.Section], seat.ToResponse())
	}
	return seatMap, nil
}

func (s *service) InvalidateEventSeats(ctx context.Context, eventID uuid.UUID) {
	prefix := constants.CACHE_PREFIX_EVENT_SEATS + ":" + eventID.String()
	if err := s.cache.InvalidatePrefix(ctx, prefix); err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate seat map cache",
			"event_id", eventID.String(), "error", err)
	}
}
