package seats

import (
	"context"
	"testing"
	"time"

	"evently/internal/shared/config"
	"evently/internal/shared/constants"
	"evently/pkg/cache"
	"evently/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	seats []Seat
}

func (r *stubRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) ([]Seat, error) {
	return r.seats, nil
}

func (r *stubRepo) GetByIDs(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error) {
	return r.seats, nil
}

func (r *stubRepo) CountByEventAndStatus(ctx context.Context, eventID uuid.UUID, status SeatStatus) (int64, error) {
	return int64(len(r.seats)), nil
}

// ttlRecordingCache is a cache.Service that remembers the TTL of each Set.
type ttlRecordingCache struct {
	setTTLs []time.Duration
}

func (c *ttlRecordingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}

func (c *ttlRecordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.setTTLs = append(c.setTTLs, ttl)
	return nil
}

func (c *ttlRecordingCache) Delete(ctx context.Context, key string) error         { return nil }
func (c *ttlRecordingCache) DeletePattern(ctx context.Context, p string) error    { return nil }
func (c *ttlRecordingCache) Exists(ctx context.Context, key string) bool          { return false }
func (c *ttlRecordingCache) Ping(ctx context.Context) error                       { return nil }

func TestGetEventSeatMapUsesConfiguredTTL(t *testing.T) {
	recorder := &ttlRecordingCache{}
	cfg := &config.Config{Cache: config.CacheConfig{SeatsTTL: 25 * time.Second}}
	svc := NewService(&stubRepo{seats: []Seat{
		{ID: uuid.New(), Section: "GA", Row: "A", SeatNumber: "1", Status: SeatStatusAvailable},
	}}, cache.NewManager(recorder), cfg, logger.GetDefault())

	seatMap, err := svc.GetEventSeatMap(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, seatMap.TotalSeats)

	require.Len(t, recorder.setTTLs, 1)
	assert.Equal(t, 25*time.Second, recorder.setTTLs[0])
}

func TestGetEventSeatMapFallsBackToDefaultTTL(t *testing.T) {
	recorder := &ttlRecordingCache{}
	svc := NewService(&stubRepo{}, cache.NewManager(recorder), &config.Config{}, logger.GetDefault())

	_, err := svc.GetEventSeatMap(context.Background(), uuid.New())
	require.NoError(t, err)

	require.Len(t, recorder.setTTLs, 1)
	assert.Equal(t, constants.TTL_EVENT_SEATS, recorder.setTTLs[0])
}
