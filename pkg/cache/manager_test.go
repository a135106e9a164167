package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	entries map[string]string
	deleted []string
}

func newFakeService() *fakeService {
	return &fakeService{entries: make(map[string]string)}
}

func (f *fakeService) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return errors.New("cache unmarshal error")
	}
	return nil
}

func (f *fakeService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = string(raw)
	return nil
}

func (f *fakeService) Delete(ctx context.Context, key string) error {
	delete(f.entries, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeService) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
			f.deleted = append(f.deleted, key)
		}
	}
	return nil
}

func (f *fakeService) Exists(ctx context.Context, key string) bool {
	_, ok := f.entries[key]
	return ok
}

func (f *fakeService) Ping(ctx context.Context) error { return nil }

func TestBuildKeyDeterministic(t *testing.T) {
	a := BuildKey("events", map[string]interface{}{"page": 1, "status": "upcoming"})
	b := BuildKey("events", map[string]interface{}{"status": "upcoming", "page": 1})
	assert.Equal(t, a, b)

	c := BuildKey("events", map[string]interface{}{"page": 2, "status": "upcoming"})
	assert.NotEqual(t, a, c)
}

func TestBuildKeyFormat(t *testing.T) {
	key := BuildKey("event_detail:e1", map[string]interface{}{})
	parts := strings.Split(key, ":")
	require.Len(t, parts, 4)
	assert.Equal(t, Version, parts[0])
	assert.Equal(t, "event_detail", parts[1])
	assert.Equal(t, "e1", parts[2])
	assert.Len(t, parts[3], 8)
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeService())

	key := BuildKey("events", map[string]interface{}{"page": 1})
	payload := map[string]string{"name": "Concert"}
	require.NoError(t, m.Set(ctx, key, payload, time.Minute))

	var got map[string]string
	require.NoError(t, m.Get(ctx, key, &got))
	assert.Equal(t, "Concert", got["name"])
}

func TestManagerVersionMismatchIsMissAndDeletes(t *testing.T) {
	ctx := context.Background()
	svc := newFakeService()
	m := NewManager(svc)

	key := BuildKey("events", nil)
	stale, _ := json.Marshal(Entry{
		Data:    json.RawMessage(`{"name":"old"}`),
		Version: "v0.9",
	})
	svc.entries[key] = string(stale)

	var got map[string]string
	err := m.Get(ctx, key, &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, svc.deleted, key)
}

func TestManagerCorruptEntryIsMissAndDeletes(t *testing.T) {
	ctx := context.Background()
	svc := newFakeService()
	m := NewManager(svc)

	key := BuildKey("events", nil)
	svc.entries[key] = "{not json"

	var got map[string]string
	err := m.Get(ctx, key, &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, svc.deleted, key)
}

func TestManagerPayloadShapeMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	svc := newFakeService()
	m := NewManager(svc)

	key := BuildKey("events", nil)
	require.NoError(t, m.Set(ctx, key, map[string]string{"name": "Concert"}, time.Minute))

	var wrongShape []int
	err := m.Get(ctx, key, &wrongShape)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetOrSetFetchesOnMiss(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeService())

	key := BuildKey("event_detail:e1", nil)
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]string{"id": "e1"}, nil
	}

	var got map[string]string
	require.NoError(t, m.GetOrSet(ctx, key, time.Minute, fetch, &got))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "e1", got["id"])

	// Second read served from cache.
	var again map[string]string
	require.NoError(t, m.GetOrSet(ctx, key, time.Minute, fetch, &again))
	assert.Equal(t, 1, calls)
}

func TestInvalidatePrefixWipesOnlyThatPrefix(t *testing.T) {
	ctx := context.Background()
	svc := newFakeService()
	m := NewManager(svc)

	eventsKey := BuildKey("events", map[string]interface{}{"page": 1})
	detailKey := BuildKey("event_detail:e1", nil)
	require.NoError(t, m.Set(ctx, eventsKey, "a", time.Minute))
	require.NoError(t, m.Set(ctx, detailKey, "b", time.Minute))

	require.NoError(t, m.InvalidatePrefix(ctx, "events"))

	assert.False(t, svc.Exists(ctx, eventsKey))
	assert.True(t, svc.Exists(ctx, detailKey))
}
