package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Version is the process-wide cache version. Bumping it on deploy makes
// every previously cached entry a miss.
const Version = "v1.0"

// Entry is the envelope every cached payload is wrapped in.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
	Version  string          `json:"version"`
	TTL      int             `json:"ttl"`
}

// Manager is a versioned, validated read-through cache. Keys are
// version:prefix:hash; entries failing version or schema validation are
// deleted and reported as misses.
type Manager struct {
	service Service
}

// NewManager creates a cache manager over the low-level cache service.
func NewManager(service Service) *Manager {
	return &Manager{service: service}
}

// BuildKey generates a deterministic cache key from a prefix and the
// request's canonical parameters. Parameters are sorted before hashing so
// equivalent requests share a key.
func BuildKey(prefix string, params map[string]interface{}) string {
	return Version + ":" + prefix + ":" + hashParams(params)
}

// InvalidationPattern returns the wildcard matching every key under a
// prefix for the current version.
func InvalidationPattern(prefix string) string {
	return Version + ":" + prefix + ":*"
}

func hashParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonical := make(map[string]interface{}, len(params))
	for _, k := range keys {
		canonical[k] = params[k]
	}
	// json.Marshal sorts map keys, giving a stable digest input
	raw, _ := json.Marshal(canonical)
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])[:8]
}

// Get loads and validates a cached entry into dest. A missing key, version
// mismatch, malformed envelope, or payload that does not unmarshal into
// dest all yield ErrCacheMiss; corrupted entries are deleted on the way.
func (m *Manager) Get(ctx context.Context, key string, dest interface{}) error {
	var entry Entry
	err := m.service.Get(ctx, key, &entry)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		// Malformed JSON in the entry: drop it
		_ = m.service.Delete(ctx, key)
		return ErrCacheMiss
	}

	if entry.Version != Version {
		_ = m.service.Delete(ctx, key)
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.Data, dest); err != nil {
		_ = m.service.Delete(ctx, key)
		return ErrCacheMiss
	}

	return nil
}

// Set stores value wrapped in the versioned envelope.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	entry := Entry{
		Data:     data,
		CachedAt: time.Now().UTC(),
		Version:  Version,
		TTL:      int(ttl.Seconds()),
	}
	return m.service.Set(ctx, key, entry, ttl)
}

// GetOrSet reads through the cache: on a miss it calls fetcher, stores the
// result, and unmarshals it into dest. Cache write failures do not fail the
// read path.
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	if err := m.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := fetcher()
	if err != nil {
		return err
	}

	_ = m.Set(ctx, key, value, ttl)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal fetched data error: %w", err)
	}
	return json.Unmarshal(raw, dest)
}

// InvalidatePrefix wipes every cached entry under a prefix.
func (m *Manager) InvalidatePrefix(ctx context.Context, prefixes ...string) error {
	for _, prefix := range prefixes {
		if err := m.service.DeletePattern(ctx, InvalidationPattern(prefix)); err != nil {
			return fmt.Errorf("failed to invalidate prefix %s: %w", prefix, err)
		}
	}
	return nil
}

// Ping probes the underlying cache store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.service.Ping(ctx)
}
