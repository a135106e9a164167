package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"evently/internal/shared/constants"
	"evently/pkg/breaker"
	"evently/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the circuit breaker rejects a call
// or the fast store cannot be reached.
var ErrStoreUnavailable = errors.New("reservation store unavailable")

// Client is the fast-store front for contention arbitration: atomic soft
// reservations, distributed locks, rate limiting, and pub/sub. Every call
// runs under the circuit breaker.
type Client struct {
	redis   *redis.Client
	breaker *breaker.CircuitBreaker
	log     *logger.Logger
}

// NewClient creates a reservation client guarded by the given breaker.
func NewClient(redisClient *redis.Client, cb *breaker.CircuitBreaker, log *logger.Logger) *Client {
	if log == nil {
		log = logger.GetDefault()
	}
	c := &Client{
		redis:   redisClient,
		breaker: cb,
		log:     log,
	}
	cb.OnStateChange(func(name string, from, to breaker.State) {
		log.LogCircuitBreakerStateChange(context.Background(), name, string(from), string(to))
	})
	return c
}

// Breaker exposes the underlying circuit breaker for health reporting.
func (c *Client) Breaker() *breaker.CircuitBreaker {
	return c.breaker
}

// PreloadScripts loads all Lua scripts into the store's script cache.
func (c *Client) PreloadScripts(ctx context.Context) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}
	scripts := []string{
		luaReserveSeats,
		luaReleaseReservations,
		luaExtendReservations,
		luaAcquireLock,
		luaReleaseLock,
		luaExtendLock,
		luaRateLimit,
	}
	for _, script := range scripts {
		if _, err := c.redis.ScriptLoad(ctx, script).Result(); err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
	}
	return nil
}

// eval executes a Lua script through the breaker, preferring the script
// cache and falling back to a full EVAL when the cache was flushed.
func (c *Client) eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if !c.breaker.Allow() {
		return nil, ErrStoreUnavailable
	}

	result, err := c.redis.EvalSha(ctx, script, keys, args...).Result()
	if err != nil {
		result, err = c.redis.Eval(ctx, script, keys, args...).Result()
	}
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.breaker.RecordSuccess()
	return result, nil
}

// ReserveSeats atomically reserves every seat for holderID with the given
// TTL, or reserves nothing and returns the seat ids that blocked the
// operation. Duplicate seat ids in the input are a caller error.
func (c *Client) ReserveSeats(ctx context.Context, eventID string, seatIDs []string, holderID string, ttl time.Duration) (bool, []string, error) {
	if len(seatIDs) == 0 {
		return false, nil, fmt.Errorf("no seats requested")
	}
	if hasDuplicates(seatIDs) {
		return false, nil, fmt.Errorf("duplicate seat ids in reservation request")
	}

	// Sort seat ids so every caller locks in the same order
	sorted := append([]string(nil), seatIDs...)
	sort.Strings(sorted)

	args := []interface{}{
		eventID,
		holderID,
		strconv.Itoa(int(ttl.Seconds())),
		strconv.FormatInt(time.Now().Unix(), 10),
	}
	for _, seatID := range sorted {
		args = append(args, seatID)
	}

	result, err := c.eval(ctx, luaReserveSeats, []string{}, args...)
	if err != nil {
		return false, nil, err
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return false, nil, fmt.Errorf("unexpected result format from reserve script")
	}

	success, _ := toInt64(resultArray[0])
	seats := toStringSlice(resultArray[1])
	if success == 1 {
		c.log.InfoContext(ctx, "Seats reserved",
			slog.String("event_id", eventID),
			slog.String("holder_id", holderID),
			slog.Int("count", len(seats)),
		)
		return true, nil, nil
	}

	c.log.WarnContext(ctx, "Seat reservation blocked",
		slog.String("event_id", eventID),
		slog.Any("failed_seats", seats),
	)
	return false, seats, nil
}

// VerifyReservation reports whether every seat currently maps to holderID.
func (c *Client) VerifyReservation(ctx context.Context, eventID string, seatIDs []string, holderID string) (bool, error) {
	if !c.breaker.Allow() {
		return false, ErrStoreUnavailable
	}

	pipe := c.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(seatIDs))
	for i, seatID := range seatIDs {
		cmds[i] = pipe.Get(ctx, constants.BuildSeatReservationKey(eventID, seatID))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		c.breaker.RecordFailure()
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.breaker.RecordSuccess()

	for _, cmd := range cmds {
		owner, err := cmd.Result()
		if err != nil || owner != holderID {
			return false, nil
		}
	}
	return true, nil
}

// ReleaseReservation releases the seats currently owned by holderID and
// returns how many were actually released. Missing keys are not an error.
func (c *Client) ReleaseReservation(ctx context.Context, eventID string, seatIDs []string, holderID string) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}

	args := []interface{}{eventID, holderID}
	for _, seatID := range seatIDs {
		args = append(args, seatID)
	}

	result, err := c.eval(ctx, luaReleaseReservations, []string{}, args...)
	if err != nil {
		return 0, err
	}

	released, _ := toInt64(result)
	c.log.InfoContext(ctx, "Seat reservations released",
		slog.String("event_id", eventID),
		slog.String("holder_id", holderID),
		slog.Int64("released", released),
	)
	return int(released), nil
}

// ExtendReservation refreshes the TTL of every seat owned by holderID.
// All-or-nothing: if any seat is gone or foreign, no TTL changes.
func (c *Client) ExtendReservation(ctx context.Context, eventID string, seatIDs []string, holderID string, ttl time.Duration) (bool, error) {
	args := []interface{}{
		eventID,
		holderID,
		strconv.Itoa(int(ttl.Seconds())),
	}
	for _, seatID := range seatIDs {
		args = append(args, seatID)
	}

	result, err := c.eval(ctx, luaExtendReservations, []string{}, args...)
	if err != nil {
		return false, err
	}

	extended, _ := toInt64(result)
	return extended == 1, nil
}

// IsRateLimited checks the sliding window for key, recording the current
// call when under the limit. Fails open: on store failure the caller is not
// limited and the breaker has recorded the failure.
func (c *Client) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, int64) {
	rateKey := constants.BuildRateLimitKey(key)
	args := []interface{}{
		limit,
		int(window.Seconds()),
		time.Now().UnixMilli(),
		uuid.New().String(),
	}

	result, err := c.eval(ctx, luaRateLimit, []string{rateKey}, args...)
	if err != nil {
		c.log.ErrorWithContext(ctx, "Rate limit check failed, failing open", err, map[string]interface{}{
			"key": key,
		})
		return false, 0
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return false, 0
	}

	limited, _ := toInt64(resultArray[0])
	count, _ := toInt64(resultArray[1])
	return limited == 1, count
}

// Publish sends a message on a channel and returns the subscriber count.
// The core never waits on delivery.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) (int64, error) {
	if !c.breaker.Allow() {
		return 0, ErrStoreUnavailable
	}
	n, err := c.redis.Publish(ctx, channel, message).Result()
	if err != nil {
		c.breaker.RecordFailure()
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.breaker.RecordSuccess()
	return n, nil
}

// Subscribe returns a subscription over the given channels.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.redis.Subscribe(ctx, channels...)
}

// Ping probes the fast store directly, bypassing the breaker. Used by
// health checks so a probe can observe recovery while the breaker is open.
func (c *Client) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// toInt64 converts a Lua script result element to int64.
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// toStringSlice converts a Lua table result to a string slice.
func toStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
