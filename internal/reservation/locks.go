package reservation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"evently/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockInfo describes a held distributed lock.
type LockInfo struct {
	Resource string            `json:"resource"`
	Owner    string            `json:"owner"`
	TTL      time.Duration     `json:"ttl"`
	Metadata map[string]string `json:"metadata"`
}

// AcquireLock acquires the distributed lock for a resource. Returns the
// holder id on success and "" when the lock is already held. When holderID
// is empty a fresh identifier is generated.
func (c *Client) AcquireLock(ctx context.Context, resource, holderID string, ttl time.Duration) (string, error) {
	if holderID == "" {
		holderID = uuid.New().String()
	}
	lockKey := constants.BuildLockKey(resource)
	args := []interface{}{
		holderID,
		strconv.Itoa(int(ttl.Seconds())),
		strconv.FormatInt(time.Now().Unix(), 10),
	}

	result, err := c.eval(ctx, luaAcquireLock, []string{lockKey}, args...)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	owner, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result format from lock script")
	}
	return owner, nil
}

// ReleaseLock releases the lock only when holderID matches the current
// owner. Returns false for a foreign or missing lock.
func (c *Client) ReleaseLock(ctx context.Context, resource, holderID string) (bool, error) {
	lockKey := constants.BuildLockKey(resource)

	result, err := c.eval(ctx, luaReleaseLock, []string{lockKey}, holderID)
	if err != nil {
		return false, err
	}
	released, _ := toInt64(result)
	return released == 1, nil
}

// ExtendLock refreshes the lock TTL only when holderID matches the owner.
func (c *Client) ExtendLock(ctx context.Context, resource, holderID string, ttl time.Duration) (bool, error) {
	lockKey := constants.BuildLockKey(resource)
	args := []interface{}{
		holderID,
		strconv.Itoa(int(ttl.Seconds())),
		strconv.FormatInt(time.Now().Unix(), 10),
	}

	result, err := c.eval(ctx, luaExtendLock, []string{lockKey}, args...)
	if err != nil {
		return false, err
	}
	extended, _ := toInt64(result)
	return extended == 1, nil
}

// GetLockInfo returns the current owner and metadata of a lock, or nil when
// the resource is unlocked.
func (c *Client) GetLockInfo(ctx context.Context, resource string) (*LockInfo, error) {
	if !c.breaker.Allow() {
		return nil, ErrStoreUnavailable
	}

	lockKey := constants.BuildLockKey(resource)
	owner, err := c.redis.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		c.breaker.RecordSuccess()
		return nil, nil
	}
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	metadata, err := c.redis.HGetAll(ctx, constants.BuildLockMetaKey(resource)).Result()
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	ttl, err := c.redis.TTL(ctx, lockKey).Result()
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	c.breaker.RecordSuccess()

	return &LockInfo{
		Resource: resource,
		Owner:    owner,
		TTL:      ttl,
		Metadata: metadata,
	}, nil
}
