package pglock

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"time"

	"gorm.io/gorm"
)

// GenerateLockID derives a stable signed 32-bit advisory lock id from a
// resource identity. Every caller locking the same {type, id} pair computes
// the same number.
func GenerateLockID(resourceType, resourceID string) int32 {
	sum := md5.Sum([]byte(resourceType + ":" + resourceID))
	return int32(binary.BigEndian.Uint32(sum[:4]))
}

// TryAcquire attempts a session-scoped advisory lock without waiting. The
// lock is held by the session's connection, so callers must use it inside a
// transaction.
func TryAcquire(tx *gorm.DB, lockID int32) (bool, error) {
	var acquired bool
	err := tx.Raw("SELECT pg_try_advisory_lock(?)", lockID).Scan(&acquired).Error
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Acquire retries TryAcquire with exponential backoff (10ms doubling, capped
// at 1s) until acquired, the timeout elapses, or the context is cancelled.
func Acquire(ctx context.Context, tx *gorm.DB, lockID int32, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		acquired, err := TryAcquire(tx, lockID)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > time.Second {
			backoff = time.Second
		}
	}
}

// Release releases a session-scoped advisory lock. Returns false when the
// lock was not held by this session.
func Release(tx *gorm.DB, lockID int32) (bool, error) {
	var released bool
	err := tx.Raw("SELECT pg_advisory_unlock(?)", lockID).Scan(&released).Error
	if err != nil {
		return false, err
	}
	return released, nil
}
