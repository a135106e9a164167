package constants

import (
	"fmt"
	"time"
)

// Fast-store key layout. These shapes are stable so operational tooling can
// inspect reservations, locks, and rate windows directly.

// ================== SOFT RESERVATIONS ==================

const (
	KEY_SEAT_RESERVED_PREFIX = "seat:reserved:" // + eventID:seatID, value = holder id
	KEY_META_SUFFIX          = ":meta"          // companion hash
)

// BuildSeatReservationKey builds the soft-reservation key for one seat.
func BuildSeatReservationKey(eventID, seatID string) string {
	return KEY_SEAT_RESERVED_PREFIX + eventID + ":" + seatID
}

// BuildSeatReservationMetaKey builds the metadata companion key.
func BuildSeatReservationMetaKey(eventID, seatID string) string {
	return BuildSeatReservationKey(eventID, seatID) + KEY_META_SUFFIX
}

// ================== DISTRIBUTED LOCKS ==================

const (
	KEY_LOCK_PREFIX = "lock:" // + resource, value = holder id
)

// BuildLockKey builds the distributed lock key for a resource.
func BuildLockKey(resource string) string {
	return KEY_LOCK_PREFIX + resource
}

// BuildLockMetaKey builds the lock metadata companion key.
func BuildLockMetaKey(resource string) string {
	return BuildLockKey(resource) + KEY_META_SUFFIX
}

// ================== RATE LIMIT WINDOWS ==================

const (
	KEY_RATE_PREFIX = "rate:" // + key, sorted set of unique-id -> timestamp ms
)

// BuildRateLimitKey builds the sliding-window sorted-set key.
func BuildRateLimitKey(key string) string {
	return KEY_RATE_PREFIX + key
}

// BuildUserBookingRateKey builds the per-user booking rate-limit key.
func BuildUserBookingRateKey(userID string) string {
	return fmt.Sprintf("user:%s:bookings", userID)
}

// ================== TOKEN BLACKLIST ==================

const (
	KEY_BLACKLIST_PREFIX = "blacklist:" // + token digest, value = "1", TTL = remaining lifetime
)

// BuildBlacklistKey builds the blacklist key for a token digest.
func BuildBlacklistKey(tokenDigest string) string {
	return KEY_BLACKLIST_PREFIX + tokenDigest
}

// ================== PUB/SUB CHANNELS ==================

const (
	CHANNEL_SEAT_UPDATES    = "seat-updates:"    // + eventID
	CHANNEL_BOOKING_UPDATES = "booking-updates:" // + userID
)

// BuildSeatUpdatesChannel builds the per-event seat update channel name.
func BuildSeatUpdatesChannel(eventID string) string {
	return CHANNEL_SEAT_UPDATES + eventID
}

// ================== CACHE PREFIXES ==================

// Cache keys are version:prefix:hash (see pkg/cache). Prefixes here are the
// namespaces the invalidation contracts operate over.
const (
	CACHE_PREFIX_EVENTS       = "events"
	CACHE_PREFIX_EVENT_DETAIL = "event_detail"
	CACHE_PREFIX_EVENT_SEATS  = "event_seats"
)

// Cache TTL defaults per prefix. Config can override; these are the
// fallbacks used when a TTL is not provided.
const (
	TTL_EVENTS_LIST  = 5 * time.Minute
	TTL_EVENT_DETAIL = 5 * time.Minute
	TTL_EVENT_SEATS  = 10 * time.Second
)
