package reservation

// Lua scripts for the fast store. Every check-then-write sequence runs as a
// single script so no other client can interleave.

// Lua script for atomic multi-seat reservation. Lua scripts are atomic but
// cannot rollback, so the script checks ALL seats before setting any.
const luaReserveSeats = `
-- ARGV[1] = event_id
-- ARGV[2] = user_id
-- ARGV[3] = ttl_seconds
-- ARGV[4] = timestamp
-- ARGV[5..N] = seat_ids (pre-sorted by the caller)

local event_id = ARGV[1]
local user_id = ARGV[2]
local ttl = tonumber(ARGV[3])
local timestamp = ARGV[4]

-- Check if ALL seats are available first (no partial operations)
local failed_seats = {}
for i = 5, #ARGV do
    local seat_id = ARGV[i]
    local key = "seat:reserved:" .. event_id .. ":" .. seat_id
    if redis.call("EXISTS", key) == 1 then
        table.insert(failed_seats, seat_id)
    end
end

-- If ANY seat is unavailable, return the specific failed ones
if #failed_seats > 0 then
    return {0, failed_seats}
end

-- All seats are available, reserve them atomically
local reserved_seats = {}
for i = 5, #ARGV do
    local seat_id = ARGV[i]
    local key = "seat:reserved:" .. event_id .. ":" .. seat_id
    local meta_key = key .. ":meta"

    redis.call("SET", key, user_id, "EX", ttl)
    redis.call("HSET", meta_key, "user_id", user_id, "reserved_at", timestamp, "event_id", event_id)
    redis.call("EXPIRE", meta_key, ttl)

    table.insert(reserved_seats, seat_id)
end

return {1, reserved_seats}
`

// Lua script for owner-scoped release. Seats held by someone else or already
// expired are skipped; the count reports actuals.
const luaReleaseReservations = `
-- ARGV[1] = event_id
-- ARGV[2] = user_id
-- ARGV[3..N] = seat_ids

local event_id = ARGV[1]
local user_id = ARGV[2]
local released_count = 0

for i = 3, #ARGV do
    local seat_id = ARGV[i]
    local key = "seat:reserved:" .. event_id .. ":" .. seat_id
    local meta_key = key .. ":meta"

    -- Only release if reserved by this user
    local current_user = redis.call("GET", key)
    if current_user == user_id then
        redis.call("DEL", key, meta_key)
        released_count = released_count + 1
    end
end

return released_count
`

// Lua script for owner-scoped all-or-nothing TTL refresh. If any seat is
// missing or held by another user, nothing is extended.
const luaExtendReservations = `
-- ARGV[1] = event_id
-- ARGV[2] = user_id
-- ARGV[3] = ttl_seconds
-- ARGV[4..N] = seat_ids

local event_id = ARGV[1]
local user_id = ARGV[2]
local ttl = tonumber(ARGV[3])

-- Verify ownership of every seat before touching any TTL
for i = 4, #ARGV do
    local seat_id = ARGV[i]
    local key = "seat:reserved:" .. event_id .. ":" .. seat_id
    if redis.call("GET", key) ~= user_id then
        return 0
    end
end

for i = 4, #ARGV do
    local seat_id = ARGV[i]
    local key = "seat:reserved:" .. event_id .. ":" .. seat_id
    local meta_key = key .. ":meta"
    redis.call("EXPIRE", key, ttl)
    redis.call("EXPIRE", meta_key, ttl)
end

return 1
`

// Lua script for atomic lock acquisition with metadata.
const luaAcquireLock = `
-- KEYS[1] = lock key
-- ARGV[1] = lock value (holder id)
-- ARGV[2] = ttl_seconds
-- ARGV[3] = timestamp

local lock_key = KEYS[1]
local lock_value = ARGV[1]
local ttl = tonumber(ARGV[2])
local timestamp = ARGV[3]

if redis.call("set", lock_key, lock_value, "NX", "EX", ttl) then
    local meta_key = lock_key .. ":meta"
    redis.call("hset", meta_key, "owner", lock_value, "acquired_at", timestamp, "ttl", ttl)
    redis.call("expire", meta_key, ttl)
    return lock_value
else
    return false
end
`

// Lua script for atomic lock release with metadata cleanup.
const luaReleaseLock = `
-- KEYS[1] = lock key
-- ARGV[1] = holder id

local lock_key = KEYS[1]
local identifier = ARGV[1]
local meta_key = lock_key .. ":meta"

local current_owner = redis.call("get", lock_key)
if current_owner == identifier then
    redis.call("del", lock_key)
    redis.call("del", meta_key)
    return 1
else
    return 0
end
`

// Lua script for atomic lock extension with metadata update.
const luaExtendLock = `
-- KEYS[1] = lock key
-- ARGV[1] = holder id
-- ARGV[2] = ttl_seconds
-- ARGV[3] = timestamp

local lock_key = KEYS[1]
local identifier = ARGV[1]
local ttl = tonumber(ARGV[2])
local timestamp = ARGV[3]
local meta_key = lock_key .. ":meta"

if redis.call("get", lock_key) == identifier then
    redis.call("expire", lock_key, ttl)
    redis.call("hset", meta_key, "extended_at", timestamp, "ttl", ttl)
    redis.call("expire", meta_key, ttl)
    return 1
else
    return 0
end
`

// Lua script for sliding-window rate limiting over a timestamp-ordered set.
const luaRateLimit = `
-- KEYS[1] = rate key
-- ARGV[1] = limit
-- ARGV[2] = window_seconds
-- ARGV[3] = timestamp_ms
-- ARGV[4] = unique_id

local rate_key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local timestamp = tonumber(ARGV[3])
local unique_id = ARGV[4]

local window_start = timestamp - (window * 1000)

-- Remove old entries
redis.call("zremrangebyscore", rate_key, 0, window_start)

-- Get current count
local current_count = redis.call("zcard", rate_key)

if current_count < limit then
    redis.call("zadd", rate_key, timestamp, unique_id)
    redis.call("expire", rate_key, window + 1)
    return {0, current_count + 1}
else
    return {1, current_count}
end
`
