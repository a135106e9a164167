package monitoring

import (
	"sort"
	"sync"
	"time"
)

// FailureClass is the typed classification of a booking failure, threaded
// through result values instead of inspecting error strings.
type FailureClass string

const (
	FailureNone     FailureClass = ""
	FailureRedis    FailureClass = "redis"
	FailureDatabase FailureClass = "database"
)

const durationWindow = 1000

// Collector aggregates booking counters, a concurrency gauge, and a rolling
// window of operation durations. All mutations hold the mutex.
type Collector struct {
	mu sync.Mutex

	totalBookings      int64
	successfulBookings int64
	failedBookings     int64
	confirmedBookings  int64
	cancelledBookings  int64
	expiredBookings    int64

	rateLimitedRequests int64
	breakerOpenCount    int64
	redisFailures       int64
	databaseFailures    int64

	concurrentBookings    int64
	maxConcurrentBookings int64

	durations []time.Duration
	next      int
	filled    bool
}

func NewCollector() *Collector {
	return &Collector{durations: make([]time.Duration, durationWindow)}
}

// BookingTracker scopes one booking operation. Obtain with BeginBooking,
// finish with exactly one End call.
type BookingTracker struct {
	collector *Collector
	start     time.Time
	done      bool
}

// BeginBooking increments the concurrency gauge and starts the clock.
func (c *Collector) BeginBooking() *BookingTracker {
	c.mu.Lock()
	c.concurrentBookings++
	if c.concurrentBookings > c.maxConcurrentBookings {
		c.maxConcurrentBookings = c.concurrentBookings
	}
	c.mu.Unlock()

	return &BookingTracker{collector: c, start: time.Now()}
}

// End records the outcome and decrements the gauge, all inside a single
// critical section. Safe against double calls.
func (t *BookingTracker) End(success bool, failure FailureClass) {
	if t.done {
		return
	}
	t.done = true
	elapsed := time.Since(t.start)

	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	c.concurrentBookings--
	c.totalBookings++
	if success {
		c.successfulBookings++
	} else {
		c.failedBookings++
		switch failure {
		case FailureRedis:
			c.redisFailures++
		case FailureDatabase:
			c.databaseFailures++
		}
	}

	c.durations[c.next] = elapsed
	c.next++
	if c.next == durationWindow {
		c.next = 0
		c.filled = true
	}
}

func (c *Collector) RecordConfirmed() {
	c.mu.Lock()
	c.confirmedBookings++
	c.mu.Unlock()
}

func (c *Collector) RecordCancelled() {
	c.mu.Lock()
	c.cancelledBookings++
	c.mu.Unlock()
}

func (c *Collector) RecordExpired() {
	c.mu.Lock()
	c.expiredBookings++
	c.mu.Unlock()
}

func (c *Collector) RecordRateLimited() {
	c.mu.Lock()
	c.rateLimitedRequests++
	c.mu.Unlock()
}

func (c *Collector) RecordBreakerOpen() {
	c.mu.Lock()
	c.breakerOpenCount++
	c.mu.Unlock()
}

// Report is a point-in-time snapshot of the collected metrics.
type Report struct {
	TotalBookings      int64 `json:"total_bookings"`
	SuccessfulBookings int64 `json:"successful_bookings"`
	FailedBookings     int64 `json:"failed_bookings"`
	ConfirmedBookings  int64 `json:"confirmed_bookings"`
	CancelledBookings  int64 `json:"cancelled_bookings"`
	ExpiredBookings    int64 `json:"expired_bookings"`

	RateLimitedRequests int64 `json:"rate_limited_requests"`
	BreakerOpenCount    int64 `json:"circuit_breaker_open_count"`
	RedisFailures       int64 `json:"redis_failures"`
	DatabaseFailures    int64 `json:"database_failures"`

	ConcurrentBookings    int64 `json:"concurrent_bookings"`
	MaxConcurrentBookings int64 `json:"max_concurrent_bookings"`

	DurationP50Ms float64 `json:"booking_duration_p50_ms"`
	DurationP95Ms float64 `json:"booking_duration_p95_ms"`
	DurationP99Ms float64 `json:"booking_duration_p99_ms"`
	SampleCount   int     `json:"booking_duration_samples"`
}

// Snapshot copies the counters and computes percentiles over the last
// thousand booking durations.
func (c *Collector) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := Report{
		TotalBookings:         c.totalBookings,
		SuccessfulBookings:    c.successfulBookings,
		FailedBookings:        c.failedBookings,
		ConfirmedBookings:     c.confirmedBookings,
		CancelledBookings:     c.cancelledBookings,
		ExpiredBookings:       c.expiredBookings,
		RateLimitedRequests:   c.rateLimitedRequests,
		BreakerOpenCount:      c.breakerOpenCount,
		RedisFailures:         c.redisFailures,
		DatabaseFailures:      c.databaseFailures,
		ConcurrentBookings:    c.concurrentBookings,
		MaxConcurrentBookings: c.maxConcurrentBookings,
	}

	count := c.next
	if c.filled {
		count = durationWindow
	}
	report.SampleCount = count
	if count == 0 {
		return report
	}

	samples := make([]time.Duration, count)
	copy(samples, c.durations[:count])
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	report.DurationP50Ms = toMillis(percentile(samples, 50))
	report.DurationP95Ms = toMillis(percentile(samples, 95))
	report.DurationP99Ms = toMillis(percentile(samples, 99))
	return report
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
