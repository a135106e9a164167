package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	c := NewCollector()

	c.BeginBooking().End(true, FailureNone)
	c.BeginBooking().End(false, FailureRedis)
	c.BeginBooking().End(false, FailureDatabase)

	report := c.Snapshot()
	assert.EqualValues(t, 3, report.TotalBookings)
	assert.EqualValues(t, 1, report.SuccessfulBookings)
	assert.EqualValues(t, 2, report.FailedBookings)
	assert.EqualValues(t, 1, report.RedisFailures)
	assert.EqualValues(t, 1, report.DatabaseFailures)
	assert.EqualValues(t, 0, report.ConcurrentBookings)
	assert.Equal(t, 3, report.SampleCount)
}

func TestGaugeTracksMaxConcurrency(t *testing.T) {
	c := NewCollector()

	t1 := c.BeginBooking()
	t2 := c.BeginBooking()
	t3 := c.BeginBooking()

	report := c.Snapshot()
	assert.EqualValues(t, 3, report.ConcurrentBookings)

	t1.End(true, FailureNone)
	t2.End(true, FailureNone)
	t3.End(false, FailureDatabase)

	report = c.Snapshot()
	assert.EqualValues(t, 0, report.ConcurrentBookings)
	assert.EqualValues(t, 3, report.MaxConcurrentBookings)
}

func TestEndIsIdempotent(t *testing.T) {
	c := NewCollector()

	tracker := c.BeginBooking()
	tracker.End(true, FailureNone)
	tracker.End(true, FailureNone)

	report := c.Snapshot()
	assert.EqualValues(t, 1, report.TotalBookings)
	assert.EqualValues(t, 0, report.ConcurrentBookings)
}

func TestLifecycleCounters(t *testing.T) {
	c := NewCollector()

	c.RecordConfirmed()
	c.RecordConfirmed()
	c.RecordCancelled()
	c.RecordExpired()
	c.RecordRateLimited()
	c.RecordBreakerOpen()

	report := c.Snapshot()
	assert.EqualValues(t, 2, report.ConfirmedBookings)
	assert.EqualValues(t, 1, report.CancelledBookings)
	assert.EqualValues(t, 1, report.ExpiredBookings)
	assert.EqualValues(t, 1, report.RateLimitedRequests)
	assert.EqualValues(t, 1, report.BreakerOpenCount)
}

func TestDurationWindowCapsAtThousand(t *testing.T) {
	c := NewCollector()

	for i := 0; i < durationWindow+50; i++ {
		c.BeginBooking().End(true, FailureNone)
	}

	report := c.Snapshot()
	assert.Equal(t, durationWindow, report.SampleCount)
	assert.EqualValues(t, durationWindow+50, report.TotalBookings)
}

func TestPercentiles(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}

	assert.Equal(t, 51*time.Millisecond, percentile(sorted, 50))
	assert.Equal(t, 96*time.Millisecond, percentile(sorted, 95))
	assert.Equal(t, 100*time.Millisecond, percentile(sorted, 99))
}

func TestCollectorIsRaceSafe(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracker := c.BeginBooking()
			tracker.End(n%2 == 0, FailureNone)
		}(i)
	}
	wg.Wait()

	report := c.Snapshot()
	assert.EqualValues(t, 50, report.TotalBookings)
	assert.EqualValues(t, 0, report.ConcurrentBookings)
}
