package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/metrics", RateLimitTypeHealth},
		{"/status", RateLimitTypeHealth},
		{"/api/v1/auth/login", RateLimitTypeAuth},
		{"/api/v1/bookings", RateLimitTypeBooking},
		{"/api/v1/bookings/:bookingId/confirm", RateLimitTypeBooking},
		{"/api/v1/events", RateLimitTypePublic},
		{"/api/v1/events/:eventId/seats", RateLimitTypePublic},
		{"/api/v1/venues", RateLimitTypePublic},
		{"/api/v1/something-else", RateLimitTypeDefault},
		{"", RateLimitTypeDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.path), tt.path)
	}
}

func TestGetLimitPerType(t *testing.T) {
	cfg := &Config{
		DefaultRequests: 60,
		PublicRequests:  100,
		AuthRequests:    200,
		BookingRequests: 10,
		HealthRequests:  300,
	}
	limiter := &RateLimiter{config: cfg}

	assert.Equal(t, 10, limiter.getLimit(RateLimitTypeBooking))
	assert.Equal(t, 100, limiter.getLimit(RateLimitTypePublic))
	assert.Equal(t, 200, limiter.getLimit(RateLimitTypeAuth))
	assert.Equal(t, 300, limiter.getLimit(RateLimitTypeHealth))
	assert.Equal(t, 60, limiter.getLimit(RateLimitTypeDefault))
	assert.Equal(t, 60, limiter.getLimit(RateLimitType("unknown")))
}
