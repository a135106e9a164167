package bookings

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^EVT[0-9A-F]{8}$`)

	for i := 0; i < 100; i++ {
		code, err := GenerateBookingCode()
		require.NoError(t, err)
		assert.Len(t, code, 11)
		assert.Regexp(t, pattern, code)
	}
}

func TestGenerateBookingCodeVariety(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := GenerateBookingCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// 4 random bytes over 1000 draws should essentially never all collide.
	assert.Greater(t, len(seen), 990)
}
