package bookings

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const bookingCodePrefix = "EVT"

// GenerateBookingCode produces an 11-character human-visible code: "EVT"
// plus 8 uppercase hex digits from a collision-resistant random source.
// Global uniqueness is enforced by the unique index on the bookings table.
func GenerateBookingCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate booking code: %w", err)
	}
	return bookingCodePrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
