package pglock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLockIDIsStable(t *testing.T) {
	a := GenerateLockID("event_booking", "7b1e1a4e-0001-4000-8000-000000000001")
	b := GenerateLockID("event_booking", "7b1e1a4e-0001-4000-8000-000000000001")
	assert.Equal(t, a, b, "same resource must always map to the same lock id")
}

func TestGenerateLockIDSeparatesResources(t *testing.T) {
	byID := GenerateLockID("event_booking", "event-1")
	otherID := GenerateLockID("event_booking", "event-2")
	otherType := GenerateLockID("event_update", "event-1")

	assert.NotEqual(t, byID, otherID)
	assert.NotEqual(t, byID, otherType)
}
