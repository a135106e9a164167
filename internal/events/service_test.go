package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", rowLabel(0))
	assert.Equal(t, "B", rowLabel(1))
	assert.Equal(t, "Z", rowLabel(25))
	assert.Equal(t, "AA", rowLabel(26))
	assert.Equal(t, "AB", rowLabel(27))
	assert.Equal(t, "AZ", rowLabel(51))
	assert.Equal(t, "BA", rowLabel(52))
}

func TestGenerateSeatsExpandsBlocks(t *testing.T) {
	blocks := []SeatBlock{
		{Section: "VIP", Rows: 2, SeatsPerRow: 3, Price: 150},
		{Section: "GA", Rows: 1, SeatsPerRow: 4, Price: 50},
	}

	generated := generateSeats(blocks)
	require.Len(t, generated, 10)

	// First block: rows A and B, seats 1..3 each, all available.
	assert.Equal(t, "VIP", generated[0].Section)
	assert.Equal(t, "A", generated[0].Row)
	assert.Equal(t, "1", generated[0].SeatNumber)
	assert.Equal(t, 150.0, generated[0].Price)
	assert.Equal(t, "B", generated[3].Row)

	// Second block starts over at row A.
	assert.Equal(t, "GA", generated[6].Section)
	assert.Equal(t, "A", generated[6].Row)
	assert.Equal(t, "4", generated[9].SeatNumber)

	for _, seat := range generated {
		assert.True(t, seat.IsAvailable())
	}
}

func TestCreateEventRequestCapacity(t *testing.T) {
	req := CreateEventRequest{
		SeatBlocks: []SeatBlock{
			{Section: "VIP", Rows: 2, SeatsPerRow: 10},
			{Section: "GA", Rows: 5, SeatsPerRow: 20},
		},
	}
	assert.Equal(t, 120, req.Capacity())
}

func TestEventStatusIsBookable(t *testing.T) {
	assert.True(t, EventStatusUpcoming.IsBookable())
	assert.False(t, EventStatusOngoing.IsBookable())
	assert.False(t, EventStatusCompleted.IsBookable())
	assert.False(t, EventStatusCancelled.IsBookable())
}
