package events

type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// IsBookable reports whether bookings may be created against the event.
// Ongoing, completed, and cancelled events are closed for sale.
func (s EventStatus) IsBookable() bool {
	return s == EventStatusUpcoming
}

func IsValidEventStatus(status string) bool {
	switch EventStatus(status) {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled:
		return true
	default:
		return false
	}
}
