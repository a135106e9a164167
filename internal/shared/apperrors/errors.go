package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies an error by what the caller should do about it.
type Kind string

const (
	KindRateLimited              Kind = "RATE_LIMITED"
	KindReservationUnavailable   Kind = "RESERVATION_FAILED"
	KindSeatsUnavailable         Kind = "SEATS_UNAVAILABLE"
	KindEventNotBookable         Kind = "EVENT_NOT_BOOKABLE"
	KindBookingExpired           Kind = "BOOKING_EXPIRED"
	KindCancellationWindowClosed Kind = "CANCELLATION_WINDOW_CLOSED"
	KindNotFound                 Kind = "NOT_FOUND"
	KindValidation               Kind = "VALIDATION_ERROR"
	KindInternal                 Kind = "INTERNAL_ERROR"
)

// AppError is the classified application error carried between the booking
// service and the HTTP layer.
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Details    map[string]interface{}
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error for logging and unwrapping.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetail attaches a single detail field.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// RateLimited indicates the caller's sliding window is full.
func RateLimited(currentCount int64) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Message:    "Too many booking attempts, please slow down",
		StatusCode: http.StatusTooManyRequests,
		Details:    map[string]interface{}{"current_count": currentCount},
	}
}

// ReservationUnavailable indicates the fast store could not arbitrate the
// reservation (circuit open or infrastructure failure). Retryable.
func ReservationUnavailable(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:       KindReservationUnavailable,
		Message:    "Seat reservation is temporarily unavailable, please retry",
		StatusCode: http.StatusLocked,
		Details:    map[string]interface{}{"retry_after_seconds": retryAfterSeconds},
	}
}

// SeatsUnavailable indicates some requested seats are already held or booked.
func SeatsUnavailable(failedSeatIDs []string) *AppError {
	return &AppError{
		Kind:       KindSeatsUnavailable,
		Message:    fmt.Sprintf("Seats no longer available: %s", strings.Join(failedSeatIDs, ", ")),
		StatusCode: http.StatusConflict,
		Details:    map[string]interface{}{"failed_seat_ids": failedSeatIDs},
	}
}

// EventNotBookable indicates the event is missing, past, or not open for booking.
func EventNotBookable(reason string) *AppError {
	return &AppError{
		Kind:       KindEventNotBookable,
		Message:    reason,
		StatusCode: http.StatusBadRequest,
	}
}

// BookingExpired indicates a confirm attempted past the booking's expiration.
func BookingExpired(bookingID string) *AppError {
	return &AppError{
		Kind:       KindBookingExpired,
		Message:    "Booking has expired, please start a new booking",
		StatusCode: http.StatusGone,
		Details:    map[string]interface{}{"booking_id": bookingID},
	}
}

// CancellationWindowClosed indicates a confirmed booking cannot be cancelled
// this close to the event start.
func CancellationWindowClosed() *AppError {
	return &AppError{
		Kind:       KindCancellationWindowClosed,
		Message:    "Confirmed bookings cannot be cancelled within 24 hours of the event",
		StatusCode: http.StatusBadRequest,
	}
}

// NotFound indicates the resource is missing or not owned by the caller.
func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// Validation indicates malformed or out-of-policy input.
func Validation(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// Internal wraps an unclassified failure with an opaque support reference.
// The reference is returned to the caller and logged alongside the cause.
func Internal(err error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    "An unexpected error occurred",
		StatusCode: http.StatusInternalServerError,
		Details:    map[string]interface{}{"support_reference": NewSupportReference()},
		cause:      err,
	}
}

// NewSupportReference generates a short opaque id correlating an internal
// error response with its server-side log entry.
func NewSupportReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// SupportReference extracts the support reference from an internal error,
// or "" when absent.
func (e *AppError) SupportReference() string {
	if ref, ok := e.Details["support_reference"].(string); ok {
		return ref
	}
	return ""
}

// Classify returns the AppError within err's chain, or wraps err as Internal.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err's chain contains an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
