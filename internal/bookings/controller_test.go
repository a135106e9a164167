package bookings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	summary *BookingSummary
	err     error
}

func (s *stubService) CreateBooking(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (*BookingSummary, error) {
	return s.summary, s.err
}

func (s *stubService) ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID, paymentReference string) (*BookingSummary, error) {
	return s.summary, s.err
}

func (s *stubService) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error) {
	return s.summary, s.err
}

func (s *stubService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingSummary, error) {
	return s.summary, s.err
}

func (s *stubService) ListBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) (*PaginatedBookings, error) {
	return &PaginatedBookings{}, s.err
}

func newBookingTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uuid.NewString())
	})
	ctrl := NewController(svc)
	router.POST("/bookings", ctrl.CreateBooking)
	return router
}

func TestCreateBookingRespondsOK(t *testing.T) {
	router := newBookingTestRouter(&stubService{
		summary: &BookingSummary{ID: uuid.NewString(), BookingCode: "EVTDEADBEEF", Status: BookingStatusPending},
	})

	body := `{"event_id":"` + uuid.NewString() + `","seat_ids":["` + uuid.NewString() + `"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// The booking endpoint reports plain 200 on success, not 201.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EVTDEADBEEF")
}

func TestCreateBookingRejectsMalformedBody(t *testing.T) {
	router := newBookingTestRouter(&stubService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{"event_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
