package bookings

import (
	"net/http"

	"evently/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	CreateBooking(c *gin.Context)
	ConfirmBooking(c *gin.Context)
	CancelBooking(c *gin.Context)
	GetBooking(c *gin.Context)
	ListBookings(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func userFromContext(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, false
	}
	userUUID, err := uuid.Parse(userID.(string))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Invalid user ID format", nil, nil)
		return uuid.Nil, false
	}
	return userUUID, true
}

func bookingIDFromPath(c *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return uuid.Nil, false
	}
	return bookingID, true
}

func (ctrl *controller) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}

	booking, err := ctrl.service.CreateBooking(c.Request.Context(), userUUID, req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking created successfully", booking, nil)
}

func (ctrl *controller) ConfirmBooking(c *gin.Context) {
	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := bookingIDFromPath(c)
	if !ok {
		return
	}

	// payment_reference may arrive as a query parameter or in the body.
	var req ConfirmBookingRequest
	if ref := c.Query("payment_reference"); ref != "" {
		req.PaymentReference = ref
	} else if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	booking, err := ctrl.service.ConfirmBooking(c.Request.Context(), userUUID, bookingID, req.PaymentReference)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking confirmed successfully", booking, nil)
}

func (ctrl *controller) CancelBooking(c *gin.Context) {
	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := bookingIDFromPath(c)
	if !ok {
		return
	}

	booking, err := ctrl.service.CancelBooking(c.Request.Context(), userUUID, bookingID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking cancelled successfully", booking, nil)
}

func (ctrl *controller) GetBooking(c *gin.Context) {
	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := bookingIDFromPath(c)
	if !ok {
		return
	}

	booking, err := ctrl.service.GetBooking(c.Request.Context(), userUUID, bookingID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

func (ctrl *controller) ListBookings(c *gin.Context) {
	userUUID, ok := userFromContext(c)
	if !ok {
		return
	}

	var query BookingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	bookings, err := ctrl.service.ListBookings(c.Request.Context(), userUUID, query)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}
