package venues

import (
	"net/http"

	"evently/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	CreateVenue(c *gin.Context)
	GetVenue(c *gin.Context)
	GetAllVenues(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) CreateVenue(c *gin.Context) {
	var req CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	venue, err := ctrl.service.CreateVenue(c.Request.Context(), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Venue created successfully", venue, nil)
}

func (ctrl *controller) GetVenue(c *gin.Context) {
	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid venue ID", nil, err.Error())
		return
	}

	venue, err := ctrl.service.GetVenueByID(c.Request.Context(), venueID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Venue retrieved successfully", venue, nil)
}

func (ctrl *controller) GetAllVenues(c *gin.Context) {
	venues, err := ctrl.service.GetAllVenues(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Venues retrieved successfully", venues, nil)
}
