package venues

import (
	"evently/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupVenueRoutes(router *gin.RouterGroup, controller Controller) {
	publicVenues := router.Group("/venues")
	{
		publicVenues.GET("", controller.GetAllVenues)
		publicVenues.GET("/:venueId", controller.GetVenue)
	}

	adminVenues := router.Group("/admin/venues")
	adminVenues.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminVenues.POST("", controller.CreateVenue)
	}
}
