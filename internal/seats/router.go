package seats

import (
	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(router *gin.RouterGroup, controller Controller) {
	events := router.Group("/events")
	{
		events.GET("/:eventId/seats", controller.GetEventSeats)
	}
}
