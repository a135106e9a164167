package bookings

import (
	"evently/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupBookingRoutes(router *gin.RouterGroup, controller Controller, redisClient *redis.Client) {
	bookings := router.Group("/bookings")
	bookings.Use(middleware.JWTAuth(), middleware.TokenBlacklist(redisClient))
	{
		bookings.POST("", controller.CreateBooking)
		bookings.GET("", controller.ListBookings)
		bookings.GET("/:bookingId", controller.GetBooking)
		bookings.POST("/:bookingId/confirm", controller.ConfirmBooking)
		bookings.POST("/:bookingId/cancel", controller.CancelBooking)
	}
}
