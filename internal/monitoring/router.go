package monitoring

import (
	"github.com/gin-gonic/gin"
)

// SetupMonitoringRoutes registers the probes at the server root, outside the
// versioned API prefix.
func SetupMonitoringRoutes(router *gin.Engine, controller Controller) {
	router.GET("/health", controller.GetHealth)
	router.GET("/metrics", controller.GetMetrics)
	router.GET("/status", controller.GetStatus)
}
