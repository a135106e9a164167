package monitoring

import (
	"net/http"

	"evently/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	GetHealth(c *gin.Context)
	GetMetrics(c *gin.Context)
	GetStatus(c *gin.Context)
}

type controller struct {
	checker      *Checker
	collector    *Collector
	breakerState func() string
	activeSagas  func() int
}

// NewController wires the monitoring endpoints. breakerState and activeSagas
// expose live state from the reservation client and saga orchestrator.
func NewController(checker *Checker, collector *Collector, breakerState func() string, activeSagas func() int) Controller {
	return &controller{
		checker:      checker,
		collector:    collector,
		breakerState: breakerState,
		activeSagas:  activeSagas,
	}
}

func (ctrl *controller) GetHealth(c *gin.Context) {
	report := ctrl.checker.Check(c.Request.Context())

	statusCode := http.StatusOK
	if report.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	response.RespondJSON(c, string(report.Status), statusCode, "Health check", report, nil)
}

func (ctrl *controller) GetMetrics(c *gin.Context) {
	response.RespondJSON(c, "success", http.StatusOK, "Metrics snapshot", ctrl.collector.Snapshot(), nil)
}

func (ctrl *controller) GetStatus(c *gin.Context) {
	health := ctrl.checker.Check(c.Request.Context())
	payload := map[string]interface{}{
		"health":                health,
		"metrics":               ctrl.collector.Snapshot(),
		"circuit_breaker_state": ctrl.breakerState(),
		"active_sagas":          ctrl.activeSagas(),
	}

	statusCode := http.StatusOK
	if health.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	response.RespondJSON(c, string(health.Status), statusCode, "System status", payload, nil)
}
