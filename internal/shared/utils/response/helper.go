package response

import (
	"evently/internal/shared/apperrors"
	"evently/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondAppError renders a classified application error. Internal errors
// expose only the support reference; the cause is logged here under that
// same reference so operators can correlate a client report with the chain.
func RespondAppError(c *gin.Context, err error) {
	appErr := apperrors.Classify(err)

	if appErr.Kind == apperrors.KindInternal {
		logger.GetDefault().ErrorContext(c.Request.Context(), "Internal error",
			"support_reference", appErr.SupportReference(),
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", appErr.Error(),
		)
	}

	c.JSON(appErr.StatusCode, StandardApiResponse{
		Status:     "error",
		StatusCode: appErr.StatusCode,
		Message:    appErr.Message,
		Errors: gin.H{
			"code":    string(appErr.Kind),
			"details": appErr.Details,
		},
	})
}
