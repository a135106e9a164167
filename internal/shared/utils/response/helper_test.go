package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"evently/internal/shared/apperrors"
	"evently/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.GetDefault()
	logger.SetDefault(&logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))})
	t.Cleanup(func() { logger.SetDefault(prev) })
	return &buf
}

func serveError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		c.Set("request_id", "req-123")
		RespondAppError(c, err)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return w
}

func TestRespondAppErrorLogsSupportReference(t *testing.T) {
	logged := captureLog(t)

	cause := errors.New("pq: connection reset by peer")
	w := serveError(fmt.Errorf("failed to confirm booking: %w", cause))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Message string `json:"message"`
		Errors  struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	ref, ok := body.Errors.Details["support_reference"].(string)
	require.True(t, ok, "internal responses carry a support reference")
	require.NotEmpty(t, ref)

	// The same reference must land in the server log with the cause and
	// request id, while the response message stays opaque.
	assert.Contains(t, logged.String(), ref)
	assert.Contains(t, logged.String(), "connection reset by peer")
	assert.Contains(t, logged.String(), "req-123")
	assert.NotContains(t, body.Message, "connection reset")
}

func TestRespondAppErrorDoesNotLogBusinessRejections(t *testing.T) {
	logged := captureLog(t)

	w := serveError(apperrors.SeatsUnavailable([]string{"s1"}))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, logged.String(), "only internal errors are logged here")
}
