package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/telemetry"
)

// Context keys handlers set to enrich the request line.
const (
	LogDocumentID       = "documentId"
	LogClientID         = "clientId"
	LogStatusTransition = "statusTransition"
)

// Logging emits one structured line per request. Preflights are skipped and
// server errors are logged at error level.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       route,
			"path":        c.Request.URL.Path,
			"status":      status,
			"bytes_out":   c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"subject":     SubjectFromContext(c),
			"is_admin":    IsAdminFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		for key, field := range map[string]string{
			LogDocumentID:       "document_id",
			LogClientID:         "client_id",
			LogStatusTransition: "status_transition",
		} {
			if v := c.GetString(key); v != "" {
				fields[field] = v
			}
		}

		if status >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
