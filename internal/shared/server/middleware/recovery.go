package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/server/respond"
	"exportdocs-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. When the handler had
// already started streaming a download the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.IncPanic()
			written := c.Writer.Written()
			telemetry.Error("http.panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"error":       fmt.Sprint(rec),
				"stack":       string(debug.Stack()),
				"route":       c.FullPath(),
				"method":      c.Request.Method,
				"written":     written,
				"client_id":   c.GetString(LogClientID),
				"document_id": c.GetString(LogDocumentID),
			})
			if written {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
