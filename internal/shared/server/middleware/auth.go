package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/auth"
	"exportdocs-backend/internal/shared/server/respond"
)

const (
	subjectKey = "subject"
	isAdminKey = "isAdmin"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth validates bearer tokens and stores the caller identity in context.
// Requests without a valid token are rejected with 401. Preflights end here
// with 204 and never reach RequireAdmin or the handler.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		if verifier == nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication not configured", nil)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Set(isAdminKey, claims.Admin)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin capability.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdminFromContext(c) {
			respond.Error(c, http.StatusUnauthorized, "admin_required", "admin access required", nil)
			return
		}
		c.Next()
	}
}

// SubjectFromContext fetches the token subject set by Auth.
func SubjectFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(subjectKey)
}

// IsAdminFromContext reports whether Auth marked the caller as admin.
func IsAdminFromContext(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isAdminKey)
}
