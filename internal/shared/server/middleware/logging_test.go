package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/auth"
	"exportdocs-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("logging-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	router := gin.New()
	router.Use(RequestID(), Auth(signer), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("documentId", "doc-1")
		c.Set("clientId", "client-1")
		c.Set("statusTransition", "resolved->persisted")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	token, _ := signer.Sign("ops", true)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "subject", "document_id", "client_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["subject"] != "ops" {
		t.Fatalf("unexpected subject: %v", payload["subject"])
	}
	if payload["status_transition"] != "resolved->persisted" {
		t.Fatalf("unexpected status_transition: %v", payload["status_transition"])
	}
}

func TestLoggingUsesRouteTemplateAndErrorLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	router := gin.New()
	router.Use(Logging())
	router.GET("/documents/:id", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/documents/abc", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["route"] != "/documents/:id" {
		t.Fatalf("unexpected route: %v", payload["route"])
	}
	if payload["level"] != "error" {
		t.Fatalf("expected error level for 502, got %v", payload["level"])
	}
	if _, ok := payload["document_id"]; ok {
		t.Fatalf("unset domain fields must be omitted")
	}
}
