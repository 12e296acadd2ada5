package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorPayloadCarriesMessageString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/documents/:id", func(c *gin.Context) {
		Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/documents/x", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v (%s)", err, resp.Body.String())
	}
	if msg, ok := payload["error"].(string); !ok || msg != "document not found" {
		t.Fatalf("error must be the message string, got %#v", payload["error"])
	}
	if payload["code"] != "not_found" {
		t.Fatalf("unexpected code %#v", payload["code"])
	}
	if _, ok := payload["details"]; ok {
		t.Fatalf("empty details must be omitted")
	}
}
