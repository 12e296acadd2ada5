package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/extraction"
)

func newHandlerRouter(env testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(env.svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fileWriter, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fileWriter.Write([]byte(content)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandlerUploadGetAndRepair(t *testing.T) {
	env := newTestEnv(t, byTextExtractor(t, map[string]string{
		"scan": `{"bolNumber":"HLCUBSC250265371","portOfLoading":"Jose"}`,
	}))
	router := newHandlerRouter(env)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, map[string]string{"clientId": "client-a", "type": "bol"}, "bol.txt", "scan"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		DocumentID string `json:"documentId"`
		Status     string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.DocumentID == "" || created.Status != "created" {
		t.Fatalf("unexpected upload response: %+v", created)
	}

	patch := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+created.DocumentID+"/fields",
		strings.NewReader(`{"fieldPath":"carrierReference","newValue":"18763708"}`))
	patch.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, patch)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"success":true`) {
		t.Fatalf("unexpected repair response %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var doc DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.BolData == nil || doc.BolData.CarrierReference == nil || *doc.BolData.CarrierReference != "18763708" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/clients/client-a/documents", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list []DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %v %v", list, err)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/blobs/"+doc.FileID, nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "scan" {
		t.Fatalf("unexpected blob download %d: %q", resp.Code, resp.Body.String())
	}
}

func TestHandlerUploadErrorStatuses(t *testing.T) {
	cases := []struct {
		name      string
		extractor *fakeExtractor
		fields    map[string]string
		file      string
		want      int
	}{
		{
			name:   "missing file",
			fields: map[string]string{"clientId": "client-a", "type": "BOL"},
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown type",
			fields: map[string]string{"clientId": "client-a", "type": "MEMO"},
			file:   "x",
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown client",
			fields: map[string]string{"clientId": "ghost", "type": "BOL"},
			file:   "x",
			want:   http.StatusNotFound,
		},
		{
			name: "extraction unavailable",
			extractor: &fakeExtractor{fn: func(int, extraction.Input) (extraction.Result, error) {
				return extraction.Result{}, extraction.ErrServiceUnavailable
			}},
			fields: map[string]string{"clientId": "client-a", "type": "BOL"},
			file:   "x",
			want:   http.StatusServiceUnavailable,
		},
		{
			name: "extraction failed",
			extractor: &fakeExtractor{fn: func(int, extraction.Input) (extraction.Result, error) {
				return extraction.Result{}, extraction.ErrExtractionFailed
			}},
			fields: map[string]string{"clientId": "client-a", "type": "BOL"},
			file:   "x",
			want:   http.StatusBadGateway,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			extractor := tc.extractor
			if extractor == nil {
				extractor = byTextExtractor(t, nil)
			}
			env := newTestEnv(t, extractor)
			router := newHandlerRouter(env)

			fileName := ""
			if tc.file != "" {
				fileName = "bol.txt"
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, multipartUpload(t, tc.fields, fileName, tc.file))
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
			if !strings.Contains(resp.Body.String(), `"error"`) {
				t.Fatalf("expected error envelope, got %s", resp.Body.String())
			}
		})
	}
}

func TestHandlerConflictIs409(t *testing.T) {
	env := newTestEnv(t, byTextExtractor(t, map[string]string{"x": `{"bolNumber":"B-1"}`}))
	router := newHandlerRouter(env)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, map[string]string{"clientId": "client-a", "type": "BOL"}, "a.txt", "x"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, multipartUpload(t, map[string]string{"clientId": "client-b", "type": "BOL"}, "b.txt", "x"))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerRepairStaleWriteIs409(t *testing.T) {
	env := newTestEnv(t, byTextExtractor(t, map[string]string{"x": `{"bolNumber":"B-2"}`}))
	router := newHandlerRouter(env)
	seed, err := env.upload(t, "client-a", TypeBOL, "x")
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	env.svc.Repo = contendedRepo{MemoryRepo: env.repo}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+seed.DocumentID+"/fields",
		strings.NewReader(`{"fieldPath":"vessel","newValue":"MSC ALINA"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict || !strings.Contains(resp.Body.String(), `"code":"stale_write"`) {
		t.Fatalf("expected 409 stale_write, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerRepairValidation(t *testing.T) {
	env := newTestEnv(t, byTextExtractor(t, nil))
	router := newHandlerRouter(env)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/missing/fields", strings.NewReader(`{"fieldPath":"vessel"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without newValue, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/documents/missing/fields", strings.NewReader(`{"fieldPath":"vessel","newValue":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing document, got %d", resp.Code)
	}
}
