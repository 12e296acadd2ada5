package regen

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/server/respond"
)

type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/regenerate", h.regenerate)
}

type regenerateRequest struct {
	Coordinates map[string]Placement `json:"coordinates"`
	Debug       json.RawMessage      `json:"debug"`
}

type regenerateResponse struct {
	ArtifactID string `json:"artifactId"`
	SizeBytes  int64  `json:"sizeBytes"`
	Rendered   bool   `json:"rendered"`
}

func (h *Handler) regenerate(c *gin.Context) {
	var req regenerateRequest
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read body", nil)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	artifact, err := h.Engine.Regenerate(c.Request.Context(), c.Param("id"), Request{
		Overrides: req.Coordinates,
		Debug:     debugRequested(req.Debug, c.Query("debug")),
	})
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, documents.ErrNotBol):
			respond.Error(c, http.StatusConflict, "not_bol", err.Error(), nil)
		case errors.Is(err, ErrInvalidLayout), errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrUnsupportedSource):
			respond.Error(c, http.StatusUnprocessableEntity, "unsupported_source", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "regeneration failed", nil)
		}
		return
	}
	respond.OK(c, regenerateResponse{ArtifactID: artifact.FileID, SizeBytes: artifact.SizeBytes, Rendered: artifact.Rendered})
}

// debugRequested is true only for a JSON boolean true or the exact query
// value "true". Strings like "false" never enable it.
func debugRequested(raw json.RawMessage, query string) bool {
	if query == "true" {
		return true
	}
	return string(bytes.TrimSpace(raw)) == "true"
}
