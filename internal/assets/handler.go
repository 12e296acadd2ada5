package assets

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/shared/server/respond"
	"exportdocs-backend/internal/shared/storage/blob"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assets", h.upload)
	rg.GET("/assets", h.list)
	rg.GET("/assets/:id/file", h.download)
	rg.DELETE("/assets/:id", h.delete)
}

type AssetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	FileID      string    `json:"fileId"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(a Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		Name:        a.Name,
		Kind:        a.Kind,
		FileID:      a.FileID,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, blob.MaxObjectBytes+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	asset, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Name:        name,
		Kind:        Kind(c.PostForm("kind")),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(asset))
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]AssetResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	respond.OK(c, out)
}

func (h *Handler) download(c *gin.Context) {
	asset, rc, err := h.Svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()
	respond.Attachment(c, asset.Name, asset.ContentType, asset.SizeBytes, rc)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "asset not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "asset request failed", nil)
	}
}
