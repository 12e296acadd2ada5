package export

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/server/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/clients/:id/bols.xlsx", h.bolWorkbook)
}

func (h *Handler) bolWorkbook(c *gin.Context) {
	clientID := c.Param("id")
	data, err := h.Svc.BOLWorkbook(c.Request.Context(), clientID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "client not found", nil)
		case errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "export failed", nil)
		}
		return
	}
	respond.Attachment(c, FileName(clientID), xlsxContentType, int64(len(data)), bytes.NewReader(data))
}
