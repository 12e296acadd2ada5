package documents

import (
	"bufio"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/extraction"
	"exportdocs-backend/internal/shared/server/middleware"
	"exportdocs-backend/internal/shared/server/respond"
	"exportdocs-backend/internal/shared/storage/blob"
)

// multipart overhead on top of the largest storable object
const maxUploadSize = blob.MaxObjectBytes + 1<<20

// Handler wires HTTP handlers to the service. UploadMiddleware runs in front
// of the upload route only.
type Handler struct {
	Svc              *Service
	UploadMiddleware []gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	upload := append(append([]gin.HandlerFunc{}, h.UploadMiddleware...), h.upload)
	rg.POST("/documents", upload...)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id/fields", h.repair)
	rg.GET("/clients/:id/documents", h.listByClient)
	rg.GET("/blobs/:id", h.downloadBlob)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	docType, err := ParseType(c.PostForm("type"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	clientID := c.PostForm("clientId")
	c.Set(middleware.LogClientID, clientID)
	res, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		ClientID:    clientID,
		Type:        docType,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		var uerr *UploadError
		if errors.As(err, &uerr) {
			c.Set(middleware.LogStatusTransition, string(uerr.State)+"->"+string(StateFailed))
		}
		writeUploadError(c, err)
		return
	}
	c.Set(middleware.LogDocumentID, res.DocumentID)
	c.Set(middleware.LogStatusTransition, "received->"+string(res.State))

	respond.JSON(c, http.StatusCreated, uploadResponse{
		DocumentID: res.DocumentID,
		FileID:     res.FileID,
		Status:     res.Status,
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) listByClient(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.Svc.ListByClient(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	respond.OK(c, out)
}

func (h *Handler) repair(c *gin.Context) {
	c.Set(middleware.LogDocumentID, c.Param("id"))
	var req repairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.FieldPath) == "" || req.NewValue == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fieldPath and newValue are required", nil)
		return
	}
	if _, err := h.Svc.Repair(c.Request.Context(), c.Param("id"), req.FieldPath, *req.NewValue); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) downloadBlob(c *gin.Context) {
	fileID := c.Param("id")
	if err := blob.CheckFileID(fileID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file id", nil)
		return
	}
	rc, err := h.Svc.Store.Open(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "blob not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unable to open blob", nil)
		return
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	head, _ := br.Peek(512)
	contentType := strings.Split(http.DetectContentType(head), ";")[0]
	respond.Attachment(c, fileID+extensionFor(contentType), contentType, -1, br)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	default:
		return ""
	}
}

func writeUploadError(c *gin.Context, err error) {
	var ue *UploadError
	if !errors.As(err, &ue) {
		writeError(c, err)
		return
	}
	details := uploadErrorDetails{State: ue.State, Reason: ue.Reason, FileID: ue.FileID}
	switch ue.Reason {
	case ReasonInvalidInput:
		respond.Error(c, http.StatusBadRequest, "validation_error", ue.Err.Error(), details)
	case ReasonNotFound:
		respond.Error(c, http.StatusNotFound, "not_found", ue.Err.Error(), details)
	case ReasonConflict:
		respond.Error(c, http.StatusConflict, "bol_conflict", ue.Err.Error(), details)
	case ReasonPersistentConflict:
		respond.Error(c, http.StatusConflict, "persistent_conflict", ue.Err.Error(), details)
	case ReasonExtractionFailed:
		if errors.Is(ue.Err, extraction.ErrServiceUnavailable) || errors.Is(ue.Err, extraction.ErrExtractionTimeout) {
			respond.Error(c, http.StatusServiceUnavailable, "extraction_unavailable", ue.Err.Error(), details)
			return
		}
		respond.Error(c, http.StatusBadGateway, "extraction_failed", ue.Err.Error(), details)
	case ReasonBlobWriteFailed:
		respond.Error(c, http.StatusInternalServerError, "blob_write_failed", "unable to store file", details)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "upload failed", details)
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrNotBol):
		respond.Error(c, http.StatusConflict, "not_bol", err.Error(), nil)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrPersistentConflict):
		respond.Error(c, http.StatusConflict, "bol_conflict", err.Error(), nil)
	case errors.Is(err, ErrStaleWrite):
		respond.Error(c, http.StatusConflict, "stale_write", "document changed concurrently, retry the request", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "document request failed", nil)
	}
}
