package respond

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Attachment streams r as a downloadable file. size may be -1 when unknown.
func Attachment(c *gin.Context, fileName, contentType string, size int64, r io.Reader) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{}
	if fileName != "" {
		headers["Content-Disposition"] = `attachment; filename="` + fileName + `"`
	}
	c.DataFromReader(http.StatusOK, size, contentType, r, headers)
}
