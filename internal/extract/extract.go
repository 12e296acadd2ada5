package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"exportdocs-backend/internal/shared/storage/blob"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupported is returned for content types with no text extractor.
var ErrUnsupported = errors.New("unsupported content type")

// Text is the extracted plain text of a stored blob.
type Text struct {
	Content     string
	ContentType string
	Bytes       []byte
}

// FromBlob reads fileID back from the store and extracts its text. Reading
// the durable copy keeps extraction independent of the request body.
func FromBlob(ctx context.Context, store blob.Store, fileID, contentType, fileName string) (Text, error) {
	if err := ctx.Err(); err != nil {
		return Text{}, err
	}

	body, err := store.Open(ctx, fileID)
	if err != nil {
		return Text{}, fmt.Errorf("extract text file=%s: %w", fileID, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Text{}, fmt.Errorf("extract text file=%s: read: %w", fileID, err)
	}

	normalized := NormalizeContentType(contentType, fileName, raw)
	content, err := FromBytes(ctx, raw, normalized)
	if err != nil {
		return Text{}, fmt.Errorf("extract text file=%s mime=%s: %w", fileID, normalized, err)
	}
	return Text{Content: content, ContentType: normalized, Bytes: raw}, nil
}

// FromBytes extracts text from an in-memory payload of a known content type.
func FromBytes(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case contentType == MimePDF:
		return extractPDF(data)
	case contentType == MimeDOCX:
		return extractDOCX(data)
	case strings.HasPrefix(contentType, "text/"), contentType == "application/json":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// NormalizeContentType strips parameters and resolves generic types by
// sniffing the payload or falling back to the file extension.
func NormalizeContentType(contentType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch clean {
	case "", "application/octet-stream", "binary/octet-stream":
		if sniffed := strings.Split(http.DetectContentType(data), ";")[0]; sniffed != "application/octet-stream" {
			clean = sniffed
		}
	}
	if clean == "application/zip" {
		if isDOCX(data) {
			return MimeDOCX
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		if clean == "" || clean == "application/octet-stream" {
			return MimePDF
		}
	case ".docx":
		if clean == "" || clean == "application/octet-stream" || clean == "application/zip" {
			return MimeDOCX
		}
	}
	return clean
}

func isDOCX(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
