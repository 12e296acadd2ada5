package documents

import (
	"time"

	"exportdocs-backend/internal/bol"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	ClientID    string    `json:"clientId"`
	FileID      string    `json:"fileId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType,omitempty"`
	BolNumber   string    `json:"bolNumber,omitempty"`
	BolData     *bol.Data `json:"bolData,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		Type:        doc.Type,
		ClientID:    doc.ClientID,
		FileID:      doc.FileID,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		BolNumber:   doc.BolNumber(),
		BolData:     doc.Bol,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	FileID     string `json:"fileId"`
	Status     Status `json:"status"`
}

type repairRequest struct {
	FieldPath string  `json:"fieldPath"`
	NewValue  *string `json:"newValue"`
}

type uploadErrorDetails struct {
	State  State         `json:"state"`
	Reason FailureReason `json:"reason"`
	FileID string        `json:"fileId,omitempty"`
}
