package documents

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid document input")
	// ErrDuplicateKey is returned by Repo.Create when the storage
	// uniqueness constraint on bol number rejects the row.
	ErrDuplicateKey       = errors.New("bol number already stored")
	ErrConflict           = errors.New("bol number belongs to another client")
	ErrNotBol             = errors.New("document is not a bill of lading")
	ErrPersistentConflict = errors.New("bol number still collides after re-resolution")
	ErrBlobWrite          = errors.New("blob write failed")
	// ErrStaleWrite is returned by Repo.UpdateBol when another writer
	// changed the document after it was read.
	ErrStaleWrite = errors.New("document changed since it was read")
)

// State is a step of the upload pipeline.
type State string

const (
	StateReceived   State = "received"
	StateBlobStored State = "blob_stored"
	StateExtracted  State = "extracted"
	StateNormalized State = "normalized"
	StateResolved   State = "resolved"
	StatePersisted  State = "persisted"
	StateFailed     State = "failed"
)

// FailureReason classifies a failed upload.
type FailureReason string

const (
	ReasonInvalidInput       FailureReason = "invalid_input"
	ReasonNotFound           FailureReason = "not_found"
	ReasonBlobWriteFailed    FailureReason = "blob_write_failed"
	ReasonExtractionFailed   FailureReason = "extraction_failed"
	ReasonConflict           FailureReason = "conflict"
	ReasonPersistentConflict FailureReason = "persistent_conflict"
	ReasonInternal           FailureReason = "internal"
)

// UploadError records where an upload stopped. State is the last state
// reached before the failure.
type UploadError struct {
	State  State
	Reason FailureReason
	FileID string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed at %s (%s): %v", e.State, e.Reason, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
