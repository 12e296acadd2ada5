package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxObjectBytes bounds a single stored object.
const MaxObjectBytes int64 = 32 << 20

var (
	ErrNotFound      = errors.New("blob not found")
	ErrTooLarge      = errors.New("blob exceeds size limit")
	ErrInvalidFileID = errors.New("invalid file id")
)

// Object describes a stored blob. FileID is the hex sha256 of the content.
type Object struct {
	FileID      string
	SizeBytes   int64
	ContentType string
}

// Store is a content-addressed binary store. Putting identical bytes twice
// yields the same FileID without writing a second copy.
type Store interface {
	Put(ctx context.Context, r io.Reader, contentType string) (Object, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
	// Delete removes fileID. Deleting a missing blob is not an error.
	Delete(ctx context.Context, fileID string) error
	// List calls fn for every stored file id until fn returns an error.
	List(ctx context.Context, fn func(fileID string) error) error
}

// Referencer lists the blob ids a set of records still points at.
type Referencer interface {
	ListFileIDs(ctx context.Context) ([]string, error)
}

// Spool reads r fully, bounded by MaxObjectBytes, and returns the bytes with
// their content-address.
func Spool(r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxObjectBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if n > MaxObjectBytes {
		return nil, "", ErrTooLarge
	}
	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// ValidFileID reports whether id has the shape of a content address.
func ValidFileID(id string) bool {
	if len(id) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil && strings.ToLower(id) == id
}

// CheckFileID returns ErrInvalidFileID when id is not a content address.
func CheckFileID(id string) error {
	if !ValidFileID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidFileID, id)
	}
	return nil
}
