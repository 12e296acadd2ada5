package documents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/extract"
	"exportdocs-backend/internal/extraction"
	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/storage/blob"
	"exportdocs-backend/internal/shared/telemetry"
	"exportdocs-backend/internal/shared/util"
)

const (
	defaultRetryDelay     = 2 * time.Second
	defaultProcessTimeout = 3 * time.Minute
	sniffLen              = 512
)

// maxWriteAttempts bounds optimistic bol data writes: the first try plus one
// re-read after a version race.
const maxWriteAttempts = 2

// ClientDirectory is the part of the clients service uploads depend on.
type ClientDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	TouchLastDocument(ctx context.Context, id string, at time.Time) error
}

// Status is the outcome of a successful upload.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPatched   Status = "patched"
	StatusUnchanged Status = "unchanged"
	StatusStored    Status = "stored"
)

// UploadInput is one incoming file.
type UploadInput struct {
	ClientID    string
	Type        Type
	FileName    string
	ContentType string
	Body        io.Reader
}

// UploadResult reports the document an upload landed on.
type UploadResult struct {
	DocumentID string
	FileID     string
	Status     Status
	State      State
}

// Service coordinates uploads from blob write to persisted document.
type Service struct {
	Repo      Repo
	Clients   ClientDirectory
	Store     blob.Store
	Extractor extraction.Client
	Resolver  *Resolver
	Profile   extraction.Profile
	// InlineDocuments allows sending raw bytes when no text can be pulled
	// from the file. Only set it for providers that read documents.
	InlineDocuments bool
	RetryDelay      time.Duration
	ProcessTimeout  time.Duration
	Now             func() time.Time
	NewID           func() string
}

func NewService(repo Repo, clients ClientDirectory, store blob.Store, extractor extraction.Client) *Service {
	return &Service{
		Repo:           repo,
		Clients:        clients,
		Store:          store,
		Extractor:      extractor,
		Resolver:       &Resolver{Repo: repo},
		Profile:        extraction.BOLProfile,
		RetryDelay:     defaultRetryDelay,
		ProcessTimeout: defaultProcessTimeout,
		Now:            func() time.Time { return time.Now().UTC() },
		NewID:          uuid.NewString,
	}
}

// upload tracks one pass through the pipeline for logging.
type upload struct {
	ctx      context.Context
	in       UploadInput
	state    State
	fileID   string
	started  time.Time
	resolved bool
}

func (u *upload) fields() map[string]any {
	f := map[string]any{
		"client_id": u.in.ClientID,
		"type":      string(u.in.Type),
		"file_name": u.in.FileName,
	}
	if u.fileID != "" {
		f["file_id"] = u.fileID
	}
	if id := telemetry.RequestIDFromContext(u.ctx); id != "" {
		f["request_id"] = id
	}
	return f
}

func (u *upload) advance(next State, extra map[string]any) {
	f := u.fields()
	f["status_transition"] = string(u.state) + "->" + string(next)
	for k, v := range extra {
		f[k] = v
	}
	telemetry.Info("upload.status", f)
	u.state = next
}

func (u *upload) fail(reason FailureReason, err error) (UploadResult, error) {
	f := u.fields()
	f["status_transition"] = string(u.state) + "->" + string(StateFailed)
	f["reason"] = string(reason)
	f["error"] = err.Error()
	f["duration_ms"] = time.Since(u.started).Milliseconds()
	if reason == ReasonInternal || reason == ReasonBlobWriteFailed {
		telemetry.Error("upload.status", f)
	} else {
		telemetry.Warn("upload.status", f)
	}
	metrics.IncUploadFailed(string(reason))
	return UploadResult{FileID: u.fileID, State: StateFailed}, &UploadError{
		State:  u.state,
		Reason: reason,
		FileID: u.fileID,
		Err:    err,
	}
}

// Upload runs one file through the pipeline. Once the blob is stored, the
// remaining steps ignore caller cancellation and are bounded by
// ProcessTimeout instead.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	metrics.IncUploadStarted()
	u := &upload{ctx: ctx, in: in, state: StateReceived, started: time.Now()}
	telemetry.Info("upload.status", withField(u.fields(), "status", string(StateReceived)))

	body, contentType, err := s.receive(ctx, &in)
	if err != nil {
		reason := ReasonInvalidInput
		if errors.Is(err, ErrNotFound) {
			reason = ReasonNotFound
		} else if !errors.Is(err, ErrInvalidInput) {
			reason = ReasonInternal
		}
		return u.fail(reason, err)
	}
	u.in = in

	obj, err := s.Store.Put(ctx, body, contentType)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return u.fail(ReasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		}
		return u.fail(ReasonBlobWriteFailed, fmt.Errorf("%w: %v", ErrBlobWrite, err))
	}
	u.fileID = obj.FileID
	u.advance(StateBlobStored, map[string]any{"size_bytes": obj.SizeBytes})

	work, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.processTimeout())
	defer cancel()

	if in.Type != TypeBOL {
		return s.storeOnly(work, u, contentType)
	}

	data, err := s.extractBol(work, u, contentType)
	if err != nil {
		return UploadResult{FileID: u.fileID, State: StateFailed}, err
	}
	return s.resolveAndPersist(work, u, contentType, data)
}

// receive validates the input and peeks at the body so empty files are
// rejected before anything is written.
func (s *Service) receive(ctx context.Context, in *UploadInput) (io.Reader, string, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	if in.ClientID == "" {
		return nil, "", fmt.Errorf("%w: clientId is required", ErrInvalidInput)
	}
	name, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("%w: file name %q", ErrInvalidInput, in.FileName)
	}
	in.FileName = name
	docType, err := ParseType(string(in.Type))
	if err != nil {
		return nil, "", err
	}
	in.Type = docType
	if in.Body == nil {
		return nil, "", fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	ok, err := s.Clients.Exists(ctx, in.ClientID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup client %s: %w", in.ClientID, err)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: client %s", ErrNotFound, in.ClientID)
	}

	br := bufio.NewReaderSize(in.Body, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("%w: read file: %v", ErrInvalidInput, err)
	}
	if len(head) == 0 {
		return nil, "", fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	return br, extract.NormalizeContentType(in.ContentType, in.FileName, head), nil
}

func (s *Service) storeOnly(ctx context.Context, u *upload, contentType string) (UploadResult, error) {
	now := s.Now()
	doc := Document{
		ID:          s.NewID(),
		Type:        u.in.Type,
		ClientID:    u.in.ClientID,
		FileID:      u.fileID,
		FileName:    u.in.FileName,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return u.fail(ReasonInternal, fmt.Errorf("create document: %w", err))
	}
	u.advance(StatePersisted, map[string]any{"document_id": doc.ID, "status": string(StatusStored)})
	metrics.IncUploadPersisted()
	s.touchClient(ctx, doc.ClientID, now)
	return UploadResult{DocumentID: doc.ID, FileID: u.fileID, Status: StatusStored, State: StatePersisted}, nil
}

// extractBol reads the stored copy back, extracts and normalizes it.
func (s *Service) extractBol(ctx context.Context, u *upload, contentType string) (bol.Data, error) {
	input := extraction.Input{ContentType: contentType, Profile: s.Profile}
	text, err := extract.FromBlob(ctx, s.Store, u.fileID, contentType, u.in.FileName)
	switch {
	case err == nil:
		input.Text = text.Content
		input.ContentType = text.ContentType
		if strings.TrimSpace(text.Content) == "" && s.InlineDocuments {
			input.Bytes = text.Bytes
		}
	case errors.Is(err, extract.ErrUnsupported) && s.InlineDocuments:
		raw, readErr := s.readBlob(ctx, u.fileID)
		if readErr != nil {
			_, err = u.fail(ReasonInternal, readErr)
			return bol.Data{}, err
		}
		input.Bytes = raw
	case errors.Is(err, extract.ErrUnsupported):
		_, err = u.fail(ReasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return bol.Data{}, err
	default:
		_, err = u.fail(ReasonInternal, err)
		return bol.Data{}, err
	}

	result, err := s.extractWithRetry(ctx, u, input)
	if err != nil {
		if errors.Is(err, extraction.ErrEmptyInput) {
			_, err = u.fail(ReasonInvalidInput, fmt.Errorf("%w: no text could be read from the file", ErrInvalidInput))
			return bol.Data{}, err
		}
		_, err = u.fail(ReasonExtractionFailed, err)
		return bol.Data{}, err
	}
	u.advance(StateExtracted, map[string]any{"model": result.Model, "field_count": len(result.Fields)})

	data := bol.Normalize(result.Fields)
	if err := bol.Validate(data); err != nil {
		_, err = u.fail(ReasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return bol.Data{}, err
	}
	u.advance(StateNormalized, map[string]any{
		"bol_number":      data.BolNumber,
		"container_count": len(data.Containers),
		"overflow_count":  len(data.Overflow),
	})
	return data, nil
}

func (s *Service) extractWithRetry(ctx context.Context, u *upload, input extraction.Input) (extraction.Result, error) {
	result, err := s.Extractor.Extract(ctx, input)
	if err == nil || !retryable(err) {
		return result, err
	}
	f := u.fields()
	f["error"] = err.Error()
	f["retry_in_ms"] = s.RetryDelay.Milliseconds()
	telemetry.Warn("upload.extraction_retry", f)
	if err := sleep(ctx, s.RetryDelay); err != nil {
		return extraction.Result{}, fmt.Errorf("%w: %v", extraction.ErrExtractionTimeout, err)
	}
	return s.Extractor.Extract(ctx, input)
}

func retryable(err error) bool {
	return errors.Is(err, extraction.ErrExtractionTimeout) || errors.Is(err, extraction.ErrServiceUnavailable)
}

// resolveAndPersist creates or patches. A duplicate key on create means a
// concurrent upload won; resolution runs once more before giving up.
func (s *Service) resolveAndPersist(ctx context.Context, u *upload, contentType string, data bol.Data) (UploadResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		res, err := s.Resolver.Resolve(ctx, data.BolNumber, u.in.ClientID)
		if err != nil {
			return u.fail(ReasonInternal, err)
		}
		if !u.resolved {
			u.advance(StateResolved, map[string]any{"action": string(res.Action), "document_id": res.DocumentID})
			u.resolved = true
		}

		switch res.Action {
		case ActionConflict:
			return u.fail(ReasonConflict, fmt.Errorf("%w: bol %s is held by client %s", ErrConflict, data.BolNumber, res.ExistingClientID))
		case ActionPatch:
			return s.patch(ctx, u, res.DocumentID, data)
		}

		now := s.Now()
		doc := Document{
			ID:          s.NewID(),
			Type:        TypeBOL,
			ClientID:    u.in.ClientID,
			FileID:      u.fileID,
			FileName:    u.in.FileName,
			ContentType: contentType,
			Bol:         &data,
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}
		err = s.Repo.Create(ctx, doc)
		if errors.Is(err, ErrDuplicateKey) {
			metrics.IncDuplicateRetry()
			f := u.fields()
			f["bol_number"] = data.BolNumber
			f["attempt"] = attempt + 1
			telemetry.Warn("upload.duplicate_retry", f)
			continue
		}
		if err != nil {
			return u.fail(ReasonInternal, fmt.Errorf("create document: %w", err))
		}
		u.advance(StatePersisted, map[string]any{"document_id": doc.ID, "status": string(StatusCreated)})
		metrics.IncUploadPersisted()
		s.touchClient(ctx, doc.ClientID, now)
		return UploadResult{DocumentID: doc.ID, FileID: u.fileID, Status: StatusCreated, State: StatePersisted}, nil
	}
	return u.fail(ReasonPersistentConflict, fmt.Errorf("%w: %s", ErrPersistentConflict, data.BolNumber))
}

// patch merges data into an existing document. Nothing is written when the
// merge changes nothing. A write that loses the version race re-reads and
// re-merges once.
func (s *Service) patch(ctx context.Context, u *upload, documentID string, data bol.Data) (UploadResult, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := s.Repo.Get(ctx, documentID)
		if err != nil {
			return u.fail(ReasonInternal, fmt.Errorf("load document %s: %w", documentID, err))
		}
		var current bol.Data
		if existing.Bol != nil {
			current = *existing.Bol
		}
		merged := bol.Merge(current, data)

		before, err := bol.Fingerprint(current)
		if err != nil {
			return u.fail(ReasonInternal, err)
		}
		after, err := bol.Fingerprint(merged)
		if err != nil {
			return u.fail(ReasonInternal, err)
		}
		if before == after {
			u.advance(StatePersisted, map[string]any{"document_id": documentID, "status": string(StatusUnchanged)})
			metrics.IncUploadPersisted()
			return UploadResult{DocumentID: documentID, FileID: u.fileID, Status: StatusUnchanged, State: StatePersisted}, nil
		}

		err = s.Repo.UpdateBol(ctx, documentID, merged, existing.Version, s.Now())
		if errors.Is(err, ErrStaleWrite) {
			metrics.IncStaleWriteRetry()
			telemetry.Warn("upload.stale_patch", map[string]any{
				"document_id": documentID,
				"attempt":     attempt + 1,
				"request_id":  telemetry.RequestIDFromContext(ctx),
			})
			continue
		}
		if err != nil {
			return u.fail(ReasonInternal, fmt.Errorf("patch document %s: %w", documentID, err))
		}
		u.advance(StatePersisted, map[string]any{"document_id": documentID, "status": string(StatusPatched)})
		metrics.IncUploadPersisted()
		return UploadResult{DocumentID: documentID, FileID: u.fileID, Status: StatusPatched, State: StatePersisted}, nil
	}
	return u.fail(ReasonPersistentConflict, fmt.Errorf("%w: %w: %s", ErrPersistentConflict, ErrStaleWrite, documentID))
}

// Repair overwrites one field of a BOL document in place. It bypasses the
// resolver. Like patch, a lost version race is retried once on fresh data.
func (s *Service) Repair(ctx context.Context, documentID, fieldPath, value string) (Document, error) {
	fieldPath = strings.TrimSpace(fieldPath)
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var doc Document
		doc, err = s.Get(ctx, documentID)
		if err != nil {
			return Document{}, err
		}
		if doc.Type != TypeBOL || doc.Bol == nil {
			return Document{}, fmt.Errorf("%w: %s is %s", ErrNotBol, doc.ID, doc.Type)
		}
		updated, ferr := bol.SetField(*doc.Bol, fieldPath, value)
		if ferr != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, ferr)
		}
		now := s.Now()
		err = s.Repo.UpdateBol(ctx, doc.ID, updated, doc.Version, now)
		if errors.Is(err, ErrStaleWrite) {
			metrics.IncStaleWriteRetry()
			telemetry.Warn("document.stale_repair", map[string]any{
				"document_id": doc.ID,
				"field":       fieldPath,
				"attempt":     attempt + 1,
			})
			continue
		}
		if err != nil {
			return Document{}, err
		}
		doc.Bol = &updated
		doc.UpdatedAt = now
		doc.Version++
		telemetry.Info("document.repaired", map[string]any{
			"document_id": doc.ID,
			"field":       fieldPath,
			"request_id":  telemetry.RequestIDFromContext(ctx),
		})
		return doc, nil
	}
	return Document{}, err
}

func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Document{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]Document, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	ok, err := s.Clients.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, clientID)
	}
	return s.Repo.ListByClient(ctx, clientID, limit, offset)
}

// DeleteBlob removes a blob. Failures are logged and swallowed; an orphaned
// blob is left for the sweep.
func (s *Service) DeleteBlob(ctx context.Context, fileID string) {
	if err := s.Store.Delete(ctx, fileID); err != nil {
		metrics.IncBlobDeleteFailed()
		telemetry.Warn("blob.delete_failed", map[string]any{
			"file_id": fileID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) touchClient(ctx context.Context, clientID string, at time.Time) {
	if err := s.Clients.TouchLastDocument(ctx, clientID, at); err != nil {
		telemetry.Warn("client.touch_failed", map[string]any{
			"client_id": clientID,
			"error":     err.Error(),
		})
	}
}

func (s *Service) readBlob(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) processTimeout() time.Duration {
	if s.ProcessTimeout <= 0 {
		return defaultProcessTimeout
	}
	return s.ProcessTimeout
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withField(f map[string]any, k string, v any) map[string]any {
	f[k] = v
	return f
}
