package extraction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/telemetry"
)

// Client turns document content into raw fields.
type Client interface {
	Probe(ctx context.Context) error
	Extract(ctx context.Context, input Input) (Result, error)
}

// Input is the content of one document. Text is preferred; Bytes are sent
// only to providers that accept inline documents.
type Input struct {
	Text        string
	Bytes       []byte
	ContentType string
	Profile     Profile
}

// Usage counts tokens reported by the provider.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Result is the transient output of one extraction.
type Result struct {
	Fields bol.RawFields
	Model  string
	Usage  Usage
}

// Request is what a Provider sends.
type Request struct {
	Instructions string
	Text         string
	Document     []byte
	ContentType  string
}

// Completion is the provider's raw answer.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Provider is one extraction backend.
type Provider interface {
	Name() string
	Probe(ctx context.Context) error
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Service wraps a Provider with the reachability probe, the bounded wait and
// response validation. It never retries.
type Service struct {
	Provider     Provider
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

// New builds a Service around provider.
func New(provider Provider, timeout, probeTimeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Service{Provider: provider, Timeout: timeout, ProbeTimeout: probeTimeout}
}

// Probe checks that the provider is reachable.
func (s *Service) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.ProbeTimeout)
	defer cancel()
	if err := s.Provider.Probe(probeCtx); err != nil {
		telemetry.Warn("extraction.probe", map[string]any{
			"provider": s.Provider.Name(),
			"error":    err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return nil
}

// Extract probes the provider, then sends input under the bounded wait.
func (s *Service) Extract(ctx context.Context, input Input) (Result, error) {
	if strings.TrimSpace(input.Text) == "" && len(input.Bytes) == 0 {
		return Result{}, ErrEmptyInput
	}
	if err := s.Probe(ctx); err != nil {
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.Provider.Complete(callCtx, Request{
		Instructions: input.Profile.Instructions,
		Text:         input.Text,
		Document:     input.Bytes,
		ContentType:  input.ContentType,
	})
	elapsed := time.Since(start)
	metrics.ObserveExtractionDurationMs(float64(elapsed.Milliseconds()))

	if err != nil {
		if isTimeout(callCtx, err) {
			telemetry.Warn("extraction.timeout", map[string]any{
				"provider":    s.Provider.Name(),
				"profile":     input.Profile.Name,
				"duration_ms": elapsed.Milliseconds(),
			})
			return Result{}, fmt.Errorf("%w after %s", ErrExtractionTimeout, s.Timeout)
		}
		if errors.Is(err, ErrExtractionFailed) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	content := StripFences(completion.Content)
	if err := validateResponse([]byte(content)); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	fields, err := bol.ParseRaw([]byte(content))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	telemetry.Info("extraction.complete", map[string]any{
		"provider":          s.Provider.Name(),
		"model":             completion.Model,
		"profile":           input.Profile.Name,
		"duration_ms":       elapsed.Milliseconds(),
		"prompt_tokens":     completion.Usage.PromptTokens,
		"completion_tokens": completion.Usage.CompletionTokens,
		"total_tokens":      completion.Usage.TotalTokens,
		"field_count":       len(fields),
	})
	return Result{Fields: fields, Model: completion.Model, Usage: completion.Usage}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Unconfigured is used when no provider is configured. Every call reports
// the service as unavailable.
type Unconfigured struct{}

func (Unconfigured) Probe(context.Context) error {
	return fmt.Errorf("%w: no extraction provider configured", ErrServiceUnavailable)
}

func (u Unconfigured) Extract(ctx context.Context, _ Input) (Result, error) {
	return Result{}, u.Probe(ctx)
}

var (
	_ Client = (*Service)(nil)
	_ Client = Unconfigured{}
)
