package vertex

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"exportdocs-backend/internal/extraction"
)

type fakeModel struct {
	countErr  error
	lastParts []genai.Part
	reply     string
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.lastParts = parts
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.reply)}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 8, CandidatesTokenCount: 4, TotalTokenCount: 12},
	}, nil
}

func (f *fakeModel) CountTokens(ctx context.Context, parts ...genai.Part) (*genai.CountTokensResponse, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return &genai.CountTokensResponse{TotalTokens: 1}, nil
}

func TestCompleteSendsInlinePDFWithoutText(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"bolNumber\":\"HLCUBSC250265371\"}\n```"}
	client := &Client{model: model, modelName: "gemini-1.5-pro"}
	svc := extraction.New(client, time.Second, time.Second)

	res, err := svc.Extract(context.Background(), extraction.Input{
		Bytes:       []byte("%PDF-1.4"),
		ContentType: "application/pdf",
		Profile:     extraction.BOLProfile,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(res.Fields["bolNumber"]) != `"HLCUBSC250265371"` {
		t.Fatalf("unexpected fields %v", res.Fields)
	}
	if res.Usage.TotalTokens != 12 {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
	if _, ok := model.lastParts[1].(genai.Blob); !ok {
		t.Fatalf("expected inline blob part, got %T", model.lastParts[1])
	}
}

func TestProbeFailureIsUnavailable(t *testing.T) {
	client := &Client{model: &fakeModel{countErr: errors.New("permission denied")}, modelName: "gemini-1.5-pro"}
	svc := extraction.New(client, time.Second, time.Second)

	_, err := svc.Extract(context.Background(), extraction.Input{Text: "BOL"})
	if !errors.Is(err, extraction.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
