package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"exportdocs-backend/internal/extraction"
)

const defaultModel = "gemini-1.5-pro"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	CountTokens(ctx context.Context, parts ...genai.Part) (*genai.CountTokensResponse, error)
}

// Client implements extraction.Provider on Vertex AI Gemini models. Unlike
// the OpenAI provider it accepts inline PDF bytes.
type Client struct {
	model     generator
	modelName string
	base      *genai.Client
}

// NewClient creates a Vertex AI provider using application default credentials.
func NewClient(ctx context.Context, projectID, region, model string) (*Client, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}
	if strings.TrimSpace(model) == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultModel
	}

	base, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	gm := base.GenerativeModel(model)
	gm.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	return &Client{model: gm, modelName: model, base: base}, nil
}

func (c *Client) Name() string { return "vertex" }

// Probe counts tokens of a tiny prompt; it reaches the service without
// generating output.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.model.CountTokens(ctx, genai.Text("ping")); err != nil {
		return fmt.Errorf("vertex probe: %w", err)
	}
	return nil
}

// Complete sends instructions plus text, or the inline document when no text
// could be extracted locally.
func (c *Client) Complete(ctx context.Context, req extraction.Request) (extraction.Completion, error) {
	parts := []genai.Part{genai.Text(req.Instructions)}
	switch {
	case strings.TrimSpace(req.Text) != "":
		parts = append(parts, genai.Text(req.Text))
	case len(req.Document) > 0:
		mime := req.ContentType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, genai.Blob{MIMEType: mime, Data: req.Document})
	default:
		return extraction.Completion{}, extraction.ErrEmptyInput
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return extraction.Completion{}, fmt.Errorf("vertex generate content: %w", err)
	}

	content := responseText(resp)
	if content == "" {
		return extraction.Completion{}, fmt.Errorf("vertex response empty content")
	}
	out := extraction.Completion{Content: content, Model: c.modelName}
	if resp.UsageMetadata != nil {
		out.Usage = extraction.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ extraction.Provider = (*Client)(nil)
