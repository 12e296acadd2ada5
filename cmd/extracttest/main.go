package main

// Run one file through extraction and normalization without storing it:
//   go run ./cmd/extracttest -file ./bol.pdf

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/bootstrap"
	"exportdocs-backend/internal/extract"
	"exportdocs-backend/internal/extraction"
	"exportdocs-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "path to a BOL file (pdf, docx or text)")
	provider := flag.String("provider", cfg.ExtractionProvider, "extraction provider (openai|vertex)")
	model := flag.String("model", cfg.ExtractionModel, "extraction model")
	raw := flag.Bool("raw", false, "print raw fields instead of normalized data")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}
	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}
	contentType := extract.NormalizeContentType("", filepath.Base(*filePath), data)

	cfg.ExtractionProvider = *provider
	cfg.ExtractionModel = *model
	ctx := context.Background()
	client, closer, err := bootstrap.BuildExtractor(ctx, cfg)
	if err != nil {
		exitErr(err.Error())
	}
	if closer != nil {
		defer closer.Close()
	}

	input := extraction.Input{ContentType: contentType, Profile: extraction.BOLProfile}
	text, err := extract.FromBytes(ctx, data, contentType)
	switch {
	case err == nil:
		input.Text = text
	case errors.Is(err, extract.ErrUnsupported) && cfg.ExtractionProvider == "vertex":
		input.Bytes = data
	default:
		exitErr(fmt.Sprintf("read text: %v", err))
	}
	if strings.TrimSpace(input.Text) == "" && cfg.ExtractionProvider == "vertex" {
		input.Bytes = data
	}

	result, err := client.Extract(ctx, input)
	if err != nil {
		exitErr(fmt.Sprintf("extract: %v", err))
	}

	var out any = bol.Normalize(result.Fields)
	if *raw {
		out = result.Fields
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(err.Error())
	}
	fmt.Println(string(payload))
	fmt.Fprintf(os.Stderr, "model=%s prompt_tokens=%d completion_tokens=%d\n",
		result.Model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
