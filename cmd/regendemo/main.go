package main

// Stamp BOL values onto a local PDF to check a layout:
//   go run ./cmd/regendemo -pdf ./bol.pdf -fields ./fields.json -debug

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/extract"
	"exportdocs-backend/internal/regen"
	"exportdocs-backend/internal/shared/storage/blob/local"
)

func main() {
	pdfPath := flag.String("pdf", "", "source PDF")
	fieldsPath := flag.String("fields", "", "JSON file with raw BOL fields")
	layoutPath := flag.String("layout", "", "layout YAML (defaults to the embedded layout)")
	outPath := flag.String("out", "./out/regenerated.pdf", "output path")
	debug := flag.Bool("debug", false, "draw field labels next to each value")
	flag.Parse()

	if strings.TrimSpace(*pdfPath) == "" || strings.TrimSpace(*fieldsPath) == "" {
		exitErr("-pdf and -fields are required")
	}
	source, err := os.ReadFile(*pdfPath)
	if err != nil {
		exitErr(fmt.Sprintf("read pdf: %v", err))
	}
	rawJSON, err := os.ReadFile(*fieldsPath)
	if err != nil {
		exitErr(fmt.Sprintf("read fields: %v", err))
	}
	fields, err := bol.ParseRaw(rawJSON)
	if err != nil {
		exitErr(fmt.Sprintf("parse fields: %v", err))
	}
	data := bol.Normalize(fields)

	layout := regen.DefaultLayout()
	if *layoutPath != "" {
		b, err := os.ReadFile(*layoutPath)
		if err != nil {
			exitErr(fmt.Sprintf("read layout: %v", err))
		}
		if layout, err = regen.ParseLayout(b); err != nil {
			exitErr(err.Error())
		}
	}

	ctx := context.Background()
	workDir, err := os.MkdirTemp("", "regendemo-*")
	if err != nil {
		exitErr(err.Error())
	}
	defer os.RemoveAll(workDir)
	store, err := local.New(workDir)
	if err != nil {
		exitErr(err.Error())
	}
	obj, err := store.Put(ctx, bytes.NewReader(source), extract.MimePDF)
	if err != nil {
		exitErr(fmt.Sprintf("store source: %v", err))
	}

	repo := documents.NewMemoryRepo()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:          "demo",
		Type:        documents.TypeBOL,
		ClientID:    "demo",
		FileID:      obj.FileID,
		FileName:    filepath.Base(*pdfPath),
		ContentType: extract.MimePDF,
		Bol:         &data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, doc); err != nil {
		exitErr(err.Error())
	}

	artifact, err := regen.NewEngine(repo, store, layout).Regenerate(ctx, doc.ID, regen.Request{Debug: *debug})
	if err != nil {
		exitErr(fmt.Sprintf("regenerate: %v", err))
	}
	rc, err := store.Open(ctx, artifact.FileID)
	if err != nil {
		exitErr(err.Error())
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		exitErr(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		exitErr(err.Error())
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		exitErr(err.Error())
	}
	fmt.Printf("OK: wrote %s (%d stamps)\n", *outPath, artifact.Stamps)
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
