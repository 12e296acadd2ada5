package main

// Report blobs no record points at, and optionally delete them:
//   go run ./cmd/sweep [-delete]

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exportdocs-backend/internal/assets"
	"exportdocs-backend/internal/bootstrap"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/config"
	"exportdocs-backend/internal/shared/storage/db"
	"exportdocs-backend/internal/sweep"
)

func main() {
	remove := flag.Bool("delete", false, "delete orphaned blobs")
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		exitErr("DATABASE_URL is required; an in-memory database has no references to compare")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		exitErr(fmt.Sprintf("connect database: %v", err))
	}
	defer sqlDB.Close()

	store, err := bootstrap.BuildStore(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("blob store: %v", err))
	}

	report, err := sweep.New(store, &documents.PGRepo{DB: sqlDB}, &assets.PGRepo{DB: sqlDB}).Run(ctx, *remove)
	if err != nil {
		exitErr(fmt.Sprintf("sweep: %v", err))
	}
	for _, id := range report.Orphans {
		fmt.Println(id)
	}
	fmt.Fprintf(os.Stderr, "stored=%d referenced=%d orphans=%d deleted=%d failed=%d\n",
		report.Stored, report.Referenced, len(report.Orphans), report.Deleted, report.Failed)
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
