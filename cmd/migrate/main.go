package main

// Apply, inspect or roll back the schema:
//   go run ./cmd/migrate
//   go run ./cmd/migrate -version
//   go run ./cmd/migrate -down

import (
	"context"
	"flag"
	"log"
	"os"

	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/config"
	"exportdocs-backend/internal/shared/storage/db"
)

func main() {
	down := flag.Bool("down", false, "roll back the latest migration")
	versionOnly := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Printf("connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *versionOnly:
	case *down:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			log.Printf("rollback: %v", err)
			os.Exit(1)
		}
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("migrate: %v", err)
			os.Exit(1)
		}
		// The bol number uniqueness guarantee depends on this index.
		if err := (&documents.PGRepo{DB: sqlDB}).VerifyConstraints(ctx); err != nil {
			log.Printf("schema check: %v", err)
			os.Exit(1)
		}
	}

	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		log.Printf("schema version: %v", err)
		os.Exit(1)
	}
	log.Printf("schema at version %d", version)
}
