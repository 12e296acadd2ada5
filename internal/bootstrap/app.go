package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/assets"
	"exportdocs-backend/internal/clients"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/export"
	"exportdocs-backend/internal/extraction"
	"exportdocs-backend/internal/extraction/openai"
	"exportdocs-backend/internal/extraction/vertex"
	"exportdocs-backend/internal/regen"
	"exportdocs-backend/internal/services/health"
	"exportdocs-backend/internal/shared/auth"
	"exportdocs-backend/internal/shared/config"
	"exportdocs-backend/internal/shared/server"
	"exportdocs-backend/internal/shared/server/middleware"
	"exportdocs-backend/internal/shared/storage/blob"
	gcsstore "exportdocs-backend/internal/shared/storage/blob/gcs"
	localstore "exportdocs-backend/internal/shared/storage/blob/local"
	s3store "exportdocs-backend/internal/shared/storage/blob/s3"
	"exportdocs-backend/internal/shared/storage/db"
	"exportdocs-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  blob.Store
	Signer *auth.Signer
	Health *health.Service

	Extractor extraction.Client

	ClientsRepo   clients.Repo
	DocumentsRepo documents.Repo
	AssetsRepo    assets.Repo

	ClientsService   *clients.Service
	DocumentsService *documents.Service
	AssetsService    *assets.Service
	ExportService    *export.Service
	RegenEngine      *regen.Engine

	closers []io.Closer
}

// Build prepares every dependency and the router. The storage mode is
// decided once here and never revisited at runtime.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.BlobStoreType) == "" {
		cfg.BlobStoreType = "local"
	}
	ctx := context.Background()
	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB)
		app.Health.Register("database", sqlDB.PingContext)
	}

	store, err := BuildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	extractor, closer, err := BuildExtractor(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Extractor = extractor
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.Health.Register("extraction", extractor.Probe)

	layout, err := loadLayout(cfg.RegenLayoutFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := buildSigner(app); err != nil {
		app.Close()
		return nil, err
	}

	buildServices(app, layout)
	if err := buildRouter(app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases pooled connections and provider clients.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"error": err.Error()})
		}
	}
	a.closers = nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"env": cfg.Env, "reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required in %s", cfg.Env)
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := (&documents.PGRepo{DB: sqlDB}).VerifyConstraints(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// BuildStore returns the configured blob store.
func BuildStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.BlobStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("BLOB_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gcs":
		if strings.TrimSpace(cfg.GCSBucket) == "" {
			return nil, errors.New("BLOB_STORE=gcs requires GCS_BUCKET")
		}
		return gcsstore.New(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return localstore.New(cfg.LocalStoreDir)
	}
}

// BuildExtractor returns the configured extraction client and, when the
// provider holds a connection, its closer.
func BuildExtractor(ctx context.Context, cfg config.Config) (extraction.Client, io.Closer, error) {
	switch cfg.ExtractionProvider {
	case "none":
		return extraction.Unconfigured{}, nil, nil
	case "vertex":
		client, err := vertex.NewClient(ctx, cfg.VertexProjectID, cfg.VertexRegion, cfg.ExtractionModel)
		if err != nil {
			return nil, nil, err
		}
		return extraction.New(client, cfg.ExtractionTimeout, cfg.ExtractionProbeTimeout), client, nil
	default:
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.ExtractionModel, cfg.OpenAIBaseURL)
		if err != nil {
			if config.IsDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.extraction_unconfigured", map[string]any{"provider": "openai", "error": err.Error()})
				return extraction.Unconfigured{}, nil, nil
			}
			return nil, nil, err
		}
		return extraction.New(client, cfg.ExtractionTimeout, cfg.ExtractionProbeTimeout), nil, nil
	}
}

func loadLayout(path string) (regen.Layout, error) {
	if strings.TrimSpace(path) == "" {
		return regen.DefaultLayout(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return regen.Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	return regen.ParseLayout(raw)
}

func buildSigner(app *App) error {
	signer, err := auth.NewSigner(app.Config.JWTSecret, app.Config.TokenTTL)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSecret) && config.IsDevLike(app.Config.Env) {
			telemetry.Warn("bootstrap.auth_disabled", map[string]any{"reason": "JWT_SECRET empty"})
			return nil
		}
		return err
	}
	app.Signer = signer
	return nil
}

func buildServices(app *App, layout regen.Layout) {
	if app.DB != nil {
		app.ClientsRepo = &clients.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.AssetsRepo = &assets.PGRepo{DB: app.DB}
	} else {
		app.ClientsRepo = clients.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.AssetsRepo = assets.NewMemoryRepo()
	}

	app.ClientsService = clients.NewService(app.ClientsRepo)

	docSvc := documents.NewService(app.DocumentsRepo, app.ClientsService, app.Store, app.Extractor)
	docSvc.InlineDocuments = app.Config.ExtractionProvider == "vertex"
	app.DocumentsService = docSvc

	app.AssetsService = assets.NewService(app.AssetsRepo, app.Store)
	app.AssetsService.Refs = []blob.Referencer{app.DocumentsRepo}

	app.ExportService = export.NewService(docSvc)
	app.RegenEngine = regen.NewEngine(docSvc, app.Store, layout)
}

func buildRouter(app *App) error {
	docHandler := documents.NewHandler(app.DocumentsService)
	if app.Config.UploadRatePerSecond > 0 {
		limiter := middleware.NewRateLimiter(app.Config.UploadRatePerSecond, app.Config.UploadRateBurst, nil)
		docHandler.UploadMiddleware = []gin.HandlerFunc{middleware.RateLimit(limiter)}
	}

	var verifier middleware.TokenVerifier
	if app.Signer != nil {
		verifier = app.Signer
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Verifier: verifier,
		Health:   app.Health,
		Routes: []server.RouteRegistrar{
			clients.NewHandler(app.ClientsService),
			docHandler,
			regen.NewHandler(app.RegenEngine),
			assets.NewHandler(app.AssetsService),
			export.NewHandler(app.ExportService),
		},
	})
	if app.Router == nil {
		return errors.New("failed to initialize router")
	}
	return nil
}
