package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"exportdocs-backend/internal/bootstrap"
	"exportdocs-backend/internal/shared/config"
	"exportdocs-backend/internal/shared/telemetry"
)

var (
	coldStart sync.Once
	buildErr  error
	proxy     *ginadapter.GinLambdaV2
)

// lambdaConfig points a local blob store at the only writable path in the
// function sandbox.
func lambdaConfig() config.Config {
	cfg := config.Load()
	if cfg.BlobStoreType == "" || cfg.BlobStoreType == "local" {
		if !strings.HasPrefix(filepath.Clean(cfg.LocalStoreDir), "/tmp") {
			cfg.LocalStoreDir = "/tmp/exportdocs"
		}
	}
	return cfg
}

func warm() {
	started := time.Now()
	app, err := bootstrap.Build(lambdaConfig())
	if err != nil {
		buildErr = err
		telemetry.Error("lambda.cold_start_failed", map[string]any{"error": err.Error()})
		return
	}
	proxy = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda.cold_start", map[string]any{
		"env":         app.Config.Env,
		"blob_store":  app.Config.BlobStoreType,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

func handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	coldStart.Do(warm)
	if buildErr != nil {
		body, _ := json.Marshal(map[string]any{
			"error": "service failed to start",
			"code":  "service_unavailable",
		})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Body:       string(body),
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, nil
	}
	return proxy.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handle)
}
