package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"exportdocs-backend/internal/services/health"
	"exportdocs-backend/internal/shared/config"
	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/server/middleware"
	"exportdocs-backend/internal/shared/server/respond"
)

// RouteRegistrar attaches a domain's routes to the protected api group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps collects what NewRouter wires together.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Health   *health.Service
	Routes   []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Health and metrics are public; everything else requires an admin token.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, healthSvc.Live())
	})
	api.GET("/health/ready", func(c *gin.Context) {
		report := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Verifier), middleware.RequireAdmin())
	for _, reg := range deps.Routes {
		if reg != nil {
			reg.RegisterRoutes(protected)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
