// Package http wires the gin router and the HTTP server for the public API.
package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/prometheus"
	"github.com/clauselens/clauselens/internal/interfaces/http/handlers"
	"github.com/clauselens/clauselens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the router needs.
type RouterConfig struct {
	Mode    string // gin mode: "debug" | "release" | "test"
	Version string

	Service analysis.Service
	Logger  logging.Logger

	// Metrics instruments requests; MetricsHandler serves the scrape
	// endpoint.  Both are optional.
	Metrics        *prometheus.AppMetrics
	MetricsHandler nethttp.Handler

	// HealthCheckers feed the readiness probe, keyed by component name.
	HealthCheckers map[string]handlers.Checker

	MaxBodySize int64
	CORS        *middleware.CORSConfig
}

// NewRouter assembles the middleware chain and the API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	cors := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		cors = *cfg.CORS
	}
	r.Use(middleware.CORS(cors))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthCheckers)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	contracts := handlers.NewContractHandler(cfg.Service, log)
	search := handlers.NewSearchHandler(cfg.Service, log)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/contracts", contracts.Upload)
		v1.GET("/contracts", contracts.List)
		v1.GET("/contracts/:id", contracts.Get)
		v1.DELETE("/contracts/:id", contracts.Delete)
		v1.POST("/contracts/:id/analyze", contracts.Analyze)
		v1.GET("/contracts/:id/status", contracts.Status)
		v1.PUT("/contracts/:id/embeddings", contracts.IndexEmbeddings)

		v1.POST("/clauses/search", search.Search)
		v1.POST("/clauses/similar", search.Similar)
	}

	return r
}
