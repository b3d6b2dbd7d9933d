// Package bootstrap wires the infrastructure dependency graph shared by the
// apiserver and worker binaries.
package bootstrap

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/database/neo4j"
	"github.com/clauselens/clauselens/internal/infrastructure/database/postgres"
	"github.com/clauselens/clauselens/internal/infrastructure/database/postgres/repositories"
	"github.com/clauselens/clauselens/internal/infrastructure/database/redis"
	"github.com/clauselens/clauselens/internal/infrastructure/inference"
	"github.com/clauselens/clauselens/internal/infrastructure/messaging/kafka"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/prometheus"
	"github.com/clauselens/clauselens/internal/infrastructure/search/milvus"
	"github.com/clauselens/clauselens/internal/infrastructure/search/opensearch"
	"github.com/clauselens/clauselens/internal/infrastructure/storage/minio"
	"github.com/clauselens/clauselens/internal/structuring"
	structcommon "github.com/clauselens/clauselens/internal/structuring/common"
)

// Checker probes one backing component for readiness.
type Checker func(ctx context.Context) error

// Deps holds every wired infrastructure component plus the application
// service built on top of them.
type Deps struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Publisher *kafka.Publisher
	Milvus    milvusclient.Client
	Neo4j     neo4j.Driver
	Backend   structcommon.ModelBackend

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Service  analysis.Service
	Checkers map[string]Checker
}

// Build wires the full dependency graph.  Failures are fatal: a half-
// connected process is worse than a crashed one.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger) (*Deps, error) {
	d := &Deps{Checkers: map[string]Checker{}}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "clauselens",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	})
	if err != nil {
		return nil, err
	}
	d.Collector = collector
	d.Metrics = prometheus.NewAppMetrics(collector)

	// PostgreSQL, with migrations applied before anything reads the schema.
	if cfg.Database.MigrationPath != "" {
		migrator, err := postgres.NewMigrator(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := migrator.Up(); err != nil {
			migrator.Close()
			return nil, err
		}
		migrator.Close()
	}
	pool, err := postgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	d.Pool = pool
	d.Checkers["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	repo := repositories.NewContractRepository(pool, log)

	// Redis.
	redisClient, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}
	d.Redis = redisClient
	d.Checkers["redis"] = redisClient.Ping
	var cacheOpts []redis.CacheOption
	if cfg.Redis.DefaultTTL > 0 {
		cacheOpts = append(cacheOpts, redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	}
	cache := redis.NewAnalysisCache(redisClient, log, cacheOpts...)

	// Kafka.
	if cfg.Kafka.AutoCreateTopics {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka, log); err != nil {
			d.Close(ctx, log)
			return nil, err
		}
	}
	d.Publisher = kafka.NewPublisher(cfg.Kafka, log)

	// MinIO.
	store, err := minio.NewDocumentStore(ctx, cfg.MinIO, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}

	// OpenSearch.
	osClient, err := opensearch.NewClient(ctx, cfg.OpenSearch, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}
	index, err := opensearch.NewClauseIndex(ctx, osClient, cfg.OpenSearch.IndexPrefix, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}

	// Milvus.
	milvusClient, err := milvus.NewClient(ctx, cfg.Milvus, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}
	d.Milvus = milvusClient
	vectors, err := milvus.NewClauseVectorStore(ctx, milvusClient, cfg.Milvus, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}

	// Neo4j.
	driver, err := neo4j.NewDriver(ctx, cfg.Neo4j, log)
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}
	d.Neo4j = driver
	graph := neo4j.NewStructureGraph(driver, log)

	// Structuring engine, with the model backend when one is configured.
	var backend structcommon.ModelBackend
	if cfg.Structuring.ModelAddr != "" {
		backend, err = inference.NewBackend(inference.Config{
			Addr:    cfg.Structuring.ModelAddr,
			Timeout: cfg.Structuring.ModelTimeout,
		}, log)
		if err != nil {
			d.Close(ctx, log)
			return nil, err
		}
		d.Backend = backend
	}
	engineMetrics, err := structcommon.NewPrometheusMetrics(collector.Registerer())
	if err != nil {
		d.Close(ctx, log)
		return nil, err
	}
	engine := structuring.NewEngine(structuring.Options{
		Backend:      backend,
		RiskModel:    cfg.Structuring.RiskModel,
		LayoutModel:  cfg.Structuring.LayoutModel,
		EnableLayout: cfg.Structuring.EnableLayoutModel,
		Logger:       log.Named("structuring"),
		Metrics:      engineMetrics,
	})

	d.Service = analysis.NewService(analysis.Deps{
		Repo:    repo,
		Cache:   cache,
		Index:   index,
		Vectors: vectors,
		Store:   store,
		Graph:   graph,
		Events:  d.Publisher,
		Engine:  engine,
		Logger:  log.Named("analysis"),
	})
	return d, nil
}

// Close tears down every component that was successfully built, in reverse
// dependency order.
func (d *Deps) Close(ctx context.Context, log logging.Logger) {
	if d.Backend != nil {
		if err := d.Backend.Close(); err != nil {
			log.Warn("inference backend close failed", logging.Err(err))
		}
	}
	if d.Neo4j != nil {
		if err := d.Neo4j.Close(ctx); err != nil {
			log.Warn("neo4j close failed", logging.Err(err))
		}
	}
	if d.Milvus != nil {
		d.Milvus.Close()
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			log.Warn("kafka publisher close failed", logging.Err(err))
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Warn("redis close failed", logging.Err(err))
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// LoadConfig reads the config file at path, falling back to pure environment
// configuration when the file does not exist.
func LoadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// BuildLogger maps the application log config onto the logging package.
func BuildLogger(cfg config.LogConfig) (logging.Logger, error) {
	lc := logging.LogConfig{Level: cfg.Level, Format: cfg.Format}
	if cfg.Output != "" {
		lc.OutputPaths = []string{cfg.Output}
	}
	return logging.NewLogger(lc)
}
