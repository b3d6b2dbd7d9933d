// Background worker entry point for ClauseLens.  Consumes contract.uploaded
// events and watches the filesystem inbox, running analysis out of band of the
// API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clauselens/clauselens/internal/bootstrap"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/database/redis"
	"github.com/clauselens/clauselens/internal/infrastructure/messaging/kafka"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/worker"
)

const defaultConfigPath = "configs/config.yaml"

// Populated via -ldflags at build time.
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	metricsAddr := flag.String("metrics-addr", ":9091", "listen address for /metrics and /healthz")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clauselens-worker %s (commit %s)\n", version, gitCommit)
		return
	}

	if err := run(*configPath, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string) error {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := bootstrap.BuildLogger(cfg.Log)
	if err != nil {
		return err
	}
	log = log.Named("worker")
	log.Info("starting",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.Int("concurrency", cfg.Worker.Concurrency),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close(context.Background(), log)

	locks := func(contractID uuid.UUID) worker.Lock {
		return redis.NewAnalysisLock(d.Redis, contractID, 0)
	}
	w := worker.FromConfig(cfg.Worker, d.Service, locks, d.Metrics, log)

	consumer := kafka.NewConsumer(cfg.Kafka, contract.TopicContractUploaded, w.KafkaHandler(), log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return consumer.Run(ctx) })

	if cfg.Worker.InboxDir != "" {
		inbox, err := worker.NewInbox(cfg.Worker, d.Service, w, log)
		if err != nil {
			return err
		}
		g.Go(func() error { return inbox.Run(ctx) })
	}

	g.Go(func() error { return serveMetrics(ctx, metricsAddr, d, log) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// serveMetrics exposes /metrics and the health probes so the worker is
// observable without the API server.
func serveMetrics(ctx context.Context, addr string, d *bootstrap.Deps, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", d.Collector.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		probeCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range d.Checkers {
			if err := check(probeCtx); err != nil {
				log.Warn("readiness probe failed",
					logging.String("component", name), logging.Err(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("metrics server listening", logging.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}
