// API server entry point for ClauseLens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clauselens/clauselens/internal/bootstrap"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	httpserver "github.com/clauselens/clauselens/internal/interfaces/http"
	"github.com/clauselens/clauselens/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// Populated via -ldflags at build time.
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clauselens-apiserver %s (commit %s)\n", version, gitCommit)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := bootstrap.BuildLogger(cfg.Log)
	if err != nil {
		return err
	}
	log = log.Named("apiserver")
	log.Info("starting",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close(context.Background(), log)

	checkers := make(map[string]handlers.Checker, len(d.Checkers))
	for name, check := range d.Checkers {
		checkers[name] = handlers.Checker(check)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Mode:           cfg.Server.Mode,
		Version:        version,
		Service:        d.Service,
		Logger:         log.Named("http"),
		Metrics:        d.Metrics,
		MetricsHandler: d.Collector.Handler(),
		HealthCheckers: checkers,
		MaxBodySize:    cfg.Server.MaxBodySize,
	})

	srv := httpserver.NewServer(cfg.Server, router, log.Named("http"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info("http server listening", logging.String("addr", srv.Addr()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
