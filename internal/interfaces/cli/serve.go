package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clauselens/clauselens/internal/bootstrap"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	httpserver "github.com/clauselens/clauselens/internal/interfaces/http"
	"github.com/clauselens/clauselens/internal/interfaces/http/handlers"
)

// NewServeCmd runs the API server in the foreground.  Equivalent to the
// apiserver binary; handy for local development from one executable.
func NewServeCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ClauseLens API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath := opts.ConfigPath
			if configPath == "" {
				configPath = "configs/config.yaml"
			}
			cfg, err := bootstrap.LoadConfig(configPath)
			if err != nil {
				return err
			}

			log, err := bootstrap.BuildLogger(cfg.Log)
			if err != nil {
				return err
			}
			log = log.Named("apiserver")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
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
				Version:        Version,
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
			return srv.Stop(context.Background())
		},
	}
}
