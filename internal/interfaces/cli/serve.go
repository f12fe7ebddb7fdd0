package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/grantsync/internal/interfaces/http"
	"github.com/turtacn/grantsync/internal/interfaces/http/handlers"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored grants over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := cliCtx.OpenStore(ctx, cfg, log, cliCtx.Metrics)
	if err != nil {
		return err
	}
	defer backend.Close()

	router := httpapi.NewRouter(httpapi.RouterConfig{
		GrantHandler:     handlers.NewGrantHandler(backend.Store, log),
		HealthHandler:    handlers.NewHealthHandler(Version, backend.Checkers...),
		Logger:           log,
		MetricsCollector: cliCtx.Collector,
		AppMetrics:       cliCtx.Metrics,
	})
	srv := httpapi.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received", logging.Err(context.Cause(ctx)))
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
