package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/internal/runner"
	"github.com/3leaps/s3relocate/internal/server"
	"github.com/3leaps/s3relocate/internal/server/handlers"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept event notifications over HTTP",
	Long: `Start the webhook server. POST an S3 event notification document to
/v1/events to relocate its records; the response carries the batch summary.

Health endpoints live under /health and Prometheus metrics under /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg := appConfig

	rel, cleanup, err := newRelocator(ctx, cfg)
	if err != nil {
		observability.ServerLogger.Error("Failed to initialize relocator", zap.Error(err))
		return exitError(runExitCode(err), "Failed to initialize relocator", err)
	}
	defer cleanup()

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	runnerOpts := []runner.Option{runner.WithLogger(observability.ServerLogger)}
	serverOpts := []server.Option{
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		runnerOpts = append(runnerOpts, runner.WithMetrics(metrics))
		serverOpts = append(serverOpts, server.WithMetrics(metrics))
	}

	r := runner.New(rel, runnerOpts...)
	serverOpts = append(serverOpts, server.WithEventsHandler(
		handlers.NewEventsHandler(r, runner.NewInvocationID, cfg.Server.MaxBodyBytes)))

	if cfg.Health.Enabled {
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("relocation", relocationHealthChecker{cfg: rel.Config()})
		if metrics != nil {
			hm.RegisterChecker("metrics", metricsHealthChecker{metrics: metrics})
		}
	}

	srv := server.New(host, port, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	observability.ServerLogger.Info("Webhook server started",
		zap.String("addr", srv.Addr()),
		zap.String("source_bucket", rel.Config().SourceBucket),
		zap.String("destination_bucket", rel.Config().DestinationBucket),
		zap.Bool("metrics", metrics != nil))

	select {
	case err := <-errCh:
		if err != nil {
			observability.ServerLogger.Error("Server failed", zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	observability.ServerLogger.Info("Shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		observability.ServerLogger.Error("Graceful shutdown failed", zap.Error(err))
		return exitError(foundry.ExitSignalInt, "Graceful shutdown failed", err)
	}
	if err := <-errCh; err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	observability.ServerLogger.Info("Server stopped")
	return nil
}

// relocationHealthChecker reports unhealthy when the relocation settings
// the server was started with are no longer valid.
type relocationHealthChecker struct {
	cfg relocate.Config
}

func (c relocationHealthChecker) CheckHealth(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("relocation config: %w", err)
	}
	return nil
}

// metricsHealthChecker reports unhealthy when the registry cannot be gathered.
type metricsHealthChecker struct {
	metrics *observability.Metrics
}

func (c metricsHealthChecker) CheckHealth(ctx context.Context) error {
	if c.metrics == nil {
		return errors.New("metrics not initialized")
	}
	if _, err := c.metrics.Registry().Gather(); err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	return nil
}
