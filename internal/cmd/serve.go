package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/content"
	errwrap "github.com/reelkit/reelkit/internal/errors"
	"github.com/reelkit/reelkit/internal/observability"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing health, metrics, rate limits, the content
queue, and the post log.

With --schedule the posting loop runs in the same process.
SIGINT or SIGTERM shuts the server down gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (default server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (default server.port)")
	serveCmd.Flags().Bool("schedule", false, "run the posting scheduler alongside the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	serverCfg := cfg.Server
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		serverCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serverCfg.Port = port
	}
	runSchedule, _ := cmd.Flags().GetBool("schedule")

	observability.InitServerLogger(binaryName, cfg.Logging.Level, "")
	logger := observability.ServerLogger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", serverCfg.Host),
		zap.Int("port", serverCfg.Port),
		zap.Bool("schedule", runSchedule))

	st := openStoreOptional(ctx, cfg, logger)
	if st != nil {
		defer st.Close() // nolint:errcheck // best-effort cleanup
	}

	deps := server.Deps{Store: st, Version: versionInfo.Version}
	var limiter *ratelimit.Registry
	if st != nil {
		sched, l, err := buildScheduler(ctx, st, "", cmd.OutOrStdout())
		switch {
		case errors.Is(err, content.ErrNoContent):
			logger.Warn("No content found, queue endpoints are disabled", zap.String("dir", cfg.Content.Dir))
		case err != nil:
			return err
		default:
			deps.Queue = sched.Queue
			deps.Scheduler = sched
			limiter = l
		}
	}
	if limiter == nil {
		l, err := newLimiter(cfg)
		if err != nil {
			return err
		}
		limiter = l
		if err := restoreLimiter(ctx, st, limiter); err != nil {
			logger.Warn("Failed to restore rate limit history", zap.Error(err))
		}
	}
	deps.Limiter = limiter

	if runSchedule && deps.Scheduler == nil {
		return errors.New("--schedule requires stored content and a post log store")
	}

	srv := server.New(serverCfg, deps)

	errChan := make(chan error, 2)
	go func() {
		errChan <- srv.Start()
	}()

	if runSchedule {
		go func() {
			if err := deps.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Scheduler stopped", zap.Error(err))
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			runErr = errwrap.Wrap(ctx, errwrap.NewInternalError("server error"), err)
		}
	}

	shutdownTimeout := serverCfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
		if runErr == nil {
			runErr = errwrap.Wrap(shutdownCtx, errwrap.NewInternalError("server shutdown failed"), err)
		}
	}
	if err := persistLimiter(shutdownCtx, st, limiter); err != nil {
		logger.Warn("Failed to persist rate limit history", zap.Error(err))
	}

	logger.Info("HTTP server stopped")
	if err := logger.Sync(); err != nil {
		logger.Debug("Logger sync returned error (may be benign)", zap.Error(err))
	}
	return runErr
}

