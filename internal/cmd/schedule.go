package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/observability"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Post queued content on a fixed interval",
	Long: `Post one queued item immediately and then one per interval until interrupted.

The rotation resumes after the posts already in the post log. Each post goes
through the poster rate limit and the retry policy, and its outcome is recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		logger := observability.CLILogger

		interval, _ := cmd.Flags().GetDuration("interval")
		maxPosts, _ := cmd.Flags().GetInt("max-posts")
		posterName, _ := cmd.Flags().GetString("poster")
		if interval <= 0 {
			interval = cfg.Scheduler.Interval
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		sched, limiter, err := buildScheduler(ctx, st, posterName, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		sched.Interval = interval
		sched.MaxPosts = maxPosts

		runErr := sched.Run(ctx)
		if err := persistLimiter(context.WithoutCancel(ctx), st, limiter); err != nil {
			logger.Warn("Failed to persist rate limit history", zap.Error(err))
		}
		if errors.Is(runErr, context.Canceled) {
			logger.Info("Scheduler interrupted")
			return nil
		}
		return runErr
	},
}

func init() {
	scheduleCmd.Flags().Duration("interval", 0, "Posting interval (default scheduler.interval)")
	scheduleCmd.Flags().Int("max-posts", 0, "Stop after this many posts (0 runs until interrupted)")
	scheduleCmd.Flags().String("poster", "", "Poster override: log|webhook (default scheduler.poster)")
	rootCmd.AddCommand(scheduleCmd)
}
