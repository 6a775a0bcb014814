package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/observability"
	"github.com/reelkit/reelkit/internal/output"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and advance the content rotation",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued content in rotation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st := openStoreOptional(ctx, appConfig, observability.CLILogger)
		if st != nil {
			defer st.Close() // nolint:errcheck // best-effort cleanup
		}

		q, err := loadQueue(ctx, appConfig, st)
		if err != nil {
			return err
		}

		items := q.Items()
		entries := make([]output.QueueEntry, len(items))
		for i, item := range items {
			entries[i] = output.QueueEntry{Position: i, Next: i == q.Cursor(), Item: item}
		}
		return emit(cmd, func(format output.Format) (string, error) {
			return output.FormatQueue(format, entries)
		})
	},
}

var queueNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Post the next queued item once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := appConfig
		logger := observability.CLILogger
		posterName, _ := cmd.Flags().GetString("poster")

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		sched, limiter, err := buildScheduler(ctx, st, posterName, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		result, tickErr := sched.Tick(ctx)
		if err := persistLimiter(ctx, st, limiter); err != nil {
			logger.Warn("Failed to persist rate limit history", zap.Error(err))
		}
		if tickErr != nil {
			return tickErr
		}

		lines := []string{
			"Posted",
			"",
			fmt.Sprintf("item:     %s", result.Item.ID),
			fmt.Sprintf("product:  %s", result.Item.Product),
			fmt.Sprintf("poster:   %s", sched.Poster.Name()),
			fmt.Sprintf("attempts: %d", result.Attempts),
		}
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

func init() {
	addOutputFlags(queueListCmd)
	queueNextCmd.Flags().String("poster", "", "Poster override: log|webhook (default scheduler.poster)")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueNextCmd)
	rootCmd.AddCommand(queueCmd)
}
