package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reelkit/reelkit/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and reset persisted rate limit state",
}

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show usage for every configured service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limiter, err := newLimiter(appConfig)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, appConfig)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup
		if err := restoreLimiter(ctx, st, limiter); err != nil {
			return err
		}

		var entries []output.RateLimitEntry
		for _, name := range limiter.Services() {
			limit, _ := limiter.Limit(name)
			stats, _ := limiter.Statistics(name)
			entries = append(entries, output.RateLimitEntry{Service: name, Limit: limit, Stats: stats})
		}
		return emit(cmd, func(format output.Format) (string, error) {
			return output.FormatRateLimits(format, entries)
		})
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear persisted call history",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _ := cmd.Flags().GetString("service")
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		service = strings.TrimSpace(service)
		switch {
		case service == "" && !all:
			return errors.New("must specify --service or --all")
		case service != "" && all:
			return errors.New("--service and --all are mutually exclusive")
		case all && !yes:
			return errors.New("--all requires --yes")
		}

		st, err := openStore(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		removed, err := st.ResetRateLimits(cmd.Context(), service)
		if err != nil {
			return err
		}
		target := service
		if all {
			target = "all services"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d recorded calls for %s\n", removed, target)
		return err
	},
}

func init() {
	addOutputFlags(rateLimitListCmd)

	rateLimitResetCmd.Flags().String("service", "", "Service to reset")
	rateLimitResetCmd.Flags().Bool("all", false, "Reset every service")
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm --all")

	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
