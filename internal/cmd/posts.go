package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelkit/reelkit/internal/output"
	"github.com/reelkit/reelkit/internal/store"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Inspect and prune the post log",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent posts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		query := postQueryFromFlags(cmd)
		query.All = query.Status == "" && query.Product == ""

		st, err := openStore(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		posts, err := st.ListPosts(cmd.Context(), query, limit)
		if err != nil {
			return err
		}
		return emit(cmd, func(format output.Format) (string, error) {
			return output.FormatPosts(format, posts)
		})
	},
}

var postsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete post log rows",
	Long: `Delete post log rows matching --status and/or --product, or every row with --all.

Deleting rows rewinds the content rotation, which resumes after the logged posts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		query := postQueryFromFlags(cmd)
		query.All, _ = cmd.Flags().GetBool("all")

		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !yes && !dryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		st, err := openStore(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		if dryRun {
			count, err := st.CountPosts(cmd.Context(), query)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Would delete %d posts\n", count)
			return err
		}

		removed, err := st.ResetPosts(cmd.Context(), query)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d posts\n", removed)
		return err
	},
}

func postQueryFromFlags(cmd *cobra.Command) store.PostQuery {
	status, _ := cmd.Flags().GetString("status")
	product, _ := cmd.Flags().GetString("product")
	return store.PostQuery{Status: status, Product: product}
}

func init() {
	postsListCmd.Flags().Int("limit", 20, "Maximum rows to show")
	postsListCmd.Flags().String("status", "", "Filter by status: posted|failed")
	postsListCmd.Flags().String("product", "", "Filter by product name")
	addOutputFlags(postsListCmd)

	postsResetCmd.Flags().Bool("all", false, "Delete every row")
	postsResetCmd.Flags().String("status", "", "Delete rows with this status")
	postsResetCmd.Flags().String("product", "", "Delete rows for this product")
	postsResetCmd.Flags().Bool("yes", false, "Confirm --all")
	postsResetCmd.Flags().Bool("dry-run", false, "Report how many rows would be deleted")

	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsResetCmd)
	rootCmd.AddCommand(postsCmd)
}
