package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Long:        "Print version information. Use --extended for commit, build date, and Go version.",
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		extended, _ := cmd.Flags().GetBool("extended")
		out := cmd.OutOrStdout()

		if !extended {
			_, err := fmt.Fprintf(out, "%s %s\n", binaryName, versionInfo.Version)
			return err
		}

		lines := []string{
			fmt.Sprintf("%s %s", binaryName, versionInfo.Version),
			"",
			fmt.Sprintf("Commit:   %s", versionInfo.Commit),
			fmt.Sprintf("Built:    %s", versionInfo.BuildDate),
			fmt.Sprintf("Go:       %s", runtime.Version()),
			fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH),
		}
		_, err := fmt.Fprint(out, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("extended", "e", false, "show extended version information")
}
