package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/ailink/driver"
	"github.com/reelkit/reelkit/internal/config"
	"github.com/reelkit/reelkit/internal/observability"
)

const binaryName = "reelkit"

// skipConfigAnnotation marks commands that run without loading configuration.
const skipConfigAnnotation = "reelkit/skip-config"

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// appConfig is loaded in PersistentPreRunE.
	appConfig *config.Config
	tracer    *driver.Tracer

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Affiliate short-video content generator and posting scheduler",
	Long: `reelkit generates short-video scripts for affiliate products with an AI model,
stores them as content batches, and posts them on a schedule through a
rate-limited retry path.

Use the subcommands to perform specific operations.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  initRuntime,
	PersistentPostRunE: closeRuntime,
}

// Execute runs the root command. main maps the returned error to an exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/reelkit/reelkit.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace AI requests/responses to NDJSON file")
}

// initRuntime loads .env files and configuration, then initializes logging.
func initRuntime(cmd *cobra.Command, args []string) error {
	observability.InitCLILogger(binaryName, verbose)

	if err := config.LoadDotEnv(); err != nil {
		observability.CLILogger.Warn("Failed to load .env", zap.Error(err))
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	v, err := config.NewViper(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", used))
	} else {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg

	if traceFile != "" {
		t, err := driver.OpenTracer(traceFile)
		if err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			tracer = t
			observability.CLILogger.Debug("AI tracing enabled", zap.String("file", traceFile))
		}
	}
	return nil
}

func closeRuntime(cmd *cobra.Command, args []string) error {
	if tracer != nil {
		err := tracer.Close()
		tracer = nil
		return err
	}
	return nil
}
