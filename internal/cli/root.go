// Package cli wires the conductor command surface: the `release` and
// `status` subcommands, global flags, and the charmbracelet logger each
// command shares.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/opsconductor/conductor/internal/config"
)

var (
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	cfgFile  string
	noColor  bool
	logLevel string

	cfg    *config.Config
	logger *log.Logger
)

// SetVersionInfo records the version metadata ldflags injects at build
// time, for the `version` command.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Orchestrates multi-package release pipelines",
	Long: `conductor drives a downstream package fleet through a two-phase
build-then-publish release, dispatching workflows on the configured
workflow host, polling them to completion, and persisting progress to an
object store under a distributed lock so the run can resume safely after
an interruption.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command without an externally supplied context.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under ctx, so a caller's signal
// handling can cancel an in-flight release.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: release.config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(statusCmd)
}

func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	if noColor || !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	configureLogLevel()
	return nil
}

func configureLogLevel() {
	level := logLevel
	if level == "" || level == "info" {
		level = cfg.Output.LogLevel
	}
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// Cleanup releases any resources root-level state holds open. conductor
// currently has none, but the hook stays for symmetry with the rest of
// the CLI lifecycle main.go drives.
func Cleanup() {}

// exitCode carries the process exit status a subcommand's RunE computed,
// since cobra only propagates an error, not a code. main.go reads it
// after ExecuteContext returns.
var exitCode int

// ExitCode returns the exit code the last-run subcommand recorded, or 0
// if none did (cobra usage errors, `version`, `help`).
func ExitCode() int { return exitCode }

func setExitCode(code int) { exitCode = code }

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("conductor %s (commit %s, built %s)\n", versionInfo.Version, versionInfo.Commit, versionInfo.Date)
	},
}
