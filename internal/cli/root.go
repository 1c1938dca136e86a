// Package cli implements the tmuctl command line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jude-san/TMU-app/internal/model"
)

// Build information, injected via ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	jsonOutput bool
	verbose    bool

	// log is replaced with a real logger once flags are parsed.
	log = zap.NewNop().Sugar()
)

// NewRootCommand creates the root cobra command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tmuctl",
		Short: "Deploy and manage a containerized frontend + API stack",
		Long: `tmuctl renders container build recipes and an orchestration manifest
for a two-service web stack (static frontend served by nginx, Node API
backend) and drives its lifecycle through the Docker Engine.

The stack configuration lives in deploy.json at the project root. The
database is not managed here: the backend reads its connection string
from an environment file that never enters the generated artifacts.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger(verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewDownCommand())
	rootCmd.AddCommand(NewStartCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewDoctorCommand())

	return rootCmd
}

// initLogger configures the package logger. Diagnostics go to stderr so
// they never mix with JSON output on stdout.
func initLogger(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return
	}
	log = logger.Sugar()
}

// Execute runs the root command and exits with the appropriate code.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		_ = log.Sync()

		if cliErr, ok := err.(*model.CLIError); ok {
			os.Exit(int(cliErr.Code))
		}
		os.Exit(int(model.ExitGeneralError))
	}
	_ = log.Sync()
}

// printError prints an error to stderr, as JSON when --json is set.
func printError(err error) {
	if jsonOutput {
		output := map[string]interface{}{
			"error": err.Error(),
		}
		if cliErr, ok := err.(*model.CLIError); ok {
			output["code"] = int(cliErr.Code)
		}
		data, jsonErr := json.MarshalIndent(output, "", "  ")
		if jsonErr == nil {
			fmt.Fprintln(os.Stderr, string(data))
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// IsJSONOutput reports whether --json was requested.
func IsJSONOutput() bool {
	return jsonOutput
}
