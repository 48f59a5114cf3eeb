package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bissquit/scorecard-report/internal/app"
	"github.com/bissquit/scorecard-report/internal/config"
	"github.com/bissquit/scorecard-report/internal/version"
)

type rootFlags struct {
	days       int
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "scorecard-report",
		Short: "Correlate public incidents with service scorecards",
		Long: "scorecard-report fetches public incidents from incident.io for a lookback window,\n" +
			"matches the impacted services against Cortex scorecards and prints a ranked report.",
		Example: "  scorecard-report              # default 30-day lookback\n" +
			"  scorecard-report --days 7     # look back 7 days",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.days, "days", 0, "Number of days to look back for incidents (default from config, 30)")
	f.StringVar(&flags.configPath, "config", "", "Path to a YAML configuration file")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&flags.logFormat, "log-format", "", "Log format: text, json")

	cmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.GitCommit, version.BuildDate)

	return cmd
}

func runReport(cmd *cobra.Command, flags rootFlags) error {
	if cmd.Flags().Changed("days") && flags.days <= 0 {
		return fmt.Errorf("%w: --days must be positive, got %d", config.ErrInvalidConfig, flags.days)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return a.Run(cmd.Context(), flags.days)
}

// errorMessage formats err for the terminal, distinguishing configuration
// problems from runtime failures.
func errorMessage(err error) string {
	if errors.Is(err, config.ErrInvalidConfig) {
		return "configuration error: " + err.Error()
	}
	return "error: " + err.Error()
}
