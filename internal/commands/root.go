// Package commands implements the ratectl CLI
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/damon-houk/fintrack/internal/app"
	"github.com/damon-houk/fintrack/internal/config"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
)

// options are the persistent flags shared by every subcommand
type options struct {
	configPath  string
	dataDir     string
	ratesAPIURL string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "ratectl",
		Short: "Refresh and query stored exchange rates",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.ratesAPIURL, "rates-api-url", "", "rates API base URL (overrides RATES_API_URL)")

	rootCmd.AddCommand(
		newRefreshCommand(opts),
		newListCommand(opts),
		newResolveCommand(opts),
		newConvertCommand(opts),
	)

	return rootCmd
}

// open loads configuration and wires the application; callers must Close it
func (o *options) open(cmd *cobra.Command) (*app.App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.ratesAPIURL != "" {
		cfg.RatesAPIURL = o.ratesAPIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewJSONLogger(cmd.ErrOrStderr(), logger.ParseLevel(cfg.LogLevel))

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return a, nil
}
