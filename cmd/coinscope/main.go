// Package main provides the coinscope command line.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/coinscope/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coinscope",
		Short: "Compare density-of-states estimators on the coin flip model",
		Long: `coinscope estimates the probability of every head count in a sequence
of N fair coins with three Monte Carlo estimators (Wang-Landau 1/t,
entropic sampling and direct sampling) and compares them with the exact
binomial distribution.

Configuration is read from ~/.coinscope/config.yaml and COINSCOPE_*
environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.coinscope/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig resolves the configuration for cmd and sets up logging from it.
// It returns the config file path that should be watched for changes.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		path = config.Path()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	setupLogging(cfg.Logging.Level, debug)
	return cfg, path, nil
}

// setupLogging writes human-readable logs to stderr; stdout is reserved for
// command output.
func setupLogging(level string, debug bool) {
	switch {
	case debug || level == "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case level == "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coinscope version %s\n", Version)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", path)
			_, err = out.Write(data)
			return err
		},
	}
}
