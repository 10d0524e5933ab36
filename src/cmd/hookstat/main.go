// Package main provides the hookstat command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hookstat/src/config"
	"hookstat/src/logger"
)

var (
	appConfig *config.Config
	verbose   bool
	version   = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hookstat",
	Short: "hookstat - runtime event analysis for instrumented programs",
	Long: `hookstat consumes the execution events emitted by an instrumentation
engine, correlates them with source locations and reports ranked findings
per analysis.

It supports two modes:
- Local Mode: trace files analysed in-process (default)
- Distributed Mode: events published to and consumed from Redpanda, findings in Postgres

Mode is auto-detected based on the REDPANDA_BROKERS environment variable.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return &UserError{
				Message: "Invalid configuration",
				Hint:    "Check .hookstat.yaml in the working directory.",
				Err:     err,
			}
		}
		appConfig = cfg
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newLogger() logger.Logger {
	return logger.NewConsoleLogger(verbose)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(analysesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hookstat version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hookstat %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ue *UserError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
