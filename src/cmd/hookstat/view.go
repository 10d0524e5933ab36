package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hookstat/src/analyses"
	"hookstat/src/contracts"
	"hookstat/src/pipeline"
	"hookstat/src/sink"
	"hookstat/src/tui"
)

var (
	viewReport  string
	viewRunID   string
	statusRunID string
)

// loadReportFile returns the run id and findings of a JSON report written by 'hookstat run --format json'.
func loadReportFile(path string) (string, []contracts.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	env, err := sink.ReadEnvelope(f)
	if err != nil {
		return "", nil, err
	}

	var findings []contracts.Finding
	for _, rep := range env.Reports {
		findings = append(findings, rep.Findings...)
	}
	return env.RunID, findings, nil
}

// loadStoredFindings returns the findings persisted for a run.
func loadStoredFindings(ctx context.Context, runID string) ([]contracts.Finding, error) {
	p, err := pipeline.New(ctx, appConfig, newLogger())
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Store().GetFindings(ctx, runID)
}

// viewCmd displays findings in the TUI
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse findings in the terminal viewer",
	Long: `Open the findings of a run in an interactive viewer.

Findings come from a JSON report file (--report) or, with POSTGRES_DSN set,
from the store (--run-id).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		var (
			runID    string
			findings []contracts.Finding
			err      error
		)
		switch {
		case viewReport != "":
			runID, findings, err = loadReportFile(viewReport)
		case firstNonEmpty(viewRunID, appConfig.RunID) != "":
			runID = firstNonEmpty(viewRunID, appConfig.RunID)
			findings, err = loadStoredFindings(ctx, runID)
		default:
			return &UserError{
				Message: "Nothing to view",
				Hint:    "Pass --report FILE (from 'hookstat run --format json') or --run-id ID.",
			}
		}
		if err != nil {
			return wrapError("failed to load findings", err)
		}

		if len(findings) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No findings for run %s\n", runID)
			return nil
		}

		title := "hookstat"
		if runID != "" {
			title += " · " + runID
		}
		return tui.Start(title, findings)
	},
}

// statusCmd shows run status
var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the status of a run",
	Long:  `Query the store for the status of a run. Needs POSTGRES_DSN for runs of other processes.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := statusRunID
		if len(args) == 1 {
			id = args[0]
		}
		id, err := requireRun(id)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		p, err := pipeline.New(ctx, appConfig, newLogger())
		if err != nil {
			return wrapError("failed to start pipeline", err)
		}
		defer p.Close()

		status, err := p.Store().GetRunStatus(ctx, id)
		if err != nil {
			return wrapError("failed to get status", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run ID:          %s\n", status.RunID)
		fmt.Fprintf(out, "Source:          %s\n", status.Source)
		fmt.Fprintf(out, "Status:          %s\n", status.Status)
		fmt.Fprintf(out, "Events accepted: %d\n", status.EventsAccepted)
		fmt.Fprintf(out, "Events dropped:  %d\n", status.EventsDropped)
		fmt.Fprintf(out, "Findings:        %d\n", status.FindingsCount)
		return nil
	},
}

// analysesCmd lists the built-in analyses
var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "List the built-in analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tENABLED\tDESCRIPTION")
		for _, b := range analyses.List() {
			enabled := "yes"
			if !appConfig.Enabled(b.Name) {
				enabled = "no"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, enabled, b.Description)
		}
		return tw.Flush()
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewReport, "report", "r", "", "JSON report file to view")
	viewCmd.Flags().StringVar(&viewRunID, "run-id", "", "Run whose stored findings to view")
	statusCmd.Flags().StringVar(&statusRunID, "run-id", "", "Run to query")
}
