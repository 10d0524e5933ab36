package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hookstat/src/config"
	"hookstat/src/dispatch"
	"hookstat/src/pipeline"
	"hookstat/src/sink"
)

// reportFlags are shared by the commands that produce reports.
type reportFlags struct {
	locations string
	analyses  string
	format    string
	output    string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.locations, "locations", "l", "", "Location table (JSON array of sites); defaults to the config")
	cmd.Flags().StringVarP(&f.analyses, "analysis", "a", "", "Comma-separated analyses to run (default: all enabled)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: text, json or sarif (default: config or text)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the report to a file instead of stdout")
}

func (f *reportFlags) analysisNames() []string {
	var names []string
	for _, name := range strings.Split(f.analyses, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// writer opens the report destination. The returned close function must be called.
func (f *reportFlags) writer(cmd *cobra.Command, cfg *config.Config, runID string) (*sink.Writer, func() error, error) {
	format, err := sink.ParseFormat(firstNonEmpty(f.format, cfg.Format))
	if err != nil {
		return nil, nil, &UserError{Message: "Invalid output format", Hint: "Use --format text, json or sarif.", Err: err}
	}

	var out io.Writer = cmd.OutOrStdout()
	closeFn := func() error { return nil }
	if path := firstNonEmpty(f.output, cfg.Output); path != "" && path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		out, closeFn = file, file.Close
	}

	return &sink.Writer{
		Out:     out,
		Format:  format,
		Color:   out == os.Stdout && !color.NoColor,
		Version: version,
		RunID:   runID,
	}, closeFn, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	runFlags   reportFlags
	runTrace   string
	runRunID   string
	runPersist bool
)

// runCmd analyses a trace file in-process
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyse a trace file",
	Long: `Analyse a recorded event trace in-process and write one report per analysis.

The trace is newline-delimited JSON (.json, .ndjson, '-' for stdin) or a
msgpack stream (.msgpack, .mpk). The run finishes at the endExecution event or
at the end of the file; events after endExecution are counted as late.

Example:
  hookstat run --trace trace.ndjson --locations sites.json --format sarif -o findings.sarif`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		log := newLogger()
		p, err := pipeline.New(ctx, appConfig, log)
		if err != nil {
			return wrapError("failed to start pipeline", err)
		}
		defer p.Close()

		id := firstNonEmpty(runRunID, appConfig.RunID)
		if id == "" {
			id = pipeline.NewRunID()
		}

		w, closeOut, err := runFlags.writer(cmd, appConfig, id)
		if err != nil {
			return err
		}
		defer closeOut()

		res, err := p.RunTrace(ctx, runTrace, pipeline.RunOptions{
			RunID:     id,
			Analyses:  runFlags.analysisNames(),
			Locations: runFlags.locations,
			Sink:      w,
			Persist:   runPersist || p.Mode() == pipeline.DistributedMode,
		})
		if err != nil {
			return wrapError("run failed", err)
		}

		log.Info("[CLI] Run %s finished: %d reports, %d events accepted", res.RunID, len(res.Reports), res.Diagnostics.Counters[dispatch.CounterAccepted])
		return nil
	},
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().StringVarP(&runTrace, "trace", "t", "", "Trace file to analyse ('-' for stdin)")
	runCmd.Flags().StringVar(&runRunID, "run-id", "", "Run id (default: generated)")
	runCmd.Flags().BoolVar(&runPersist, "store", false, "Persist findings and run status in the store")
	runCmd.MarkFlagRequired("trace")
}
