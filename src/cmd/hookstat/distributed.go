package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hookstat/src/config"
	"hookstat/src/pipeline"
)

var (
	consumeFlags reportFlags
	consumeRunID string

	publishTrace string
	publishRunID string
)

// requireRun returns the run id from the flag or the environment.
func requireRun(flag string) (string, error) {
	id := firstNonEmpty(flag, appConfig.RunID)
	if id == "" {
		return "", &UserError{
			Message: "A run id is required",
			Hint:    fmt.Sprintf("Pass --run-id or set %s.", config.EnvRunID),
		}
	}
	return id, nil
}

func requireBroker(cmd string) error {
	if appConfig.Distributed() {
		return nil
	}
	return &UserError{
		Message: fmt.Sprintf("'%s' needs a broker", cmd),
		Hint:    fmt.Sprintf("Set %s, e.g. export %s=localhost:19092. Use 'hookstat run' to analyse a trace locally.", config.EnvBrokers, config.EnvBrokers),
	}
}

// consumeCmd drives one run from the events topic
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Analyse a run published on the broker",
	Long: `Consume the event batches of one run from the hookstat.events topic,
dispatch them to the analyses and finish at the endExecution event.
Findings are written like 'hookstat run' does, persisted to the store and
published on the hookstat.findings topic.

Requires REDPANDA_BROKERS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBroker("consume"); err != nil {
			return err
		}
		id, err := requireRun(consumeRunID)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		log := newLogger()
		p, err := pipeline.New(ctx, appConfig, log)
		if err != nil {
			return wrapError("failed to start pipeline", err)
		}
		defer p.Close()

		w, closeOut, err := consumeFlags.writer(cmd, appConfig, id)
		if err != nil {
			return err
		}
		defer closeOut()

		res, err := p.Consume(ctx, pipeline.RunOptions{
			RunID:     id,
			Analyses:  consumeFlags.analysisNames(),
			Locations: consumeFlags.locations,
			Sink:      w,
			Persist:   true,
		})
		if err != nil {
			return wrapError("consume failed", err)
		}

		log.Info("[CLI] Run %s consumed: %d reports", res.RunID, len(res.Reports))
		return nil
	},
}

// publishCmd replays a trace file onto the broker
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a trace file to the broker",
	Long: `Replay a recorded trace onto the hookstat.events topic in batches.
An endExecution event is appended when the trace has none, so a consumer
always finishes the run.

Requires REDPANDA_BROKERS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBroker("publish"); err != nil {
			return err
		}
		id, err := requireRun(publishRunID)
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

		n, err := p.Publish(ctx, id, publishTrace)
		if err != nil {
			return wrapError("publish failed", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Published %d events for run %s\n", n, id)
		fmt.Fprintf(cmd.OutOrStdout(), "Analyse them with: hookstat consume --run-id %s\n", id)
		return nil
	},
}

func init() {
	consumeFlags.register(consumeCmd)
	consumeCmd.Flags().StringVar(&consumeRunID, "run-id", "", "Run to consume (default: "+config.EnvRunID+")")

	publishCmd.Flags().StringVarP(&publishTrace, "trace", "t", "", "Trace file to publish ('-' for stdin)")
	publishCmd.Flags().StringVar(&publishRunID, "run-id", "", "Run id to publish under (default: "+config.EnvRunID+")")
	publishCmd.MarkFlagRequired("trace")
}
