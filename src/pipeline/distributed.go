package pipeline

import (
	"context"
	"fmt"

	"hookstat/src/dispatch"
	"hookstat/src/ingest"
)

// ConsumeResult is delivered by StartConsumer when the run ends.
type ConsumeResult struct {
	Result *Result
	Err    error
}

func (p *Pipeline) newAgent(opts RunOptions) (*ingest.Agent, *dispatch.Dispatcher, error) {
	if opts.RunID == "" {
		return nil, nil, fmt.Errorf("run id is required to consume events")
	}

	d, err := p.NewDispatcher(opts)
	if err != nil {
		return nil, nil, err
	}

	agent := ingest.NewAgent(p.broker, d, ingest.Options{
		RunID:   opts.RunID,
		Codec:   p.wireCodec(),
		Workers: p.cfg.Workers,
		Store:   p.store,
	}, p.logger)
	return agent, d, nil
}

// Consume analyses the run published on the events topic and returns once its
// end signal has been processed.
func (p *Pipeline) Consume(ctx context.Context, opts RunOptions) (*Result, error) {
	agent, d, err := p.newAgent(opts)
	if err != nil {
		return nil, err
	}

	reports, err := agent.Run(ctx)
	return &Result{RunID: opts.RunID, Reports: reports, Diagnostics: d.Diagnostics()}, err
}

// StartConsumer runs Consume in the background and returns once the consumer
// is subscribed, so callers can publish into the same broker.
func (p *Pipeline) StartConsumer(ctx context.Context, opts RunOptions) (<-chan ConsumeResult, error) {
	agent, d, err := p.newAgent(opts)
	if err != nil {
		return nil, err
	}

	done := make(chan ConsumeResult, 1)
	go func() {
		reports, err := agent.Run(ctx)
		done <- ConsumeResult{
			Result: &Result{RunID: opts.RunID, Reports: reports, Diagnostics: d.Diagnostics()},
			Err:    err,
		}
	}()

	select {
	case <-agent.Ready():
		return done, nil
	case res := <-done:
		return nil, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Publish replays the trace file at path onto the events topic under runID.
func (p *Pipeline) Publish(ctx context.Context, runID, path string) (int64, error) {
	if runID == "" {
		return 0, fmt.Errorf("run id is required to publish events")
	}

	r, f, err := ingest.OpenTrace(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	pub := ingest.NewPublisher(p.broker, p.wireCodec(), p.cfg.BatchSize, p.logger)
	return pub.PublishTrace(ctx, runID, r, f)
}
