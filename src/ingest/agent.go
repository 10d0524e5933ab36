// Package ingest feeds events into a dispatcher, from trace files or from the broker.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hookstat/src/broker"
	"hookstat/src/codec"
	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/logger"
	"hookstat/src/report"
	"hookstat/src/store"
)

// ConsumerGroup is the consumer group prefix of the ingest agent.
const ConsumerGroup = "hookstat-consume"

// GroupFor returns the consumer group of the agent consuming runID. Each run
// gets its own group so committed offsets of one run never hide another's batches.
func GroupFor(runID string) string {
	if runID == "" {
		return ConsumerGroup
	}
	return ConsumerGroup + "-" + runID
}

// ErrStreamClosed is the abort cause when the event stream ends without an end signal.
var ErrStreamClosed = errors.New("event stream closed before end of execution")

// Options configure an Agent.
type Options struct {
	// RunID selects the run to consume. Batches of other runs are skipped.
	RunID string
	// Codec is the wire format of event batches.
	Codec codec.Format
	// Workers is the number of batches dispatched concurrently. One keeps strict order.
	Workers int
	// Store records run status when set.
	Store store.Store
}

// Agent consumes event batches from the broker and drives one dispatcher to completion.
type Agent struct {
	broker     broker.Broker
	dispatcher *dispatch.Dispatcher
	opts       Options
	logger     logger.Logger
	ready      chan struct{}
	nextSeq    map[string]int64 // run id -> next expected batch
}

// NewAgent creates a new ingest agent.
func NewAgent(brk broker.Broker, d *dispatch.Dispatcher, opts Options, log logger.Logger) *Agent {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Codec == "" {
		opts.Codec = codec.JSON
	}
	return &Agent{
		broker:     brk,
		dispatcher: d,
		opts:       opts,
		logger:     log,
		ready:      make(chan struct{}),
		nextSeq:    make(map[string]int64),
	}
}

// Ready is closed once the agent is subscribed to the events topic.
func (a *Agent) Ready() <-chan struct{} {
	return a.ready
}

// Run consumes batches until the end signal arrives, then finishes the dispatcher.
// If ctx is cancelled or the stream closes first, the run is aborted and the
// partial reports are returned together with the cause.
func (a *Agent) Run(ctx context.Context) ([]report.Report, error) {
	a.logger.Info("[IngestAgent] Starting run %s...", a.opts.RunID)

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicEvents, GroupFor(a.opts.RunID))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicEvents, err)
	}

	if err := a.markRunning(ctx); err != nil {
		return nil, err
	}
	if err := a.dispatcher.Start(); err != nil {
		return nil, err
	}
	close(a.ready)

	a.logger.Info("[IngestAgent] Listening for events on '%s' topic (workers: %d)...", contracts.TopicEvents, a.opts.Workers)

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[IngestAgent] Message channel closed, aborting run")
				g.Wait()
				cause := ErrStreamClosed
				if ctx.Err() != nil {
					cause = ctx.Err()
				}
				return a.abort(ctx, cause)
			}

			batch, err := a.decode(msg)
			if err != nil {
				a.logger.Error("[IngestAgent] Error decoding batch: %v", err)
				continue
			}
			if a.opts.RunID != "" && batch.RunID != a.opts.RunID {
				a.logger.Debug("[IngestAgent] Skipping batch of run %s", batch.RunID)
				continue
			}
			if !a.inSequence(batch) {
				continue
			}

			events, tail, ended := splitAtEnd(batch.Events)
			if a.opts.Workers == 1 {
				if err := a.dispatchAll(ctx, events); err != nil {
					return a.abort(ctx, err)
				}
			} else {
				g.Go(func() error { return a.dispatchAll(ctx, events) })
			}
			a.logger.Debug("[IngestAgent] Accepted %s", FormatBatchInfo(batch))

			if !ended {
				continue
			}
			if err := g.Wait(); err != nil {
				return a.abort(ctx, err)
			}
			return a.finish(ctx, tail)

		case <-ctx.Done():
			a.logger.Info("[IngestAgent] Context cancelled, aborting run")
			g.Wait()
			return a.abort(ctx, ctx.Err())
		}
	}
}

func (a *Agent) decode(msg broker.Message) (contracts.EventBatch, error) {
	var batch contracts.EventBatch
	if err := codec.Unmarshal(a.opts.Codec, msg.Value, &batch); err != nil {
		return contracts.EventBatch{}, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return batch, nil
}

// inSequence reports whether batch is new for its run. Redelivered batches are
// dropped; a gap is recorded as a diagnostic and the batch is accepted.
func (a *Agent) inSequence(batch contracts.EventBatch) bool {
	next := a.nextSeq[batch.RunID]
	switch {
	case batch.Seq < next:
		a.dispatcher.Note(dispatch.CounterDuplicateBatches, report.Diagnostic{
			Kind:    report.DiagDuplicateBatch,
			Message: fmt.Sprintf("run %s: batch %d redelivered", batch.RunID, batch.Seq),
		})
		a.logger.Debug("[IngestAgent] Dropping redelivered batch %d of run %s", batch.Seq, batch.RunID)
		return false
	case batch.Seq > next:
		a.dispatcher.Note(dispatch.CounterBatchGaps, report.Diagnostic{
			Kind:    report.DiagBatchGap,
			Message: fmt.Sprintf("run %s: batch %d arrived, expected %d (%d missing)", batch.RunID, batch.Seq, next, batch.Seq-next),
		})
		a.logger.Error("[IngestAgent] Run %s: batches %d..%d missing", batch.RunID, next, batch.Seq-1)
	}
	a.nextSeq[batch.RunID] = batch.Seq + 1
	return true
}

// splitAtEnd separates the events before the end signal from those after it.
func splitAtEnd(events []contracts.Event) (before, after []contracts.Event, ended bool) {
	for i, ev := range events {
		if ev.Kind == contracts.KindEndExecution {
			return events[:i], events[i+1:], true
		}
	}
	return events, nil, false
}

// dispatchAll dispatches events in order. Only cancellation stops it;
// rejected events are already counted by the dispatcher.
func (a *Agent) dispatchAll(ctx context.Context, events []contracts.Event) error {
	for _, ev := range events {
		if err := a.dispatcher.Dispatch(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Debug("[IngestAgent] Event iid=%d rejected: %v", ev.IID, err)
		}
	}
	return nil
}

func (a *Agent) finish(ctx context.Context, tail []contracts.Event) ([]report.Report, error) {
	reports, err := a.dispatcher.Finish(ctx)

	// anything after the end signal is late by definition
	for _, ev := range tail {
		a.dispatcher.Dispatch(ctx, ev)
	}

	if statusErr := a.recordStatus(ctx, contracts.RunCompleted, reports); statusErr != nil {
		err = errors.Join(err, statusErr)
	}

	a.logger.Info("[IngestAgent] Completed run %s (%d events accepted)", a.opts.RunID, a.dispatcher.Accepted())
	return reports, err
}

func (a *Agent) abort(ctx context.Context, cause error) ([]report.Report, error) {
	// reports are still delivered after cancellation
	ctx = context.WithoutCancel(ctx)

	reports, err := a.dispatcher.Abort(ctx, cause)
	if statusErr := a.recordStatus(ctx, contracts.RunAborted, reports); statusErr != nil {
		err = errors.Join(err, statusErr)
	}
	return reports, errors.Join(fmt.Errorf("run %s aborted: %w", a.opts.RunID, cause), err)
}

func (a *Agent) markRunning(ctx context.Context) error {
	if a.opts.Store == nil {
		return nil
	}
	if err := a.opts.Store.CreateRun(ctx, a.opts.RunID, "broker"); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	if err := a.opts.Store.UpdateRunStatus(ctx, &contracts.RunStatus{RunID: a.opts.RunID, Status: contracts.RunRunning}); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

func (a *Agent) recordStatus(ctx context.Context, status string, reports []report.Report) error {
	if a.opts.Store == nil {
		return nil
	}
	rs := RunStatus(a.opts.RunID, "", status, a.dispatcher.Diagnostics(), reports)
	if err := a.opts.Store.UpdateRunStatus(ctx, rs); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// RunStatus summarizes a finished dispatcher for the run table.
func RunStatus(runID, source, status string, diag dispatch.DiagnosticsSnapshot, reports []report.Report) *contracts.RunStatus {
	rs := &contracts.RunStatus{
		RunID:          runID,
		Source:         source,
		Status:         status,
		EventsAccepted: diag.Counters[dispatch.CounterAccepted],
		EventsDropped:  diag.Counters[dispatch.CounterLateEvents] + diag.Counters[dispatch.CounterInvalidEvents],
	}
	for _, rep := range reports {
		rs.FindingsCount += len(rep.Findings)
	}
	return rs
}
