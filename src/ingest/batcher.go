package ingest

import (
	"context"
	"fmt"
	"io"

	"hookstat/src/broker"
	"hookstat/src/codec"
	"hookstat/src/contracts"
	"hookstat/src/logger"
)

// DefaultBatchSize is the number of events per published batch.
const DefaultBatchSize = 1000

// BatchEvents splits events into batches of at most size events.
// Batches are numbered from 0 and keep the event order.
func BatchEvents(runID string, events []contracts.Event, size int) []contracts.EventBatch {
	if len(events) == 0 {
		return []contracts.EventBatch{}
	}
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([]contracts.EventBatch, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		end := min(start+size, len(events))
		batch := make([]contracts.Event, end-start)
		copy(batch, events[start:end])
		batches = append(batches, contracts.EventBatch{
			RunID:  runID,
			Seq:    int64(len(batches)),
			Events: batch,
		})
	}
	return batches
}

// FormatBatchInfo returns a human-readable summary of a batch.
func FormatBatchInfo(b contracts.EventBatch) string {
	if len(b.Events) == 0 {
		return fmt.Sprintf("Batch %d: empty", b.Seq)
	}
	return fmt.Sprintf("Batch %d: %d events (%s iid=%d .. %s iid=%d)",
		b.Seq,
		len(b.Events),
		b.Events[0].Kind, b.Events[0].IID,
		b.Events[len(b.Events)-1].Kind, b.Events[len(b.Events)-1].IID)
}

// Publisher replays a trace onto the events topic.
type Publisher struct {
	broker    broker.Broker
	codec     codec.Format
	batchSize int
	logger    logger.Logger
}

// NewPublisher creates a publisher. A batchSize of zero uses DefaultBatchSize.
func NewPublisher(brk broker.Broker, wire codec.Format, batchSize int, log logger.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if wire == "" {
		wire = codec.JSON
	}
	return &Publisher{broker: brk, codec: wire, batchSize: batchSize, logger: log}
}

// PublishTrace streams the trace in r as batches keyed by runID.
// An end signal is appended when the trace does not finish with one.
func (p *Publisher) PublishTrace(ctx context.Context, runID string, r io.Reader, f codec.Format) (int64, error) {
	var (
		pending []contracts.Event
		seq     int64
		last    contracts.EventKind
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := contracts.EventBatch{RunID: runID, Seq: seq, Events: pending}
		if err := p.publish(ctx, batch); err != nil {
			return err
		}
		seq++
		pending = make([]contracts.Event, 0, p.batchSize)
		return nil
	}

	n, err := ReadTrace(ctx, r, f, func(ev contracts.Event) error {
		pending = append(pending, ev)
		last = ev.Kind
		if len(pending) >= p.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	if last != contracts.KindEndExecution {
		p.logger.Debug("[Publisher] Trace has no end signal, appending one")
		pending = append(pending, contracts.Event{Kind: contracts.KindEndExecution})
	}
	if err := flush(); err != nil {
		return n, err
	}

	p.logger.Info("[Publisher] Published %d events in %d batches for run %s", n, seq, runID)
	return n, nil
}

func (p *Publisher) publish(ctx context.Context, batch contracts.EventBatch) error {
	data, err := codec.Marshal(p.codec, batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	// run id as key keeps one run on one partition, in order
	if err := p.broker.Publish(ctx, contracts.TopicEvents, batch.RunID, data); err != nil {
		return fmt.Errorf("failed to publish batch %d: %w", batch.Seq, err)
	}

	p.logger.Debug("[Publisher] Published %s", FormatBatchInfo(batch))
	return nil
}
