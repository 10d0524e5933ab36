package sink

import (
	"context"
	"fmt"

	"hookstat/src/broker"
	"hookstat/src/codec"
	"hookstat/src/contracts"
	"hookstat/src/store"
)

// Store persists findings under a run id.
type Store struct {
	Store store.Store
	RunID string
}

// Accept implements Sink.
func (s *Store) Accept(ctx context.Context, analysis string, findings []contracts.Finding) error {
	if err := s.Store.SaveFindings(ctx, s.RunID, analysis, findings); err != nil {
		return fmt.Errorf("failed to persist %s findings: %w", analysis, err)
	}
	return nil
}

// Broker publishes each finding as a FindingMessage keyed by run id.
type Broker struct {
	Broker broker.Broker
	RunID  string
	Codec  codec.Format
}

// Accept implements Sink.
func (b *Broker) Accept(ctx context.Context, analysis string, findings []contracts.Finding) error {
	for _, f := range findings {
		f.Analysis = analysis
		data, err := codec.Marshal(b.codec(), contracts.FindingMessage{RunID: b.RunID, Finding: f})
		if err != nil {
			return fmt.Errorf("failed to encode finding: %w", err)
		}
		if err := b.Broker.Publish(ctx, contracts.TopicFindings, b.RunID, data); err != nil {
			return fmt.Errorf("failed to publish finding: %w", err)
		}
	}
	return nil
}

func (b *Broker) codec() codec.Format {
	if b.Codec == "" {
		return codec.JSON
	}
	return b.Codec
}
