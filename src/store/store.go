// Package store defines the interface for persistent data storage.
package store

import (
	"context"
	"fmt"

	"hookstat/src/contracts"
)

// Store persists run bookkeeping and the findings of finished runs.
type Store interface {
	// CreateRun creates a pending run record
	CreateRun(ctx context.Context, runID string, source string) error

	// GetRunStatus returns the status of a run
	GetRunStatus(ctx context.Context, runID string) (*contracts.RunStatus, error)

	// UpdateRunStatus updates the status of a run
	UpdateRunStatus(ctx context.Context, status *contracts.RunStatus) error

	// SaveFindings appends the findings of one analysis, preserving order
	SaveFindings(ctx context.Context, runID string, analysis string, findings []contracts.Finding) error

	// GetFindings retrieves all findings for a run, ordered by analysis then rank
	GetFindings(ctx context.Context, runID string) ([]contracts.Finding, error)

	// GetFinding retrieves one finding by analysis and rank
	GetFinding(ctx context.Context, runID string, analysis string, rank int) (contracts.Finding, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a run or finding does not exist.
type ErrNotFound struct {
	RunID    string
	Analysis string
	Rank     int
}

func (e ErrNotFound) Error() string {
	if e.Analysis != "" {
		return fmt.Sprintf("finding not found: run_id=%s, analysis=%s, rank=%d", e.RunID, e.Analysis, e.Rank)
	}
	return fmt.Sprintf("run not found: %s", e.RunID)
}
