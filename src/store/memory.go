// Package store provides an in-memory store implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"hookstat/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Used for local runs, the MCP server and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*contracts.RunStatus
	findings map[string][]contracts.Finding // runID -> findings
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]*contracts.RunStatus),
		findings: make(map[string][]contracts.Finding),
	}
}

// CreateRun creates a pending run record. Creating an existing run is a no-op.
func (s *MemoryStore) CreateRun(ctx context.Context, runID string, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return nil
	}
	s.runs[runID] = &contracts.RunStatus{
		RunID:  runID,
		Source: source,
		Status: contracts.RunPending,
	}
	return nil
}

// GetRunStatus returns the status of a run.
func (s *MemoryStore) GetRunStatus(ctx context.Context, runID string) (*contracts.RunStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.runs[runID]
	if !exists {
		return nil, ErrNotFound{RunID: runID}
	}

	// Return a copy
	statusCopy := *status
	return &statusCopy, nil
}

// UpdateRunStatus updates the status of a run.
func (s *MemoryStore) UpdateRunStatus(ctx context.Context, status *contracts.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.runs[status.RunID]
	if !exists {
		return ErrNotFound{RunID: status.RunID}
	}

	updated := *status
	if updated.Source == "" {
		updated.Source = existing.Source
	}
	s.runs[status.RunID] = &updated
	return nil
}

// SaveFindings appends the findings of one analysis.
func (s *MemoryStore) SaveFindings(ctx context.Context, runID string, analysis string, findings []contracts.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range findings {
		f.Analysis = analysis
		s.findings[runID] = append(s.findings[runID], f)
	}
	return nil
}

// GetFindings retrieves all findings for a run.
func (s *MemoryStore) GetFindings(ctx context.Context, runID string) ([]contracts.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	findings, exists := s.findings[runID]
	if !exists {
		if _, known := s.runs[runID]; known {
			return []contracts.Finding{}, nil
		}
		return nil, ErrNotFound{RunID: runID}
	}

	// Return a copy
	result := make([]contracts.Finding, len(findings))
	copy(result, findings)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Analysis != result[j].Analysis {
			return result[i].Analysis < result[j].Analysis
		}
		return result[i].Rank < result[j].Rank
	})
	return result, nil
}

// GetFinding retrieves one finding by analysis and rank.
func (s *MemoryStore) GetFinding(ctx context.Context, runID string, analysis string, rank int) (contracts.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.findings[runID] {
		if f.Analysis == analysis && f.Rank == rank {
			return f, nil
		}
	}
	return contracts.Finding{}, ErrNotFound{RunID: runID, Analysis: analysis, Rank: rank}
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
