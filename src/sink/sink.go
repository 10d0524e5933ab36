// Package sink delivers finished reports to their consumers.
package sink

import (
	"context"
	"errors"
	"slices"
	"sync"

	"hookstat/src/contracts"
	"hookstat/src/report"
)

// Sink accepts the findings of one analysis. Implementations must keep the given order.
type Sink interface {
	Accept(ctx context.Context, analysis string, findings []contracts.Finding) error
}

// ReportSink is implemented by sinks that want the whole report (summary, coverage, diagnostics).
type ReportSink interface {
	AcceptReport(ctx context.Context, rep report.Report) error
}

// Flusher is implemented by sinks that buffer output until the run ends.
type Flusher interface {
	Flush() error
}

// Deliver hands rep to s, using AcceptReport when s supports it.
func Deliver(ctx context.Context, s Sink, rep report.Report) error {
	if rs, ok := s.(ReportSink); ok {
		return rs.AcceptReport(ctx, rep)
	}
	return s.Accept(ctx, rep.Analysis, rep.Findings)
}

// Flush flushes s if it buffers.
func Flush(s Sink) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Memory keeps everything it receives. Used by tests, the MCP server and the TUI.
type Memory struct {
	mu      sync.Mutex
	reports []report.Report
}

// NewMemory creates an empty memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Accept records findings without summary information.
func (m *Memory) Accept(ctx context.Context, analysis string, findings []contracts.Finding) error {
	return m.AcceptReport(ctx, report.Report{Analysis: analysis, Findings: findings})
}

// AcceptReport records rep.
func (m *Memory) AcceptReport(ctx context.Context, rep report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rep.Findings = slices.Clone(rep.Findings)
	m.reports = append(m.reports, rep)
	return nil
}

// Reports returns the received reports in arrival order.
func (m *Memory) Reports() []report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.reports)
}

// Findings returns the findings received for analysis.
func (m *Memory) Findings(analysis string) []contracts.Finding {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []contracts.Finding
	for _, r := range m.reports {
		if r.Analysis == analysis {
			out = append(out, r.Findings...)
		}
	}
	return out
}

// Multi fans out to several sinks in order. Every sink is tried; errors are joined.
type Multi []Sink

// Accept implements Sink.
func (m Multi) Accept(ctx context.Context, analysis string, findings []contracts.Finding) error {
	var errs []error
	for _, s := range m {
		if err := s.Accept(ctx, analysis, findings); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AcceptReport implements ReportSink.
func (m Multi) AcceptReport(ctx context.Context, rep report.Report) error {
	var errs []error
	for _, s := range m {
		if err := Deliver(ctx, s, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush implements Flusher.
func (m Multi) Flush() error {
	var errs []error
	for _, s := range m {
		if err := Flush(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
