package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hookstat/src/codec"
	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/ingest"
	"hookstat/src/report"
)

// Result is the outcome of one run.
type Result struct {
	RunID       string
	Reports     []report.Report
	Diagnostics dispatch.DiagnosticsSnapshot
}

// RunTrace analyses the trace file at path in-process.
func (p *Pipeline) RunTrace(ctx context.Context, path string, opts RunOptions) (*Result, error) {
	r, f, err := ingest.OpenTrace(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return p.RunReader(ctx, path, r, f, opts)
}

// RunReader analyses a trace stream in-process. The run finishes at the end
// signal or at the end of the stream; events after the end signal are late.
// A decode error or cancellation aborts the run with best-effort reports.
func (p *Pipeline) RunReader(ctx context.Context, source string, r io.Reader, f codec.Format, opts RunOptions) (*Result, error) {
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}

	d, err := p.NewDispatcher(opts)
	if err != nil {
		return nil, err
	}

	if err := p.store.CreateRun(ctx, opts.RunID, source); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if err := d.Start(); err != nil {
		return nil, err
	}
	p.logger.Info("[Pipeline] Run %s: reading %s", opts.RunID, source)

	res := &Result{RunID: opts.RunID}
	status := contracts.RunCompleted

	var (
		ended     bool
		finishErr error
	)
	n, readErr := ingest.ReadTrace(ctx, r, f, func(ev contracts.Event) error {
		if !ended && ev.Kind == contracts.KindEndExecution {
			ended = true
			res.Reports, finishErr = d.Finish(ctx)
			return nil
		}
		// after the end signal Dispatch only counts late events
		if err := d.Dispatch(ctx, ev); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})

	switch {
	case ended:
		err = finishErr
		if readErr != nil {
			p.logger.Error("[Pipeline] Run %s: failed to read past end signal: %v", opts.RunID, readErr)
		}
	case readErr == nil:
		p.logger.Debug("[Pipeline] Run %s: trace ended without end signal after %d events", opts.RunID, n)
		res.Reports, err = d.Finish(ctx)
	default:
		status = contracts.RunAborted
		var abortErr error
		res.Reports, abortErr = d.Abort(context.WithoutCancel(ctx), readErr)
		err = errors.Join(fmt.Errorf("run %s aborted: %w", opts.RunID, readErr), abortErr)
	}

	res.Diagnostics = d.Diagnostics()
	rs := ingest.RunStatus(opts.RunID, "", status, res.Diagnostics, res.Reports)
	if statusErr := p.store.UpdateRunStatus(context.WithoutCancel(ctx), rs); statusErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to update run status: %w", statusErr))
	}

	p.logger.Info("[Pipeline] Run %s %s: %d events accepted, %d findings", opts.RunID, status, rs.EventsAccepted, rs.FindingsCount)
	return res, err
}
