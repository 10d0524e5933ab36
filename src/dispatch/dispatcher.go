// Package dispatch routes events to the registered analyses for one run.
//
// A Dispatcher moves through Idle, Running, Finalizing and Done. Events are
// accepted while Idle or Running; Finish or Abort seals every analysis store,
// builds the reports and hands them to the sink.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"hookstat/src/classify"
	"hookstat/src/contracts"
	"hookstat/src/location"
	"hookstat/src/logger"
	"hookstat/src/report"
	"hookstat/src/sink"
	"hookstat/src/stats"
)

// State is the lifecycle state of a Dispatcher.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Analysis is one registered analysis: its classifiers and how it is reported.
type Analysis struct {
	Name        string
	Classifiers *classify.Registry
	Report      report.Config
}

// Options configure a Dispatcher.
type Options struct {
	Resolver location.Resolver
	Sink     sink.Sink
	Logger   logger.Logger
	// RecentDiagnostics caps the diagnostic entries kept in memory. Zero means 256.
	RecentDiagnostics int
}

type analysisRun struct {
	def   Analysis
	store *stats.Store
}

// Dispatcher classifies events and aggregates them per analysis.
// Dispatch is safe for concurrent use.
type Dispatcher struct {
	// mu is held shared by Dispatch and exclusively by state transitions,
	// so Finish waits for in-flight events before sealing the stores.
	mu        sync.RWMutex
	state     atomic.Int32
	discarded bool

	analyses []*analysisRun
	builder  report.Builder
	sink     sink.Sink
	log      logger.Logger
	diag     *Diagnostics
	accepted atomic.Int64
}

// New creates an idle dispatcher. Analysis names must be unique.
func New(analyses []Analysis, opts Options) (*Dispatcher, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewSilentLogger()
	}

	d := &Dispatcher{
		builder: report.Builder{Resolver: opts.Resolver, Logger: log},
		sink:    opts.Sink,
		log:     log,
		diag:    newDiagnostics(opts.RecentDiagnostics),
	}

	seen := make(map[string]bool, len(analyses))
	for _, a := range analyses {
		if a.Name == "" {
			return nil, fmt.Errorf("analysis name is required")
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate analysis: %s", a.Name)
		}
		if a.Classifiers == nil {
			return nil, fmt.Errorf("analysis %s has no classifiers", a.Name)
		}
		seen[a.Name] = true
		d.analyses = append(d.analyses, &analysisRun{def: a, store: stats.NewStore()})
	}

	return d, nil
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Start moves an idle dispatcher to Running.
func (d *Dispatcher) Start() error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("cannot start dispatcher in state %s", d.State())
	}
	d.log.Debug("[Dispatcher] Started with %d analyses", len(d.analyses))
	return nil
}

// Dispatch classifies ev against every analysis and applies the interesting results.
// The event is fully applied when Dispatch returns. Classifier failures are
// recorded as diagnostics and do not fail the call. The end signal is accepted
// and ignored; callers end the run with Finish.
func (d *Dispatcher) Dispatch(ctx context.Context, ev contracts.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.discarded {
		panic(ErrDiscarded)
	}

	d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning))
	if d.State() >= StateFinalizing {
		d.diag.record(CounterLateEvents, report.Diagnostic{
			Kind:    report.DiagLateEvent,
			IID:     ev.IID,
			Message: fmt.Sprintf("%s event after end of execution", ev.Kind),
		})
		d.log.Error("[Dispatcher] Late %s event iid=%d dropped", ev.Kind, ev.IID)
		return ErrLateEvent
	}

	if err := ev.Validate(); err != nil {
		d.diag.record(CounterInvalidEvents, report.Diagnostic{
			Kind:    report.DiagInvalidEvent,
			IID:     ev.IID,
			Message: err.Error(),
		})
		d.log.Error("[Dispatcher] Invalid event iid=%d: %v", ev.IID, err)
		return fmt.Errorf("invalid event: %w", err)
	}

	if ev.Kind == contracts.KindEndExecution {
		return nil
	}

	for _, a := range d.analyses {
		for _, c := range a.def.Classifiers.For(ev.Kind) {
			key, ok, err := runClassifier(a.def.Name, c, ev)
			if err != nil {
				d.diag.record(CounterClassifierErrors, report.Diagnostic{
					Kind:     report.DiagClassifierError,
					Analysis: a.def.Name,
					IID:      ev.IID,
					Message:  err.Error(),
				})
				d.log.Error("[Dispatcher] %v", err)
				continue
			}
			if !ok {
				continue
			}
			if key.Analysis == "" {
				key.Analysis = a.def.Name
			}
			a.store.Increment(key)
		}
	}

	d.accepted.Add(1)
	return nil
}

// runClassifier calls c, turning errors and panics into a ClassifierError.
func runClassifier(analysis string, c classify.Classifier, ev contracts.Event) (key contracts.Key, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			key, ok = contracts.Key{}, false
			err = &ClassifierError{Analysis: analysis, Kind: ev.Kind, IID: ev.IID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	key, ok, err = c(ev)
	if err != nil {
		return contracts.Key{}, false, &ClassifierError{Analysis: analysis, Kind: ev.Kind, IID: ev.IID, Err: err}
	}
	return key, ok, nil
}

// Finish ends the run: it waits for in-flight events, seals every store,
// builds each report and delivers it to the sink in registration order.
// A second call returns ErrAlreadyFinished.
func (d *Dispatcher) Finish(ctx context.Context) ([]report.Report, error) {
	return d.finish(ctx, nil)
}

// Abort ends the run early, e.g. when the target crashed or ctx was cancelled.
// The cause is recorded as a diagnostic and the reports are built from what was accumulated.
func (d *Dispatcher) Abort(ctx context.Context, cause error) ([]report.Report, error) {
	if cause == nil {
		cause = errors.New("aborted")
	}
	return d.finish(ctx, cause)
}

func (d *Dispatcher) finish(ctx context.Context, cause error) ([]report.Report, error) {
	d.mu.Lock()
	if d.discarded {
		d.mu.Unlock()
		panic(ErrDiscarded)
	}
	if d.State() >= StateFinalizing {
		d.mu.Unlock()
		return nil, ErrAlreadyFinished
	}
	d.state.Store(int32(StateFinalizing))
	d.mu.Unlock()

	if cause != nil {
		d.diag.record("", report.Diagnostic{Kind: report.DiagAbort, Message: cause.Error()})
		d.log.Error("[Dispatcher] Run aborted: %v", cause)
	}

	runDiag := d.diag.Snapshot().Recent
	reports := make([]report.Report, 0, len(d.analyses))
	var errs []error

	for _, a := range d.analyses {
		a.store.Seal()

		rep, err := d.builder.Build(a.def.Name, a.store.Snapshot(), a.def.Report)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to build %s report: %w", a.def.Name, err))
			continue
		}
		for _, diag := range rep.Diagnostics {
			d.diag.record(CounterUnknownLocations, diag)
		}
		rep.Diagnostics = append(diagnosticsFor(runDiag, a.def.Name), rep.Diagnostics...)

		if d.sink != nil {
			if err := sink.Deliver(ctx, d.sink, rep); err != nil {
				errs = append(errs, fmt.Errorf("failed to deliver %s report: %w", a.def.Name, err))
			}
		}
		reports = append(reports, rep)
	}

	if d.sink != nil {
		if err := sink.Flush(d.sink); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush sink: %w", err))
		}
	}

	d.state.Store(int32(StateDone))
	d.log.Info("[Dispatcher] Run finished: %d events accepted, %d reports", d.accepted.Load(), len(reports))

	return reports, errors.Join(errs...)
}

// diagnosticsFor selects the run-wide entries and those belonging to analysis.
func diagnosticsFor(all []report.Diagnostic, analysis string) []report.Diagnostic {
	var out []report.Diagnostic
	for _, diag := range all {
		if diag.Analysis == "" || diag.Analysis == analysis {
			out = append(out, diag)
		}
	}
	return out
}

// Diagnostics returns the counters and recent diagnostic entries.
func (d *Dispatcher) Diagnostics() DiagnosticsSnapshot {
	snap := d.diag.Snapshot()
	snap.Counters[CounterAccepted] = d.accepted.Load()
	return snap
}

// Note records a diagnostic observed outside the dispatcher, e.g. by the
// transport feeding it. counter may be empty.
func (d *Dispatcher) Note(counter string, diag report.Diagnostic) {
	d.diag.record(counter, diag)
}

// Accepted returns the number of events applied so far.
func (d *Dispatcher) Accepted() int64 {
	return d.accepted.Load()
}

// Store returns the stat store of an analysis.
func (d *Dispatcher) Store(analysis string) (*stats.Store, bool) {
	for _, a := range d.analyses {
		if a.def.Name == analysis {
			return a.store, true
		}
	}
	return nil, false
}

// Discard releases the stores of a finished dispatcher. Any later use panics.
func (d *Dispatcher) Discard() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() != StateDone {
		return fmt.Errorf("cannot discard dispatcher in state %s", d.State())
	}
	d.discarded = true
	d.analyses = nil
	return nil
}
