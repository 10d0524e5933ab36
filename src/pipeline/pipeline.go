// Package pipeline wires the broker, store, analyses and sinks for a run.
// It is shared by the CLI and the MCP server.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"hookstat/src/analyses"
	"hookstat/src/broker"
	"hookstat/src/codec"
	"hookstat/src/config"
	"hookstat/src/dispatch"
	"hookstat/src/location"
	"hookstat/src/logger"
	"hookstat/src/sink"
	"hookstat/src/store"
)

// Mode is the deployment mode of a pipeline.
type Mode int

const (
	// LocalMode runs everything in one process with an in-memory broker and store.
	LocalMode Mode = iota
	// DistributedMode uses Redpanda for events and Postgres for findings when configured.
	DistributedMode
)

func (m Mode) String() string {
	if m == DistributedMode {
		return "distributed"
	}
	return "local"
}

// DetectMode selects distributed mode when brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if cfg.Distributed() {
		return DistributedMode
	}
	return LocalMode
}

// RunOptions select what one run analyses and where its findings go.
type RunOptions struct {
	// RunID identifies the run. Empty generates one.
	RunID string
	// Analyses names the analyses to run. Empty runs every enabled built-in.
	Analyses []string
	// Locations is the location table file. Empty falls back to the config.
	Locations string
	// Sink receives the reports, e.g. a sink.Writer.
	Sink sink.Sink
	// Persist also stores the findings under the run id.
	Persist bool
}

// Pipeline owns the broker and store of a process.
type Pipeline struct {
	cfg    *config.Config
	mode   Mode
	broker broker.Broker
	store  store.Store
	logger logger.Logger
}

// New creates a pipeline for cfg. In distributed mode it connects to the
// configured brokers and, when a DSN is set, to Postgres.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	p := &Pipeline{cfg: cfg, mode: DetectMode(cfg), logger: log}

	brk, err := broker.New(cfg.Brokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}
	p.broker = brk

	if cfg.PostgresDSN != "" {
		st, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			brk.Close()
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		p.store = st
	} else {
		p.store = store.NewMemoryStore()
	}

	log.Debug("[Pipeline] Running in %s mode", p.mode)
	return p, nil
}

// NewLocal creates a pipeline on an in-memory broker and store.
func NewLocal(cfg *config.Config, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		mode:   LocalMode,
		broker: broker.NewInMemoryBroker(),
		store:  store.NewMemoryStore(),
		logger: log,
	}
}

// Mode returns the deployment mode.
func (p *Pipeline) Mode() Mode { return p.mode }

// Broker returns the broker of the pipeline.
func (p *Pipeline) Broker() broker.Broker { return p.broker }

// Store returns the store of the pipeline.
func (p *Pipeline) Store() store.Store { return p.store }

// Close shuts down the broker and store.
func (p *Pipeline) Close() error {
	if err := p.broker.Close(); err != nil {
		return err
	}
	return p.store.Close()
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}

// BuildAnalyses returns the analyses to run with the config overrides applied.
// Explicitly named analyses run even when the config disables them.
func BuildAnalyses(cfg *config.Config, names []string) ([]dispatch.Analysis, error) {
	selected, err := analyses.Select(names)
	if err != nil {
		return nil, err
	}

	out := make([]dispatch.Analysis, 0, len(selected))
	for _, a := range selected {
		if len(names) == 0 && !cfg.Enabled(a.Name) {
			continue
		}
		rc, err := cfg.For(a.Name).Apply(a.Report)
		if err != nil {
			return nil, fmt.Errorf("invalid config for %s: %w", a.Name, err)
		}
		a.Report = rc
		out = append(out, a)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no analyses enabled")
	}
	return out, nil
}

// LoadLocations loads the location table at path. An empty path yields an
// empty table, so every finding gets the placeholder location.
func LoadLocations(path string) (*location.Table, error) {
	if path == "" {
		return location.Empty(), nil
	}
	return location.LoadTable(path)
}

// NewDispatcher builds a dispatcher for one run.
func (p *Pipeline) NewDispatcher(opts RunOptions) (*dispatch.Dispatcher, error) {
	list, err := BuildAnalyses(p.cfg, opts.Analyses)
	if err != nil {
		return nil, err
	}

	locPath := opts.Locations
	if locPath == "" {
		locPath = p.cfg.Locations
	}
	table, err := LoadLocations(locPath)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		p.logger.Info("[Pipeline] No location table loaded, findings will use placeholder locations")
	}

	return dispatch.New(list, dispatch.Options{
		Resolver: table,
		Sink:     p.sinkFor(opts),
		Logger:   p.logger,
	})
}

// sinkFor combines the caller's sink with persistence and, in distributed mode,
// publication of findings.
func (p *Pipeline) sinkFor(opts RunOptions) sink.Sink {
	var multi sink.Multi
	if opts.Sink != nil {
		multi = append(multi, opts.Sink)
	}
	if opts.Persist {
		multi = append(multi, &sink.Store{Store: p.store, RunID: opts.RunID})
	}
	if p.mode == DistributedMode {
		multi = append(multi, &sink.Broker{Broker: p.broker, RunID: opts.RunID, Codec: p.wireCodec()})
	}

	switch len(multi) {
	case 0:
		return nil
	case 1:
		return multi[0]
	default:
		return multi
	}
}

func (p *Pipeline) wireCodec() codec.Format {
	f, err := codec.ParseFormat(p.cfg.Codec)
	if err != nil {
		return codec.JSON
	}
	return f
}
