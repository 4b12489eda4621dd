package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EngineState is the lifecycle of the shared local engine.
type EngineState int

const (
	EngineUninitialized EngineState = iota
	EngineInitializing
	EngineReady
	EngineFailed
)

func (s EngineState) String() string {
	switch s {
	case EngineUninitialized:
		return "uninitialized"
	case EngineInitializing:
		return "initializing"
	case EngineReady:
		return "ready"
	case EngineFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadProgress is reported while the engine loads.
type LoadProgress struct {
	Fraction float64
	Text     string
}

// Engine runs completions on-device. It handles one completion at a time.
type Engine interface {
	Stream(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error)
}

// EngineLoader creates an engine for a model. Load may be slow.
type EngineLoader interface {
	Load(ctx context.Context, model string, onProgress func(LoadProgress)) (Engine, error)
}

// AcceleratorProbe reports an error when hardware acceleration is unavailable.
type AcceleratorProbe func() error

// LocalConfig configures a LocalProvider.
type LocalConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// OnProgress receives load progress. Best-effort, never blocks loading.
	OnProgress func(LoadProgress)
}

// LocalProvider owns one lazily created engine. Concurrent callers share a
// single pending load; completions on the engine are serialized.
type LocalProvider struct {
	config LocalConfig
	loader EngineLoader
	probe  AcceleratorProbe
	logger Logger

	mu      sync.Mutex
	state   EngineState
	pending chan struct{}
	engine  Engine
	loadErr error

	run sync.Mutex
}

func NewLocalProvider(config LocalConfig, loader EngineLoader, probe AcceleratorProbe, logger Logger) *LocalProvider {
	if logger == nil {
		logger = nopLogger{}
	}
	if probe == nil {
		probe = func() error { return nil }
	}
	return &LocalProvider{config: config, loader: loader, probe: probe, logger: logger}
}

// State returns the current engine state.
func (p *LocalProvider) State() EngineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset clears a failed load so the next call retries it.
func (p *LocalProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == EngineFailed {
		p.state = EngineUninitialized
		p.loadErr = nil
	}
}

// Ensure returns the shared engine, starting the load on first use. The load
// itself is not tied to ctx; ctx only bounds how long this caller waits.
func (p *LocalProvider) Ensure(ctx context.Context) (Engine, error) {
	if err := p.probe(); err != nil {
		return nil, NewUnsupportedError("hardware acceleration is not available on this device", err)
	}

	for {
		p.mu.Lock()
		switch p.state {
		case EngineReady:
			engine := p.engine
			p.mu.Unlock()
			return engine, nil
		case EngineFailed:
			err := p.loadErr
			p.mu.Unlock()
			return nil, err
		case EngineUninitialized:
			p.state = EngineInitializing
			p.pending = make(chan struct{})
			go p.load(context.WithoutCancel(ctx), p.pending)
		}
		pending := p.pending
		p.mu.Unlock()

		// Re-check after the wakeup: a Reset may already have started
		// another load.
		select {
		case <-pending:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *LocalProvider) load(ctx context.Context, done chan struct{}) {
	p.logger.Info("loading local engine", "model", p.config.Model)
	progress := func(lp LoadProgress) {
		if p.config.OnProgress != nil {
			p.config.OnProgress(lp)
		}
	}
	engine, err := p.loader.Load(ctx, p.config.Model, progress)
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}

	p.mu.Lock()
	if err != nil {
		p.state = EngineFailed
		p.loadErr = NewProviderError("engine_load", fmt.Sprintf("could not load model %s", p.config.Model), err)
		p.logger.Error("local engine load failed", "model", p.config.Model, "error", err)
	} else {
		p.state = EngineReady
		p.engine = engine
		p.logger.Info("local engine ready", "model", p.config.Model)
	}
	p.mu.Unlock()
	close(done)
}

// Complete streams a reply from the local engine.
func (p *LocalProvider) Complete(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error) {
	engine, err := p.Ensure(ctx)
	if err != nil {
		return "", err
	}
	if opts.Temperature == nil {
		t := p.config.Temperature
		opts.Temperature = &t
	}
	if opts.MaxTokens == nil {
		n := p.config.MaxTokens
		opts.MaxTokens = &n
	}

	p.run.Lock()
	defer p.run.Unlock()
	return engine.Stream(ctx, WithSystemPrompt(messages, opts.SystemPrompt), opts, onDelta)
}
