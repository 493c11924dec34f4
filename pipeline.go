package strpipe

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelinehq/strpipe/errorsx"
	"github.com/pipelinehq/strpipe/handoff"
	"github.com/pipelinehq/strpipe/internal/recordpool"
	"github.com/pipelinehq/strpipe/stage"
)

// ErrTeardownTimeout is returned by Close when TeardownTimeout elapses
// before the pipeline finished draining.
var ErrTeardownTimeout = errors.New("strpipe: teardown timed out waiting for pipeline to drain")

// Sink receives the final stage's output, including the terminal
// sentinel.
type Sink func(handoff.Record) error

// StageResolver maps a stage name to the function a stage author
// supplied for it. The returned value must be one of the shapes
// stage.Adapt accepts.
type StageResolver func(name string) (interface{}, error)

// Pipeline is an ordered chain of stage workers, each forwarding its
// output to the next, terminating in a Sink.
type Pipeline struct {
	stages    []*stage.Worker
	lifecycle *lifecycleCoordinator
	timedOut  bool
}

// New constructs a Pipeline from an ordered list of stage names,
// resolving each against resolver and linking it to the next. Stage
// construction happens left to right; if any stage fails to initialize,
// every already-constructed stage is torn down before the error is
// returned, so a failed New leaves no goroutines behind.
func New(names []string, resolver StageResolver, sink Sink, opts ...Option) (*Pipeline, error) {
	if len(names) == 0 {
		return nil, errorsx.ErrNoStages
	}
	if resolver == nil || sink == nil {
		return nil, errorsx.ErrInvalidArgument
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	baseLogger := cfg.Logger
	if baseLogger == nil {
		baseLogger = logrus.NewEntry(logrus.New())
	}

	var pool recordpool.Pool
	switch cfg.RecordPoolKind {
	case recordPoolFixed:
		pool = recordpool.NewFixed(cfg.FixedPoolCapacity)
	default:
		pool = recordpool.NewDynamic()
	}

	stages := make([]*stage.Worker, 0, len(names))

	rollback := func() {
		for i := len(stages) - 1; i >= 0; i-- {
			_ = stages[i].Close()
		}
	}

	for _, name := range names {
		fn, err := resolver(name)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("strpipe: resolving stage %q: %w", name, errors.Join(errorsx.ErrUnknownStage, err))
		}

		transform, err := stage.Adapt(fn)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("strpipe: stage %q: %w", name, err)
		}

		w, err := stage.New(
			name,
			transform,
			cfg.Capacity,
			stage.WithLogger(baseLogger.WithField("stage", name)),
			stage.WithMetrics(cfg.MetricsProvider),
			stage.WithRecordPool(pool),
		)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("strpipe: initializing stage %q: %w", name, err)
		}

		stages = append(stages, w)
	}

	for i := 0; i < len(stages)-1; i++ {
		next := stages[i+1]
		stages[i].Attach(next.Submit)
	}
	stages[len(stages)-1].Attach(stage.Submit(sink))

	p := &Pipeline{stages: stages}

	waitDrained := func() {
		last := p.stages[len(p.stages)-1]
		if cfg.TeardownTimeout <= 0 {
			last.WaitFinished()
			return
		}
		done := make(chan struct{})
		go func() {
			last.WaitFinished()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.TeardownTimeout):
			p.timedOut = true
		}
	}
	closeStages := func() {
		for _, s := range p.stages {
			_ = s.Close()
		}
	}
	p.lifecycle = newLifecycleCoordinator(waitDrained, closeStages)

	return p, nil
}

// Submit enqueues a record at the head of the pipeline, blocking if the
// first stage's input buffer is full.
func (p *Pipeline) Submit(rec handoff.Record) error {
	return p.stages[0].Submit(rec)
}

// Stop submits the end-of-stream sentinel at the head of the pipeline.
// Records submitted after Stop are not guaranteed to be processed.
func (p *Pipeline) Stop() error {
	return p.Submit(handoff.Sentinel())
}

// Wait blocks until the sentinel has drained through every stage,
// without tearing the pipeline down. Useful for callers that want to
// observe completion before deciding whether to Close.
func (p *Pipeline) Wait() {
	p.stages[len(p.stages)-1].WaitFinished()
}

// Close waits for the pipeline to finish draining (bounded by
// TeardownTimeout, if set) and then tears every stage down, head to
// tail. Idempotent: the drain wait and teardown both run exactly once,
// even under concurrent Close calls.
func (p *Pipeline) Close() error {
	p.lifecycle.Close()
	if p.timedOut {
		return ErrTeardownTimeout
	}
	return nil
}
