// Package stage implements the per-stage execution context: a dedicated
// worker goroutine, a handoff.Buffer as input, an optional downstream
// submission callback, the startup handshake that eliminates a class of
// construct/attach/submit races, and graceful teardown.
package stage

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelinehq/strpipe/errorsx"
	"github.com/pipelinehq/strpipe/event"
	"github.com/pipelinehq/strpipe/handoff"
	"github.com/pipelinehq/strpipe/internal/recordpool"
	"github.com/pipelinehq/strpipe/metrics"
)

// Submit is the shape of the callback a stage invokes to hand a record
// to the next stage downstream. It is a borrowed reference: the Worker
// does not own the function's target and must not call it after the
// pipeline has torn that stage down.
type Submit func(handoff.Record) error

// Worker is one pluggable stage's execution context. It owns exactly one
// input handoff.Buffer, one transformation routine, and zero or one
// downstream Submit callbacks.
//
// Worker state set once at construction (name, transform) and the
// downstream callback set by Attach are read without further
// synchronization by the consumption goroutine. This is safe only
// because Attach is guaranteed, by pipeline construction order, to run
// before the first Submit reaches this stage.
type Worker struct {
	name      string
	input     *handoff.Buffer
	transform TransformFunc
	logger    *logrus.Entry

	processed metrics.Counter
	latency   metrics.Histogram
	depth     metrics.UpDownCounter

	downstream Submit

	ready *event.Event
	wg    sync.WaitGroup

	initialized bool

	// construction-time-only scratch state, consumed by New.
	poolOverride recordpool.Pool
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithLogger overrides the default per-stage logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithMetrics wires a metrics.Provider the Worker uses to record records
// processed, per-record transform latency, and its input buffer's
// occupancy — all three tagged with the stage's name so a multi-stage
// pipeline's instruments stay attributable to the stage that produced
// them.
func WithMetrics(provider metrics.Provider) Option {
	return func(w *Worker) {
		w.processed = provider.Counter(
			"stage.records_processed",
			metrics.WithAttributes(map[string]string{"stage": w.name}),
		)
		w.latency = provider.Histogram(
			"stage.transform_seconds",
			metrics.WithUnit("seconds"),
			metrics.WithAttributes(map[string]string{"stage": w.name}),
		)
		w.depth = provider.UpDownCounter(
			"handoff.depth",
			metrics.WithAttributes(map[string]string{"stage": w.name}),
		)
	}
}

// WithRecordPool supplies the byte-slice pool backing this stage's input
// buffer.
func WithRecordPool(pool recordpool.Pool) Option {
	return func(w *Worker) { w.poolOverride = pool }
}

// New constructs a Worker: it allocates the input buffer, starts the
// worker goroutine, and blocks until that goroutine signals it has
// reached the top of its consumption loop. This startup handshake — a
// dedicated ready event the worker signals as its very first action —
// eliminates the race where an orchestrator calls Attach or Submit
// before the worker exists to receive them.
func New(name string, transform TransformFunc, capacity int, opts ...Option) (*Worker, error) {
	if transform == nil {
		return nil, errorsx.ErrInvalidArgument
	}

	w := &Worker{
		name:  name,
		ready: event.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = NewLogger(name, nil)
	}
	if w.processed == nil || w.latency == nil || w.depth == nil {
		WithMetrics(metrics.NoopProvider{})(w)
	}

	var bufOpts []handoff.Option
	if w.poolOverride != nil {
		bufOpts = append(bufOpts, handoff.WithRecordPool(w.poolOverride))
	}
	bufOpts = append(bufOpts, handoff.WithDepthGauge(w.depth))
	buf, err := handoff.New(capacity, bufOpts...)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	w.input = buf
	w.transform = transform

	w.wg.Add(1)
	go w.run()
	w.ready.Wait()
	w.initialized = true

	return w, nil
}

// Name returns the stage's human-readable identifier.
func (w *Worker) Name() string { return w.name }

// Attach installs the downstream submission callback. It must be called
// before the stage observes its first record, or outbound records will
// be silently dropped — an accepted orchestrator contract, enforced by
// the pipeline's construction order rather than by this type.
func (w *Worker) Attach(downstream Submit) {
	w.downstream = downstream
}

// Submit enqueues a record for processing, blocking if the input buffer
// is full.
func (w *Worker) Submit(rec handoff.Record) error {
	if w.input == nil {
		return errorsx.ErrNotInitialized
	}
	return w.input.Put(rec)
}

// WaitFinished blocks until this stage has observed and propagated the
// sentinel and marked its input buffer finished.
func (w *Worker) WaitFinished() {
	if w.input == nil {
		return
	}
	w.input.WaitFinished()
}

// Close finalizes the stage: it marks the input finished (waking any
// blocked getter), joins the worker goroutine, and releases the buffer.
// Idempotent, and safe to call on a stage that was never initialized.
func (w *Worker) Close() error {
	if w.input == nil {
		return nil
	}
	w.input.SignalFinished()
	w.wg.Wait()
	w.input.Close()
	return nil
}

// run is the worker's consumption loop: Ready -> Consuming -> Draining ->
// Finished, as laid out by the stage contract.
func (w *Worker) run() {
	defer w.wg.Done()
	w.ready.Signal()

	for {
		rec, ok := w.input.Get()
		if !ok {
			return
		}

		if rec.IsSentinel() {
			w.propagate(rec)
			w.input.SignalFinished()
			return
		}

		start := time.Now()
		out, produced := w.safeTransform(rec)
		w.latency.Record(time.Since(start).Seconds())

		if !produced {
			w.logger.WithField("err", (&errorsx.TransformProducedNothingError{Stage: w.name}).Error()).
				Error("transform produced no result, record dropped")
			continue
		}

		w.processed.Add(1)
		w.propagate(out)
	}
}

// safeTransform runs the stage's transformation routine with panic
// recovery so a misbehaving callback cannot take the whole worker down.
func (w *Worker) safeTransform(rec handoff.Record) (out handoff.Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.WithField("panic", r).Error("transform panicked, record dropped")
			out, ok = nil, false
		}
	}()
	return w.transform(rec)
}

// propagate forwards rec to the downstream stage, if attached. A
// downstream submission error is logged with stage correlation and
// absorbed: the producing stage cannot recover the lost record, but the
// rest of the pipeline keeps running.
func (w *Worker) propagate(rec handoff.Record) {
	if w.downstream == nil {
		return
	}
	if err := w.downstream(rec); err != nil {
		tagged := newTaggedError(&errorsx.DownstreamSubmitError{Stage: w.name, Err: err}, w.name)
		w.logger.WithField("err", tagged.Error()).Error("downstream submit failed")
	}
}
