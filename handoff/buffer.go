package handoff

import (
	"errors"
	"sync"

	"github.com/pipelinehq/strpipe/event"
	"github.com/pipelinehq/strpipe/internal/recordpool"
	"github.com/pipelinehq/strpipe/metrics"
)

// ErrInvalidCapacity is returned by New for a non-positive capacity.
var ErrInvalidCapacity = errors.New("handoff: capacity must be positive")

// ErrShuttingDown is returned by Put when it observes the buffer has
// already been closed out from under it.
var ErrShuttingDown = errors.New("handoff: buffer is shutting down")

// Buffer is a bounded FIFO of owned Records shared between exactly one
// producer stage and one consumer stage. It exposes three Events: notFull
// and notEmpty drive the blocking Put/Get protocol, and finished is a
// one-shot signal the draining worker latches after it has observed and
// propagated the sentinel.
//
// Unlike the lock-free SPSC/MPSC/MPMC ring buffers a high-throughput
// queue package would reach for, Buffer deliberately blocks: the
// pipeline's concurrency model has exactly three suspension points
// (not_full, not_empty, finished) and no other operation may block, so a
// guarded ring with state-retaining events is both sufficient and easier
// to reason about here than a wait-free algorithm would be.
type Buffer struct {
	mu       sync.Mutex
	slots    []Record
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	notFull  *event.Event
	notEmpty *event.Event
	finished *event.Event

	pool  recordpool.Pool
	depth metrics.UpDownCounter
}

// Option configures a Buffer at construction time.
type Option func(*Buffer)

// WithRecordPool supplies the byte-slice pool used to copy incoming
// records. Defaults to a dynamic (sync.Pool backed) pool.
func WithRecordPool(p recordpool.Pool) Option {
	return func(b *Buffer) { b.pool = p }
}

// WithDepthGauge wires an UpDownCounter that tracks the buffer's current
// occupancy: incremented on a successful Put, decremented on a
// successful Get.
func WithDepthGauge(c metrics.UpDownCounter) Option {
	return func(b *Buffer) { b.depth = c }
}

// New allocates a Buffer with the given capacity. Capacity must be
// positive. The not_full event is signaled eagerly so the first producer
// does not block.
func New(capacity int, opts ...Option) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	b := &Buffer{
		slots:    make([]Record, capacity),
		capacity: capacity,
		notFull:  event.New(),
		notEmpty: event.New(),
		finished: event.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = recordpool.NewDynamic()
	}
	if b.depth == nil {
		b.depth = metrics.NoopProvider{}.UpDownCounter("handoff.depth")
	}

	b.notFull.Signal()
	return b, nil
}

// Cap reports the buffer's fixed capacity.
func (b *Buffer) Cap() int { return b.capacity }

// Put appends rec to the tail, taking ownership of a freshly pooled copy
// of its bytes; the caller's slice is never retained. If the buffer is
// full, Put blocks until a Get makes room.
//
// The retry loop mirrors the guarded protocol the whole pipeline core is
// built on: reset the awaited event, check the predicate under the
// guard, then mutate-and-signal-the-opposing-event on success or wait
// and retry on failure. Resetting notFull before the predicate check,
// not after, is load-bearing both ways: a stale latch from some earlier
// Get cannot satisfy this wait without the slot actually having
// changed, and a Signal that fires concurrently cannot be wiped —
// either it lands before the check, in which case the state change it
// announces is visible to the check, or it lands after the reset and
// leaves the event latched for Wait.
func (b *Buffer) Put(rec Record) error {
	raw := b.pool.Get()
	raw = append(raw[:0], rec...)
	cp := Record(raw)

	for {
		b.notFull.Reset()

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return ErrShuttingDown
		}
		if b.count < b.capacity {
			b.slots[b.tail] = cp
			b.tail = (b.tail + 1) % b.capacity
			b.count++
			b.mu.Unlock()

			b.depth.Add(1)
			b.notEmpty.Signal()
			return nil
		}
		b.mu.Unlock()

		if !b.notFull.Wait() {
			return ErrShuttingDown
		}
	}
}

// Get removes and returns the record at the head, transferring ownership
// to the caller. If the buffer is empty, Get blocks until either a
// record becomes available or the owning stage's finished event has been
// latched, in which case Get returns (nil, false) so the worker can exit
// its consumption loop rather than treat this as an error.
//
// notEmpty is reset before the predicate is evaluated, same as in Put.
// Here the predicate spans the slot count and the finished flag, and
// SignalFinished latches finished from a different goroutine than the
// getter during teardown — resetting only after the check would open a
// window where SignalFinished's one-shot wakeup lands between a stale
// finished=false read and the reset, gets wiped, and leaves the getter
// parked forever. With the reset first, a concurrent SignalFinished
// either precedes the finished check (and is observed by it) or
// follows the reset (and leaves notEmpty latched for Wait).
//
// The slot's pool-sourced backing array is copied out before it is
// returned to the pool: handing the same backing array both to the
// caller and back into the pool would let a concurrent Put reuse and
// overwrite memory the caller still owns.
func (b *Buffer) Get() (Record, bool) {
	for {
		b.notEmpty.Reset()

		b.mu.Lock()
		if b.count > 0 {
			pooled := b.slots[b.head]
			b.slots[b.head] = nil
			b.head = (b.head + 1) % b.capacity
			b.count--
			b.mu.Unlock()

			rec := pooled.Clone()
			b.depth.Add(-1)
			b.pool.Put([]byte(pooled))
			b.notFull.Signal()
			return rec, true
		}
		finished := b.finished.IsSet()
		closed := b.closed
		b.mu.Unlock()

		if finished || closed {
			return nil, false
		}

		if !b.notEmpty.Wait() {
			return nil, false
		}
	}
}

// SignalFinished latches the finished event. It is called exactly once,
// by the single worker that drains this buffer, immediately after it has
// observed and propagated the sentinel. It also signals not_empty so any
// getter still blocked on an empty buffer wakes up, rechecks finished,
// and exits instead of waiting forever. Idempotent.
func (b *Buffer) SignalFinished() {
	b.finished.Signal()
	b.notEmpty.Signal()
}

// WaitFinished blocks until SignalFinished has been called.
func (b *Buffer) WaitFinished() {
	b.finished.Wait()
}

// Close releases every still-owned record and the buffer's events. It
// closes every event, releasing any goroutine still parked on one (its
// Wait returns false, which Put and Get treat as shutdown), matching
// the required destruction precondition: arrange that no thread waits
// on the events, typically by signaling all and joining the worker
// before Close is reached.
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for i := range b.slots {
		b.slots[i] = nil
	}
	b.head, b.tail, b.count = 0, 0, 0
	b.mu.Unlock()

	b.notFull.Close()
	b.notEmpty.Close()
	b.finished.Close()
}

// Len reports the current occupancy. Intended for diagnostics and tests;
// callers racing with concurrent Put/Get should not treat it as exact.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
