// Package recordpool reuses the backing byte slices HandoffBuffer copies
// incoming records into: a Get/Put interface with a dynamic, sync.Pool
// backed strategy and a fixed-capacity, channel backed strategy that
// caps how many buffers stay resident.
package recordpool

import "sync"

// Pool hands out reusable byte slices and reclaims them when a caller is
// done with the bytes. Get may return a slice with leftover capacity but
// always length 0; callers append into it.
type Pool interface {
	Get() []byte
	Put([]byte)
}

// NewDynamic returns a pool backed by sync.Pool: unbounded, grows and
// shrinks with demand, and is the right default for a pipeline whose
// stage count and hand-off depth aren't known ahead of time.
func NewDynamic() Pool {
	return &dynamic{
		pool: sync.Pool{New: func() interface{} {
			b := make([]byte, 0, 256)
			return &b
		}},
	}
}

type dynamic struct {
	pool sync.Pool
}

func (d *dynamic) Get() []byte {
	b := d.pool.Get().(*[]byte)
	return (*b)[:0]
}

func (d *dynamic) Put(b []byte) {
	if cap(b) == 0 {
		return
	}
	d.pool.Put(&b)
}

// NewFixed returns a pool that caps the number of resident buffers at
// capacity; once the cap is reached, Put silently discards the excess
// and Get falls back to a fresh allocation. Suitable when the hand-off
// buffer's own capacity is already small and known, so the backing
// store for records shouldn't grow past it.
func NewFixed(capacity uint) Pool {
	if capacity == 0 {
		capacity = 1
	}
	return &fixed{available: make(chan []byte, capacity)}
}

type fixed struct {
	available chan []byte
}

func (f *fixed) Get() []byte {
	select {
	case b := <-f.available:
		return b[:0]
	default:
		return make([]byte, 0, 256)
	}
}

func (f *fixed) Put(b []byte) {
	if cap(b) == 0 {
		return
	}
	select {
	case f.available <- b:
	default:
		// pool is at capacity; let the GC reclaim this one.
	}
}
