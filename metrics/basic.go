package metrics

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider a pipeline can opt into with
// strpipe.WithMetrics(metrics.NewBasicProvider()) in place of the
// default NoopProvider, to recover per-stage throughput, per-stage
// transform latency, and handoff-buffer occupancy after a run — the
// numbers cmd/strpipe's -metrics flag prints via Summary.
//
// Every stage shares the instrument names "stage.records_processed" and
// "stage.transform_seconds"; what distinguishes one stage's counter
// from another's is the "stage" attribute stage.Worker attaches via
// metrics.WithAttributes. So instruments here are keyed on name plus
// attributes, not name alone — two Counter("stage.records_processed",
// WithAttributes{"stage":"uppercaser"}) calls return the same instrument,
// but a third call tagged {"stage":"rotator"} returns a different one.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	meta       map[string]instrumentMeta
}

// instrumentMeta remembers the name and attributes an instrument was
// first created with, so Summary can report them back without the
// caller having to track its own instrument handles.
type instrumentMeta struct {
	name string
	cfg  InstrumentConfig
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]instrumentMeta),
	}
}

// applyOptions builds InstrumentConfig from options.
func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// instrumentKey folds name and the instrument's attributes into a
// single map key, sorted so attribute insertion order never matters —
// this is what lets every stage share an instrument name while each
// stage's own attribute (e.g. "stage=uppercaser") still resolves to a
// distinct underlying instrument.
func instrumentKey(name string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return name
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('\x1f')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
	}
	return b.String()
}

// Counter returns a monotonic counter instrument for the given name and
// attributes (created once per distinct pair).
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	c, ok := p.counters[key]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check after acquiring write lock
	if c, ok = p.counters[key]; ok {
		return c
	}
	p.meta[key] = instrumentMeta{name: name, cfg: cfg}
	c = &BasicCounter{}
	p.counters[key] = c
	return c
}

// UpDownCounter returns an up/down counter instrument for the given
// name and attributes (created once per distinct pair).
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	u, ok := p.updowns[key]
	p.mu.RUnlock()
	if ok {
		return u
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok = p.updowns[key]; ok {
		return u
	}
	p.meta[key] = instrumentMeta{name: name, cfg: cfg}
	u = &BasicUpDownCounter{}
	p.updowns[key] = u
	return u
}

// Histogram returns a histogram instrument for the given name and
// attributes (created once per distinct pair).
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.RLock()
	h, ok := p.histograms[key]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.histograms[key]; ok {
		return h
	}
	p.meta[key] = instrumentMeta{name: name, cfg: cfg}
	h = &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
	p.histograms[key] = h
	return h
}

// Snapshot is one instrument's identity (name plus the attributes that
// distinguish it, typically {"stage": <name>}) and its current value,
// as reported by Summary.
type Snapshot struct {
	Name        string
	Attributes  map[string]string
	Count       int64        // set for counters and up/down counters
	Histogram   HistSnapshot // set when this snapshot is a histogram
	IsHistogram bool
}

// Summary returns every instrument this provider has created, in the
// shape cmd/strpipe prints when run with -metrics: one line per stage
// counter, up/down counter, and histogram.
func (p *BasicProvider) Summary() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Snapshot, 0, len(p.counters)+len(p.updowns)+len(p.histograms))
	for key, c := range p.counters {
		m := p.meta[key]
		out = append(out, Snapshot{Name: m.name, Attributes: m.cfg.Attributes, Count: c.Snapshot()})
	}
	for key, u := range p.updowns {
		m := p.meta[key]
		out = append(out, Snapshot{Name: m.name, Attributes: m.cfg.Attributes, Count: u.Snapshot()})
	}
	for key, h := range p.histograms {
		m := p.meta[key]
		out = append(out, Snapshot{Name: m.name, Attributes: m.cfg.Attributes, Histogram: h.Snapshot(), IsHistogram: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes["stage"] < out[j].Attributes["stage"]
	})
	return out
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

// Add increments the counter by n (n may be negative but it's not recommended for monotonic counters).
func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a thread-safe up/down counter.
type BasicUpDownCounter struct {
	val atomic.Int64
}

// Add adds n (positive or negative) to the current value.
func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram is a thread-safe histogram that tracks count, sum, min,
// and max — enough to report a stage's transform-latency distribution
// without the bucket configuration a full histogram implementation
// would need.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement to the histogram.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 {
		// initialize min/max on first record
		h.min, h.max = v, v
	} else {
		if v < h.min {
			h.min = v
		}
		if v > h.max {
			h.max = v
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	count := h.count
	sum := h.sum
	min := h.min
	max := h.max
	h.mu.Unlock()
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}
	return HistSnapshot{Count: count, Sum: sum, Min: min, Max: max, Mean: mean}
}
