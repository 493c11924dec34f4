// Package metrics is the instrumentation surface every layer of the
// pipeline core reports through: handoff.Buffer's queue-depth gauge and
// stage.Worker's per-stage throughput counter and transform-latency
// histogram. A Pipeline that doesn't configure one defaults to
// NoopProvider, so instrumentation costs nothing unless a caller opts
// in with strpipe.WithMetrics.
package metrics

// Provider constructs the instruments a stage or handoff buffer reports
// through. Implementations must be safe for concurrent use.
//
// Every stage in a pipeline shares the same instrument name (e.g.
// "stage.records_processed") and distinguishes itself only by the
// "stage" attribute passed via WithAttributes, so a Provider must key
// repeat calls on the (name, attributes) pair, not on name alone —
// otherwise every stage's counter collapses into one shared instrument
// and per-stage throughput becomes unrecoverable.
//
// Keep this interface minimal and stable. If you need new capabilities later,
// introduce separate optional interfaces rather than expanding this surface.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts, e.g. stage.Worker's
// "stage.records_processed".
// Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down, e.g.
// handoff.Buffer's current occupancy.
// Methods must be safe for concurrent use.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements, e.g.
// stage.Worker's per-record transform latency in seconds.
// Methods must be safe for concurrent use.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata attached at
// creation time.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static key-value pairs identifying which stage (or
	// buffer) an instrument belongs to — e.g. {"stage": "uppercaser"}.
	// Keep cardinality bounded to the pipeline's own stage count.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes to the instrument (bounded cardinality only).
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		// copy to avoid external mutation
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}
