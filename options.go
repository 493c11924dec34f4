package strpipe

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelinehq/strpipe/metrics"
)

// Option configures a Pipeline at construction time.
type Option func(*config)

// WithCapacity sets the slot count of every stage's handoff buffer.
// Default: 16.
func WithCapacity(n int) Option {
	return func(c *config) { c.Capacity = n }
}

// WithDynamicRecordPool selects an unbounded sync.Pool-backed record
// pool (the default if no pool option is given).
func WithDynamicRecordPool() Option {
	return func(c *config) { c.RecordPoolKind = recordPoolDynamic }
}

// WithFixedRecordPool selects a bounded, channel-backed record pool of
// the given capacity.
func WithFixedRecordPool(capacity uint) Option {
	return func(c *config) {
		c.RecordPoolKind = recordPoolFixed
		c.FixedPoolCapacity = capacity
	}
}

// WithLogger overrides the base logger every stage derives its tagged
// entry from.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *config) { c.Logger = logger }
}

// WithLogOutput redirects the default logger's output, for callers that
// want the default logrus formatting but a different destination (e.g.
// a file, or discarded entirely in tests).
func WithLogOutput(w io.Writer) Option {
	return func(c *config) {
		l := logrus.New()
		l.SetOutput(w)
		c.Logger = logrus.NewEntry(l)
	}
}

// WithMetrics wires a metrics.Provider every stage reports counters and
// histograms to.
func WithMetrics(provider metrics.Provider) Option {
	return func(c *config) { c.MetricsProvider = provider }
}

// WithTeardownTimeout bounds how long Close waits for the pipeline to
// drain before returning a timeout error.
func WithTeardownTimeout(d time.Duration) Option {
	return func(c *config) { c.TeardownTimeout = d }
}
