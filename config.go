package strpipe

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelinehq/strpipe/metrics"
)

// recordPoolKind selects the byte-slice pooling strategy backing every
// stage's handoff buffer.
type recordPoolKind int

const (
	recordPoolDynamic recordPoolKind = iota
	recordPoolFixed
)

// config holds Pipeline configuration assembled by functional options.
type config struct {
	// Capacity is the slot count of every stage's handoff buffer.
	// Must be in [1, 1_000_000].
	// Default: 16.
	Capacity int

	// RecordPoolKind selects whether record byte slices are pooled with
	// an unbounded sync.Pool (dynamic) or a bounded channel-backed pool
	// (fixed). Default: dynamic.
	RecordPoolKind recordPoolKind

	// FixedPoolCapacity is the bound used when RecordPoolKind is fixed.
	// Default: 0, which recordpool.NewFixed treats as 1 (a single
	// resident buffer; Get allocates fresh beyond it). WithFixedRecordPool
	// sets this together with the pool kind.
	FixedPoolCapacity uint

	// Logger is the base entry each stage derives its own tagged logger
	// from. Default: a logrus.New() text logger writing to stderr.
	Logger *logrus.Entry

	// MetricsProvider supplies counters and histograms for every stage.
	// Default: metrics.NoopProvider{}.
	MetricsProvider metrics.Provider

	// TeardownTimeout bounds how long Close waits for the final stage to
	// observe the sentinel before giving up and returning a timeout
	// error. Zero means wait indefinitely.
	// Default: 0 (no timeout).
	TeardownTimeout time.Duration
}

// defaultConfig centralizes default values for config. Applied as the
// options builder base before any caller-supplied Option runs.
func defaultConfig() config {
	return config{
		Capacity:        16,
		RecordPoolKind:  recordPoolDynamic,
		MetricsProvider: metrics.NoopProvider{},
		TeardownTimeout: 0,
	}
}

// validateConfig performs the invariants the pipeline construction
// requires before any stage worker is started.
func validateConfig(cfg *config) error {
	if cfg.Capacity < 1 || cfg.Capacity > 1_000_000 {
		return ErrInvalidCapacity
	}
	return nil
}
