package stages

import (
	"fmt"
	"io"
	"os"

	"github.com/pipelinehq/strpipe/handoff"
)

// Registry resolves stage names to the transform function configured
// for them. It implements strpipe.StageResolver's func(string)
// (interface{}, error) shape via Resolve.
type Registry struct {
	out map[string]func(handoff.Record) handoff.Record
}

// NewRegistry builds the registry of built-in stages, writing logger and
// typewriter output to out (os.Stdout if nil).
func NewRegistry(out io.Writer) *Registry {
	if out == nil {
		out = os.Stdout
	}
	return &Registry{
		out: map[string]func(handoff.Record) handoff.Record{
			"uppercaser": Uppercase,
			"flipper":    Flip,
			"rotator":    Rotate,
			"expander":   Expand,
			"logger":     NewLogger(out),
			"typewriter": NewTypewriter(out),
		},
	}
}

// errUnknownStageName is wrapped into the error Resolve returns for a
// name this registry does not recognize.
var errUnknownStageName = fmt.Errorf("stages: unrecognized stage name")

// Resolve looks up the transform registered for name.
func (r *Registry) Resolve(name string) (interface{}, error) {
	fn, ok := r.out[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownStageName, name)
	}
	return fn, nil
}

// Names returns the sorted-by-declaration list of built-in stage names,
// useful for CLI usage text.
func (r *Registry) Names() []string {
	return []string{"uppercaser", "flipper", "rotator", "expander", "logger", "typewriter"}
}
