// Package stages provides the built-in stage transformations: uppercase,
// flip, rotate, expand, log, and typewriter. Each is adapted from a
// reference string-processing plugin and exposed as a plain
// func(handoff.Record) handoff.Record, the simplest shape stage.Adapt
// accepts.
package stages

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pipelinehq/strpipe/handoff"
)

// Uppercase converts every byte to its uppercase form. The sentinel and
// the empty record pass through unchanged.
func Uppercase(rec handoff.Record) handoff.Record {
	if rec.IsSentinel() {
		return rec
	}
	out := make(handoff.Record, len(rec))
	for i, b := range rec {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return out
}

// Flip reverses the byte order of a record. An empty record maps to an
// empty record.
func Flip(rec handoff.Record) handoff.Record {
	if rec.IsSentinel() {
		return rec
	}
	n := len(rec)
	out := make(handoff.Record, n)
	for i := 0; i < n; i++ {
		out[i] = rec[n-1-i]
	}
	return out
}

// Rotate moves the last byte to the front and shifts every other byte
// one place to the right. An empty record maps to an empty record.
func Rotate(rec handoff.Record) handoff.Record {
	if rec.IsSentinel() {
		return rec
	}
	n := len(rec)
	if n == 0 {
		return handoff.Record{}
	}
	out := make(handoff.Record, n)
	out[0] = rec[n-1]
	copy(out[1:], rec[:n-1])
	return out
}

// Expand inserts a single space between every two adjacent bytes. An
// empty record maps to an empty record.
func Expand(rec handoff.Record) handoff.Record {
	if rec.IsSentinel() {
		return rec
	}
	n := len(rec)
	if n == 0 {
		return handoff.Record{}
	}
	out := make(handoff.Record, n*2-1)
	for i := 0; i < n; i++ {
		out[i*2] = rec[i]
		if i < n-1 {
			out[i*2+1] = ' '
		}
	}
	return out
}

// NewLogger returns a stage transform that writes every record to w,
// prefixed with "[logger] ", and passes the record through unchanged.
// The sentinel never reaches this function: a stage worker recognizes
// and propagates the sentinel before invoking its transform, so the
// pinned end-to-end behavior is that the logger's last line of output
// is the last real payload record, not "[logger] <END>".
func NewLogger(w io.Writer) func(handoff.Record) handoff.Record {
	if w == nil {
		w = os.Stdout
	}
	return func(rec handoff.Record) handoff.Record {
		if rec.IsSentinel() {
			return rec
		}
		_, _ = w.Write(append([]byte("[logger] "), append(bytes.Clone(rec), '\n')...))
		return rec.Clone()
	}
}

// charDelay is the pause between characters NewTypewriter emits,
// matching the pacing of the reference plugin it is adapted from.
const charDelay = 100 * time.Millisecond

// NewTypewriter returns a stage transform that writes every record to w
// one byte at a time with charDelay between bytes, prefixed with
// "[typewriter] " and followed by a newline, and passes the record
// through unchanged. The sentinel is forwarded without being typed out.
//
// This stage sleeps on its own goroutine during the transform call, not
// while holding any buffer lock, so it slows only its own throughput —
// it does not block upstream producers beyond the ordinary backpressure
// of a full input buffer.
func NewTypewriter(w io.Writer) func(handoff.Record) handoff.Record {
	if w == nil {
		w = os.Stdout
	}
	return func(rec handoff.Record) handoff.Record {
		if rec.IsSentinel() {
			return rec
		}
		_, _ = io.WriteString(w, "[typewriter] ")
		for _, b := range rec {
			_, _ = w.Write([]byte{b})
			time.Sleep(charDelay)
		}
		_, _ = io.WriteString(w, "\n")
		return rec.Clone()
	}
}
