package stage_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pipelinehq/strpipe/errorsx"
	"github.com/pipelinehq/strpipe/handoff"
	"github.com/pipelinehq/strpipe/stage"
)

func TestNew_NilTransform_ReturnsError(t *testing.T) {
	w, err := stage.New("upper", nil, 4)
	require.Nil(t, w)
	require.Error(t, err)
}

func TestNew_InvalidCapacity_ReturnsError(t *testing.T) {
	w, err := stage.New("upper", func(r handoff.Record) (handoff.Record, bool) { return r, true }, 0)
	require.Nil(t, w)
	require.Error(t, err)
}

func TestWorker_PropagatesTransformedRecordsInOrder(t *testing.T) {
	upper := func(r handoff.Record) (handoff.Record, bool) {
		out := make(handoff.Record, len(r))
		for i, b := range r {
			if b >= 'a' && b <= 'z' {
				b -= 'a' - 'A'
			}
			out[i] = b
		}
		return out, true
	}

	w, err := stage.New("upper", upper, 4)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	w.Attach(func(r handoff.Record) error {
		mu.Lock()
		got = append(got, string(r))
		mu.Unlock()
		if r.IsSentinel() {
			close(done)
		}
		return nil
	})

	require.NoError(t, w.Submit(handoff.Record("hello")))
	require.NoError(t, w.Submit(handoff.Record("world")))
	require.NoError(t, w.Submit(handoff.Sentinel()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sentinel propagation")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"HELLO", "WORLD", handoff.SentinelText}, got)

	require.NoError(t, w.Close())
}

func TestWorker_TransformProducesNothing_RecordDropped(t *testing.T) {
	dropEmpty := func(r handoff.Record) (handoff.Record, bool) {
		if len(r) == 0 {
			return nil, false
		}
		return r, true
	}

	w, err := stage.New("dropper", dropEmpty, 4)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	w.Attach(func(r handoff.Record) error {
		mu.Lock()
		got = append(got, string(r))
		mu.Unlock()
		if r.IsSentinel() {
			close(done)
		}
		return nil
	})

	require.NoError(t, w.Submit(handoff.Record("")))
	require.NoError(t, w.Submit(handoff.Record("kept")))
	require.NoError(t, w.Submit(handoff.Sentinel()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sentinel propagation")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"kept", handoff.SentinelText}, got)

	require.NoError(t, w.Close())
}

func TestWorker_TransformPanics_RecordDroppedWorkerSurvives(t *testing.T) {
	panicky := func(r handoff.Record) (handoff.Record, bool) {
		if string(r) == "boom" {
			panic("kaboom")
		}
		return r, true
	}

	w, err := stage.New("panicker", panicky, 4)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	w.Attach(func(r handoff.Record) error {
		mu.Lock()
		got = append(got, string(r))
		mu.Unlock()
		if r.IsSentinel() {
			close(done)
		}
		return nil
	})

	require.NoError(t, w.Submit(handoff.Record("boom")))
	require.NoError(t, w.Submit(handoff.Record("fine")))
	require.NoError(t, w.Submit(handoff.Sentinel()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sentinel propagation")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"fine", handoff.SentinelText}, got)

	require.NoError(t, w.Close())
}

func TestWorker_DownstreamSubmitError_LoggedAndAbsorbed(t *testing.T) {
	identity := func(r handoff.Record) (handoff.Record, bool) { return r, true }

	w, err := stage.New("flaky-downstream", identity, 4)
	require.NoError(t, err)

	var calls int
	w.Attach(func(r handoff.Record) error {
		calls++
		return errors.New("downstream unavailable")
	})

	require.NoError(t, w.Submit(handoff.Record("x")))
	require.NoError(t, w.Submit(handoff.Sentinel()))

	w.WaitFinished()
	require.Equal(t, 2, calls)
	require.NoError(t, w.Close())
}

func TestWorker_SubmitBeforeInitialized_ReturnsNotInitialized(t *testing.T) {
	// A zero-value Worker (never returned by New) must reject Submit
	// rather than panic, and Close/WaitFinished must be no-ops.
	w := &stage.Worker{}
	require.ErrorIs(t, w.Submit(handoff.Record("x")), errorsx.ErrNotInitialized)
	require.NoError(t, w.Close())
	w.WaitFinished()
}

func TestWorker_CloseIsIdempotent(t *testing.T) {
	identity := func(r handoff.Record) (handoff.Record, bool) { return r, true }
	w, err := stage.New("idempotent-close", identity, 2)
	require.NoError(t, err)
	w.Attach(func(handoff.Record) error { return nil })

	require.NoError(t, w.Submit(handoff.Sentinel()))
	w.WaitFinished()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
