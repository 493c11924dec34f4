package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_SignalBeforeWait_StillObserved(t *testing.T) {
	e := New()
	e.Signal()

	done := make(chan bool, 1)
	go func() { done <- e.Wait() }()

	select {
	case ok := <-done:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe a signal issued before it started")
	}
}

func TestEvent_SingleSignal_ReleasesAllWaiters(t *testing.T) {
	e := New()

	const n = 16
	var wg sync.WaitGroup
	released := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.Wait() {
				released <- struct{}{}
			}
		}()
	}

	// Give the goroutines a chance to park.
	time.Sleep(20 * time.Millisecond)
	e.Signal()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were released by a single signal")
	}
	require.Len(t, released, n)
}

func TestEvent_ResetThenWait_Blocks(t *testing.T) {
	e := New()
	e.Signal()
	e.Reset()

	woke := make(chan bool, 1)
	go func() { woke <- e.Wait() }()

	select {
	case <-woke:
		t.Fatal("Wait returned after Reset without a new Signal")
	case <-time.After(50 * time.Millisecond):
		// expected: still blocked
	}

	e.Signal()
	select {
	case ok := <-woke:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait never woke after Signal following Reset")
	}
}

func TestEvent_RepeatedSignal_Idempotent(t *testing.T) {
	e := New()
	e.Signal()
	e.Signal()
	require.True(t, e.IsSet())
	require.True(t, e.Wait())
}

func TestEvent_Close_ReleasesWaitersWithoutLatching(t *testing.T) {
	e := New()

	woke := make(chan bool, 1)
	go func() { woke <- e.Wait() }()

	time.Sleep(20 * time.Millisecond)
	e.Close()

	select {
	case ok := <-woke:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not release a parked waiter")
	}
}

func TestEvent_Close_Idempotent(t *testing.T) {
	e := New()
	e.Close()
	e.Close() // must not panic or deadlock
}
