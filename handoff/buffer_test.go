package handoff

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuffer_New_InvalidCapacity(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(-5)
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestBuffer_PutGet_FIFO(t *testing.T) {
	b, err := New(5)
	require.NoError(t, err)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, b.Put(Record(s)))
	}

	for _, want := range []string{"a", "b", "c"} {
		rec, ok := b.Get()
		require.True(t, ok)
		require.Equal(t, want, string(rec))
	}
}

func TestBuffer_CapacityOne(t *testing.T) {
	b, err := New(1)
	require.NoError(t, err)

	in := []string{"one", "two", "three", "<END>"}
	var out []string

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < len(in); i++ {
			rec, ok := b.Get()
			require.True(t, ok)
			out = append(out, string(rec))
			if rec.IsSentinel() {
				return
			}
		}
	}()

	for _, s := range in {
		require.NoError(t, b.Put(Record(s)))
	}
	<-done
	require.Equal(t, in, out)
}

func TestBuffer_EmptyRecord(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)

	require.NoError(t, b.Put(Record("")))
	rec, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, Record(""), rec)
}

func TestBuffer_PutterBlocksWhenFull_UnblocksOnGet(t *testing.T) {
	b, err := New(1)
	require.NoError(t, err)
	require.NoError(t, b.Put(Record("first")))

	putReturned := make(chan struct{})
	go func() {
		require.NoError(t, b.Put(Record("second")))
		close(putReturned)
	}()

	select {
	case <-putReturned:
		t.Fatal("Put on a full buffer returned before any Get freed a slot")
	case <-time.After(50 * time.Millisecond):
	}

	rec, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, "first", string(rec))

	select {
	case <-putReturned:
	case <-time.After(time.Second):
		t.Fatal("blocked Put did not unblock within a bounded time after Get")
	}

	rec, ok = b.Get()
	require.True(t, ok)
	require.Equal(t, "second", string(rec))
}

func TestBuffer_GetterBlocksWhenEmpty_UnblocksOnFinished(t *testing.T) {
	b, err := New(3)
	require.NoError(t, err)

	got := make(chan bool, 1)
	go func() {
		_, ok := b.Get()
		got <- ok
	}()

	select {
	case <-got:
		t.Fatal("Get on an empty buffer returned before finished was signaled")
	case <-time.After(50 * time.Millisecond):
	}

	b.SignalFinished()

	select {
	case ok := <-got:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake up after SignalFinished")
	}
}

// Races SignalFinished against a getter entering its blocking path, over
// many fresh buffers so the interleavings vary. SignalFinished runs on a
// different goroutine than the getter (as it does when a stage is closed
// during rollback or forced teardown), and its wakeup must never land in
// a window where the getter can wipe it and park forever.
func TestBuffer_SignalFinishedRacingGet_NeverStrandsGetter(t *testing.T) {
	for i := 0; i < 500; i++ {
		b, err := New(1)
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			_, ok := b.Get()
			require.False(t, ok)
			close(done)
		}()

		b.SignalFinished()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: getter stranded despite SignalFinished", i)
		}
	}
}

func TestBuffer_WaitFinished(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		b.WaitFinished()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitFinished returned before SignalFinished was called")
	case <-time.After(30 * time.Millisecond):
	}

	b.SignalFinished()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitFinished did not return after SignalFinished")
	}
}

func TestBuffer_MultiProducerMultiConsumer_MultisetEquality(t *testing.T) {
	b, err := New(5)
	require.NoError(t, err)

	const producers = 3
	const perProducer = 5
	const total = producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				require.NoError(t, b.Put(Record([]byte{byte('A' + p), byte('0' + i)})))
			}
		}(p)
	}

	results := make(chan Record, total)
	var consumersWG sync.WaitGroup
	for c := 0; c < 3; c++ {
		consumersWG.Add(1)
		go func() {
			defer consumersWG.Done()
			for {
				rec, ok := b.Get()
				if !ok {
					return
				}
				results <- rec
				if len(results) == total {
					return
				}
			}
		}()
	}

	wg.Wait()
	b.SignalFinished()
	consumersWG.Wait()
	close(results)

	seen := map[string]int{}
	for rec := range results {
		seen[string(rec)]++
	}
	require.Len(t, seen, total)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}
	require.Equal(t, 0, b.Len())
}
