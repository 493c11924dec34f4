package strpipe

import "sync"

// lifecycleCoordinator encapsulates a Pipeline's shutdown sequence. It
// doesn't own the stage workers; it orchestrates, in deterministic
// order, the sentinel drain wait and the per-stage teardown that
// follows it. Close is safe for concurrent calls; the sequence executes
// exactly once.
type lifecycleCoordinator struct {
	waitDrained func()
	closeStages func()

	once sync.Once
}

func newLifecycleCoordinator(waitDrained, closeStages func()) *lifecycleCoordinator {
	return &lifecycleCoordinator{waitDrained: waitDrained, closeStages: closeStages}
}

// Close executes the shutdown sequence exactly once:
//  1. wait for the sentinel to drain through every stage
//  2. close every stage, head to tail
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.waitDrained != nil {
			lc.waitDrained()
		}
		if lc.closeStages != nil {
			lc.closeStages()
		}
	})
}
