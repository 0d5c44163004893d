package uthread

// ThreadState is the lifecycle state of a TCB, per spec.md §3.
//
//	RUNNING  -> READY    (preempted or voluntary Yield)
//	READY    -> RUNNING  (scheduled off the ready queue)
//	RUNNING  -> BLOCK    (Join on an unfinished target, Suspend of self)
//	BLOCK    -> READY    (Resume, or the joined target finishing)
//	RUNNING  -> FINISHED (Exit)
//	FINISHED -> (destroyed on reap by a joiner)
type ThreadState int32

const (
	// StateRunning is the single currently executing thread.
	StateRunning ThreadState = iota
	// StateReady is on the ready queue, awaiting its turn.
	StateReady
	// StateBlock is parked: joining another thread, or user-suspended.
	StateBlock
	// StateFinished has returned from its entry function and is awaiting
	// a joiner to reap it.
	StateFinished
)

// String returns a human-readable representation of the state.
func (s ThreadState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateReady:
		return "Ready"
	case StateBlock:
		return "Block"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}
