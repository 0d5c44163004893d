package uthread

// EntryFunc is the opaque-pointer entry point described in spec.md §9: it
// takes and returns an erased value. Go's any stands in for void*. The
// return value is forwarded verbatim to the eventual joiner.
type EntryFunc func(arg any) any

// tcb is the thread control block: the per-thread record holding identity,
// lifecycle state, quantum accounting, and the primitive used to resume it.
//
// Go has no user-suppliable execution stack for goroutines, so stack is
// retained purely to preserve the resource-accounting contract spec.md §3
// describes (a fixed-size owned buffer, validated against the platform
// minimum) and is never read from or written to as code; the actual
// execution stack is the tcb's dedicated goroutine's own runtime-managed
// stack, parked on resume between turns.
type tcb struct {
	tid     int
	state   ThreadState
	quantum int

	entry  EntryFunc
	arg    any
	retval any

	stack []byte

	// resume is the context-switch primitive: a goroutine blocked
	// receiving on its own resume channel has its entire call stack
	// preserved by the Go runtime, which stands in for getcontext/
	// setcontext. Sending on it is "restore"; blocking on it is "save".
	resume chan struct{}

	// preempted marks that the quantum timer expired while this TCB was
	// RUNNING. The timer only sets the flag and leaves the state as it is;
	// the thread's next checkpoint clears it and performs the yield before
	// doing anything else. See Runtime.checkpoint.
	preempted bool
}

func newTCB(tid int, state ThreadState, entry EntryFunc, arg any, stackSize int) *tcb {
	return &tcb{
		tid:    tid,
		state:  state,
		entry:  entry,
		arg:    arg,
		stack:  make([]byte, stackSize),
		resume: make(chan struct{}),
	}
}
