// Package uthread implements a user-space cooperative-preemptive thread
// scheduler: many application-level threads multiplexed onto a single
// logical thread of control, preempted at fixed quanta by a virtual
// interval timer and handed off between each other by an explicit
// context-switch primitive.
//
// # Architecture
//
// [Runtime] is the single process-wide owner of all scheduling state: the
// ready queue, the joiner/suspend/finished tables, and the thread control
// block (TCB) array. Every mutation of that state happens while
// [Runtime.mu] is held, which plays the role the original implementation's
// signal masking played: only the lock holder may touch shared structures.
//
// Each thread is backed by its own goroutine parked on a per-TCB "resume"
// channel; a context switch is a channel send (wake the next thread) paired
// with a channel receive (park the outgoing thread), which is this
// implementation's equivalent of save/restore of a machine context.
//
// # Preemption
//
// A real virtual-interval timer and a real SIGVTALRM-equivalent signal (on
// Unix platforms) request preemption of the running thread every
// quantumUsecs microseconds. Because Go provides no supported way to
// forcibly suspend another goroutine's instruction pointer, the request is
// applied at the running thread's next safe point (its next call to Create,
// Yield, Join, Exit, Suspend or Resume, or the return from its entry
// function) rather than instantaneously. Self, GetQuantums,
// GetTotalQuantums and CurrentMetrics are not safe points. See SPEC_FULL.md for the full discussion.
//
// # Usage
//
//	if err := uthread.Init(1000); err != nil {
//		log.Fatal(err)
//	}
//	tid, err := uthread.Create(func(arg any) any {
//		return arg
//	}, 42)
//	retval, err := uthread.Join(tid)
package uthread
