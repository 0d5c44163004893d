package uthread

import "errors"

// Sentinel errors returned by the public API. Every error kind named in
// spec.md's negative-return-code table becomes one of these, so callers can
// match with errors.Is.
var (
	// ErrInvalidID is returned when a tid falls outside [0, MaxThreads).
	ErrInvalidID = errors.New("uthread: invalid thread id")

	// ErrCapacityExceeded is returned by Create when MaxThreads threads are
	// already live.
	ErrCapacityExceeded = errors.New("uthread: thread capacity exceeded")

	// ErrSelfJoin is returned when a thread attempts to join itself.
	ErrSelfJoin = errors.New("uthread: thread cannot join itself")

	// ErrAlreadyAwaited is returned when a target tid already has a
	// registered joiner.
	ErrAlreadyAwaited = errors.New("uthread: target thread already has a joiner")

	// ErrNotSuspendable is returned when the suspend target is neither the
	// running thread nor on the ready queue.
	ErrNotSuspendable = errors.New("uthread: target thread cannot be suspended")

	// ErrWouldDeadlock is returned when blocking the calling thread would
	// leave no ready thread to run.
	ErrWouldDeadlock = errors.New("uthread: operation would deadlock the runtime")

	// ErrPlatformError is returned by Init when the interval timer or
	// signal handler could not be installed.
	ErrPlatformError = errors.New("uthread: platform timer/signal setup failed")

	// ErrNotInitialized is returned by any error-returning operation
	// invoked before Init, or after Shutdown. Not part of the original C ABI (which treats this
	// as undefined behavior); a real Go library must fail safely instead.
	ErrNotInitialized = errors.New("uthread: runtime not initialized")

	// ErrAlreadyRunning is returned by Init when called on a runtime that
	// is already initialized.
	ErrAlreadyRunning = errors.New("uthread: runtime already initialized")
)
