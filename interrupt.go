package uthread

// quantumClock arms and disarms the source of preemption checkpoints. Start
// requests a one-shot notification after usecs microseconds of virtual CPU
// time; fire is invoked from an unspecified goroutine, never from the
// preempted thread itself, and must not block. Stop releases any resources
// held by the clock; it is always called exactly once, from Shutdown.
//
// The default implementation (newSystemQuantumClock) is platform-specific:
// a real ITIMER_VIRTUAL/SIGVTALRM pair on Unix (interrupt_unix.go), a
// time.Timer approximation on Windows (interrupt_windows.go). Tests inject
// a fake via WithQuantumSource to control preemption deterministically.
type quantumClock interface {
	// Start arms (or rearms) a one-shot quantum of usecs microseconds.
	Start(usecs int, fire func()) error
	// Stop disarms the clock and releases its resources.
	Stop()
}

// NewFakeQuantumClock returns a quantumClock whose quanta only elapse when
// Fire is called explicitly, for deterministic preemption tests.
func NewFakeQuantumClock() *FakeQuantumClock {
	return &FakeQuantumClock{}
}

// FakeQuantumClock is the exported handle for NewFakeQuantumClock; Fire
// triggers a preemption checkpoint exactly as if the quantum had elapsed.
type FakeQuantumClock struct {
	fire func()
}

func (f *FakeQuantumClock) Start(_ int, fire func()) error {
	f.fire = fire
	return nil
}

func (f *FakeQuantumClock) Stop() {
	f.fire = nil
}

// Fire simulates the quantum timer expiring.
func (f *FakeQuantumClock) Fire() {
	if f.fire != nil {
		f.fire()
	}
}
