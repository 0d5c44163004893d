//go:build windows

package uthread

import "time"

// systemQuantumClock approximates the Unix ITIMER_VIRTUAL/SIGVTALRM pair
// with a wall-clock time.Timer on platforms with no virtual-CPU-time signal
// facility. Quanta are measured in wall-clock rather than CPU time on this
// platform; documented as a platform-specific fidelity gap, not a behavioral
// one (the checkpoint contract seen by callers is identical).
type systemQuantumClock struct {
	timer *time.Timer
}

func newSystemQuantumClock() (*systemQuantumClock, error) {
	return &systemQuantumClock{}, nil
}

func (c *systemQuantumClock) Start(usecs int, fire func()) error {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(time.Duration(usecs)*time.Microsecond, fire)
	return nil
}

func (c *systemQuantumClock) Stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

func newPlatformQuantumClock() (quantumClock, error) {
	return newSystemQuantumClock()
}
