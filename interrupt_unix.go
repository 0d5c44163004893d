//go:build !windows

package uthread

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// systemQuantumClock arms a real virtual-time interval timer and catches the
// resulting SIGVTALRM via os/signal, in the style of
// prompt/signal_common.go's signal-to-channel listener loop. ITIMER_VIRTUAL
// only counts CPU time the process actually spends running, which is the
// closest real platform facility to spec.md §6's "virtual-time interval
// timer" requirement.
type systemQuantumClock struct {
	mu   sync.Mutex
	fire func()

	done chan struct{}
	wg   sync.WaitGroup
}

// newSystemQuantumClock starts a single long-lived dispatcher goroutine for
// the process's SIGVTALRM stream, rather than one per armed quantum: the
// timer is one-shot (ITIMER_VIRTUAL with no interval), but the listener that
// turns each delivered signal into a fire() call is not.
func newSystemQuantumClock() (*systemQuantumClock, error) {
	c := &systemQuantumClock{
		done: make(chan struct{}),
	}
	notifyCh := make(chan os.Signal, 8)
	signal.Notify(notifyCh, syscall.SIGVTALRM)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer signal.Stop(notifyCh)
		for {
			select {
			case <-notifyCh:
				c.mu.Lock()
				fire := c.fire
				c.fire = nil
				c.mu.Unlock()
				if fire != nil {
					fire()
				}
			case <-c.done:
				return
			}
		}
	}()
	return c, nil
}

func (c *systemQuantumClock) Start(usecs int, fire func()) error {
	c.mu.Lock()
	c.fire = fire
	c.mu.Unlock()

	it := unix.Itimerval{
		Value: unix.Timeval{
			Sec:  int64(usecs / 1_000_000),
			Usec: int64(usecs % 1_000_000),
		},
	}
	return unix.Setitimer(unix.ITIMER_VIRTUAL, &it, nil)
}

func (c *systemQuantumClock) Stop() {
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, &unix.Itimerval{}, nil)
	c.mu.Lock()
	c.fire = nil
	c.mu.Unlock()
	close(c.done)
	c.wg.Wait()
}

func newPlatformQuantumClock() (quantumClock, error) {
	return newSystemQuantumClock()
}
