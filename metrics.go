package uthread

import (
	"sync"
	"time"
)

// Metrics tracks counters and a streaming quantile estimate of per-quantum
// scheduled-run duration. Safe for concurrent use; a Runtime holds exactly
// one and updates it under its own mu, but Snapshot may be called from
// any goroutine.
type Metrics struct {
	mu sync.Mutex

	created        int
	voluntaryYield int
	preempted      int
	deadlocks      int

	quantumDuration *pSquareQuantile
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read freely.
type MetricsSnapshot struct {
	ThreadsCreated     int
	VoluntaryYields    int
	PreemptedQuanta    int
	DeadlockErrors     int
	QuantumDurationP50 time.Duration
	Observations       int
}

func newMetrics() *Metrics {
	return &Metrics{quantumDuration: newPSquareQuantile(0.5)}
}

func (m *Metrics) recordCreate() {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *Metrics) recordYield() {
	m.mu.Lock()
	m.voluntaryYield++
	m.mu.Unlock()
}

func (m *Metrics) recordPreempt() {
	m.mu.Lock()
	m.preempted++
	m.mu.Unlock()
}

func (m *Metrics) recordDeadlock() {
	m.mu.Lock()
	m.deadlocks++
	m.mu.Unlock()
}

func (m *Metrics) recordQuantumDuration(d time.Duration) {
	m.mu.Lock()
	m.quantumDuration.Update(float64(d))
	m.mu.Unlock()
}

// Snapshot returns the current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		ThreadsCreated:     m.created,
		VoluntaryYields:    m.voluntaryYield,
		PreemptedQuanta:    m.preempted,
		DeadlockErrors:     m.deadlocks,
		QuantumDurationP50: time.Duration(m.quantumDuration.Quantile()),
		Observations:       m.quantumDuration.Count(),
	}
}

// pSquareQuantile implements the P² algorithm for streaming quantile
// estimation in O(1) time and space per observation, adapted for tracking
// the distribution of per-quantum scheduled-run durations (nanoseconds, as
// float64) instead of event-loop task latencies.
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for Dynamic
// Calculation of Quantiles and Histograms Without Storing Observations".
// Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not safe for concurrent use by itself; Metrics serializes access.
type pSquareQuantile struct {
	p  float64
	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

func newPSquareQuantile(p float64) *pSquareQuantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &pSquareQuantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (ps *pSquareQuantile) Update(x float64) {
	ps.count++

	if ps.count <= 5 {
		ps.initBuffer[ps.count-1] = x
		if ps.count == 5 {
			ps.initialize()
		}
		return
	}

	var k int
	switch {
	case x < ps.q[0]:
		ps.q[0] = x
		k = 0
	case x >= ps.q[4]:
		ps.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if ps.q[k] <= x && x < ps.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.n[i]++
	}
	for i := 0; i < 5; i++ {
		ps.np[i] += ps.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.np[i] - float64(ps.n[i])
		if (d >= 1 && ps.n[i+1]-ps.n[i] > 1) || (d <= -1 && ps.n[i-1]-ps.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := ps.parabolic(i, sign)
			if ps.q[i-1] < qPrime && qPrime < ps.q[i+1] {
				ps.q[i] = qPrime
			} else {
				ps.q[i] = ps.linear(i, sign)
			}
			ps.n[i] += sign
		}
	}
}

func (ps *pSquareQuantile) initialize() {
	for i := 1; i < 5; i++ {
		key := ps.initBuffer[i]
		j := i - 1
		for j >= 0 && ps.initBuffer[j] > key {
			ps.initBuffer[j+1] = ps.initBuffer[j]
			j--
		}
		ps.initBuffer[j+1] = key
	}

	for i := 0; i < 5; i++ {
		ps.q[i] = ps.initBuffer[i]
		ps.n[i] = i
	}
	ps.np = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
	ps.initialized = true
}

func (ps *pSquareQuantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(ps.n[i])
	niPrev := float64(ps.n[i-1])
	niNext := float64(ps.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (ps.q[i+1] - ps.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (ps.q[i] - ps.q[i-1]) / (ni - niPrev)

	return ps.q[i] + term1*(term2+term3)
}

func (ps *pSquareQuantile) linear(i, d int) float64 {
	if d == 1 {
		return ps.q[i] + (ps.q[i+1]-ps.q[i])/float64(ps.n[i+1]-ps.n[i])
	}
	return ps.q[i] - (ps.q[i]-ps.q[i-1])/float64(ps.n[i]-ps.n[i-1])
}

func (ps *pSquareQuantile) Quantile() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		sorted := make([]float64, ps.count)
		copy(sorted, ps.initBuffer[:ps.count])
		for i := 1; i < ps.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(ps.count-1) * ps.p)
		if index >= ps.count {
			index = ps.count - 1
		}
		return sorted[index]
	}
	return ps.q[2]
}

func (ps *pSquareQuantile) Count() int {
	return ps.count
}
