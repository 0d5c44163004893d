package uthread

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withRuntime initializes a fresh runtime for the duration of the test and
// guarantees Shutdown on exit, so tests never leak a live timer goroutine
// into the next test.
func withRuntime(t *testing.T, quantumUsecs int, opts ...Option) {
	t.Helper()
	require.NoError(t, Init(quantumUsecs, opts...))
	t.Cleanup(Shutdown)
}

func TestBootstrapIdentity(t *testing.T) {
	withRuntime(t, 1_000_000)

	assert.Equal(t, 0, Self())

	q, ok := GetQuantums(0)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, q, 0)
}

func TestCreateDoesNotSwitch(t *testing.T) {
	withRuntime(t, 1_000_000)

	tid, err := Create(func(arg any) any { return arg }, nil)
	require.NoError(t, err)
	assert.NotEqual(t, tid, Self())
	assert.Equal(t, 0, Self())
}

func TestYieldRoundRobinFairness(t *testing.T) {
	withRuntime(t, 1_000_000)

	const n = 10
	var mu sync.Mutex
	var log []string
	finishedCount := 0

	for i := 0; i < n; i++ {
		_, err := Create(func(arg any) any {
			tid := arg.(int)
			mu.Lock()
			log = append(log, fmt.Sprintf("A(%d)", tid))
			mu.Unlock()

			_ = Yield()

			mu.Lock()
			log = append(log, fmt.Sprintf("B(%d)", tid))
			finishedCount++
			mu.Unlock()
			return nil
		}, i)
		require.NoError(t, err)
	}

	// Every actor is scheduler-mediated: drive the round-robin by hand,
	// since nothing resumes a raw channel receive on this thread while it
	// holds the only CPU this runtime has.
	for {
		mu.Lock()
		done := finishedCount == n
		mu.Unlock()
		if done {
			break
		}
		_ = Yield()
	}

	mu.Lock()
	defer mu.Unlock()
	for k := 0; k < n; k++ {
		for i := 0; i+1 < len(log); i++ {
			if log[i] == fmt.Sprintf("A(%d)", k) {
				assert.NotEqual(t, fmt.Sprintf("B(%d)", k), log[i+1],
					"A(%d) and B(%d) must not be adjacent", k, k)
			}
		}
	}
}

func fib(n int) int {
	if n < 2 {
		return n
	}
	a, b := 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

func TestFibonacciJoin(t *testing.T) {
	withRuntime(t, 1_000_000)

	const offset = 10
	const n = 5
	tids := make([]int, n)
	for i := 0; i < n; i++ {
		tid, err := Create(func(arg any) any {
			self := arg.(int)
			return fib(offset + self)
		}, i)
		require.NoError(t, err)
		tids[i] = tid
	}

	for i := 0; i < n; i++ {
		retval, err := Join(tids[i])
		require.NoError(t, err)
		assert.Equal(t, fib(offset+i), retval)
	}
}

func TestSuspendResumeHandshake(t *testing.T) {
	withRuntime(t, 1_000_000)

	var mu sync.Mutex
	var log []string
	record := func(s string) {
		mu.Lock()
		log = append(log, s)
		mu.Unlock()
	}

	xDone := make(chan struct{})
	xTid, err := Create(func(arg any) any {
		record("x-before")
		require.NoError(t, Suspend(Self()))
		record("x-after")
		close(xDone)
		return nil
	}, nil)
	require.NoError(t, err)

	yDone := make(chan struct{})
	_, err = Create(func(arg any) any {
		record("y-between")
		require.NoError(t, Resume(xTid))
		close(yDone)
		return nil
	}, nil)
	require.NoError(t, err)

	// Drive the scheduler by hand: every actor here (x suspending itself, y
	// resuming x) is scheduler-mediated, so progress only happens on a
	// Yield call from this goroutine. Bounded polling, not a raw channel
	// wait, since nothing else can make x or y progress in between.
	for i := 0; i < 50; i++ {
		select {
		case <-xDone:
		default:
			require.NoError(t, Yield())
			continue
		}
		break
	}
	<-xDone
	<-yDone

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"x-before", "y-between", "x-after"}, log)
}

func TestEvenOddReturn(t *testing.T) {
	withRuntime(t, 1_000_000)

	const n = 6
	tids := make([]int, n)
	for i := 0; i < n; i++ {
		tid, err := Create(func(arg any) any {
			self := arg.(int)
			return self%2 == 0
		}, i)
		require.NoError(t, err)
		tids[i] = tid
	}
	for i := 0; i < n; i++ {
		retval, err := Join(tids[i])
		require.NoError(t, err)
		assert.Equal(t, i%2 == 0, retval)
	}
}

func TestJoinSelfFails(t *testing.T) {
	withRuntime(t, 1_000_000)

	_, err := Join(Self())
	assert.ErrorIs(t, err, ErrSelfJoin)
}

func TestJoinInvalidID(t *testing.T) {
	withRuntime(t, 1_000_000)

	_, err := Join(-1)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = Join(MaxThreads)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestJoinEmptySlotSucceedsWithNilRetval(t *testing.T) {
	withRuntime(t, 1_000_000)

	tid, err := Create(func(arg any) any { return "first" }, nil)
	require.NoError(t, err)
	retval, err := Join(tid)
	require.NoError(t, err)
	assert.Equal(t, "first", retval)

	// The slot is reaped; joining the now-dead id again is a no-op success.
	retval, err = Join(tid)
	require.NoError(t, err)
	assert.Nil(t, retval)
}

func TestJoinAlreadyAwaited(t *testing.T) {
	withRuntime(t, 1_000_000)

	// Every actor here is scheduler-mediated (Yield/Join), never a raw
	// channel block: this is a single logical thread of control, so a
	// currently-RUNNING thread blocking on anything outside the scheduler
	// would stall every other thread permanently.
	var mu sync.Mutex
	canFinish := false
	var firstJoinErr error
	firstJoinDone := false

	target, err := Create(func(arg any) any {
		for {
			mu.Lock()
			done := canFinish
			mu.Unlock()
			if done {
				break
			}
			require.NoError(t, Yield())
		}
		return "target-result"
	}, nil)
	require.NoError(t, err)

	_, err = Create(func(arg any) any {
		_, joinErr := Join(target)
		mu.Lock()
		firstJoinErr = joinErr
		firstJoinDone = true
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	// Let `target` start spinning and the first joiner register itself and
	// block.
	for i := 0; i < 4; i++ {
		require.NoError(t, Yield())
	}

	_, err = Join(target)
	assert.ErrorIs(t, err, ErrAlreadyAwaited)

	mu.Lock()
	canFinish = true
	mu.Unlock()

	for {
		mu.Lock()
		done := firstJoinDone
		mu.Unlock()
		if done {
			break
		}
		require.NoError(t, Yield())
	}

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, firstJoinErr)
}

func TestSuspendInvalidID(t *testing.T) {
	withRuntime(t, 1_000_000)
	assert.ErrorIs(t, Suspend(-1), ErrInvalidID)
	assert.ErrorIs(t, Suspend(MaxThreads), ErrInvalidID)
}

func TestSuspendNotSuspendableWhenFinished(t *testing.T) {
	withRuntime(t, 1_000_000)

	tid, err := Create(func(arg any) any { return nil }, nil)
	require.NoError(t, err)
	_, err = Join(tid)
	require.NoError(t, err)

	assert.ErrorIs(t, Suspend(tid), ErrNotSuspendable)
}

func TestResumeNonSuspendedIsNoop(t *testing.T) {
	withRuntime(t, 1_000_000)

	tid, err := Create(func(arg any) any { return nil }, nil)
	require.NoError(t, err)
	assert.NoError(t, Resume(tid))
	_, err = Join(tid)
	require.NoError(t, err)
}

func TestYieldWithEmptyReadyQueueIncrementsQuantum(t *testing.T) {
	withRuntime(t, 1_000_000)

	before, ok := GetQuantums(0)
	require.True(t, ok)
	require.NoError(t, Yield())
	after, ok := GetQuantums(0)
	require.True(t, ok)
	assert.Equal(t, before+1, after)
}

func TestCapacityExceeded(t *testing.T) {
	withRuntime(t, 1_000_000)

	block := make(chan struct{})
	var tids []int
	for i := 0; i < MaxThreads-1; i++ {
		tid, err := Create(func(arg any) any {
			<-block
			return nil
		}, nil)
		require.NoError(t, err)
		tids = append(tids, tid)
	}

	_, err := Create(func(arg any) any { return nil }, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	close(block)
	for _, tid := range tids {
		_, err := Join(tid)
		require.NoError(t, err)
	}
}

func TestGetTotalQuantumsMatchesSum(t *testing.T) {
	withRuntime(t, 1_000_000)

	tid, err := Create(func(arg any) any {
		_ = Yield()
		return nil
	}, nil)
	require.NoError(t, err)
	_, err = Join(tid)
	require.NoError(t, err)

	sum := 0
	for tid := 0; tid < MaxThreads; tid++ {
		if q, ok := GetQuantums(tid); ok {
			sum += q
		}
	}
	assert.Equal(t, sum, GetTotalQuantums())
}

func TestInitTwiceFails(t *testing.T) {
	withRuntime(t, 1_000_000)
	assert.ErrorIs(t, Init(1_000_000), ErrAlreadyRunning)
}

func TestOperationsBeforeInitFail(t *testing.T) {
	_, err := Create(func(arg any) any { return nil }, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, Yield(), ErrNotInitialized)
	assert.Equal(t, -1, Self())
}

func TestPreemptionAppliesAtNextCheckpoint(t *testing.T) {
	clock := NewFakeQuantumClock()
	withRuntime(t, 1_000_000, WithQuantumSource(clock))

	var mu sync.Mutex
	var log []string
	record := func(s string) {
		mu.Lock()
		log = append(log, s)
		mu.Unlock()
	}

	var quantumAfterYield int
	first, err := Create(func(arg any) any {
		record("first-start")
		clock.Fire() // marks this thread preempted; takes effect at its next checkpoint
		record("first-still-running") // no API call yet: deferred preemption not yet applied
		require.NoError(t, Yield())   // checkpoint here applies the deferred preemption first
		record("first-resumed")
		// Read before returning: once this thread exits it is reaped and its
		// quantum counter is gone. A single Yield call that absorbs a
		// deferred preemption must still switch away exactly once.
		q, ok := GetQuantums(Self())
		require.True(t, ok)
		mu.Lock()
		quantumAfterYield = q
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	_, err = Create(func(arg any) any {
		record("second")
		return nil
	}, nil)
	require.NoError(t, err)

	_, err = Join(first)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"first-start", "first-still-running", "second", "first-resumed"}, log)
	assert.Equal(t, 1, quantumAfterYield)
	mu.Unlock()

	m, err := CurrentMetrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Snapshot().PreemptedQuanta)
}
