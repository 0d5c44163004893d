package uthread

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeycumines/go-uthread/internal/gid"
	"github.com/joeycumines/go-uthread/internal/ring"
)

// Runtime is the single process-wide scheduler instance. Every public
// function in this package operates on the package-level singleton created
// by Init; Runtime itself is never constructed directly by callers, mirroring
// the "package-level global is appropriate for infrastructure" rationale
// documented for eventloop's logger.
type Runtime struct {
	mu sync.Mutex

	initialized bool
	runningTid  int
	numThreads  int

	threads [MaxThreads]*tcb
	idPool  *ring.Ring[int]
	readyQ  *ring.Ring[int]

	joiners   map[int]*tcb
	suspended map[int]*tcb
	finished  map[int]any

	gidToTid sync.Map // uint64 goroutine id -> int tid

	logger       zerolog.Logger
	metrics      *Metrics
	stackSize    int
	quantumUsecs int
	clock        quantumClock

	runStartedAt time.Time
}

var (
	globalMu sync.Mutex
	global   *Runtime
)

// Init constructs the runtime, allocates the bootstrap thread (id 0, state
// RUNNING) for the calling goroutine, and arms the quantum timer. It must be
// the first call into the package; any other operation called first fails
// safely instead of following the original's undefined behavior: the
// error-returning operations return ErrNotInitialized, and Self,
// GetQuantums, GetTotalQuantums and Exit return their zero-effect results.
func Init(quantumUsecs int, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return ErrAlreadyRunning
	}
	if quantumUsecs <= 0 {
		return ErrPlatformError
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return err
	}
	if cfg.stackSize < minStackSize {
		return ErrPlatformError
	}

	rt := &Runtime{
		idPool:       ring.New[int](MaxThreads),
		readyQ:       ring.New[int](MaxThreads),
		joiners:      make(map[int]*tcb),
		suspended:    make(map[int]*tcb),
		finished:     make(map[int]any),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		stackSize:    cfg.stackSize,
		quantumUsecs: quantumUsecs,
	}
	for i := 1; i < MaxThreads; i++ {
		rt.idPool.PushBack(i)
	}

	clock := cfg.quantumClock
	if clock == nil {
		c, err := newPlatformQuantumClock()
		if err != nil {
			rt.logger.Error().Err(err).Msg("uthread: failed to construct quantum timer")
			return ErrPlatformError
		}
		clock = c
	}
	rt.clock = clock

	boot := newTCB(0, StateRunning, nil, nil, rt.stackSize)
	rt.threads[0] = boot
	rt.runningTid = 0
	rt.numThreads = 1
	rt.runStartedAt = time.Now()
	rt.gidToTid.Store(gid.Current(), 0)

	if err := rt.clock.Start(quantumUsecs, rt.onTick); err != nil {
		rt.logger.Error().Err(err).Msg("uthread: failed to arm quantum timer")
		return ErrPlatformError
	}

	rt.initialized = true
	global = rt
	rt.logger.Debug().Int("quantum_usecs", quantumUsecs).Msg("uthread: runtime initialized")
	return nil
}

// Shutdown stops the quantum timer and releases the runtime, so a process
// that embeds uthread can tear it down without exiting. It has no
// equivalent in the original, which simply let the process exit; see
// SPEC_FULL.md §9.
func Shutdown() {
	globalMu.Lock()
	rt := global
	global = nil
	globalMu.Unlock()
	if rt == nil {
		return
	}
	rt.mu.Lock()
	rt.initialized = false
	rt.mu.Unlock()
	rt.clock.Stop()
	rt.logger.Debug().Msg("uthread: runtime shut down")
}

// CurrentMetrics returns the active runtime's Metrics, or ErrNotInitialized.
func CurrentMetrics() (*Metrics, error) {
	rt, err := currentRuntime()
	if err != nil {
		return nil, err
	}
	return rt.metrics, nil
}

func currentRuntime() (*Runtime, error) {
	globalMu.Lock()
	rt := global
	globalMu.Unlock()
	if rt == nil {
		return nil, ErrNotInitialized
	}
	return rt, nil
}

// self resolves the calling goroutine's tcb. Every public API entry point is
// assumed, per the package's contract, to be invoked from the goroutine of
// the thread it logically runs "as" (the bootstrap thread's own goroutine,
// or a thread's dedicated goroutine spawned by runStub). A lookup miss means
// that contract was violated by the embedder, which is a programming error.
func (rt *Runtime) self() *tcb {
	v, ok := rt.gidToTid.Load(gid.Current())
	if !ok {
		panic("uthread: called from a goroutine that is not a tracked thread")
	}
	return rt.threads[v.(int)]
}

// checkpoint must be called with rt.mu held, immediately after resolving
// self, before any of the calling operation's own state mutation. If the
// quantum timer marked self preempted since its last checkpoint, the
// deferred involuntary yield happens here: this is the "next safe point" at
// which this package approximates forced preemption. See SPEC_FULL.md's
// Preemption fidelity section. Reports whether it yielded, so a caller that
// is about to do its own doYield (Yield itself) can skip the redundant call.
func (rt *Runtime) checkpoint(self *tcb) bool {
	if !self.preempted {
		return false
	}
	self.preempted = false
	rt.metrics.recordPreempt()
	rt.logger.Debug().Int("tid", self.tid).Msg("uthread: applying deferred preemption at checkpoint")
	rt.doYield(self)
	return true
}

// doYield implements §4.5: must be called with rt.mu held and self the
// running tcb. On return, self is RUNNING again and rt.mu is held.
func (rt *Runtime) doYield(self *tcb) {
	if rt.readyQ.Len() == 0 {
		self.quantum++
		rt.armTimer()
		return
	}
	self.state = StateReady
	rt.readyQ.PushBack(self.tid)
	next := rt.threads[rt.readyQ.PopFront()]
	next.state = StateRunning
	rt.switchThreads(self, next)
	self.state = StateRunning
}

// switchThreads is the context-switch primitive: must be called with rt.mu
// held, old distinct from new, new already marked RUNNING. It increments
// old's quantum, updates running_tid, rearms the timer for new's fresh
// quantum, then hands control to new over its resume channel while old
// blocks on its own. Returns once some later switch resumes old, with
// rt.mu held again — the Go realization of spec.md §4.1's save/restore
// contract, using the Go runtime's own goroutine stacks in place of a
// user-space machine context.
func (rt *Runtime) switchThreads(old, new *tcb) {
	old.quantum++
	rt.runningTid = new.tid
	if !rt.runStartedAt.IsZero() {
		rt.metrics.recordQuantumDuration(time.Since(rt.runStartedAt))
	}
	rt.armTimer()

	rt.mu.Unlock()
	new.resume <- struct{}{}
	rt.awaitResume(old)
}

// awaitResume blocks self's goroutine until some other thread switches
// control to it, then reacquires rt.mu. Used both by switchThreads, for the
// outgoing thread's own block, and by runStub, for a freshly created
// thread's first dispatch — the two ways a thread can reach RUNNING for the
// first (or next) time.
func (rt *Runtime) awaitResume(self *tcb) {
	<-self.resume
	rt.mu.Lock()
	rt.runStartedAt = time.Now()
	self.preempted = false
}

// armTimer (re)starts the quantum timer. Must be called with rt.mu held.
func (rt *Runtime) armTimer() {
	if err := rt.clock.Start(rt.quantumUsecs, rt.onTick); err != nil {
		rt.logger.Error().Err(err).Msg("uthread: failed to rearm quantum timer")
	}
}

// onTick runs on an unspecified goroutine when the quantum timer expires.
// It cannot forcibly interrupt the running thread's goroutine — Go exposes
// no such primitive — so it only marks the running tcb preempted; the
// actual yield happens at that thread's next checkpoint.
func (rt *Runtime) onTick() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.initialized {
		return
	}
	running := rt.threads[rt.runningTid]
	if running == nil {
		return
	}
	running.preempted = true
}

// reap destroys a finished TCB and returns its id to the pool. Must be
// called with rt.mu held and tid's finished-table entry already removed.
func (rt *Runtime) reap(tid int) {
	rt.threads[tid] = nil
	rt.idPool.PushBack(tid)
	rt.numThreads--
}

// Create allocates a new thread in state READY running entry(arg), and
// appends it to the ready queue. Does not context-switch: the caller keeps
// running.
func Create(entry EntryFunc, arg any) (int, error) {
	rt, err := currentRuntime()
	if err != nil {
		return -1, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	self := rt.self()
	rt.checkpoint(self)

	if rt.numThreads >= MaxThreads {
		rt.logger.Warn().Msg("uthread: create failed, capacity exceeded")
		return -1, ErrCapacityExceeded
	}
	if rt.idPool.Len() == 0 {
		panic("uthread: id pool exhausted while under capacity")
	}

	tid := rt.idPool.PopFront()
	t := newTCB(tid, StateReady, entry, arg, rt.stackSize)
	rt.threads[tid] = t
	rt.numThreads++
	rt.readyQ.PushBack(tid)
	rt.metrics.recordCreate()
	rt.logger.Debug().Int("tid", tid).Msg("uthread: create")

	go rt.runStub(t)

	return tid, nil
}

// runStub is the dedicated goroutine body for a created thread: it blocks
// until first dispatched, unmasks (the stub's role in the post-switch-tail
// unmask convention, per spec.md §4.2-4.3), runs the user entry function,
// and forwards its return value to Exit. It never returns.
func (rt *Runtime) runStub(self *tcb) {
	rt.gidToTid.Store(gid.Current(), self.tid)
	rt.awaitResume(self)
	rt.mu.Unlock()

	retval := self.entry(self.arg)
	Exit(retval)
}

// Yield relinquishes the CPU to the next ready thread, if any.
func Yield() error {
	rt, err := currentRuntime()
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	self := rt.self()
	alreadyYielded := rt.checkpoint(self)
	rt.metrics.recordYield()
	if !alreadyYielded {
		rt.doYield(self)
	}
	return nil
}

// Join blocks the calling thread until tid finishes, then returns its
// return value exactly once. See spec.md §4.6 for the full error/edge-case
// contract, preserved here unchanged.
func Join(tid int) (any, error) {
	rt, err := currentRuntime()
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	self := rt.self()
	rt.checkpoint(self)

	if tid < 0 || tid >= MaxThreads {
		return nil, ErrInvalidID
	}
	if tid == self.tid {
		return nil, ErrSelfJoin
	}
	if _, ok := rt.joiners[tid]; ok {
		return nil, ErrAlreadyAwaited
	}
	if rt.threads[tid] == nil {
		// Never existed, or already reaped: success, *retval untouched.
		return nil, nil
	}
	if retval, ok := rt.finished[tid]; ok {
		delete(rt.finished, tid)
		rt.reap(tid)
		return retval, nil
	}
	if rt.readyQ.Len() == 0 {
		rt.metrics.recordDeadlock()
		rt.logger.Warn().Int("tid", tid).Msg("uthread: join would deadlock")
		return nil, ErrWouldDeadlock
	}

	self.state = StateBlock
	rt.joiners[tid] = self
	next := rt.threads[rt.readyQ.PopFront()]
	next.state = StateRunning
	rt.switchThreads(self, next)
	self.state = StateRunning

	retval, ok := rt.finished[tid]
	if !ok {
		panic("uthread: joined target not finished after resume")
	}
	delete(rt.finished, tid)
	rt.reap(tid)
	return retval, nil
}

// Exit terminates the calling thread, delivering retval to its joiner if
// one is registered, or waking no one if not (the value then sits in the
// finished table until a future Join consumes it). Called on the bootstrap
// thread, it terminates the process with status 0. It never returns while
// the runtime is initialized; before Init or after Shutdown it returns
// immediately without effect.
func Exit(retval any) {
	rt, err := currentRuntime()
	if err != nil {
		return
	}
	rt.mu.Lock()

	self := rt.self()
	rt.checkpoint(self)

	if self.tid == 0 {
		rt.logger.Info().Msg("uthread: bootstrap thread exited, terminating process")
		rt.mu.Unlock()
		os.Exit(0)
	}

	if joiner, ok := rt.joiners[self.tid]; ok {
		delete(rt.joiners, self.tid)
		joiner.state = StateReady
		rt.readyQ.PushBack(joiner.tid)
	}
	self.state = StateFinished
	rt.finished[self.tid] = retval
	rt.logger.Debug().Int("tid", self.tid).Msg("uthread: exit")

	if rt.readyQ.Len() == 0 {
		panic("uthread: exit with no ready thread to run")
	}
	next := rt.threads[rt.readyQ.PopFront()]
	next.state = StateRunning
	rt.switchThreads(self, next)
	panic("uthread: a finished thread was resumed")
}

// Suspend parks tid: if it is the running thread, control switches away
// (returning here only once the thread is later resumed and rescheduled).
// If it is some other ready thread, it is simply moved to the suspend
// table; no switch occurs.
func Suspend(tid int) error {
	rt, err := currentRuntime()
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	self := rt.self()
	rt.checkpoint(self)

	if tid < 0 || tid >= MaxThreads {
		return ErrInvalidID
	}

	if tid == self.tid {
		if rt.readyQ.Len() == 0 {
			rt.metrics.recordDeadlock()
			return ErrWouldDeadlock
		}
		self.state = StateBlock
		rt.suspended[tid] = self
		next := rt.threads[rt.readyQ.PopFront()]
		next.state = StateRunning
		rt.switchThreads(self, next)
		self.state = StateRunning
		return nil
	}

	target := rt.threads[tid]
	if target == nil || target.state != StateReady {
		return ErrNotSuspendable
	}
	if _, ok := rt.readyQ.RemoveFunc(func(t int) bool { return t == tid }); !ok {
		panic("uthread: ready thread missing from ready queue")
	}
	target.state = StateBlock
	rt.suspended[tid] = target
	return nil
}

// Resume moves a suspended thread back onto the ready queue. A no-op
// success if tid is not currently suspended.
func Resume(tid int) error {
	rt, err := currentRuntime()
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	self := rt.self()
	rt.checkpoint(self)

	if tid < 0 || tid >= MaxThreads {
		return ErrInvalidID
	}
	target, ok := rt.suspended[tid]
	if !ok {
		return nil
	}
	delete(rt.suspended, tid)
	target.state = StateReady
	rt.readyQ.PushBack(tid)
	return nil
}

// Self returns the calling thread's id. Non-blocking; needs no masking.
func Self() int {
	rt, err := currentRuntime()
	if err != nil {
		return -1
	}
	return rt.self().tid
}

// GetQuantums returns tid's quantum counter, or ok=false if tid names no
// live thread.
func GetQuantums(tid int) (int, bool) {
	rt, err := currentRuntime()
	if err != nil {
		return -1, false
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if tid < 0 || tid >= MaxThreads {
		return -1, false
	}
	t := rt.threads[tid]
	if t == nil {
		return -1, false
	}
	return t.quantum, true
}

// GetTotalQuantums returns the sum of quantum counters over all live
// threads.
func GetTotalQuantums() int {
	rt, err := currentRuntime()
	if err != nil {
		return 0
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	total := 0
	for _, t := range rt.threads {
		if t != nil {
			total += t.quantum
		}
	}
	return total
}
