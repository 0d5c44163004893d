// Command uthreaddemo drives every end-to-end scenario this package
// supports: bootstrap identity, round-robin fairness, a Fibonacci join farm,
// a suspend/resume handshake, even/odd return values, and bootstrap-thread
// process termination.
//
// Usage: uthreaddemo <fib offset> <threads> [quantum_usecs]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	uthread "github.com/joeycumines/go-uthread"
)

var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: uthreaddemo <fib offset> <threads> [quantum_usecs]")
		os.Exit(1)
	}
	fibOffset, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fib offset")
	}
	numThreads, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid thread count")
	}
	quantumUsecs := 1000
	if len(os.Args) >= 4 {
		quantumUsecs, err = strconv.Atoi(os.Args[3])
		if err != nil {
			log.Fatal().Err(err).Msg("invalid quantum_usecs")
		}
	}

	uthread.SetDefaultLogger(log)

	section("Testing Init and Self")
	if err := uthread.Init(quantumUsecs); err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	defer uthread.Shutdown()

	mainTid := uthread.Self()
	log.Info().Int("expected", 0).Int("actual", mainTid).Msg("bootstrap identity")
	if mainTid != 0 {
		log.Fatal().Msg("bootstrap thread does not have id 0")
	}

	section("Testing GetTotalQuantums and GetQuantums")
	buildUpQuantums()

	section("Testing Create and Join (Fibonacci)")
	fibonacciScenario(fibOffset, numThreads)

	section("Testing Yield (round-robin fairness)")
	yieldFairnessScenario()

	section("Testing Suspend and Resume")
	suspendResumeScenario()

	section("Testing even/odd return values")
	evenOddScenario()

	if m, err := uthread.CurrentMetrics(); err == nil {
		snap := m.Snapshot()
		log.Info().
			Int("created", snap.ThreadsCreated).
			Int("voluntary_yields", snap.VoluntaryYields).
			Int("preempted_quanta", snap.PreemptedQuanta).
			Int("deadlocks", snap.DeadlockErrors).
			Msg("final metrics")
	}

	section("Testing bootstrap Exit terminates the process")
	for i := 1; i <= 11; i++ {
		log.Info().Int("line", i).Msg("printed before exit")
	}
	uthread.Exit(nil)
	// Unreachable: Exit never returns for the bootstrap thread.
	log.Fatal().Msg("a 12th line was printed; Exit did not terminate the process")
}

func section(title string) {
	log.Info().Msg("")
	log.Info().Msg(title)
}

// buildUpQuantums spins the bootstrap thread on voluntary Yield calls for a
// moment to accumulate a few quanta, then compares GetQuantums(self) against
// GetTotalQuantums while it is the only live thread.
func buildUpQuantums() {
	for i := 0; i < 1000; i++ {
		_ = uthread.Yield()
	}
	q, _ := uthread.GetQuantums(uthread.Self())
	total := uthread.GetTotalQuantums()
	log.Info().Int("self_quantums", q).Int("total_quantums", total).
		Msg("expect these to match while only the bootstrap thread is live")
}

func fib(n int) uint64 {
	if n < 2 {
		return uint64(n)
	}
	a, b := uint64(0), uint64(1)
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

func fibonacciScenario(offset, numThreads int) {
	tids := make([]int, numThreads)
	for i := 0; i < numThreads; i++ {
		tid, err := uthread.Create(func(arg any) any {
			n := arg.(int) + uthread.Self()
			return fib(n)
		}, offset)
		if err != nil {
			log.Fatal().Err(err).Msg("create failed")
		}
		tids[i] = tid
	}

	for _, tid := range tids {
		retval, err := uthread.Join(tid)
		if err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
		n := offset + tid
		got := retval.(uint64)
		want := fib(n)
		log.Info().Int("tid", tid).Int("n", n).Uint64("fib", got).Uint64("expected", want).
			Msg("joined fibonacci thread")
		if got != want {
			log.Fatal().Msg("fibonacci result mismatch")
		}
	}
}

// yieldFairnessScenario creates 10 threads that each log an (A) line, yield,
// then log a (B) line; the produced log should never show a thread's (A)
// and (B) lines back-to-back with nothing from another thread in between.
func yieldFairnessScenario() {
	const n = 10
	tids := make([]int, n)
	for i := 0; i < n; i++ {
		tid, err := uthread.Create(func(arg any) any {
			tid := uthread.Self()
			log.Info().Int("tid", tid).Msg("(A)")
			_ = uthread.Yield()
			log.Info().Int("tid", tid).Msg("(B)")
			return nil
		}, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("create failed")
		}
		tids[i] = tid
	}
	for _, tid := range tids {
		if _, err := uthread.Join(tid); err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
	}
}

// suspendResumeScenario reproduces the handshake: one thread suspends
// itself immediately, another sleeps roughly two wall-clock seconds before
// resuming it. The sleep makes no call into the package, so it hands the CPU
// to no other thread; that is safe here specifically because no other thread
// needs to run during that interval. See SPEC_FULL.md's discussion of this
// package's preemption fidelity for why a wait like this one would otherwise
// starve every other thread.
func suspendResumeScenario() {
	suspended, err := uthread.Create(func(arg any) any {
		tid := uthread.Self()
		log.Info().Int("tid", tid).Msg("suspending itself")
		if err := uthread.Suspend(tid); err != nil {
			log.Fatal().Err(err).Msg("suspend failed")
		}
		log.Info().Int("tid", tid).Msg("running again")
		return nil
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("create failed")
	}

	resumer, err := uthread.Create(func(arg any) any {
		sus := arg.(int)
		tid := uthread.Self()
		log.Info().Int("tid", tid).Int("target", sus).
			Msg("will wait roughly two seconds before resuming target")
		time.Sleep(2 * time.Second)
		log.Info().Int("tid", tid).Int("target", sus).Msg("resuming target")
		if err := uthread.Resume(sus); err != nil {
			log.Fatal().Err(err).Msg("resume failed")
		}
		return nil
	}, suspended)
	if err != nil {
		log.Fatal().Err(err).Msg("create failed")
	}

	if _, err := uthread.Join(suspended); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}
	if _, err := uthread.Join(resumer); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}
}

func evenOddScenario() {
	const n = 6
	tids := make([]int, n)
	for i := 0; i < n; i++ {
		tid, err := uthread.Create(func(arg any) any {
			return uthread.Self()%2 == 0
		}, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("create failed")
		}
		tids[i] = tid
	}
	for _, tid := range tids {
		retval, err := uthread.Join(tid)
		if err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
		log.Info().Int("tid", tid).Bool("even", retval.(bool)).Msg("joined")
	}
}
