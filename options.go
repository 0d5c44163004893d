package uthread

import "github.com/rs/zerolog"

// runtimeOptions holds configuration resolved from Option values passed to
// Init, in the style of eventloop's loopOptions/resolveLoopOptions.
type runtimeOptions struct {
	logger       zerolog.Logger
	metrics      *Metrics
	stackSize    int
	quantumClock quantumClock
}

// Option configures a Runtime at Init time.
type Option interface {
	apply(*runtimeOptions) error
}

type optionFunc func(*runtimeOptions) error

func (f optionFunc) apply(o *runtimeOptions) error { return f(o) }

// WithLogger overrides the runtime's structured logger. Defaults to the
// package-level logger configured via SetDefaultLogger.
func WithLogger(l zerolog.Logger) Option {
	return optionFunc(func(o *runtimeOptions) error {
		o.logger = l
		return nil
	})
}

// WithMetrics installs a caller-owned Metrics instance so callers can read
// counters without reaching into runtime internals. Defaults to a
// runtime-private Metrics if not supplied.
func WithMetrics(m *Metrics) Option {
	return optionFunc(func(o *runtimeOptions) error {
		o.metrics = m
		return nil
	})
}

// WithStackSize overrides the default per-thread stack reservation
// (StackSize). Values below the platform minimum are rejected by Init.
func WithStackSize(bytes int) Option {
	return optionFunc(func(o *runtimeOptions) error {
		o.stackSize = bytes
		return nil
	})
}

// WithQuantumSource substitutes the real interval-timer/signal pair with an
// injectable clock, for deterministic tests that need to control exactly
// when preemption checkpoints fire instead of racing a wall-clock timer.
func WithQuantumSource(c quantumClock) Option {
	return optionFunc(func(o *runtimeOptions) error {
		o.quantumClock = c
		return nil
	})
}

func resolveOptions(opts []Option) (*runtimeOptions, error) {
	cfg := &runtimeOptions{
		logger:    getDefaultLogger(),
		stackSize: StackSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.metrics == nil {
		cfg.metrics = newMetrics()
	}
	return cfg, nil
}
