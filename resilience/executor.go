package resilience

import (
	"context"
	"time"
)

// Config describes an Executor in plain values, suitable for config files.
// Zero values disable the corresponding guard.
type Config struct {
	MaxConcurrent int           `yaml:"max_concurrent" env:"MAX_CONCURRENT" validate:"gte=0"`
	MaxWait       time.Duration `yaml:"max_wait" env:"MAX_WAIT"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	MaxFailures   int           `yaml:"max_failures" env:"MAX_FAILURES" validate:"gte=0"`
	ResetTimeout  time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT" validate:"gte=0"`
	RetryAttempts int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS" validate:"gte=0"`
}

// Executor composes the guards around one backend.
type Executor struct {
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it runs computations unguarded.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExecutorFromConfig builds an executor with the guards cfg enables.
func NewExecutorFromConfig(cfg Config) *Executor {
	var opts []ExecutorOption
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, WithBulkhead(NewBulkhead(BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		})))
	}
	if cfg.MaxFailures > 0 {
		opts = append(opts, WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:  cfg.MaxFailures,
			ResetTimeout: cfg.ResetTimeout,
		})))
	}
	if cfg.RetryAttempts > 1 {
		opts = append(opts, WithRetry(NewRetry(RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Jitter:      true,
		})))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewExecutor(opts...)
}

// WithBulkhead bounds concurrent computations.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry retries transient failures.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(limit time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(limit)
	}
}

// Execute runs op through the configured guards.
//
// Order, outermost first: bulkhead, circuit breaker, retry, timeout.
// The timeout applies per attempt and a retried computation keeps its slot.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// ExecutorMetrics is a snapshot of the guards' counters.
// Fields for guards that are not configured are nil.
type ExecutorMetrics struct {
	Bulkhead *BulkheadMetrics
	Circuit  *CircuitBreakerMetrics
}

// Metrics returns a snapshot of the configured guards.
func (e *Executor) Metrics() ExecutorMetrics {
	var m ExecutorMetrics
	if e.bulkhead != nil {
		b := e.bulkhead.Metrics()
		m.Bulkhead = &b
	}
	if e.circuitBreaker != nil {
		c := e.circuitBreaker.Metrics()
		m.Circuit = &c
	}
	return m
}
