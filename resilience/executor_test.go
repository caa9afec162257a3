package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewExecutor_Unguarded(t *testing.T) {
	e := NewExecutor()
	called := false
	if err := e.Execute(context.Background(), func(context.Context) error { called = true; return nil }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !called {
		t.Fatal("operation not executed")
	}
	m := e.Metrics()
	if m.Bulkhead != nil || m.Circuit != nil {
		t.Errorf("unguarded executor reported metrics: %+v", m)
	}
}

func TestNewExecutorFromConfig(t *testing.T) {
	e := NewExecutorFromConfig(Config{
		MaxConcurrent: 2,
		Timeout:       time.Second,
		MaxFailures:   4,
		RetryAttempts: 3,
	})
	if e.bulkhead == nil || e.circuitBreaker == nil || e.retry == nil || e.timeout == nil {
		t.Fatalf("guards missing: %+v", e)
	}
	if e.retry.Config().MaxAttempts != 3 {
		t.Errorf("retry attempts = %d", e.retry.Config().MaxAttempts)
	}

	empty := NewExecutorFromConfig(Config{RetryAttempts: 1})
	if empty.bulkhead != nil || empty.circuitBreaker != nil || empty.retry != nil || empty.timeout != nil {
		t.Errorf("zero config should build an unguarded executor: %+v", empty)
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, RetryIf: func(err error) bool {
			return errors.Is(err, ErrTimeout)
		}})),
		WithTimeout(10*time.Millisecond),
	)

	var attempts atomic.Int32
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		if attempts.Add(1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestExecutor_CircuitOpensOnBackendFailures(t *testing.T) {
	e := NewExecutor(WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})))
	ctx := context.Background()

	_ = e.Execute(ctx, fail)
	_ = e.Execute(ctx, fail)

	if err := e.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if m := e.Metrics(); m.Circuit == nil || m.Circuit.State != StateOpen {
		t.Errorf("metrics = %+v", m)
	}
}

func TestExecutor_BulkheadRejectsBeforeCircuit(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: -1})
	e := NewExecutor(WithBulkhead(b), WithCircuitBreaker(cb))

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer b.Release()

	if err := e.Execute(context.Background(), succeed); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("err = %v, want ErrBulkheadFull", err)
	}
	if cb.State() != StateClosed {
		t.Error("bulkhead rejection must not reach the circuit breaker")
	}
}
