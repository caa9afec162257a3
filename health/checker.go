package health

import (
	"context"
	"time"
)

// Status is the health of one engine property, ordered from best to worst.
type Status int

const (
	// StatusHealthy means the engine can serve folds for this property.
	StatusHealthy Status = iota
	// StatusDegraded means folds still succeed but need attention, e.g. a
	// half-open circuit or a cache past its warn budget.
	StatusDegraded
	// StatusUnhealthy means folds on this engine should not be relied on.
	StatusUnhealthy
)

// String returns the lower-case status name used in reports.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Worse returns whichever of s and other is less healthy.
func (s Status) Worse(other Status) Status {
	if other > s {
		return other
	}
	return s
}

// Result is the outcome of one check against an engine.
type Result struct {
	Status  Status
	Message string

	// Details carries check-specific facts such as the engine name, the
	// circuit state or the cache entry count.
	Details map[string]any

	// Duration and Timestamp are filled in by the Aggregator.
	Duration  time.Duration
	Timestamp time.Time

	// Error is set for unhealthy results.
	Error error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy returns a healthy result.
func Healthy(message string) Result {
	return newResult(StatusHealthy, message, nil)
}

// Degraded returns a degraded result.
func Degraded(message string) Result {
	return newResult(StatusDegraded, message, nil)
}

// Unhealthy returns an unhealthy result caused by err.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration returns r with its duration set.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker inspects one property of a folding engine. FunctionalChecker,
// CircuitChecker and CacheChecker are the engine checks this package ships.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker, for one-off checks.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc wraps fn as a Checker called name.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check calls the wrapped function.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
