package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/foldops/resilience"
)

// Functional is the part of a folding engine a FunctionalChecker needs.
type Functional interface {
	Name() string
	IsFunctional() bool
}

// ProbeFunc runs a small computation to prove an engine works end to end.
type ProbeFunc func(ctx context.Context) error

// FunctionalChecker reports an engine unhealthy when its backend is not
// functional, and degraded when the backend claims to work but the probe fails.
type FunctionalChecker struct {
	engine Functional
	probe  ProbeFunc
}

// NewFunctionalChecker creates a checker for engine. probe may be nil.
func NewFunctionalChecker(engine Functional, probe ProbeFunc) *FunctionalChecker {
	return &FunctionalChecker{engine: engine, probe: probe}
}

// Name returns the engine name.
func (c *FunctionalChecker) Name() string {
	return c.engine.Name()
}

// Check performs the health check.
func (c *FunctionalChecker) Check(ctx context.Context) Result {
	details := map[string]any{"engine": c.engine.Name()}

	if !c.engine.IsFunctional() {
		return Unhealthy("backend not functional", ErrNotFunctional).WithDetails(details)
	}
	if c.probe == nil {
		return Healthy("backend functional").WithDetails(details)
	}
	if err := c.probe(ctx); err != nil {
		details["probe_error"] = err.Error()
		return Degraded("probe computation failed").WithDetails(details)
	}
	return Healthy("probe computation succeeded").WithDetails(details)
}

// CircuitSource exposes resilience counters. *folding.Engine implements it.
type CircuitSource interface {
	ExecutorMetrics() resilience.ExecutorMetrics
}

// CircuitChecker maps a circuit breaker state to a health status:
// closed is healthy, half-open degraded, open unhealthy.
type CircuitChecker struct {
	name   string
	source CircuitSource
}

// NewCircuitChecker creates a checker over an engine's circuit breaker.
func NewCircuitChecker(name string, source CircuitSource) *CircuitChecker {
	return &CircuitChecker{name: name, source: source}
}

// Name returns the checker name.
func (c *CircuitChecker) Name() string {
	return c.name
}

// Check performs the health check.
func (c *CircuitChecker) Check(context.Context) Result {
	m := c.source.ExecutorMetrics()
	details := map[string]any{}
	if m.Bulkhead != nil {
		details["active"] = m.Bulkhead.Active
		details["rejected"] = m.Bulkhead.Rejected
	}
	if m.Circuit == nil {
		return Healthy("no circuit breaker").WithDetails(details)
	}

	details["state"] = m.Circuit.State.String()
	details["failures"] = m.Circuit.Failures
	switch m.Circuit.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// Sizer reports a number of stored entries.
type Sizer interface {
	CacheLen() int
}

// CacheCheckerConfig configures entry thresholds. Zero disables a threshold.
type CacheCheckerConfig struct {
	Warn     int
	Critical int
}

// CacheChecker watches the size of a cache that never evicts.
type CacheChecker struct {
	name   string
	cache  Sizer
	config CacheCheckerConfig
}

// NewCacheChecker creates a cache size checker.
func NewCacheChecker(name string, cache Sizer, config CacheCheckerConfig) *CacheChecker {
	if config.Critical > 0 && config.Warn > config.Critical {
		config.Warn = config.Critical
	}
	return &CacheChecker{name: name, cache: cache, config: config}
}

// Name returns the checker name.
func (c *CacheChecker) Name() string {
	return c.name
}

// Check performs the health check.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	n := c.cache.CacheLen()
	details := map[string]any{"entries": n}
	switch {
	case c.config.Critical > 0 && n >= c.config.Critical:
		return Unhealthy(fmt.Sprintf("cache holds %d entries (critical %d)", n, c.config.Critical), ErrCheckFailed).WithDetails(details)
	case c.config.Warn > 0 && n >= c.config.Warn:
		return Degraded(fmt.Sprintf("cache holds %d entries (warn %d)", n, c.config.Warn)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("cache holds %d entries", n)).WithDetails(details)
	}
}
