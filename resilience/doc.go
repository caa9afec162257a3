// Package resilience guards backend computations.
//
// Folding backends are CPU bound and some wrap external programs. The
// patterns here bound how many computations run at once (Bulkhead), how long
// one may take (Timeout), stop calling a backend that keeps failing
// (CircuitBreaker), and re-run computations whose failure was marked
// transient (Retry). An Executor composes them in a fixed order:
//
//	bulkhead -> circuit breaker -> retry -> timeout -> computation
//
// Typical wiring from configuration:
//
//	exec := resilience.NewExecutorFromConfig(resilience.Config{
//	    MaxConcurrent: 4,
//	    Timeout:       30 * time.Second,
//	    MaxFailures:   5,
//	})
//	engine, err := folding.NewEngine(backend, folding.WithExecutor(exec))
//
// Context cancellation is never counted as a backend failure and is never
// retried.
package resilience
