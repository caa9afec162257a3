// Package health reports whether folding engines are usable.
//
// A Checker reports a Status (Healthy, Degraded or Unhealthy) with a message
// and details. The package ships checkers for the properties that matter for
// an engine:
//
//   - FunctionalChecker: the backend reports itself functional and, optionally,
//     a small probe computation succeeds.
//   - CircuitChecker: the backend's circuit breaker is not open.
//   - CacheChecker: an engine's memoization cache has not grown past its
//     configured entry budget (caches never evict).
//
// An Aggregator runs registered checkers in parallel under a deadline and
// renders an ordered Report:
//
//	agg := health.NewAggregator()
//	agg.Register("basepair", health.NewFunctionalChecker(engine, nil))
//	agg.Register("basepair.cache", health.NewCacheChecker("basepair.cache", engine, health.CacheCheckerConfig{Warn: 100_000}))
//	report := agg.Report(ctx)
package health
