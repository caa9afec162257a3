// Package observe provides observability primitives for folding operations.
//
// It is a pure instrumentation library: no folding, no caching, no I/O
// beyond exporter setup. Consumers wire the observer into a folding.Engine
// through folding.WithObserver, which records one span, one duration sample
// and one log line per backend computation, plus a counter per cache lookup.
package observe
