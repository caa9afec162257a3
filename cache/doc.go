// Package cache provides deterministic memoization for folding computations.
//
// It provides a Cache interface with memory and BadgerDB implementations,
// SHA-256-based key derivation over canonical JSON, and a Memoizer that runs
// at most one computation per key and never stores results of cancelled or
// failed computations.
package cache
