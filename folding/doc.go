// Package folding defines the folding-backend abstraction: immutable value
// types, the capability interfaces a backend may implement, and Engine, which
// wraps one backend with a private memoization cache.
//
// # Capabilities
//
// A backend implements Backend plus any subset of the optional interfaces
// (Folder, Scorer, Cofolder, DotPlotter, Multifolder, ...). What a backend can
// do is therefore a property of its type. Engine exposes the usual flag
// queries (CanCofold, CanDotPlot, ...) derived from those interfaces and from
// IsFunctional.
//
// # Outcomes
//
// Every operation returns a Result[T] and an error. The three non-error
// outcomes are distinct:
//
//   - OutcomeUnsupported: the backend lacks the capability (or is not
//     functional). Nothing is computed or cached.
//   - OutcomeEmpty: the backend ran and produced an empty answer.
//   - OutcomeComputed: the backend ran and produced a value.
//
// A non-nil error means the computation failed (it wraps
// ErrComputationFailed), the inputs were invalid, or the context ended.
// Failures are never cached.
//
// # Caching
//
// Each operation builds a key from its operation name and every input that
// influences the result, with defaults already applied. Concurrent calls for
// the same key share one computation. LoadCustomParameters clears the cache on
// success.
package folding
