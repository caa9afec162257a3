package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the encoded result for a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Source reports where a memoized value came from.
type Source int

const (
	// SourceComputed means this caller ran the computation.
	SourceComputed Source = iota
	// SourceCache means the value was already stored.
	SourceCache
	// SourceShared means another caller's in-flight computation produced the value.
	SourceShared
	// SourceUncached means the input could not be fingerprinted and was computed without caching.
	SourceUncached
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceComputed:
		return "computed"
	case SourceCache:
		return "cache"
	case SourceShared:
		return "shared"
	case SourceUncached:
		return "uncached"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of memoizer counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Shared   uint64
	Uncached uint64
	Resets   uint64
}

// Memoizer wraps computations with lookup-compute-store caching.
//
// Contract:
//   - At most one computation per key is in flight; concurrent callers for the
//     same key wait for it.
//   - Errors are never cached. A computation whose context was cancelled never
//     populates the cache.
//   - A computation that started before Reset never populates the cache after it.
type Memoizer struct {
	cache Cache
	keyer Keyer
	group singleflight.Group

	// mu orders Reset against stores: stores hold it shared, Reset exclusively.
	mu  sync.RWMutex
	gen atomic.Uint64

	hits     atomic.Uint64
	misses   atomic.Uint64
	shared   atomic.Uint64
	uncached atomic.Uint64
	resets   atomic.Uint64
}

// NewMemoizer creates a memoizer over the given cache and keyer.
// A nil cache gets a fresh MemoryCache; a nil keyer gets DefaultKeyer.
func NewMemoizer(c Cache, k Keyer) *Memoizer {
	if c == nil {
		c = NewMemoryCache()
	}
	if k == nil {
		k = NewDefaultKeyer()
	}
	return &Memoizer{cache: c, keyer: k}
}

type flight struct {
	value []byte
	hit   bool
}

// Do returns the cached value for (op, input) or runs compute to produce it.
func (m *Memoizer) Do(ctx context.Context, op string, input any, compute ComputeFunc) ([]byte, Source, error) {
	key, err := m.keyer.Key(op, input)
	if err != nil {
		// Key generation failed - execute without caching
		m.uncached.Add(1)
		value, err := compute(ctx)
		return value, SourceUncached, err
	}

	if cached, ok := m.cache.Get(ctx, key); ok {
		m.hits.Add(1)
		return cached, SourceCache, nil
	}

	for {
		gen := m.gen.Load()
		var ran bool
		ch := m.group.DoChan(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
			ran = true
			// Re-check inside the flight: a previous flight may have stored it.
			if cached, ok := m.cache.Get(ctx, key); ok {
				return flight{value: cached, hit: true}, nil
			}
			value, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m.store(ctx, gen, key, value)
			return flight{value: value}, nil
		})

		select {
		case <-ctx.Done():
			return nil, SourceComputed, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if !ran && isContextErr(res.Err) && ctx.Err() == nil {
					// The leader was cancelled; our context is live, so try again.
					continue
				}
				return nil, SourceComputed, res.Err
			}
			f := res.Val.(flight)
			switch {
			case f.hit:
				m.hits.Add(1)
				return clone(f.value), SourceCache, nil
			case ran:
				m.misses.Add(1)
				return clone(f.value), SourceComputed, nil
			default:
				m.shared.Add(1)
				return clone(f.value), SourceShared, nil
			}
		}
	}
}

func (m *Memoizer) store(ctx context.Context, gen uint64, key string, value []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gen.Load() != gen {
		return
	}
	_ = m.cache.Put(ctx, key, value)
}

// Reset clears the cache. Computations already in flight will not store their results.
func (m *Memoizer) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen.Add(1)
	m.resets.Add(1)
	return m.cache.Reset(ctx)
}

// Len returns the number of stored entries.
func (m *Memoizer) Len() int {
	return m.cache.Len()
}

// Lookup returns the stored value for (op, input) without computing.
func (m *Memoizer) Lookup(ctx context.Context, op string, input any) ([]byte, bool) {
	key, err := m.keyer.Key(op, input)
	if err != nil {
		return nil, false
	}
	return m.cache.Get(ctx, key)
}

// Stats returns a snapshot of the memoizer counters.
func (m *Memoizer) Stats() Stats {
	return Stats{
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Shared:   m.shared.Load(),
		Uncached: m.uncached.Load(),
		Resets:   m.resets.Load(),
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
