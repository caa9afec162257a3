package cache

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkMemoryCache_Get_Hit measures cache hit performance.
func BenchmarkMemoryCache_Get_Hit(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Put(ctx, "key", []byte("value"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "key")
	}
}

// BenchmarkMemoryCache_Get_Miss measures cache miss performance.
func BenchmarkMemoryCache_Get_Miss(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "missing")
	}
}

// BenchmarkMemoryCache_Put measures write performance.
func BenchmarkMemoryCache_Put(b *testing.B) {
	c := NewMemoryCache()
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, fmt.Sprintf("key-%d", i), value)
	}
}

// BenchmarkKeyer_Fields measures fingerprinting of a typical fold record.
func BenchmarkKeyer_Fields(b *testing.B) {
	k := NewDefaultKeyer()
	input := Fields{}.
		Add("seq", "GGGAAACCCAGGGAAACCCAGGGAAACCC").
		Add("hint", nil).
		Add("desiredPairs", "(((...)))....................").
		Add("pseudoknots", false).
		Add("temp", 37.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = k.Key("foldSequence", input)
	}
}

// BenchmarkMemoizer_Hit measures the full lookup path on a hit.
func BenchmarkMemoizer_Hit(b *testing.B) {
	m := NewMemoizer(nil, nil)
	ctx := context.Background()
	input := Fields{{Name: "seq", Value: "GCGC"}, {Name: "temp", Value: 37.0}}
	compute := func(context.Context) ([]byte, error) { return []byte("v"), nil }
	_, _, _ = m.Do(ctx, "scoreStructures", input, compute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Do(ctx, "scoreStructures", input, compute)
	}
}
