package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer generates deterministic cache keys from an operation's inputs.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of field order.
// - Isolation: the same inputs under different operations must produce different keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from an operation name and its inputs.
	Key(op string, input any) (string, error)
}

// Field is one named input of a key record.
type Field struct {
	Name  string
	Value any
}

// Fields is a key record built in call-site order. Order is not significant:
// two Fields with the same name/value pairs produce the same key.
type Fields []Field

// Add appends a field and returns the extended record.
func (f Fields) Add(name string, value any) Fields {
	return append(f, Field{Name: name, Value: value})
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: fold:<op>:<hash>
// where hash is the first 16 characters of SHA-256(op NUL canonical JSON(input)).
func (k *DefaultKeyer) Key(op string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write(canonical)
	sum := h.Sum(nil)

	key := fmt.Sprintf("fold:%s:%s", op, hex.EncodeToString(sum[:8]))
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Canonical returns the canonical JSON form of input. Exposed for diagnostics
// and tests; Key hashes exactly these bytes.
func Canonical(input any) ([]byte, error) {
	return canonicalize(input)
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps and Fields are sorted by key; slices keep their order.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case Fields:
		return canonicalizeFields(val)
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeFields(fields Fields) ([]byte, error) {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		if _, dup := m[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		m[f.Name] = f.Value
	}
	return canonicalizeMap(m)
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
