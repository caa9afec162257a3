package folding

import "fmt"

// Outcome distinguishes the three non-error results of an operation.
type Outcome int

const (
	// OutcomeUnsupported means the backend lacks the capability; nothing ran.
	OutcomeUnsupported Outcome = iota
	// OutcomeEmpty means the backend ran and produced an empty answer.
	OutcomeEmpty
	// OutcomeComputed means the backend ran and produced a value.
	OutcomeComputed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeEmpty:
		return "empty"
	case OutcomeComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// Result is an operation's value together with how it was obtained.
// Value is the zero value unless Outcome is OutcomeComputed.
type Result[T any] struct {
	Value   T
	Outcome Outcome
}

// Ok reports whether a value was computed.
func (r Result[T]) Ok() bool {
	return r.Outcome == OutcomeComputed
}

// Supported reports whether the backend ran the operation.
func (r Result[T]) Supported() bool {
	return r.Outcome != OutcomeUnsupported
}

// FullEvalCache is the per-position trace of an energy evaluation.
type FullEvalCache struct {
	Nodes  []float64 `json:"nodes"`
	Energy float64   `json:"energy"`
}

// ScoreResult is a structure's free energy, with the evaluation trace when
// one was requested and the backend produces it.
type ScoreResult struct {
	Score float64        `json:"score"`
	Trace *FullEvalCache `json:"trace,omitempty"`
}

// MultiFoldResult is the winning complex of a multi-strand fold.
//
// The target sequence is always the first strand and is not listed in Order.
// Order lists the oligos that joined it, as indices into the oligo slice the
// fold was given, in strand order. Pairs spans the target followed by those
// strands.
type MultiFoldResult struct {
	Pairs SecStruct `json:"pairs"`
	Order []int     `json:"order"`
	Count int       `json:"count"`
}

// IsEmpty reports whether the result holds no structure.
func (m MultiFoldResult) IsEmpty() bool {
	return m.Pairs.IsEmpty()
}

// Validate checks m against the target and oligos it was computed from:
// Order has Count entries, every entry indexes oligos, no oligo is used more
// often than its Count, and Pairs covers exactly the target plus the
// ordered strands.
func (m MultiFoldResult) Validate(target Sequence, oligos []Oligo) error {
	if len(m.Order) != m.Count {
		return fmt.Errorf("%w: order has %d entries, count is %d", ErrInvalidMultifold, len(m.Order), m.Count)
	}

	used := make([]int, len(oligos))
	want := target.Len()
	for k, idx := range m.Order {
		if idx < 0 || idx >= len(oligos) {
			return fmt.Errorf("%w: order[%d] = %d, only %d oligos", ErrInvalidMultifold, k, idx, len(oligos))
		}
		used[idx]++
		if limit := oligos[idx].normalized().Count; used[idx] > limit {
			return fmt.Errorf("%w: oligo %d used %d times, count is %d", ErrInvalidMultifold, idx, used[idx], limit)
		}
		want += oligos[idx].Sequence.Len()
	}

	if m.Pairs.Len() != want {
		return fmt.Errorf("%w: pairs cover %d positions, complex has %d", ErrInvalidMultifold, m.Pairs.Len(), want)
	}
	return nil
}

// ComplexSequence returns the target joined with the ordered oligos.
func (m MultiFoldResult) ComplexSequence(target Sequence, oligos []Oligo) Sequence {
	strands := make([]Sequence, 0, len(m.Order))
	for _, idx := range m.Order {
		strands = append(strands, oligos[idx].Sequence)
	}
	return target.Concat(strands...)
}
