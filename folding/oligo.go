package folding

import "fmt"

// Oligo is a secondary strand offered to a multi-strand fold, with the
// number of copies available.
type Oligo struct {
	Sequence Sequence `json:"sequence"`
	Count    int      `json:"count"`
}

// NewOligo parses a single-strand oligo. A count below 1 is read as 1.
func NewOligo(seq string, count int) (Oligo, error) {
	s, err := NewSequence(seq)
	if err != nil {
		return Oligo{}, err
	}
	o := Oligo{Sequence: s, Count: count}
	return o.normalized(), o.Validate()
}

func (o Oligo) normalized() Oligo {
	if o.Count < 1 {
		o.Count = 1
	}
	return o
}

// Validate checks that the oligo is a single non-empty strand.
func (o Oligo) Validate() error {
	if o.Sequence.IsEmpty() {
		return ErrEmptySequence
	}
	if o.Sequence.NumStrands() != 1 {
		return fmt.Errorf("%w: oligo %q has %d strands", ErrInvalidSequence, o.Sequence, o.Sequence.NumStrands())
	}
	return nil
}

func normalizeOligos(oligos []Oligo) ([]Oligo, error) {
	out := make([]Oligo, len(oligos))
	for i, o := range oligos {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("oligo %d: %w", i, err)
		}
		out[i] = o.normalized()
	}
	return out, nil
}
