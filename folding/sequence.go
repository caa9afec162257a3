package folding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StrandSeparator separates strands in the text form of a multi-strand sequence.
const StrandSeparator = '&'

// Sequence is an immutable chain of nucleotides, possibly spanning several strands.
//
// Positions index nucleotides only; separators are not positions.
// The zero value is the empty sequence, which no operation accepts.
type Sequence struct {
	bases string
	cuts  []int // start position of every strand after the first
}

// NewSequence parses s. Case is ignored, T is read as U, surrounding
// whitespace is trimmed, and '&' starts a new strand.
func NewSequence(s string) (Sequence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sequence{}, ErrEmptySequence
	}

	var b strings.Builder
	b.Grow(len(s))
	var cuts []int
	strandLen := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 'A', 'a':
			b.WriteByte('A')
		case 'C', 'c':
			b.WriteByte('C')
		case 'G', 'g':
			b.WriteByte('G')
		case 'U', 'u', 'T', 't':
			b.WriteByte('U')
		case StrandSeparator:
			if strandLen == 0 {
				return Sequence{}, fmt.Errorf("%w: empty strand before position %d", ErrEmptySequence, i)
			}
			cuts = append(cuts, b.Len())
			strandLen = 0
			continue
		default:
			return Sequence{}, fmt.Errorf("%w: symbol %q at offset %d", ErrInvalidSequence, c, i)
		}
		strandLen++
	}
	if strandLen == 0 {
		return Sequence{}, fmt.Errorf("%w: trailing strand separator", ErrEmptySequence)
	}
	return Sequence{bases: b.String(), cuts: cuts}, nil
}

// MustSequence is NewSequence for literals; it panics on invalid input.
func MustSequence(s string) Sequence {
	seq, err := NewSequence(s)
	if err != nil {
		panic(err)
	}
	return seq
}

// Len returns the number of nucleotides.
func (s Sequence) Len() int {
	return len(s.bases)
}

// IsEmpty reports whether s has no nucleotides.
func (s Sequence) IsEmpty() bool {
	return len(s.bases) == 0
}

// At returns the nucleotide at position i.
func (s Sequence) At(i int) byte {
	return s.bases[i]
}

// Bases returns the nucleotides without separators.
func (s Sequence) Bases() string {
	return s.bases
}

// NumStrands returns the number of strands.
func (s Sequence) NumStrands() int {
	if s.IsEmpty() {
		return 0
	}
	return len(s.cuts) + 1
}

// CutPoints returns the start position of every strand after the first.
func (s Sequence) CutPoints() []int {
	out := make([]int, len(s.cuts))
	copy(out, s.cuts)
	return out
}

// StrandOf returns the strand index of position i.
func (s Sequence) StrandOf(i int) int {
	n := 0
	for _, c := range s.cuts {
		if i >= c {
			n++
		}
	}
	return n
}

// Strands splits s into single-strand sequences.
func (s Sequence) Strands() []Sequence {
	if s.IsEmpty() {
		return nil
	}
	out := make([]Sequence, 0, len(s.cuts)+1)
	start := 0
	for _, c := range append(s.CutPoints(), len(s.bases)) {
		out = append(out, Sequence{bases: s.bases[start:c]})
		start = c
	}
	return out
}

// Concat joins s and others into one multi-strand sequence.
func (s Sequence) Concat(others ...Sequence) Sequence {
	var b strings.Builder
	cuts := s.CutPoints()
	b.WriteString(s.bases)
	for _, o := range others {
		if o.IsEmpty() {
			continue
		}
		if b.Len() > 0 {
			cuts = append(cuts, b.Len())
		}
		for _, c := range o.cuts {
			cuts = append(cuts, b.Len()+c)
		}
		b.WriteString(o.bases)
	}
	if len(cuts) == 0 {
		cuts = nil
	}
	return Sequence{bases: b.String(), cuts: cuts}
}

// String returns the text form, with '&' between strands.
func (s Sequence) String() string {
	if len(s.cuts) == 0 {
		return s.bases
	}
	var b strings.Builder
	b.Grow(len(s.bases) + len(s.cuts))
	prev := 0
	for _, c := range s.cuts {
		b.WriteString(s.bases[prev:c])
		b.WriteByte(StrandSeparator)
		prev = c
	}
	b.WriteString(s.bases[prev:])
	return b.String()
}

// Equal reports whether s and o have the same nucleotides and strand breaks.
func (s Sequence) Equal(o Sequence) bool {
	return s.String() == o.String()
}

// MarshalJSON encodes the text form.
func (s Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes and validates the text form.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	seq, err := NewSequence(str)
	if err != nil {
		return err
	}
	*s = seq
	return nil
}
