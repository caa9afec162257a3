package folding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unpaired marks a position with no partner in a pairing table.
const Unpaired = -1

// bracketPairs lists the bracket kinds in the order they are assigned to pages.
var bracketPairs = [...][2]byte{{'(', ')'}, {'[', ']'}, {'{', '}'}, {'<', '>'}}

// SecStruct is an immutable secondary structure over N positions.
//
// Each position is unpaired or paired with exactly one other position. Pairs
// may cross (pseudoknots); ValidateNested rejects that where a nested
// structure is required. The zero value is the empty structure.
type SecStruct struct {
	pairs []int
}

// NewSecStruct builds a structure from a pairing table, where pairs[i] is the
// partner of i or Unpaired. The table is copied.
func NewSecStruct(pairs []int) (SecStruct, error) {
	n := len(pairs)
	for i, j := range pairs {
		switch {
		case j == Unpaired:
		case j < 0 || j >= n:
			return SecStruct{}, fmt.Errorf("%w: position %d paired with out-of-range %d", ErrInvalidStructure, i, j)
		case j == i:
			return SecStruct{}, fmt.Errorf("%w: position %d paired with itself", ErrInvalidStructure, i)
		case pairs[j] != i:
			return SecStruct{}, fmt.Errorf("%w: position %d paired with %d but %d paired with %d", ErrInvalidStructure, i, j, j, pairs[j])
		}
	}
	out := make([]int, n)
	copy(out, pairs)
	return SecStruct{pairs: out}, nil
}

// UnpairedStructure returns a structure of n unpaired positions.
func UnpairedStructure(n int) SecStruct {
	pairs := make([]int, n)
	for i := range pairs {
		pairs[i] = Unpaired
	}
	return SecStruct{pairs: pairs}
}

// ParseDotBracket parses dot-bracket notation. '.' is unpaired; (), [], {}
// and <> open and close pairs, each kind matched independently so crossing
// pairs can be written. '&' strand separators are skipped.
func ParseDotBracket(s string) (SecStruct, error) {
	s = strings.TrimSpace(s)
	var stacks [len(bracketPairs)][]int
	pairs := make([]int, 0, len(s))

	for off := 0; off < len(s); off++ {
		c := s[off]
		if c == StrandSeparator {
			continue
		}
		pos := len(pairs)
		pairs = append(pairs, Unpaired)
		if c == '.' {
			continue
		}

		matched := false
		for k, br := range bracketPairs {
			switch c {
			case br[0]:
				stacks[k] = append(stacks[k], pos)
				matched = true
			case br[1]:
				if len(stacks[k]) == 0 {
					return SecStruct{}, fmt.Errorf("%w: unmatched %q at offset %d", ErrInvalidStructure, c, off)
				}
				open := stacks[k][len(stacks[k])-1]
				stacks[k] = stacks[k][:len(stacks[k])-1]
				pairs[open] = pos
				pairs[pos] = open
				matched = true
			}
		}
		if !matched {
			return SecStruct{}, fmt.Errorf("%w: symbol %q at offset %d", ErrInvalidStructure, c, off)
		}
	}

	for k, stack := range stacks {
		if len(stack) > 0 {
			return SecStruct{}, fmt.Errorf("%w: %d unclosed %q", ErrInvalidStructure, len(stack), bracketPairs[k][0])
		}
	}
	return SecStruct{pairs: pairs}, nil
}

// MustDotBracket is ParseDotBracket for literals; it panics on invalid input.
func MustDotBracket(s string) SecStruct {
	ss, err := ParseDotBracket(s)
	if err != nil {
		panic(err)
	}
	return ss
}

// Len returns the number of positions.
func (s SecStruct) Len() int {
	return len(s.pairs)
}

// IsEmpty reports whether s has no positions.
func (s SecStruct) IsEmpty() bool {
	return len(s.pairs) == 0
}

// PairedWith returns the partner of i, or Unpaired.
func (s SecStruct) PairedWith(i int) int {
	return s.pairs[i]
}

// IsPaired reports whether i has a partner.
func (s SecStruct) IsPaired(i int) bool {
	return s.pairs[i] != Unpaired
}

// Pairs returns a copy of the pairing table.
func (s SecStruct) Pairs() []int {
	out := make([]int, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// PairList returns every pair (i, j) with i < j, ordered by i.
func (s SecStruct) PairList() [][2]int {
	var out [][2]int
	for i, j := range s.pairs {
		if j > i {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// NumPairs returns the number of base pairs.
func (s SecStruct) NumPairs() int {
	n := 0
	for i, j := range s.pairs {
		if j > i {
			n++
		}
	}
	return n
}

// IsPseudoknotted reports whether any two pairs cross.
func (s SecStruct) IsPseudoknotted() bool {
	return s.ValidateNested() != nil
}

// ValidateNested returns ErrNotNested if any two pairs cross.
func (s SecStruct) ValidateNested() error {
	var stack []int
	for i, j := range s.pairs {
		switch {
		case j == Unpaired:
		case j > i:
			stack = append(stack, j)
		default:
			if len(stack) == 0 || stack[len(stack)-1] != i {
				return fmt.Errorf("%w: pair (%d,%d) crosses another pair", ErrNotNested, j, i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// Restrict returns the structure over the first n positions, dropping pairs
// with a partner at or beyond n.
func (s SecStruct) Restrict(n int) SecStruct {
	if n > len(s.pairs) {
		n = len(s.pairs)
	}
	pairs := make([]int, n)
	for i := 0; i < n; i++ {
		if j := s.pairs[i]; j < n {
			pairs[i] = j
		} else {
			pairs[i] = Unpaired
		}
	}
	return SecStruct{pairs: pairs}
}

// DotBracket renders s. Nested pairs use parentheses; each crossing layer
// takes the next bracket kind.
func (s SecStruct) DotBracket() string {
	out := make([]byte, len(s.pairs))
	for i := range out {
		out[i] = '.'
	}

	// pages[k] holds the closing positions of open pairs rendered with bracket k.
	var pages [len(bracketPairs)][]int
	for i, j := range s.pairs {
		if j <= i {
			continue
		}
		// A pair crossing every page stays dotted.
		for k := range pages {
			if fitsPage(pages[k], i, j) {
				pages[k] = append(pages[k], j)
				out[i], out[j] = bracketPairs[k][0], bracketPairs[k][1]
				break
			}
		}
	}
	return string(out)
}

// fitsPage reports whether (i, j) nests inside the open pairs of a page.
func fitsPage(page []int, i, j int) bool {
	for _, end := range page {
		if end > i && end < j {
			return false
		}
	}
	return true
}

// DotBracketWithCuts renders s with '&' inserted before each cut position.
func (s SecStruct) DotBracketWithCuts(cuts []int) string {
	db := s.DotBracket()
	if len(cuts) == 0 {
		return db
	}
	var b strings.Builder
	prev := 0
	for _, c := range cuts {
		if c <= prev || c > len(db) {
			continue
		}
		b.WriteString(db[prev:c])
		b.WriteByte(StrandSeparator)
		prev = c
	}
	b.WriteString(db[prev:])
	return b.String()
}

// Equal reports whether s and o have the same pairing table.
func (s SecStruct) Equal(o SecStruct) bool {
	if len(s.pairs) != len(o.pairs) {
		return false
	}
	for i := range s.pairs {
		if s.pairs[i] != o.pairs[i] {
			return false
		}
	}
	return true
}

// String returns the dot-bracket form.
func (s SecStruct) String() string {
	return s.DotBracket()
}

// MarshalJSON encodes the pairing table.
func (s SecStruct) MarshalJSON() ([]byte, error) {
	if s.pairs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.pairs)
}

// UnmarshalJSON decodes and validates a pairing table.
func (s *SecStruct) UnmarshalJSON(data []byte) error {
	var pairs []int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	ss, err := NewSecStruct(pairs)
	if err != nil {
		return err
	}
	*s = ss
	return nil
}
