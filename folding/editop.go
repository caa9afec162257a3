package folding

import (
	"encoding/json"
	"fmt"
)

// EditKind names a step of a multifold unroll.
type EditKind int

const (
	// EditApplyPairs sets the structure over every strand placed so far.
	EditApplyPairs EditKind = iota
	// EditAddStrand appends an oligo strand to the complex.
	EditAddStrand
)

// String returns the string representation of the kind.
func (k EditKind) String() string {
	switch k {
	case EditApplyPairs:
		return "applyPairs"
	case EditAddStrand:
		return "addStrand"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k EditKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *EditKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "applyPairs":
		*k = EditApplyPairs
	case "addStrand":
		*k = EditAddStrand
	default:
		return fmt.Errorf("folding: unknown edit kind %q", s)
	}
	return nil
}

// EditOp is one step that takes an unfolded target towards a multifold
// result. A consumer replays the steps in order.
type EditOp struct {
	Kind EditKind `json:"kind"`
	// Oligo is the index into the request's oligos, for EditAddStrand.
	Oligo int `json:"oligo,omitempty"`
	// Pairs covers every strand placed so far, for EditApplyPairs.
	Pairs SecStruct `json:"pairs"`
}

// UnrollMultifold derives the edit sequence for res: the target's own pairs
// first, then for each ordered oligo an EditAddStrand followed by the pairs
// restricted to the strands placed so far. The last step always applies
// res.Pairs in full.
func UnrollMultifold(target Sequence, oligos []Oligo, res MultiFoldResult) []EditOp {
	if res.IsEmpty() {
		return nil
	}

	ops := make([]EditOp, 0, 1+2*len(res.Order))
	placed := target.Len()
	ops = append(ops, EditOp{Kind: EditApplyPairs, Pairs: res.Pairs.Restrict(placed)})
	for _, idx := range res.Order {
		placed += oligos[idx].Sequence.Len()
		ops = append(ops,
			EditOp{Kind: EditAddStrand, Oligo: idx},
			EditOp{Kind: EditApplyPairs, Pairs: res.Pairs.Restrict(placed)},
		)
	}
	return ops
}
