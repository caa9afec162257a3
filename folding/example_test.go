package folding_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/foldops/folding"
)

// stemBackend folds by pairing complementary ends.
type stemBackend struct{}

func (stemBackend) Name() string       { return "stem" }
func (stemBackend) IsFunctional() bool { return true }

func (stemBackend) FoldSequence(_ context.Context, req folding.FoldRequest) (folding.SecStruct, error) {
	n := req.Sequence.Len()
	pairs := make([]int, n)
	for i := range pairs {
		pairs[i] = folding.Unpaired
	}
	for i, j := 0, n-1; j-i > 3; i, j = i+1, j-1 {
		a, b := req.Sequence.At(i), req.Sequence.At(j)
		if !(a == 'G' && b == 'C' || a == 'C' && b == 'G') {
			break
		}
		pairs[i], pairs[j] = j, i
	}
	return folding.NewSecStruct(pairs)
}

func ExampleNewEngine() {
	engine, err := folding.NewEngine(stemBackend{})
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	req := folding.FoldRequest{Sequence: folding.MustSequence("GGGAAAUCCC")}

	res, _ := engine.FoldSequence(ctx, req)
	fmt.Println(res.Outcome, res.Value)

	_, _ = engine.FoldSequence(ctx, req)
	fmt.Println("hits:", engine.CacheStats().Hits)

	cofold, _ := engine.CofoldSequence(ctx, folding.CofoldRequest{Sequence: folding.MustSequence("GG&CC")})
	fmt.Println("cofold:", cofold.Outcome)
	// Output:
	// computed (((....)))
	// hits: 1
	// cofold: unsupported
}

func ExampleParseDotBracket() {
	ss, err := folding.ParseDotBracket("((..[[..))..]]")
	if err != nil {
		panic(err)
	}
	fmt.Println(ss.NumPairs(), ss.IsPseudoknotted())
	fmt.Println(ss.PairList()[0])
	// Output:
	// 4 true
	// [0 9]
}

func ExampleUnrollMultifold() {
	target := folding.MustSequence("GGGG")
	oligos := []folding.Oligo{{Sequence: folding.MustSequence("CCCC"), Count: 1}}
	pairs, _ := folding.ParseDotBracket("((((&))))")

	res := folding.MultiFoldResult{Pairs: pairs, Order: []int{0}, Count: 1}
	for _, op := range folding.UnrollMultifold(target, oligos, res) {
		if op.Kind == folding.EditAddStrand {
			fmt.Println(op.Kind, op.Oligo)
			continue
		}
		fmt.Println(op.Kind, op.Pairs)
	}
	// Output:
	// applyPairs ....
	// addStrand 0
	// applyPairs (((())))
}

func ExampleSequence_Concat() {
	seq := folding.MustSequence("gggt").Concat(folding.MustSequence("ACCC"))
	fmt.Println(seq, seq.Len(), seq.CutPoints())
	// Output:
	// GGGU&ACCC 8 [4]
}
