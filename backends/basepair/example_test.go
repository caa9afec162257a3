package basepair_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/foldops/backends/basepair"
	"github.com/jonwraymond/foldops/folding"
)

func Example() {
	engine, err := folding.DefaultRegistry.NewEngine(basepair.Name, nil)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	seq := folding.MustSequence("GGGGAAACCCC")

	res, _ := engine.FoldSequence(ctx, folding.FoldRequest{Sequence: seq})
	fmt.Println(res.Outcome, res.Value)

	score, _ := engine.ScoreStructures(ctx, folding.ScoreRequest{Sequence: seq, Structure: res.Value})
	fmt.Println(score.Value.Score)
	// Output:
	// computed ((((...))))
	// -12
}

func ExampleBackend_Multifold() {
	engine, _ := folding.NewEngine(basepair.NewDefault())
	target := folding.MustSequence("GGGGCCCC")
	oligos := []folding.Oligo{
		{Sequence: folding.MustSequence("GGGG"), Count: 1},
		{Sequence: folding.MustSequence("CCCC"), Count: 1},
	}

	res, _ := engine.Multifold(context.Background(), folding.MultifoldRequest{Sequence: target, Oligos: oligos})
	joined := res.Value.ComplexSequence(target, oligos)
	fmt.Println(res.Value.Order, res.Value.Pairs.DotBracketWithCuts(joined.CutPoints()))
	// Output:
	// [0 1] ((((((((&))))&))))
}
