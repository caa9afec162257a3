package basepair

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jonwraymond/foldops/folding"
)

func fold(t *testing.T, b *Backend, seq string, temp float64) string {
	t.Helper()
	ss, err := b.FoldSequence(context.Background(), folding.FoldRequest{
		Sequence:    folding.MustSequence(seq),
		Temperature: temp,
	})
	if err != nil {
		t.Fatalf("FoldSequence(%s) error = %v", seq, err)
	}
	return ss.DotBracket()
}

func TestFoldSequence(t *testing.T) {
	b := NewDefault()
	tests := []struct {
		seq  string
		temp float64
		want string
	}{
		{seq: "GGGGAAACCCC", temp: 37, want: "((((...))))"},
		{seq: "GGGAAAUCCC", temp: 37, want: "(((....)))"},
		{seq: "GCGC", temp: 37, want: "...."},
		{seq: "AAAAAAAA", temp: 37, want: "........"},
		{seq: "GGGGAAACCCC", temp: 95, want: "..........."},
	}

	for _, tt := range tests {
		if got := fold(t, b, tt.seq, tt.temp); got != tt.want {
			t.Errorf("fold(%s, %v) = %s, want %s", tt.seq, tt.temp, got, tt.want)
		}
	}
}

func TestFoldSequence_DesiredPairsRestrictPartners(t *testing.T) {
	b := NewDefault()
	// Position 3 may pair only with 9, which costs more than leaving both open.
	ss, err := b.FoldSequence(context.Background(), folding.FoldRequest{
		Sequence:     folding.MustSequence("GGGGAAACCCC"),
		DesiredPairs: "...(.....).",
		Temperature:  37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := ss.DotBracket(); got != "(((....)).)" {
		t.Errorf("structure = %s, want (((....)).)", got)
	}
}

func TestFoldSequence_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDefault().FoldSequence(ctx, folding.FoldRequest{Sequence: folding.MustSequence("GGGGAAACCCC")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestScoreStructures(t *testing.T) {
	b := NewDefault()
	ctx := context.Background()
	seq := folding.MustSequence("GGGGAAACCCC")
	ss := folding.MustDotBracket("((((...))))")

	res, err := b.ScoreStructures(ctx, folding.ScoreRequest{Sequence: seq, Structure: ss, Temperature: 37, Trace: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != -12 {
		t.Errorf("Score = %v, want -12", res.Score)
	}
	if res.Trace == nil || res.Trace.Energy != -12 || len(res.Trace.Nodes) != 11 || res.Trace.Nodes[0] != -3 || res.Trace.Nodes[10] != 0 {
		t.Errorf("Trace = %+v", res.Trace)
	}

	hot, _ := b.ScoreStructures(ctx, folding.ScoreRequest{Sequence: seq, Structure: ss, Temperature: 66})
	if hot.Score != -6 || hot.Trace != nil {
		t.Errorf("66 °C score = %+v, want -6 without trace", hot)
	}

	mismatch, _ := b.ScoreStructures(ctx, folding.ScoreRequest{
		Sequence:    folding.MustSequence("GAAAA"),
		Structure:   folding.MustDotBracket("(...)"),
		Temperature: 37,
	})
	if mismatch.Score != DefaultParams().Mismatch {
		t.Errorf("non-canonical pair score = %v", mismatch.Score)
	}
}

func TestScoreStructures_Deterministic(t *testing.T) {
	b := NewDefault()
	req := folding.ScoreRequest{
		Sequence:    folding.MustSequence("GCGC"),
		Structure:   folding.UnpairedStructure(4),
		Temperature: 37,
	}
	first, _ := b.ScoreStructures(context.Background(), req)
	second, _ := b.ScoreStructures(context.Background(), req)
	if first.Score != second.Score || first.Score != 0 {
		t.Errorf("scores = %v, %v; want 0, 0", first.Score, second.Score)
	}
}

func TestCofoldSequence_Malus(t *testing.T) {
	b := NewDefault()
	ctx := context.Background()
	seq := folding.MustSequence("GGGG&CCCC")

	joined, err := b.CofoldSequence(ctx, folding.CofoldRequest{Sequence: seq, Temperature: 37})
	if err != nil {
		t.Fatal(err)
	}
	if got := joined.DotBracketWithCuts(seq.CutPoints()); got != "((((&))))" {
		t.Errorf("cofold without malus = %s", got)
	}

	apart, _ := b.CofoldSequence(ctx, folding.CofoldRequest{Sequence: seq, Malus: 20, Temperature: 37})
	if apart.NumPairs() != 0 {
		t.Errorf("cofold with prohibitive malus = %s, want no pairs", apart)
	}
}

func TestFoldSequenceWithBindingSite(t *testing.T) {
	b := NewDefault()
	ctx := context.Background()
	seq := folding.MustSequence("GGGGAAACCCC")
	hint := folding.MustDotBracket("((((...))))")

	tests := []struct {
		name    string
		bonus   float64
		version float64
		hint    folding.SecStruct
		want    string
	}{
		{name: "bonus too small to open the site", bonus: -2, version: 2, want: "((((...))))"},
		{name: "bonus opens the site", bonus: -5, version: 2, want: ".(((...)))."},
		{name: "version 2 follows the hint", bonus: -5, version: 2, hint: hint, want: "((((...))))"},
		{name: "version 1 ignores the hint", bonus: -5, version: 1, hint: hint, want: ".(((...)))."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss, err := b.FoldSequenceWithBindingSite(ctx, folding.BindingSiteRequest{
				Sequence:    seq,
				Hint:        tt.hint,
				BindingSite: []int{0},
				Bonus:       tt.bonus,
				Version:     tt.version,
				Temperature: 37,
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := ss.DotBracket(); got != tt.want {
				t.Errorf("structure = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCofoldSequenceWithBindingSite(t *testing.T) {
	b := NewDefault()
	seq := folding.MustSequence("GGGG&CCCC")
	ss, err := b.CofoldSequenceWithBindingSite(context.Background(), folding.CofoldBindingSiteRequest{
		Sequence:    seq,
		BindingSite: []int{0},
		Bonus:       -10,
		Temperature: 37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ss.IsPaired(0) || ss.NumPairs() != 3 {
		t.Errorf("structure = %s, want three pairs with position 0 open", ss.DotBracketWithCuts(seq.CutPoints()))
	}
}

func TestDotPlot(t *testing.T) {
	b := NewDefault()
	plot, err := b.DotPlot(context.Background(), folding.DotPlotRequest{
		Sequence:    folding.MustSequence("GGGGAAACCCC"),
		Temperature: 37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := plot.Validate(); err != nil {
		t.Fatal(err)
	}
	if plot.Size() != 11 {
		t.Fatalf("Size() = %d", plot.Size())
	}
	if p := plot.At(0, 10); p < 0.5 {
		t.Errorf("P(0,10) = %v, want the MFE pair to dominate", p)
	}
	if p := plot.UnpairedProbability(5); p != 1 {
		t.Errorf("unpaired probability of A5 = %v, want 1", p)
	}
	for i := 0; i < plot.Size(); i++ {
		sum := 0.0
		for j := 0; j < plot.Size(); j++ {
			sum += plot.At(i, j)
		}
		if sum > 1+1e-9 {
			t.Errorf("position %d pairs with total probability %v", i, sum)
		}
	}
}

// enumerate lists every structure the recursion can build over [i, j].
func enumerate(pr *problem, i, j int) [][][2]int {
	if i > j {
		return [][][2]int{nil}
	}
	var out [][][2]int
	out = append(out, enumerate(pr, i+1, j)...)
	for k := i + 1; k <= j; k++ {
		if !pr.canPair(i, k) {
			continue
		}
		for _, in := range enumerate(pr, i+1, k-1) {
			for _, after := range enumerate(pr, k+1, j) {
				s := make([][2]int, 0, 1+len(in)+len(after))
				s = append(s, [2]int{i, k})
				s = append(s, in...)
				out = append(out, append(s, after...))
			}
		}
	}
	return out
}

func TestDotPlot_MatchesEnumeration(t *testing.T) {
	seq := folding.MustSequence("GGGAUAUCCC")
	pr := newProblem(seq, DefaultParams(), 37)
	rt := gasConstant * (37 + 273.15)

	structures := enumerate(pr, 0, seq.Len()-1)
	total := 0.0
	want := make(map[[2]int]float64)
	for _, s := range structures {
		e := 0.0
		for _, p := range s {
			e += pr.energy(p[0], p[1])
		}
		w := math.Exp(-e / rt)
		total += w
		for _, p := range s {
			want[p] += w
		}
	}

	plot, err := pr.pairProbabilities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < seq.Len(); i++ {
		for j := i + 1; j < seq.Len(); j++ {
			if got, exp := plot.At(i, j), want[[2]int{i, j}]/total; math.Abs(got-exp) > 1e-9 {
				t.Errorf("P(%d,%d) = %v, enumeration gives %v", i, j, got, exp)
			}
		}
	}
}

func TestMultifold_TwoOligos(t *testing.T) {
	b := NewDefault()
	target := folding.MustSequence("GGGGCCCC")
	oligos := []folding.Oligo{
		{Sequence: folding.MustSequence("GGGG"), Count: 1},
		{Sequence: folding.MustSequence("CCCC"), Count: 1},
	}

	res, err := b.Multifold(context.Background(), folding.MultifoldRequest{
		Sequence:    target,
		Oligos:      oligos,
		Temperature: 37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Validate(target, oligos); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !slices.Equal(res.Order, []int{0, 1}) || res.Count != 2 {
		t.Errorf("Order = %v, Count = %d; want both oligos", res.Order, res.Count)
	}
	if res.Pairs.Len() != 16 || res.Pairs.NumPairs() != 8 {
		t.Errorf("Pairs = %s (%d positions)", res.Pairs, res.Pairs.Len())
	}
}

func TestMultifold_TargetAloneWhenOligosDoNotBind(t *testing.T) {
	b := NewDefault()
	res, err := b.Multifold(context.Background(), folding.MultifoldRequest{
		Sequence:    folding.MustSequence("GGGGAAACCCC"),
		Oligos:      []folding.Oligo{{Sequence: folding.MustSequence("AAAA")}},
		Temperature: 37,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || len(res.Order) != 0 || res.Pairs.DotBracket() != "((((...))))" {
		t.Errorf("Multifold() = %+v", res)
	}
}

func TestOligoCombinations(t *testing.T) {
	oligos := []folding.Oligo{
		{Sequence: folding.MustSequence("A"), Count: 2},
		{Sequence: folding.MustSequence("C")},
	}
	got := oligoCombinations(oligos, 2)
	want := [][]int{nil, {0}, {1}, {0, 0}, {0, 1}}
	if len(got) != len(want) {
		t.Fatalf("combinations = %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("combination %d = %v, want %v", i, got[i], want[i])
		}
	}
	if n := len(oligoCombinations(oligos, 0)); n != 1 {
		t.Errorf("limit 0 gives %d combinations, want 1", n)
	}
}

func TestCutInLoop(t *testing.T) {
	b := NewDefault()
	ss := folding.MustDotBracket("((((...))))")
	if got := b.CutInLoop(ss, 5); got != 3 {
		t.Errorf("CutInLoop(5) = %d, want 3", got)
	}
	if got := b.CutInLoop(ss, 0); got != 0 {
		t.Errorf("CutInLoop(0) = %d, want 0 for a paired position", got)
	}
	if got := b.CutInLoop(folding.SecStruct{}, 5); got != 0 {
		t.Errorf("CutInLoop on an empty structure = %d, want 0", got)
	}
}

func TestLoopSize(t *testing.T) {
	ss := folding.MustDotBracket("..((..((...))..))..")
	tests := []struct{ i, want int }{
		{0, 0},  // exterior
		{2, 0},  // paired
		{4, 4},  // internal loop between (3,15) and (6,12)
		{9, 3},  // hairpin
		{14, 4}, // same internal loop, 3' side
		{18, 0},
		{-1, 0},
		{40, 0},
	}
	for _, tt := range tests {
		if got := loopSize(ss, tt.i); got != tt.want {
			t.Errorf("loopSize(%d) = %d, want %d", tt.i, got, tt.want)
		}
	}
}

func TestLoadCustomParameters(t *testing.T) {
	b := NewDefault()
	ctx := context.Background()

	if err := b.LoadCustomParameters(ctx, []byte("gc: -5\n")); err != nil {
		t.Fatalf("LoadCustomParameters() error = %v", err)
	}
	if b.Params().GC != -5 {
		t.Errorf("GC = %v, want -5", b.Params().GC)
	}
	res, _ := b.ScoreStructures(ctx, folding.ScoreRequest{
		Sequence:    folding.MustSequence("GGGGAAACCCC"),
		Structure:   folding.MustDotBracket("((((...))))"),
		Temperature: 37,
	})
	if res.Score != -20 {
		t.Errorf("Score = %v, want -20", res.Score)
	}

	if err := b.LoadCustomParameters(ctx, []byte("gc: 1\n")); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("invalid load error = %v", err)
	}
	if b.Params().GC != -5 {
		t.Error("rejected load changed parameters")
	}
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(path, []byte("au: -2.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	backend, err := Factory(map[string]any{"params_file": path, "max_oligos": 1})
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	p := backend.(*Backend).Params()
	if p.AU != -2.5 || p.MaxOligos != 1 {
		t.Errorf("Params = %+v", p)
	}

	if _, err := Factory(map[string]any{"params_file": filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("missing parameter file accepted")
	}
	if _, err := Factory(map[string]any{"max_oligos": 99}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("out-of-range max_oligos error = %v", err)
	}
}

func TestRegisteredInDefaultRegistry(t *testing.T) {
	if !slices.Contains(folding.DefaultRegistry.List(), Name) {
		t.Fatalf("DefaultRegistry.List() = %v, want %q", folding.DefaultRegistry.List(), Name)
	}
	e, err := folding.DefaultRegistry.NewEngine(Name, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name() != Name {
		t.Errorf("Name() = %q", e.Name())
	}
}
