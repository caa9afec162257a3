package basepair

import (
	"context"
	"fmt"
	"math"

	"github.com/jonwraymond/foldops/folding"
)

// gasConstant in kcal/(mol·K).
const gasConstant = 0.0019872

// free marks a position with no binding-site requirement.
const free = -2

// problem is one fold over a (possibly multi-strand) sequence under the
// current parameters and constraints.
type problem struct {
	seq    folding.Sequence
	n      int
	strand []int
	params Params
	scale  float64
	temp   float64

	// desired restricts partners: Unpaired leaves a position unconstrained,
	// j means the position may pair only with j.
	desired []int
	// forced pins positions: free, Unpaired (must stay unpaired) or a partner.
	forced []int
	// intraOnly forbids pairs between strands.
	intraOnly bool
}

func newProblem(seq folding.Sequence, params Params, temp float64) *problem {
	n := seq.Len()
	strand := make([]int, n)
	for i := range strand {
		strand[i] = seq.StrandOf(i)
	}
	return &problem{
		seq:    seq,
		n:      n,
		strand: strand,
		params: params,
		scale:  params.scale(temp),
		temp:   temp,
	}
}

func (pr *problem) canPair(i, j int) bool {
	if j <= i {
		return false
	}
	if pr.strand[i] == pr.strand[j] {
		if j-i-1 < pr.params.MinHairpin {
			return false
		}
	} else if pr.intraOnly {
		return false
	}
	if _, ok := pr.params.pairEnergy(pr.seq.At(i), pr.seq.At(j)); !ok {
		return false
	}
	if pr.desired != nil {
		if d := pr.desired[i]; d != folding.Unpaired && d != j {
			return false
		}
		if d := pr.desired[j]; d != folding.Unpaired && d != i {
			return false
		}
	}
	if pr.forced != nil {
		if f := pr.forced[i]; f != free && f != j {
			return false
		}
		if f := pr.forced[j]; f != free && f != i {
			return false
		}
	}
	return true
}

func (pr *problem) mayUnpair(i int) bool {
	return pr.forced == nil || pr.forced[i] == free || pr.forced[i] == folding.Unpaired
}

func (pr *problem) energy(i, j int) float64 {
	e, _ := pr.params.pairEnergy(pr.seq.At(i), pr.seq.At(j))
	return e * pr.scale
}

// table is a triangular matrix over segments [i, j] with the empty segment
// (i > j) reading as empty.
type table struct {
	n     int
	v     []float64
	empty float64
}

func newTable(n int, empty float64) *table {
	return &table{n: n, v: make([]float64, n*n), empty: empty}
}

func (t *table) get(i, j int) float64 {
	if i > j {
		return t.empty
	}
	return t.v[i*t.n+j]
}

func (t *table) set(i, j int, x float64) {
	t.v[i*t.n+j] = x
}

// mfe returns the minimum free energy structure. ok is false when the
// constraints cannot be satisfied.
//
// The recursion decides the fate of the first position of each segment:
// it stays unpaired, or it pairs with some k and splits the rest in two.
// Ties prefer leaving the position unpaired, then the nearest partner.
func (pr *problem) mfe(ctx context.Context) (folding.SecStruct, float64, bool, error) {
	n := pr.n
	best := newTable(n, 0)
	choice := make([]int, n*n)

	for i := n - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return folding.SecStruct{}, 0, false, err
		}
		for j := i; j < n; j++ {
			e, arg := math.Inf(1), free
			if pr.mayUnpair(i) {
				e, arg = best.get(i+1, j), folding.Unpaired
			}
			for k := i + 1; k <= j; k++ {
				if !pr.canPair(i, k) {
					continue
				}
				if c := pr.energy(i, k) + best.get(i+1, k-1) + best.get(k+1, j); c < e {
					e, arg = c, k
				}
			}
			best.set(i, j, e)
			choice[i*n+j] = arg
		}
	}

	if n == 0 || math.IsInf(best.get(0, n-1), 1) {
		return folding.SecStruct{}, 0, false, nil
	}

	pairs := make([]int, n)
	for i := range pairs {
		pairs[i] = folding.Unpaired
	}
	stack := [][2]int{{0, n - 1}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j := seg[0], seg[1]
		if i > j {
			continue
		}
		switch k := choice[i*n+j]; k {
		case folding.Unpaired:
			stack = append(stack, [2]int{i + 1, j})
		case free:
			return folding.SecStruct{}, 0, false, fmt.Errorf("basepair: traceback reached infeasible segment [%d,%d]", i, j)
		default:
			pairs[i], pairs[k] = k, i
			stack = append(stack, [2]int{i + 1, k - 1}, [2]int{k + 1, j})
		}
	}

	ss, err := folding.NewSecStruct(pairs)
	if err != nil {
		return folding.SecStruct{}, 0, false, fmt.Errorf("basepair: traceback: %w", err)
	}
	return ss, best.get(0, n-1), true, nil
}

// pairProbabilities runs the inside and outside passes of the partition
// function over the same recursion as mfe.
func (pr *problem) pairProbabilities(ctx context.Context) (folding.DotPlot, error) {
	n := pr.n
	rt := gasConstant * (pr.temp + 273.15)
	weight := func(i, k int) float64 {
		return math.Exp(-pr.energy(i, k) / rt)
	}

	inside := newTable(n, 1)
	for i := n - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return folding.DotPlot{}, err
		}
		for j := i; j < n; j++ {
			z := 0.0
			if pr.mayUnpair(i) {
				z = inside.get(i+1, j)
			}
			for k := i + 1; k <= j; k++ {
				if pr.canPair(i, k) {
					z += weight(i, k) * inside.get(i+1, k-1) * inside.get(k+1, j)
				}
			}
			inside.set(i, j, z)
		}
	}

	total := inside.get(0, n-1)
	if math.IsInf(total, 0) || math.IsNaN(total) || total <= 0 {
		return folding.DotPlot{}, fmt.Errorf("basepair: partition function out of range for %d positions", n)
	}

	outside := newTable(n, 0)
	paired := newTable(n, 0)
	outside.set(0, n-1, 1)
	for length := n; length >= 1; length-- {
		if err := ctx.Err(); err != nil {
			return folding.DotPlot{}, err
		}
		for i := 0; i+length-1 < n; i++ {
			j := i + length - 1
			o := outside.get(i, j)
			if o == 0 {
				continue
			}
			if pr.mayUnpair(i) && i+1 <= j {
				outside.set(i+1, j, outside.get(i+1, j)+o)
			}
			for k := i + 1; k <= j; k++ {
				if !pr.canPair(i, k) {
					continue
				}
				w := weight(i, k)
				in, after := inside.get(i+1, k-1), inside.get(k+1, j)
				paired.set(i, k, paired.get(i, k)+o*w*in*after)
				if i+1 <= k-1 {
					outside.set(i+1, k-1, outside.get(i+1, k-1)+o*w*after)
				}
				if k+1 <= j {
					outside.set(k+1, j, outside.get(k+1, j)+o*w*in)
				}
			}
		}
	}

	plot := folding.NewDotPlot(n)
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			p := math.Min(1, paired.get(i, k)/total)
			if p <= 0 {
				continue
			}
			if err := plot.Set(i, k, p); err != nil {
				return folding.DotPlot{}, err
			}
		}
	}
	return plot, nil
}

// evaluate returns the energy of ss on the problem's sequence with the
// contribution of each pair attributed to its 5' position.
func (pr *problem) evaluate(ss folding.SecStruct) (float64, []float64) {
	nodes := make([]float64, pr.n)
	total := 0.0
	for _, pair := range ss.PairList() {
		i, j := pair[0], pair[1]
		e, ok := pr.params.pairEnergy(pr.seq.At(i), pr.seq.At(j))
		if ok {
			e *= pr.scale
		} else {
			e = pr.params.Mismatch
		}
		nodes[i] += e
		total += e
	}
	return total, nodes
}

func hasIntermolecular(seq folding.Sequence, ss folding.SecStruct) bool {
	for _, pair := range ss.PairList() {
		if seq.StrandOf(pair[0]) != seq.StrandOf(pair[1]) {
			return true
		}
	}
	return false
}
