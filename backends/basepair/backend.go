package basepair

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jonwraymond/foldops/folding"
)

// Name is the backend's registry name.
const Name = "basepair"

// Backend folds with the weighted base-pair model.
//
// Contract:
//   - Concurrency: safe for concurrent use; LoadCustomParameters swaps the
//     parameter set atomically with respect to computations.
//   - Determinism: equal requests under equal parameters give equal answers.
type Backend struct {
	mu     sync.RWMutex
	params Params
}

// New creates a backend with the given parameters.
func New(params Params) (*Backend, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Backend{params: params}, nil
}

// NewDefault creates a backend with DefaultParams.
func NewDefault() *Backend {
	return &Backend{params: DefaultParams()}
}

// Name returns "basepair".
func (b *Backend) Name() string {
	return Name
}

// IsFunctional always reports true; the model has no external dependencies.
func (b *Backend) IsFunctional() bool {
	return true
}

// SupportsPseudoknots reports false: the recursion only builds nested structures.
func (b *Backend) SupportsPseudoknots() bool {
	return false
}

// Params returns the current parameter set.
func (b *Backend) Params() Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params
}

// FoldSequence returns the minimum free energy structure. The hint is not
// used by this model.
func (b *Backend) FoldSequence(ctx context.Context, req folding.FoldRequest) (folding.SecStruct, error) {
	return b.fold(ctx, foldInput{
		seq:     req.Sequence,
		temp:    req.Temperature,
		desired: req.DesiredPairs,
	})
}

// FoldSequenceWithBindingSite folds with the binding site held in its target
// state, adding Bonus, and keeps that fold when it beats the unconstrained one.
//
// Version 2 and later take the target state from the hint; earlier versions,
// or a request without a hint, require the site to stay unpaired.
func (b *Backend) FoldSequenceWithBindingSite(ctx context.Context, req folding.BindingSiteRequest) (folding.SecStruct, error) {
	return b.fold(ctx, foldInput{
		seq:  req.Sequence,
		temp: req.Temperature,
		site: &bindingSite{
			positions: req.BindingSite,
			hint:      req.Hint,
			version:   req.Version,
			bonus:     req.Bonus,
		},
	})
}

// CofoldSequence folds two strands together. Malus is charged once when any
// pair joins the strands.
func (b *Backend) CofoldSequence(ctx context.Context, req folding.CofoldRequest) (folding.SecStruct, error) {
	return b.fold(ctx, foldInput{
		seq:     req.Sequence,
		temp:    req.Temperature,
		desired: req.DesiredPairs,
		malus:   req.Malus,
	})
}

// CofoldSequenceWithBindingSite cofolds with an unpaired binding site rewarded by Bonus.
func (b *Backend) CofoldSequenceWithBindingSite(ctx context.Context, req folding.CofoldBindingSiteRequest) (folding.SecStruct, error) {
	return b.fold(ctx, foldInput{
		seq:     req.Sequence,
		temp:    req.Temperature,
		desired: req.DesiredPairs,
		malus:   req.Malus,
		site: &bindingSite{
			positions: req.BindingSite,
			version:   folding.DefaultBindingSiteVersion,
			bonus:     req.Bonus,
		},
	})
}

// ScoreStructures evaluates req.Structure. Non-canonical pairs cost Mismatch;
// a structure joining strands pays Initiation per additional strand.
func (b *Backend) ScoreStructures(_ context.Context, req folding.ScoreRequest) (folding.ScoreResult, error) {
	p := b.Params()
	pr := newProblem(req.Sequence, p, req.Temperature)
	energy, nodes := pr.evaluate(req.Structure)
	if hasIntermolecular(req.Sequence, req.Structure) {
		energy += p.Initiation * float64(req.Sequence.NumStrands()-1)
	}

	res := folding.ScoreResult{Score: energy}
	if req.Trace {
		res.Trace = &folding.FullEvalCache{Nodes: nodes, Energy: energy}
	}
	return res, nil
}

// DotPlot returns the pair probabilities of the unconstrained ensemble.
func (b *Backend) DotPlot(ctx context.Context, req folding.DotPlotRequest) (folding.DotPlot, error) {
	pr := newProblem(req.Sequence, b.Params(), req.Temperature)
	return pr.pairProbabilities(ctx)
}

// Multifold tries the target alone and with every combination of up to
// MaxOligos oligo strands, each charged Initiation, and returns the lowest.
// Oligos join in index order; ties keep the complex with fewer strands.
func (b *Backend) Multifold(ctx context.Context, req folding.MultifoldRequest) (folding.MultiFoldResult, error) {
	p := b.Params()

	var desired []int
	if req.DesiredPairs != "" {
		ss, err := folding.ParseDotBracket(req.DesiredPairs)
		if err != nil {
			return folding.MultiFoldResult{}, err
		}
		desired = ss.Pairs()
	}

	var best folding.MultiFoldResult
	bestEnergy := math.Inf(1)
	for _, combo := range oligoCombinations(req.Oligos, p.MaxOligos) {
		strands := make([]folding.Sequence, len(combo))
		for k, idx := range combo {
			strands[k] = req.Oligos[idx].Sequence
		}
		joined := req.Sequence.Concat(strands...)

		pr := newProblem(joined, p, req.Temperature)
		if desired != nil {
			pr.desired = extendUnpaired(desired, joined.Len())
		}
		ss, energy, ok, err := pr.mfe(ctx)
		if err != nil {
			return folding.MultiFoldResult{}, err
		}
		if !ok {
			continue
		}
		energy += p.Initiation * float64(len(combo))
		if energy < bestEnergy {
			bestEnergy = energy
			best = folding.MultiFoldResult{Pairs: ss, Order: combo, Count: len(combo)}
		}
	}
	return best, nil
}

// CutInLoop returns the number of unpaired positions in the loop of ss that
// encloses position i. It returns 0 for paired positions and the exterior loop.
func (b *Backend) CutInLoop(ss folding.SecStruct, i int) int {
	return loopSize(ss, i)
}

// LoadCustomParameters replaces the parameter set with a YAML document.
func (b *Backend) LoadCustomParameters(_ context.Context, raw []byte) error {
	p, err := ParseParams(raw)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.params = p
	b.mu.Unlock()
	return nil
}

type foldInput struct {
	seq     folding.Sequence
	temp    float64
	desired string
	malus   float64
	site    *bindingSite
}

type bindingSite struct {
	positions []int
	hint      folding.SecStruct
	version   float64
	bonus     float64
}

// constraint pins every site position to its target state. ok is false when
// the targets contradict each other.
func (s *bindingSite) constraint(n int) ([]int, bool) {
	forced := make([]int, n)
	for i := range forced {
		forced[i] = free
	}
	useHint := s.version >= 2 && s.hint.Len() == n

	pin := func(i, target int) bool {
		if forced[i] == free {
			forced[i] = target
			return true
		}
		return forced[i] == target
	}
	for _, i := range s.positions {
		target := folding.Unpaired
		if useHint {
			target = s.hint.PairedWith(i)
		}
		if !pin(i, target) {
			return nil, false
		}
		if target != folding.Unpaired && !pin(target, i) {
			return nil, false
		}
	}
	return forced, true
}

// fold runs every variant the input calls for (binding site held or free,
// strands joined or apart) and keeps the lowest total energy. An input no
// variant can satisfy folds to the empty structure.
func (b *Backend) fold(ctx context.Context, in foldInput) (folding.SecStruct, error) {
	base := newProblem(in.seq, b.Params(), in.temp)
	if in.desired != "" {
		ss, err := folding.ParseDotBracket(in.desired)
		if err != nil {
			return folding.SecStruct{}, err
		}
		if ss.Len() != base.n {
			return folding.SecStruct{}, fmt.Errorf("%w: desired pairs cover %d of %d positions", folding.ErrLengthMismatch, ss.Len(), base.n)
		}
		base.desired = ss.Pairs()
	}

	siteModes := []bool{false}
	var forced []int
	if in.site != nil && len(in.site.positions) > 0 {
		if f, ok := in.site.constraint(base.n); ok {
			forced = f
			siteModes = append(siteModes, true)
		}
	}
	joinModes := []bool{false}
	if in.seq.NumStrands() > 1 {
		joinModes = append(joinModes, true)
	}

	var best folding.SecStruct
	bestEnergy := math.Inf(1)
	for _, withSite := range siteModes {
		for _, join := range joinModes {
			pr := *base
			pr.intraOnly = !join
			if withSite {
				pr.forced = forced
			}
			ss, energy, ok, err := pr.mfe(ctx)
			if err != nil {
				return folding.SecStruct{}, err
			}
			if !ok {
				continue
			}
			if withSite {
				energy += in.site.bonus
			}
			if hasIntermolecular(in.seq, ss) {
				energy += in.malus
			}
			if energy < bestEnergy {
				best, bestEnergy = ss, energy
			}
		}
	}
	return best, nil
}

// oligoCombinations lists index multisets of at most limit oligos, each in
// ascending order and within its Count, shortest first.
func oligoCombinations(oligos []folding.Oligo, limit int) [][]int {
	combos := [][]int{nil}
	used := make([]int, len(oligos))

	var extend func(prefix []int, start int)
	extend = func(prefix []int, start int) {
		if len(prefix) == limit {
			return
		}
		for i := start; i < len(oligos); i++ {
			if used[i] >= max(oligos[i].Count, 1) {
				continue
			}
			next := append(append([]int(nil), prefix...), i)
			combos = append(combos, next)
			used[i]++
			extend(next, i)
			used[i]--
		}
	}
	extend(nil, 0)

	// Stable insertion by length keeps ascending index order within a length.
	out := make([][]int, 0, len(combos))
	for size := 0; size <= limit; size++ {
		for _, c := range combos {
			if len(c) == size {
				out = append(out, c)
			}
		}
	}
	return out
}

func extendUnpaired(pairs []int, n int) []int {
	out := make([]int, n)
	copy(out, pairs)
	for i := len(pairs); i < n; i++ {
		out[i] = folding.Unpaired
	}
	return out
}

func loopSize(ss folding.SecStruct, i int) int {
	if i < 0 || i >= ss.Len() || ss.IsPaired(i) {
		return 0
	}
	a := enclosingPair(ss, i)
	if a < 0 {
		return 0
	}

	size := 0
	end := ss.PairedWith(a)
	for k := a + 1; k < end; {
		if j := ss.PairedWith(k); j != folding.Unpaired {
			k = j + 1
			continue
		}
		size++
		k++
	}
	return size
}

// enclosingPair returns the 5' position of the innermost pair around i, or -1.
func enclosingPair(ss folding.SecStruct, i int) int {
	for a := i - 1; a >= 0; {
		j := ss.PairedWith(a)
		switch {
		case j == folding.Unpaired:
			a--
		case j > i:
			return a
		case j < a:
			// Closing a helix to the left of i: skip over it.
			a = j - 1
		default:
			a--
		}
	}
	return -1
}

var (
	_ folding.Backend             = (*Backend)(nil)
	_ folding.Folder              = (*Backend)(nil)
	_ folding.Scorer              = (*Backend)(nil)
	_ folding.BindingSiteFolder   = (*Backend)(nil)
	_ folding.Cofolder            = (*Backend)(nil)
	_ folding.BindingSiteCofolder = (*Backend)(nil)
	_ folding.DotPlotter          = (*Backend)(nil)
	_ folding.PseudoknotFolder    = (*Backend)(nil)
	_ folding.Multifolder         = (*Backend)(nil)
	_ folding.LoopCutter          = (*Backend)(nil)
	_ folding.ParameterLoader     = (*Backend)(nil)
)
