package folding

import "context"

// Backend is implemented by every folding algorithm.
//
// A backend advertises further capabilities by also implementing the
// optional interfaces in this file. Engine passes requests with defaults
// already applied and inputs already validated; a backend returns the zero
// value of a result type for an empty answer and a non-nil error only when
// the computation itself failed.
type Backend interface {
	// Name identifies the algorithm.
	Name() string

	// IsFunctional reports whether the backend initialized correctly.
	// A non-functional backend is treated as supporting nothing.
	IsFunctional() bool
}

// Folder predicts a single-strand structure.
type Folder interface {
	FoldSequence(ctx context.Context, req FoldRequest) (SecStruct, error)
}

// Scorer evaluates the free energy of a given structure.
type Scorer interface {
	ScoreStructures(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}

// BindingSiteFolder folds with positions biased by an energetic bonus.
type BindingSiteFolder interface {
	FoldSequenceWithBindingSite(ctx context.Context, req BindingSiteRequest) (SecStruct, error)
}

// Cofolder folds two strands together.
type Cofolder interface {
	CofoldSequence(ctx context.Context, req CofoldRequest) (SecStruct, error)
}

// BindingSiteCofolder cofolds with a binding-site bonus.
type BindingSiteCofolder interface {
	CofoldSequenceWithBindingSite(ctx context.Context, req CofoldBindingSiteRequest) (SecStruct, error)
}

// DotPlotter computes base-pair probabilities from a partition function.
type DotPlotter interface {
	DotPlot(ctx context.Context, req DotPlotRequest) (DotPlot, error)
}

// PseudoknotFolder reports whether Folder, Scorer and DotPlotter accept
// pseudoknotted requests. Backends that do not implement it do not.
type PseudoknotFolder interface {
	SupportsPseudoknots() bool
}

// Multifolder selects the lowest-energy complex of a target and oligos.
type Multifolder interface {
	Multifold(ctx context.Context, req MultifoldRequest) (MultiFoldResult, error)
}

// MultifoldUnroller produces its own edit sequence for a multifold.
// Without it, Engine derives one with UnrollMultifold.
type MultifoldUnroller interface {
	MultifoldUnroll(ctx context.Context, req MultifoldRequest) ([]EditOp, error)
}

// LoopCutter reports a structural metric for the loop of ss containing position i.
// It is a pure function of its arguments.
type LoopCutter interface {
	CutInLoop(ss SecStruct, i int) int
}

// ParameterLoader replaces the backend's energy parameters.
type ParameterLoader interface {
	LoadCustomParameters(ctx context.Context, raw []byte) error
}

// ScoreRequest asks for the free energy of Structure on Sequence.
type ScoreRequest struct {
	Sequence      Sequence
	Structure     SecStruct
	Pseudoknotted bool
	Temperature   float64
	// Trace asks for the per-position evaluation trace.
	Trace bool
}

// FoldRequest asks for the minimum free energy structure of Sequence.
type FoldRequest struct {
	Sequence Sequence
	// Hint is an optional starting structure; empty means none.
	Hint SecStruct
	// DesiredPairs is an optional dot-bracket constraint; empty means none.
	DesiredPairs  string
	Pseudoknotted bool
	Temperature   float64
}

// BindingSiteRequest folds with BindingSite positions rewarded by Bonus.
type BindingSiteRequest struct {
	Sequence    Sequence
	Hint        SecStruct
	BindingSite []int
	Bonus       float64
	Version     float64
	Temperature float64
}

// CofoldRequest folds the two strands of Sequence together. Malus is the
// intermolecular initiation penalty.
type CofoldRequest struct {
	Sequence     Sequence
	Hint         SecStruct
	Malus        float64
	DesiredPairs string
	Temperature  float64
}

// CofoldBindingSiteRequest combines CofoldRequest and BindingSiteRequest.
type CofoldBindingSiteRequest struct {
	Sequence     Sequence
	BindingSite  []int
	Bonus        float64
	DesiredPairs string
	Malus        float64
	Temperature  float64
}

// DotPlotRequest asks for the pair probabilities of Sequence.
type DotPlotRequest struct {
	Sequence    Sequence
	Structure   SecStruct
	Temperature float64
	Pseudoknots bool
}

// MultifoldRequest asks for the best complex of Sequence with Oligos.
type MultifoldRequest struct {
	Sequence     Sequence
	Hint         SecStruct
	Oligos       []Oligo
	DesiredPairs string
	Temperature  float64
}
