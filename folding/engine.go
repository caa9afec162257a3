package folding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/foldops/cache"
	"github.com/jonwraymond/foldops/observe"
	"github.com/jonwraymond/foldops/resilience"
)

// Operation names. They appear in cache keys, span names and log lines.
const (
	OpScoreStructures               = "scoreStructures"
	OpFoldSequence                  = "foldSequence"
	OpFoldSequenceWithBindingSite   = "foldSequenceWithBindingSite"
	OpCofoldSequence                = "cofoldSequence"
	OpCofoldSequenceWithBindingSite = "cofoldSequenceWithBindingSite"
	OpGetDotPlot                    = "getDotPlot"
	OpMultifold                     = "multifold"
	OpMultifoldUnroll               = "multifoldUnroll"
	OpLoadCustomParameters          = "loadCustomParameters"
)

// Capabilities is a snapshot of what an engine can do right now.
type Capabilities struct {
	Fold                  bool `json:"fold"`
	ScoreStructures       bool `json:"score_structures"`
	FoldWithBindingSite   bool `json:"fold_with_binding_site"`
	Cofold                bool `json:"cofold"`
	CofoldWithBindingSite bool `json:"cofold_with_binding_site"`
	DotPlot               bool `json:"dot_plot"`
	Pseudoknot            bool `json:"pseudoknot"`
	Multifold             bool `json:"multifold"`
	CutInLoop             bool `json:"cut_in_loop"`
	LoadParameters        bool `json:"load_parameters"`
}

// Engine wraps one backend with a private memoization cache.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Caching: one computation per distinct input set; failures, cancelled
//     computations and unsupported calls are never stored.
//   - Isolation: engines never share a cache.
type Engine struct {
	backend  Backend
	memo     *cache.Memoizer
	mw       *observe.Middleware
	logger   observe.Logger
	exec     *resilience.Executor
	defaults Defaults

	// last is the most recent single-strand fold returned, cache hits included.
	lastMu sync.Mutex
	last   SecStruct
}

type engineOptions struct {
	cache    cache.Cache
	keyer    cache.Keyer
	observer observe.Observer
	mw       *observe.Middleware
	logger   observe.Logger
	exec     *resilience.Executor
	defaults Defaults
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithCache sets the result store. The engine must be its only user.
// Default: a fresh cache.MemoryCache.
func WithCache(c cache.Cache) Option {
	return func(o *engineOptions) {
		o.cache = c
	}
}

// WithKeyer sets the cache key builder. Default: cache.DefaultKeyer.
func WithKeyer(k cache.Keyer) Option {
	return func(o *engineOptions) {
		o.keyer = k
	}
}

// WithObserver instruments the engine with the observer's tracer, meter and
// logger. WithMiddleware takes precedence.
func WithObserver(obs observe.Observer) Option {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithMiddleware sets the instrumentation middleware directly.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *engineOptions) {
		o.mw = mw
	}
}

// WithLogger sets the logger for engine events. Default: the middleware's logger.
func WithLogger(l observe.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithExecutor guards backend computations with resilience policies.
func WithExecutor(exec *resilience.Executor) Option {
	return func(o *engineOptions) {
		o.exec = exec
	}
}

// WithDefaults sets the values substituted for zero request fields.
// Zero fields of d fall back to StandardDefaults.
func WithDefaults(d Defaults) Option {
	return func(o *engineOptions) {
		o.defaults = d
	}
}

// NewEngine wraps backend in an Engine.
func NewEngine(backend Backend, opts ...Option) (*Engine, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	o := engineOptions{defaults: StandardDefaults()}
	for _, opt := range opts {
		opt(&o)
	}

	mw := o.mw
	if mw == nil && o.observer != nil {
		var err error
		mw, err = observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, fmt.Errorf("folding: instrument engine %q: %w", backend.Name(), err)
		}
	}
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, o.logger)
	}

	logger := o.logger
	if logger == nil {
		logger = mw.Logger()
	}

	exec := o.exec
	if exec == nil {
		exec = resilience.NewExecutor()
	}

	return &Engine{
		backend:  backend,
		memo:     cache.NewMemoizer(o.cache, o.keyer),
		mw:       mw,
		logger:   logger,
		exec:     exec,
		defaults: o.defaults.withFallback(),
	}, nil
}

// Name returns the backend's name.
func (e *Engine) Name() string {
	return e.backend.Name()
}

// IsFunctional reports whether the backend initialized correctly.
func (e *Engine) IsFunctional() bool {
	return e.backend.IsFunctional()
}

// Defaults returns the values substituted for zero request fields.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// Backend returns the wrapped backend.
func (e *Engine) Backend() Backend {
	return e.backend
}

// CanFold reports whether FoldSequence is supported.
func (e *Engine) CanFold() bool {
	_, ok := e.backend.(Folder)
	return ok && e.IsFunctional()
}

// CanScoreStructures reports whether ScoreStructures is supported.
func (e *Engine) CanScoreStructures() bool {
	_, ok := e.backend.(Scorer)
	return ok && e.IsFunctional()
}

// CanFoldWithBindingSite reports whether FoldSequenceWithBindingSite is supported.
func (e *Engine) CanFoldWithBindingSite() bool {
	_, ok := e.backend.(BindingSiteFolder)
	return ok && e.IsFunctional()
}

// CanCofold reports whether CofoldSequence is supported.
func (e *Engine) CanCofold() bool {
	_, ok := e.backend.(Cofolder)
	return ok && e.IsFunctional()
}

// CanCofoldWithBindingSite reports whether CofoldSequenceWithBindingSite is supported.
func (e *Engine) CanCofoldWithBindingSite() bool {
	_, ok := e.backend.(BindingSiteCofolder)
	return ok && e.IsFunctional()
}

// CanDotPlot reports whether GetDotPlot is supported.
func (e *Engine) CanDotPlot() bool {
	_, ok := e.backend.(DotPlotter)
	return ok && e.IsFunctional()
}

// CanPseudoknot reports whether pseudoknotted requests are supported.
func (e *Engine) CanPseudoknot() bool {
	pk, ok := e.backend.(PseudoknotFolder)
	return ok && e.IsFunctional() && pk.SupportsPseudoknots()
}

// CanMultifold reports whether Multifold and MultifoldUnroll are supported.
func (e *Engine) CanMultifold() bool {
	_, ok := e.backend.(Multifolder)
	return ok && e.IsFunctional()
}

// CanCutInLoop reports whether CutInLoop is supported.
func (e *Engine) CanCutInLoop() bool {
	_, ok := e.backend.(LoopCutter)
	return ok && e.IsFunctional()
}

// CanLoadParameters reports whether LoadCustomParameters is supported.
func (e *Engine) CanLoadParameters() bool {
	_, ok := e.backend.(ParameterLoader)
	return ok && e.IsFunctional()
}

// Capabilities returns every capability flag at once.
func (e *Engine) Capabilities() Capabilities {
	return Capabilities{
		Fold:                  e.CanFold(),
		ScoreStructures:       e.CanScoreStructures(),
		FoldWithBindingSite:   e.CanFoldWithBindingSite(),
		Cofold:                e.CanCofold(),
		CofoldWithBindingSite: e.CanCofoldWithBindingSite(),
		DotPlot:               e.CanDotPlot(),
		Pseudoknot:            e.CanPseudoknot(),
		Multifold:             e.CanMultifold(),
		CutInLoop:             e.CanCutInLoop(),
		LoadParameters:        e.CanLoadParameters(),
	}
}

// ScoreStructures returns the free energy of req.Structure on req.Sequence.
func (e *Engine) ScoreStructures(ctx context.Context, req ScoreRequest) (Result[ScoreResult], error) {
	scorer, ok := e.backend.(Scorer)
	if !ok || !e.IsFunctional() || (req.Pseudoknotted && !e.CanPseudoknot()) {
		return Result[ScoreResult]{}, nil
	}
	if err := checkSequence(req.Sequence); err != nil {
		return Result[ScoreResult]{}, err
	}
	if req.Structure.Len() != req.Sequence.Len() {
		return Result[ScoreResult]{}, lengthMismatch("structure", req.Structure.Len(), req.Sequence.Len())
	}
	if !req.Pseudoknotted {
		if err := req.Structure.ValidateNested(); err != nil {
			return Result[ScoreResult]{}, err
		}
	}
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("structure", req.Structure).
		Add("pseudoknotted", req.Pseudoknotted).
		Add("temp", req.Temperature).
		Add("trace", req.Trace)

	return run(ctx, e, call[ScoreResult]{
		meta:  e.meta(OpScoreStructures, req.Sequence),
		key:   key,
		codec: scoreCodec,
		compute: func(ctx context.Context) (ScoreResult, error) {
			return scorer.ScoreStructures(ctx, req)
		},
	})
}

// FoldSequence returns the minimum free energy structure of req.Sequence.
func (e *Engine) FoldSequence(ctx context.Context, req FoldRequest) (Result[SecStruct], error) {
	folder, ok := e.backend.(Folder)
	if !ok || !e.IsFunctional() || (req.Pseudoknotted && !e.CanPseudoknot()) {
		return Result[SecStruct]{}, nil
	}
	if err := checkSequence(req.Sequence); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkHint(req.Sequence, req.Hint); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkDesiredPairs(req.Sequence, req.DesiredPairs); err != nil {
		return Result[SecStruct]{}, err
	}
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("hint", optStruct(req.Hint)).
		Add("desired", optString(req.DesiredPairs)).
		Add("pseudoknotted", req.Pseudoknotted).
		Add("temp", req.Temperature)

	res, err := run(ctx, e, call[SecStruct]{
		meta:  e.meta(OpFoldSequence, req.Sequence),
		key:   key,
		codec: secStructCodec,
		compute: func(ctx context.Context) (SecStruct, error) {
			return folder.FoldSequence(ctx, req)
		},
		check: structureCovers(req.Sequence),
	})
	e.remember(res, err)
	return res, err
}

// FoldSequenceWithBindingSite folds with req.BindingSite positions rewarded by req.Bonus.
func (e *Engine) FoldSequenceWithBindingSite(ctx context.Context, req BindingSiteRequest) (Result[SecStruct], error) {
	folder, ok := e.backend.(BindingSiteFolder)
	if !ok || !e.IsFunctional() {
		return Result[SecStruct]{}, nil
	}
	if err := checkSequence(req.Sequence); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkHint(req.Sequence, req.Hint); err != nil {
		return Result[SecStruct]{}, err
	}
	site, err := normalizeBindingSite(req.Sequence, req.BindingSite)
	if err != nil {
		return Result[SecStruct]{}, err
	}
	req.BindingSite = site
	req.Temperature = e.defaults.temperature(req.Temperature)
	req.Version = e.defaults.version(req.Version)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("hint", optStruct(req.Hint)).
		Add("bindingSite", req.BindingSite).
		Add("bonus", req.Bonus).
		Add("version", req.Version).
		Add("temp", req.Temperature)

	res, err := run(ctx, e, call[SecStruct]{
		meta:  e.meta(OpFoldSequenceWithBindingSite, req.Sequence),
		key:   key,
		codec: secStructCodec,
		compute: func(ctx context.Context) (SecStruct, error) {
			return folder.FoldSequenceWithBindingSite(ctx, req)
		},
		check: structureCovers(req.Sequence),
	})
	e.remember(res, err)
	return res, err
}

func (e *Engine) remember(res Result[SecStruct], err error) {
	if err != nil || !res.Ok() {
		return
	}
	e.lastMu.Lock()
	e.last = res.Value
	e.lastMu.Unlock()
}

// CofoldSequence folds the two strands of req.Sequence together.
func (e *Engine) CofoldSequence(ctx context.Context, req CofoldRequest) (Result[SecStruct], error) {
	cofolder, ok := e.backend.(Cofolder)
	if !ok || !e.IsFunctional() {
		return Result[SecStruct]{}, nil
	}
	if err := checkDuplex(req.Sequence); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkHint(req.Sequence, req.Hint); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkDesiredPairs(req.Sequence, req.DesiredPairs); err != nil {
		return Result[SecStruct]{}, err
	}
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("hint", optStruct(req.Hint)).
		Add("malus", req.Malus).
		Add("desired", optString(req.DesiredPairs)).
		Add("temp", req.Temperature)

	return run(ctx, e, call[SecStruct]{
		meta:  e.meta(OpCofoldSequence, req.Sequence),
		key:   key,
		codec: secStructCodec,
		compute: func(ctx context.Context) (SecStruct, error) {
			return cofolder.CofoldSequence(ctx, req)
		},
		check: structureCovers(req.Sequence),
	})
}

// CofoldSequenceWithBindingSite cofolds with a binding-site bonus.
func (e *Engine) CofoldSequenceWithBindingSite(ctx context.Context, req CofoldBindingSiteRequest) (Result[SecStruct], error) {
	cofolder, ok := e.backend.(BindingSiteCofolder)
	if !ok || !e.IsFunctional() {
		return Result[SecStruct]{}, nil
	}
	if err := checkDuplex(req.Sequence); err != nil {
		return Result[SecStruct]{}, err
	}
	if err := checkDesiredPairs(req.Sequence, req.DesiredPairs); err != nil {
		return Result[SecStruct]{}, err
	}
	site, err := normalizeBindingSite(req.Sequence, req.BindingSite)
	if err != nil {
		return Result[SecStruct]{}, err
	}
	req.BindingSite = site
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("bindingSite", req.BindingSite).
		Add("bonus", req.Bonus).
		Add("desired", optString(req.DesiredPairs)).
		Add("malus", req.Malus).
		Add("temp", req.Temperature)

	return run(ctx, e, call[SecStruct]{
		meta:  e.meta(OpCofoldSequenceWithBindingSite, req.Sequence),
		key:   key,
		codec: secStructCodec,
		compute: func(ctx context.Context) (SecStruct, error) {
			return cofolder.CofoldSequenceWithBindingSite(ctx, req)
		},
		check: structureCovers(req.Sequence),
	})
}

// GetDotPlot returns the base-pair probabilities of req.Sequence.
func (e *Engine) GetDotPlot(ctx context.Context, req DotPlotRequest) (Result[DotPlot], error) {
	plotter, ok := e.backend.(DotPlotter)
	if !ok || !e.IsFunctional() || (req.Pseudoknots && !e.CanPseudoknot()) {
		return Result[DotPlot]{}, nil
	}
	if err := checkSequence(req.Sequence); err != nil {
		return Result[DotPlot]{}, err
	}
	if err := checkHint(req.Sequence, req.Structure); err != nil {
		return Result[DotPlot]{}, err
	}
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("structure", optStruct(req.Structure)).
		Add("pseudoknotted", req.Pseudoknots).
		Add("temp", req.Temperature)

	n := req.Sequence.Len()
	return run(ctx, e, call[DotPlot]{
		meta:  e.meta(OpGetDotPlot, req.Sequence),
		key:   key,
		codec: dotPlotCodec,
		compute: func(ctx context.Context) (DotPlot, error) {
			return plotter.DotPlot(ctx, req)
		},
		check: func(d DotPlot) error {
			if d.IsEmpty() {
				return nil
			}
			if d.Size() != n {
				return fmt.Errorf("%w: dot plot is %dx%d for a sequence of %d", ErrInvalidDotPlot, d.Size(), d.Size(), n)
			}
			return d.Validate()
		},
	})
}

// Multifold returns the lowest-energy complex of req.Sequence with req.Oligos.
func (e *Engine) Multifold(ctx context.Context, req MultifoldRequest) (Result[MultiFoldResult], error) {
	multifolder, ok := e.backend.(Multifolder)
	if !ok || !e.IsFunctional() {
		return Result[MultiFoldResult]{}, nil
	}
	req, key, err := e.prepareMultifold(req)
	if err != nil {
		return Result[MultiFoldResult]{}, err
	}

	return run(ctx, e, call[MultiFoldResult]{
		meta:  e.meta(OpMultifold, req.Sequence),
		key:   key,
		codec: multifoldCodec,
		compute: func(ctx context.Context) (MultiFoldResult, error) {
			return multifolder.Multifold(ctx, req)
		},
		check: func(m MultiFoldResult) error {
			if m.IsEmpty() {
				return nil
			}
			return m.Validate(req.Sequence, req.Oligos)
		},
	})
}

// MultifoldUnroll returns the edit steps that build the Multifold result
// from the unfolded target. Backends without their own unroller get the
// steps derived from Multifold, which shares its cache entry.
func (e *Engine) MultifoldUnroll(ctx context.Context, req MultifoldRequest) (Result[[]EditOp], error) {
	if !e.CanMultifold() {
		return Result[[]EditOp]{}, nil
	}

	unroller, ok := e.backend.(MultifoldUnroller)
	if !ok {
		res, err := e.Multifold(ctx, req)
		if err != nil || !res.Ok() {
			return Result[[]EditOp]{Outcome: res.Outcome}, err
		}
		oligos, _ := normalizeOligos(req.Oligos)
		return Result[[]EditOp]{
			Value:   UnrollMultifold(req.Sequence, oligos, res.Value),
			Outcome: OutcomeComputed,
		}, nil
	}

	req, key, err := e.prepareMultifold(req)
	if err != nil {
		return Result[[]EditOp]{}, err
	}

	return run(ctx, e, call[[]EditOp]{
		meta:  e.meta(OpMultifoldUnroll, req.Sequence),
		key:   key,
		codec: editsCodec,
		compute: func(ctx context.Context) ([]EditOp, error) {
			return unroller.MultifoldUnroll(ctx, req)
		},
	})
}

func (e *Engine) prepareMultifold(req MultifoldRequest) (MultifoldRequest, cache.Fields, error) {
	if err := checkSequence(req.Sequence); err != nil {
		return req, nil, err
	}
	if n := req.Sequence.NumStrands(); n != 1 {
		return req, nil, fmt.Errorf("%w: multifold target has %d strands", ErrInvalidSequence, n)
	}
	if err := checkHint(req.Sequence, req.Hint); err != nil {
		return req, nil, err
	}
	if err := checkDesiredPairs(req.Sequence, req.DesiredPairs); err != nil {
		return req, nil, err
	}
	oligos, err := normalizeOligos(req.Oligos)
	if err != nil {
		return req, nil, err
	}
	req.Oligos = oligos
	req.Temperature = e.defaults.temperature(req.Temperature)

	key := cache.Fields{}.
		Add("seq", req.Sequence.String()).
		Add("hint", optStruct(req.Hint)).
		Add("oligos", req.Oligos).
		Add("desired", optString(req.DesiredPairs)).
		Add("temp", req.Temperature)
	return req, key, nil
}

// ProbeFold folds seq on the backend without consulting or populating the
// cache, and without changing the structure CutInLoop answers for. Health
// checks use it to exercise the backend itself.
func (e *Engine) ProbeFold(ctx context.Context, seq Sequence) (Result[SecStruct], error) {
	folder, ok := e.backend.(Folder)
	if !ok || !e.IsFunctional() {
		return Result[SecStruct]{}, nil
	}
	if err := checkSequence(seq); err != nil {
		return Result[SecStruct]{}, err
	}
	req := FoldRequest{Sequence: seq, Temperature: e.defaults.temperature(0)}
	ss, err := invoke(ctx, e, call[SecStruct]{
		meta: e.meta(OpFoldSequence, seq),
		compute: func(ctx context.Context) (SecStruct, error) {
			return folder.FoldSequence(ctx, req)
		},
		check: structureCovers(seq),
	})
	if err != nil {
		return Result[SecStruct]{}, err
	}
	if ss.IsEmpty() {
		return Result[SecStruct]{Outcome: OutcomeEmpty}, nil
	}
	return Result[SecStruct]{Value: ss, Outcome: OutcomeComputed}, nil
}

// CutInLoop returns the backend's loop metric for position i of the most recent
// single-strand fold this engine returned, whether computed or cached. It
// returns 0 when unsupported or before any fold. Concurrent callers should use
// CutInLoopOf with the structure they folded.
func (e *Engine) CutInLoop(i int) int {
	e.lastMu.Lock()
	ss := e.last
	e.lastMu.Unlock()
	return e.CutInLoopOf(ss, i)
}

// CutInLoopOf returns the backend's loop metric for position i of ss, or 0
// when unsupported.
func (e *Engine) CutInLoopOf(ss SecStruct, i int) int {
	cutter, ok := e.backend.(LoopCutter)
	if !ok || !e.IsFunctional() || ss.Len() == 0 {
		return 0
	}
	return cutter.CutInLoop(ss, i)
}

// LoadCustomParameters hands raw to the backend and clears the cache when the
// backend accepts it. It reports whether the parameters were loaded.
func (e *Engine) LoadCustomParameters(ctx context.Context, raw []byte) bool {
	loader, ok := e.backend.(ParameterLoader)
	if !ok || !e.IsFunctional() {
		return false
	}

	meta := observe.OpMeta{Engine: e.Name(), Operation: OpLoadCustomParameters}
	err := e.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) error {
		return loader.LoadCustomParameters(ctx, raw)
	})(ctx, meta)
	if err != nil {
		e.logger.WithOp(meta).Warn(ctx, "custom parameters rejected",
			observe.Field{Key: "bytes", Value: len(raw)},
			observe.Field{Key: "error", Value: err},
		)
		return false
	}

	if err := e.ResetCache(ctx); err != nil {
		e.logger.WithOp(meta).Error(ctx, "cache reset after parameter load failed", observe.Field{Key: "error", Value: err})
	}
	e.logger.WithOp(meta).Info(ctx, "custom parameters loaded", observe.Field{Key: "bytes", Value: len(raw)})
	return true
}

// ResetCache drops every memoized result. Computations already in flight
// will not store theirs.
func (e *Engine) ResetCache(ctx context.Context) error {
	cleared := e.memo.Len()
	if err := e.memo.Reset(ctx); err != nil {
		return fmt.Errorf("folding: reset cache for %q: %w", e.Name(), err)
	}
	e.logger.Info(ctx, "fold cache reset",
		observe.Field{Key: "engine", Value: e.Name()},
		observe.Field{Key: "entries", Value: cleared},
	)
	return nil
}

// CacheLen returns the number of memoized results.
func (e *Engine) CacheLen() int {
	return e.memo.Len()
}

// CacheStats returns the memoizer counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.memo.Stats()
}

// ExecutorMetrics returns the resilience guards' counters.
func (e *Engine) ExecutorMetrics() resilience.ExecutorMetrics {
	return e.exec.Metrics()
}

func (e *Engine) meta(op string, seq Sequence) observe.OpMeta {
	return observe.OpMeta{
		Engine:    e.Name(),
		Operation: op,
		SeqLen:    seq.Len(),
		Strands:   seq.NumStrands(),
	}
}

// call describes one memoized backend computation.
type call[T any] struct {
	meta    observe.OpMeta
	key     cache.Fields
	codec   codec[T]
	compute func(ctx context.Context) (T, error)
	// check rejects a backend answer before it is stored.
	check func(T) error
}

func run[T any](ctx context.Context, e *Engine, c call[T]) (Result[T], error) {
	data, source, err := e.memo.Do(ctx, c.meta.Operation, c.key, func(ctx context.Context) ([]byte, error) {
		v, err := invoke(ctx, e, c)
		if err != nil {
			return nil, err
		}
		return c.codec.encode(v)
	})
	if err != nil {
		return Result[T]{}, err
	}
	e.mw.ObserveLookup(ctx, c.meta, source.String())
	return c.codec.decode(data)
}

// invoke runs the backend through the executor and the middleware. The
// result travels through an atomic pointer because a timed-out attempt may
// still be running when invoke returns.
func invoke[T any](ctx context.Context, e *Engine, c call[T]) (T, error) {
	var zero T
	var out atomic.Pointer[T]

	wrapped := e.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) error {
		v, err := c.compute(ctx)
		if err != nil {
			return err
		}
		if c.check != nil {
			if err := c.check(v); err != nil {
				return err
			}
		}
		out.Store(&v)
		return nil
	})

	err := e.exec.Execute(ctx, func(ctx context.Context) error {
		return wrapped(ctx, c.meta)
	})
	if err != nil {
		if ctx.Err() != nil && isContextErr(err) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %s: %w", ErrComputationFailed, c.meta.OpID(), err)
	}

	v := out.Load()
	if v == nil {
		return zero, fmt.Errorf("%w: %s: no result", ErrComputationFailed, c.meta.OpID())
	}
	return *v, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func checkSequence(seq Sequence) error {
	if seq.IsEmpty() {
		return ErrEmptySequence
	}
	return nil
}

func checkDuplex(seq Sequence) error {
	if err := checkSequence(seq); err != nil {
		return err
	}
	if n := seq.NumStrands(); n != 2 {
		return fmt.Errorf("%w: cofold needs 2 strands, got %d", ErrInvalidSequence, n)
	}
	return nil
}

func checkHint(seq Sequence, hint SecStruct) error {
	if hint.IsEmpty() || hint.Len() == seq.Len() {
		return nil
	}
	return lengthMismatch("structure", hint.Len(), seq.Len())
}

func checkDesiredPairs(seq Sequence, desired string) error {
	if desired == "" {
		return nil
	}
	ss, err := ParseDotBracket(desired)
	if err != nil {
		return fmt.Errorf("desired pairs: %w", err)
	}
	if ss.Len() != seq.Len() {
		return lengthMismatch("desired pairs", ss.Len(), seq.Len())
	}
	return nil
}

func lengthMismatch(what string, got, want int) error {
	return fmt.Errorf("%w: %s has %d positions, sequence has %d", ErrLengthMismatch, what, got, want)
}

// normalizeBindingSite checks every index and returns the positions sorted
// without duplicates, so equal sets share a cache entry.
func normalizeBindingSite(seq Sequence, site []int) ([]int, error) {
	out := make([]int, 0, len(site))
	for _, i := range site {
		if i < 0 || i >= seq.Len() {
			return nil, fmt.Errorf("%w: index %d outside sequence of %d", ErrInvalidBindingSite, i, seq.Len())
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func structureCovers(seq Sequence) func(SecStruct) error {
	n := seq.Len()
	return func(ss SecStruct) error {
		if ss.IsEmpty() || ss.Len() == n {
			return nil
		}
		return fmt.Errorf("%w: backend returned %d positions for a sequence of %d", ErrLengthMismatch, ss.Len(), n)
	}
}

func optStruct(ss SecStruct) any {
	if ss.IsEmpty() {
		return nil
	}
	return ss
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
