package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonwraymond/foldops/config"
	"github.com/jonwraymond/foldops/folding"
	"github.com/jonwraymond/foldops/health"
	"github.com/jonwraymond/foldops/observe"
	"github.com/jonwraymond/foldops/paramwatch"
	"github.com/jonwraymond/foldops/resilience"

	// Registers the reference backend.
	_ "github.com/jonwraymond/foldops/backends/basepair"
)

// probeSequence is folded by health probes.
const probeSequence = "GGGAAAUCCC"

// app holds the engines built from one configuration.
type app struct {
	cfg      config.Config
	obs      observe.Observer
	logger   observe.Logger
	engines  map[string]*folding.Engine
	order    []string
	closers  []io.Closer
	registry *folding.Registry
}

// openApp builds every configured engine. Custom parameter files are loaded
// once; watching them is left to the watch command.
func openApp(ctx context.Context, cfg config.Config, registry *folding.Registry) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		obs:      obs,
		logger:   obs.Logger(),
		engines:  make(map[string]*folding.Engine, len(cfg.Engines)),
		registry: registry,
	}
	for _, ec := range cfg.Engines {
		if err := a.addEngine(ctx, ec, mw); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("engine %q: %w", ec.Name, err)
		}
	}
	return a, nil
}

func (a *app) addEngine(ctx context.Context, ec config.EngineConfig, mw *observe.Middleware) error {
	store, err := a.cfg.Cache.OpenCache(ec.Name, a.logger)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	engine, err := a.registry.NewEngine(ec.Backend, ec.Options,
		folding.WithCache(store),
		folding.WithMiddleware(mw),
		folding.WithExecutor(resilience.NewExecutorFromConfig(a.cfg.Resilience)),
		folding.WithDefaults(a.cfg.Defaults),
	)
	if err != nil {
		return err
	}

	if ec.ParamsFile != "" {
		if err := paramwatch.Load(ctx, engine, ec.ParamsFile); err != nil {
			return err
		}
	}

	a.engines[ec.Name] = engine
	a.order = append(a.order, ec.Name)
	return nil
}

// engine returns the named engine, or the first configured one for "".
func (a *app) engine(name string) (*folding.Engine, error) {
	if name == "" {
		name = a.order[0]
	}
	e, ok := a.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (configured: %v)", name, a.order)
	}
	return e, nil
}

// healthAggregator registers, per engine, a functional check with an
// uncached probe fold, a circuit check and a cache size check.
func (a *app) healthAggregator() *health.Aggregator {
	agg := health.NewAggregator()
	for _, name := range a.order {
		engine := a.engines[name]
		probe := func(ctx context.Context) error {
			if !engine.CanFold() {
				return nil
			}
			res, err := engine.ProbeFold(ctx, folding.MustSequence(probeSequence))
			if err != nil {
				return err
			}
			if !res.Supported() {
				return fmt.Errorf("probe fold returned %s", res.Outcome)
			}
			return nil
		}
		agg.Register(name, health.NewFunctionalChecker(engine, probe))
		agg.Register(name+".circuit", health.NewCircuitChecker(name+".circuit", engine))
		agg.Register(name+".cache", health.NewCacheChecker(name+".cache", engine, a.cfg.Health.CacheChecker()))
	}
	return agg
}

// Close releases cache stores and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.obs.Shutdown(ctx))
	return errors.Join(errs...)
}
