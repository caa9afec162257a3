package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/foldops/folding"
	"github.com/jonwraymond/foldops/paramwatch"
)

type engineInfo struct {
	Name         string               `json:"name"`
	Backend      string               `json:"backend"`
	Functional   bool                 `json:"functional"`
	Capabilities folding.Capabilities `json:"capabilities"`
	Defaults     folding.Defaults     `json:"defaults"`
}

type structureOutput struct {
	Engine    string `json:"engine"`
	Outcome   string `json:"outcome"`
	Structure string `json:"structure,omitempty"`
}

func structureResult(engine string, seq folding.Sequence, res folding.Result[folding.SecStruct]) structureOutput {
	out := structureOutput{Engine: engine, Outcome: res.Outcome.String()}
	if res.Ok() {
		out.Structure = res.Value.DotBracketWithCuts(seq.CutPoints())
	}
	return out
}

func newEnginesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List configured engines and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				infos := make([]engineInfo, 0, len(a.order))
				for _, name := range a.order {
					e := a.engines[name]
					infos = append(infos, engineInfo{
						Name:         name,
						Backend:      e.Name(),
						Functional:   e.IsFunctional(),
						Capabilities: e.Capabilities(),
						Defaults:     e.Defaults(),
					})
				}
				return writeJSON(cmd, infos)
			})
		},
	}
}

func newFoldCmd(opts *rootOptions) *cobra.Command {
	var (
		hint, desired string
		pseudoknot    bool
		site          []int
		bonus         float64
		version       float64
	)
	cmd := &cobra.Command{
		Use:   "fold SEQUENCE",
		Short: "Predict the minimum free energy structure of one strand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := folding.NewSequence(args[0])
			if err != nil {
				return err
			}
			h, err := parseStructure(hint)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				e, err := a.engine(opts.engine)
				if err != nil {
					return err
				}

				var res folding.Result[folding.SecStruct]
				if len(site) > 0 {
					res, err = e.FoldSequenceWithBindingSite(cmd.Context(), folding.BindingSiteRequest{
						Sequence:    seq,
						Hint:        h,
						BindingSite: site,
						Bonus:       bonus,
						Version:     version,
						Temperature: opts.temperature,
					})
				} else {
					res, err = e.FoldSequence(cmd.Context(), folding.FoldRequest{
						Sequence:      seq,
						Hint:          h,
						DesiredPairs:  desired,
						Pseudoknotted: pseudoknot,
						Temperature:   opts.temperature,
					})
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd, structureResult(e.Name(), seq, res))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&hint, "hint", "", "starting structure in dot-bracket")
	f.StringVar(&desired, "desired", "", "desired pairs in dot-bracket")
	f.BoolVar(&pseudoknot, "pseudoknot", false, "allow pseudoknots")
	f.IntSliceVar(&site, "binding-site", nil, "binding site positions (enables the binding-site fold)")
	f.Float64Var(&bonus, "bonus", 0, "binding site bonus in kcal/mol")
	f.Float64Var(&version, "version", 0, "binding site algorithm version (default: configured)")
	return cmd
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var (
		pseudoknot bool
		trace      bool
	)
	cmd := &cobra.Command{
		Use:   "score SEQUENCE STRUCTURE",
		Short: "Evaluate the free energy of a structure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := folding.NewSequence(args[0])
			if err != nil {
				return err
			}
			ss, err := folding.ParseDotBracket(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				e, err := a.engine(opts.engine)
				if err != nil {
					return err
				}
				res, err := e.ScoreStructures(cmd.Context(), folding.ScoreRequest{
					Sequence:      seq,
					Structure:     ss,
					Pseudoknotted: pseudoknot,
					Temperature:   opts.temperature,
					Trace:         trace,
				})
				if err != nil {
					return err
				}
				out := struct {
					Engine  string               `json:"engine"`
					Outcome string               `json:"outcome"`
					Result  *folding.ScoreResult `json:"result,omitempty"`
				}{Engine: e.Name(), Outcome: res.Outcome.String()}
				if res.Ok() {
					out.Result = &res.Value
				}
				return writeJSON(cmd, out)
			})
		},
	}
	cmd.Flags().BoolVar(&pseudoknot, "pseudoknot", false, "the structure contains pseudoknots")
	cmd.Flags().BoolVar(&trace, "trace", false, "include the per-position evaluation trace")
	return cmd
}

func newCofoldCmd(opts *rootOptions) *cobra.Command {
	var (
		malus   float64
		desired string
		site    []int
		bonus   float64
	)
	cmd := &cobra.Command{
		Use:   "cofold STRAND&STRAND",
		Short: "Predict the joint structure of two strands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := folding.NewSequence(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				e, err := a.engine(opts.engine)
				if err != nil {
					return err
				}

				var res folding.Result[folding.SecStruct]
				if len(site) > 0 {
					res, err = e.CofoldSequenceWithBindingSite(cmd.Context(), folding.CofoldBindingSiteRequest{
						Sequence:     seq,
						BindingSite:  site,
						Bonus:        bonus,
						DesiredPairs: desired,
						Malus:        malus,
						Temperature:  opts.temperature,
					})
				} else {
					res, err = e.CofoldSequence(cmd.Context(), folding.CofoldRequest{
						Sequence:     seq,
						Malus:        malus,
						DesiredPairs: desired,
						Temperature:  opts.temperature,
					})
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd, structureResult(e.Name(), seq, res))
			})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&malus, "malus", 0, "intermolecular initiation penalty in kcal/mol")
	f.StringVar(&desired, "desired", "", "desired pairs in dot-bracket, without the strand separator")
	f.IntSliceVar(&site, "binding-site", nil, "binding site positions (enables the binding-site cofold)")
	f.Float64Var(&bonus, "bonus", 0, "binding site bonus in kcal/mol")
	return cmd
}

func newDotPlotCmd(opts *rootOptions) *cobra.Command {
	var (
		structure string
		minProb   float64
	)
	cmd := &cobra.Command{
		Use:   "dotplot SEQUENCE",
		Short: "Compute base-pair probabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := folding.NewSequence(args[0])
			if err != nil {
				return err
			}
			ss, err := parseStructure(structure)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				e, err := a.engine(opts.engine)
				if err != nil {
					return err
				}
				res, err := e.GetDotPlot(cmd.Context(), folding.DotPlotRequest{
					Sequence:    seq,
					Structure:   ss,
					Temperature: opts.temperature,
				})
				if err != nil {
					return err
				}

				out := struct {
					Engine  string                 `json:"engine"`
					Outcome string                 `json:"outcome"`
					Pairs   []folding.DotPlotEntry `json:"pairs,omitempty"`
				}{Engine: e.Name(), Outcome: res.Outcome.String()}
				for _, entry := range res.Value.Entries() {
					if entry.P >= minProb {
						out.Pairs = append(out.Pairs, entry)
					}
				}
				return writeJSON(cmd, out)
			})
		},
	}
	cmd.Flags().StringVar(&structure, "structure", "", "reference structure in dot-bracket")
	cmd.Flags().Float64Var(&minProb, "min-prob", 0.01, "omit pairs below this probability")
	return cmd
}

func newMultifoldCmd(opts *rootOptions) *cobra.Command {
	var (
		oligoArgs []string
		desired   string
		unroll    bool
	)
	cmd := &cobra.Command{
		Use:   "multifold TARGET --oligo SEQ[:COUNT]...",
		Short: "Find the best complex of a target with oligo strands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := folding.NewSequence(args[0])
			if err != nil {
				return err
			}
			oligos := make([]folding.Oligo, 0, len(oligoArgs))
			for _, s := range oligoArgs {
				o, err := parseOligo(s)
				if err != nil {
					return err
				}
				oligos = append(oligos, o)
			}
			req := folding.MultifoldRequest{
				Sequence:     target,
				Oligos:       oligos,
				DesiredPairs: desired,
				Temperature:  opts.temperature,
			}

			return withApp(cmd, opts, func(a *app) error {
				e, err := a.engine(opts.engine)
				if err != nil {
					return err
				}
				res, err := e.Multifold(cmd.Context(), req)
				if err != nil {
					return err
				}

				out := struct {
					Engine    string           `json:"engine"`
					Outcome   string           `json:"outcome"`
					Order     []int            `json:"order,omitempty"`
					Structure string           `json:"structure,omitempty"`
					Steps     []folding.EditOp `json:"steps,omitempty"`
				}{Engine: e.Name(), Outcome: res.Outcome.String()}
				if res.Ok() {
					out.Order = res.Value.Order
					joined := res.Value.ComplexSequence(target, oligos)
					out.Structure = res.Value.Pairs.DotBracketWithCuts(joined.CutPoints())
				}
				if unroll && res.Ok() {
					steps, err := e.MultifoldUnroll(cmd.Context(), req)
					if err != nil {
						return err
					}
					out.Steps = steps.Value
				}
				return writeJSON(cmd, out)
			})
		},
	}
	cmd.Flags().StringArrayVar(&oligoArgs, "oligo", nil, "oligo strand, optionally with a copy count")
	cmd.Flags().StringVar(&desired, "desired", "", "desired pairs over the target in dot-bracket")
	cmd.Flags().BoolVar(&unroll, "unroll", false, "include the edit steps that build the complex")
	return cmd
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that every engine is functional",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				report := a.healthAggregator().Report(cmd.Context())
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
				if !report.Healthy() {
					return fmt.Errorf("health: %s", report.Status)
				}
				return nil
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload custom parameter files of engines configured with watch: true",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx := cmd.Context()
				watching := 0
				for _, ec := range a.cfg.Engines {
					if !ec.Watch {
						continue
					}
					reloads, err := paramwatch.Watch(ctx, a.engines[ec.Name], paramwatch.Config{
						Path:   ec.ParamsFile,
						Logger: a.logger,
					})
					if err != nil {
						return err
					}
					watching++
					go func(name string) {
						for r := range reloads {
							_ = writeJSON(cmd, map[string]any{"engine": name, "path": r.Path, "loaded": r.Loaded})
						}
					}(ec.Name)
				}
				if watching == 0 {
					return fmt.Errorf("no engine is configured with watch: true")
				}
				<-ctx.Done()
				return nil
			})
		},
	}
}
