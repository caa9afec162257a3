package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/foldops/config"
	"github.com/jonwraymond/foldops/folding"
)

type rootOptions struct {
	configPath  string
	engine      string
	temperature float64
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "foldctl",
		Short:         "Fold, score and inspect RNA sequences with cached folding engines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: built-in, FOLDOPS_* overrides)")
	cmd.PersistentFlags().StringVarP(&opts.engine, "engine", "e", "", "engine name (default: first configured)")
	cmd.PersistentFlags().Float64VarP(&opts.temperature, "temperature", "t", 0, "temperature in °C (default: configured)")

	cmd.AddCommand(
		newEnginesCmd(opts),
		newFoldCmd(opts),
		newScoreCmd(opts),
		newCofoldCmd(opts),
		newDotPlotCmd(opts),
		newMultifoldCmd(opts),
		newHealthCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// withApp loads the configuration, opens the engines, runs fn and closes them.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, folding.DefaultRegistry)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(cmd.Context()); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseOligo reads SEQ or SEQ:COUNT.
func parseOligo(s string) (folding.Oligo, error) {
	seq, count := s, 1
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		n, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return folding.Oligo{}, fmt.Errorf("oligo %q: bad count: %w", s, err)
		}
		seq, count = s[:i], n
	}
	return folding.NewOligo(seq, count)
}

// parseStructure reads an optional dot-bracket flag.
func parseStructure(s string) (folding.SecStruct, error) {
	if s == "" {
		return folding.SecStruct{}, nil
	}
	return folding.ParseDotBracket(s)
}
