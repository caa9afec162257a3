package basepair

import (
	"fmt"
	"os"

	"github.com/jonwraymond/foldops/folding"
)

// Factory builds a backend from registry options:
//
//   - params_file: path to a YAML parameter file (see ParseParams)
//   - max_oligos: overrides Params.MaxOligos
func Factory(opts map[string]any) (folding.Backend, error) {
	params := DefaultParams()

	if path, ok := opts["params_file"].(string); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("basepair: read parameters: %w", err)
		}
		if params, err = ParseParams(raw); err != nil {
			return nil, fmt.Errorf("basepair: %s: %w", path, err)
		}
	}
	switch v := opts["max_oligos"].(type) {
	case int:
		params.MaxOligos = v
	case float64:
		params.MaxOligos = int(v)
	}

	b, err := New(params)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func init() {
	_ = folding.DefaultRegistry.Register(Name, Factory)
}
