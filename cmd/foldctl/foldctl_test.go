package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("foldctl %v: %v\n%s", args, err, out)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("foldctl %v output is not JSON: %v\n%s", args, err, out)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foldops.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEngines(t *testing.T) {
	var infos []engineInfo
	runJSON(t, &infos, "engines")

	if len(infos) != 1 || infos[0].Name != "basepair" || !infos[0].Functional {
		t.Fatalf("engines = %+v", infos)
	}
	caps := infos[0].Capabilities
	if !caps.Fold || !caps.Multifold || caps.Pseudoknot {
		t.Errorf("capabilities = %+v", caps)
	}
	if infos[0].Defaults.Temperature != 37 {
		t.Errorf("defaults = %+v", infos[0].Defaults)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want structureOutput
	}{
		{
			name: "plain",
			args: []string{"fold", "GGGGAAACCCC"},
			want: structureOutput{Engine: "basepair", Outcome: "computed", Structure: "((((...))))"},
		},
		{
			name: "melted",
			args: []string{"fold", "GGGGAAACCCC", "--temperature", "95"},
			want: structureOutput{Engine: "basepair", Outcome: "computed", Structure: "..........."},
		},
		{
			name: "binding site",
			args: []string{"fold", "GGGGAAACCCC", "--binding-site", "0", "--bonus=-5"},
			want: structureOutput{Engine: "basepair", Outcome: "computed", Structure: ".(((...)))."},
		},
		{
			name: "pseudoknot unsupported",
			args: []string{"fold", "GGGGAAACCCC", "--pseudoknot"},
			want: structureOutput{Engine: "basepair", Outcome: "unsupported"},
		},
		{
			name: "cofold",
			args: []string{"cofold", "GGGG&CCCC"},
			want: structureOutput{Engine: "basepair", Outcome: "computed", Structure: "((((&))))"},
		},
		{
			name: "cofold with malus",
			args: []string{"cofold", "GGGG&CCCC", "--malus", "20"},
			want: structureOutput{Engine: "basepair", Outcome: "computed", Structure: "....&...."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got structureOutput
			runJSON(t, &got, tt.args...)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFold_InvalidInput(t *testing.T) {
	for _, args := range [][]string{
		{"fold", "GGXX"},
		{"fold", "GGGGAAACCCC", "--hint", "(("},
		{"score", "GGGG", "(("},
		{"cofold", "GGGG"},
		{"fold", "GGGG", "--engine", "missing"},
		{"multifold", "GGGG", "--oligo", "CCCC:x"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("foldctl %v succeeded", args)
		}
	}
}

func TestScore(t *testing.T) {
	var got struct {
		Outcome string `json:"outcome"`
		Result  struct {
			Score float64 `json:"score"`
			Trace *struct {
				Nodes []float64 `json:"nodes"`
			} `json:"trace"`
		} `json:"result"`
	}
	runJSON(t, &got, "score", "GGGGAAACCCC", "((((...))))", "--trace")

	if got.Outcome != "computed" || got.Result.Score != -12 {
		t.Errorf("score = %+v", got)
	}
	if got.Result.Trace == nil || len(got.Result.Trace.Nodes) != 11 {
		t.Errorf("trace = %+v", got.Result.Trace)
	}
}

func TestDotPlot(t *testing.T) {
	var got struct {
		Pairs []struct {
			I, J int
			P    float64
		} `json:"pairs"`
	}
	runJSON(t, &got, "dotplot", "GGGGAAACCCC", "--min-prob", "0.5")

	found := false
	for _, p := range got.Pairs {
		if p.P < 0.5 {
			t.Errorf("pair below threshold: %+v", p)
		}
		if p.I == 0 && p.J == 10 {
			found = true
		}
	}
	if !found {
		t.Errorf("pairs = %+v, want (0,10)", got.Pairs)
	}
}

func TestMultifold(t *testing.T) {
	var got struct {
		Outcome   string `json:"outcome"`
		Order     []int  `json:"order"`
		Structure string `json:"structure"`
		Steps     []struct {
			Kind string `json:"kind"`
		} `json:"steps"`
	}
	runJSON(t, &got, "multifold", "GGGGCCCC", "--oligo", "GGGG", "--oligo", "CCCC:1", "--unroll")

	if got.Outcome != "computed" || got.Structure != "((((((((&))))&))))" {
		t.Errorf("multifold = %+v", got)
	}
	if len(got.Order) != 2 || got.Order[0] != 0 || got.Order[1] != 1 {
		t.Errorf("order = %v", got.Order)
	}
	if len(got.Steps) != 5 || got.Steps[1].Kind != "addStrand" {
		t.Errorf("steps = %+v", got.Steps)
	}
}

func TestHealth(t *testing.T) {
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	runJSON(t, &report, "health")

	if report.Status != "healthy" {
		t.Errorf("status = %q", report.Status)
	}
	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "basepair,basepair.circuit,basepair.cache" {
		t.Errorf("checks = %s", got)
	}
}

func TestConfigFile_EnginesWithParameters(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "strong.yaml")
	if err := os.WriteFile(params, []byte("gc: -5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := writeConfig(t, `
observe:
  logging:
    enabled: false
cache:
  store: badger
  in_memory: true
engines:
  - backend: basepair
  - name: strong
    backend: basepair
    params_file: `+params+`
`)

	var infos []engineInfo
	runJSON(t, &infos, "engines", "--config", cfg)
	if len(infos) != 2 || infos[1].Name != "strong" {
		t.Fatalf("engines = %+v", infos)
	}

	var got struct {
		Result struct {
			Score float64 `json:"score"`
		} `json:"result"`
	}
	runJSON(t, &got, "score", "GGGGAAACCCC", "((((...))))", "--config", cfg, "--engine", "strong")
	if got.Result.Score != -20 {
		t.Errorf("strong score = %v, want -20", got.Result.Score)
	}
}

func TestConfigFile_Invalid(t *testing.T) {
	cfg := writeConfig(t, "engines:\n  - backend: nonexistent\n")
	if _, err := run(t, "engines", "--config", cfg); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestWatch_RequiresWatchedEngine(t *testing.T) {
	if _, err := run(t, "watch"); err == nil {
		t.Error("watch without watched engines succeeded")
	}
}

func TestParseOligo(t *testing.T) {
	tests := []struct {
		in    string
		seq   string
		count int
		ok    bool
	}{
		{"GGGG", "GGGG", 1, true},
		{"CCCC:3", "CCCC", 3, true},
		{"CCCC:0", "CCCC", 1, true},
		{"CC&GG", "", 0, false},
		{"CCCC:", "", 0, false},
	}
	for _, tt := range tests {
		o, err := parseOligo(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseOligo(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && (o.Sequence.String() != tt.seq || o.Count != tt.count) {
			t.Errorf("parseOligo(%q) = %+v", tt.in, o)
		}
	}
}
