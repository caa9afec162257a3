package folding

import (
	"encoding/json"
	"fmt"
	"math"
)

// DotPlot is a symmetric matrix of base-pair probabilities.
// The zero value is the empty plot.
type DotPlot struct {
	n int
	p []float64 // upper triangle, row-major, i < j
}

// DotPlotEntry is one nonzero pair probability.
type DotPlotEntry struct {
	I, J int
	P    float64
}

// NewDotPlot returns an all-zero plot over n positions.
func NewDotPlot(n int) DotPlot {
	if n <= 0 {
		return DotPlot{}
	}
	return DotPlot{n: n, p: make([]float64, n*(n-1)/2)}
}

func (d DotPlot) index(i, j int) (int, bool) {
	if i > j {
		i, j = j, i
	}
	if i < 0 || j >= d.n || i == j {
		return 0, false
	}
	// Offset of row i in the packed upper triangle.
	return i*(2*d.n-i-1)/2 + (j - i - 1), true
}

// Size returns the number of positions.
func (d DotPlot) Size() int {
	return d.n
}

// IsEmpty reports whether the plot covers no positions.
func (d DotPlot) IsEmpty() bool {
	return d.n == 0
}

// At returns the probability that i pairs with j. The diagonal is 0.
func (d DotPlot) At(i, j int) float64 {
	k, ok := d.index(i, j)
	if !ok {
		return 0
	}
	return d.p[k]
}

// Set stores the probability that i pairs with j (and j with i).
// Backends call it while building a plot, before returning it.
func (d *DotPlot) Set(i, j int, p float64) error {
	k, ok := d.index(i, j)
	if !ok {
		return fmt.Errorf("%w: pair (%d,%d) outside %dx%d", ErrInvalidDotPlot, i, j, d.n, d.n)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v for (%d,%d)", ErrInvalidDotPlot, p, i, j)
	}
	d.p[k] = p
	return nil
}

// Entries returns every pair with nonzero probability, i < j, ordered by (i, j).
func (d DotPlot) Entries() []DotPlotEntry {
	var out []DotPlotEntry
	for i := 0; i < d.n; i++ {
		for j := i + 1; j < d.n; j++ {
			if p := d.At(i, j); p > 0 {
				out = append(out, DotPlotEntry{I: i, J: j, P: p})
			}
		}
	}
	return out
}

// UnpairedProbability returns 1 minus the total pairing probability of i.
func (d DotPlot) UnpairedProbability(i int) float64 {
	sum := 0.0
	for j := 0; j < d.n; j++ {
		sum += d.At(i, j)
	}
	return math.Max(0, 1-sum)
}

// Validate checks every probability lies in [0,1].
func (d DotPlot) Validate() error {
	if len(d.p) != d.n*(d.n-1)/2 && d.n > 0 {
		return fmt.Errorf("%w: storage does not match size %d", ErrInvalidDotPlot, d.n)
	}
	for k, p := range d.p {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v at offset %d", ErrInvalidDotPlot, p, k)
		}
	}
	return nil
}

// Equal reports whether d and o hold the same probabilities.
func (d DotPlot) Equal(o DotPlot) bool {
	if d.n != o.n {
		return false
	}
	for k := range d.p {
		if d.p[k] != o.p[k] {
			return false
		}
	}
	return true
}

type dotPlotJSON struct {
	Size    int          `json:"size"`
	Entries [][3]float64 `json:"entries,omitempty"`
}

// MarshalJSON encodes the size and the nonzero entries as [i, j, p] triples.
func (d DotPlot) MarshalJSON() ([]byte, error) {
	out := dotPlotJSON{Size: d.n}
	for _, e := range d.Entries() {
		out.Entries = append(out.Entries, [3]float64{float64(e.I), float64(e.J), e.P})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates the form written by MarshalJSON.
func (d *DotPlot) UnmarshalJSON(data []byte) error {
	var in dotPlotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	plot := NewDotPlot(in.Size)
	for _, e := range in.Entries {
		if err := plot.Set(int(e[0]), int(e[1]), e[2]); err != nil {
			return err
		}
	}
	*d = plot
	return nil
}
