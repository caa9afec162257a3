package basepair

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidParams indicates a parameter set that failed to parse or validate.
var ErrInvalidParams = errors.New("basepair: invalid parameters")

// Params is the energy model, in kcal/mol at 37 °C.
type Params struct {
	// Pair free energies by pair type. Negative is favourable.
	GC float64 `yaml:"gc" validate:"lte=0"`
	AU float64 `yaml:"au" validate:"lte=0"`
	GU float64 `yaml:"gu" validate:"lte=0"`

	// MinHairpin is the smallest number of unpaired positions a hairpin loop encloses.
	MinHairpin int `yaml:"min_hairpin" validate:"gte=0,lte=10"`

	// Mismatch is charged per non-canonical pair when scoring a given structure.
	Mismatch float64 `yaml:"mismatch" validate:"gte=0"`

	// Initiation is charged per oligo strand joined in a multifold.
	Initiation float64 `yaml:"initiation" validate:"gte=0"`

	// MeltingTemp is the temperature in °C at which pair energies reach zero.
	MeltingTemp float64 `yaml:"melting_temp" validate:"gt=37"`

	// MaxOligos bounds the number of oligo strands a multifold joins.
	MaxOligos int `yaml:"max_oligos" validate:"gte=0,lte=4"`
}

// DefaultParams returns the built-in parameter set.
func DefaultParams() Params {
	return Params{
		GC:          -3.0,
		AU:          -2.0,
		GU:          -1.0,
		MinHairpin:  3,
		Mismatch:    1.0,
		Initiation:  4.1,
		MeltingTemp: 95,
		MaxOligos:   2,
	}
}

var validate = validator.New()

// Validate checks every field against its bounds.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// ParseParams reads a YAML parameter file. Fields the file omits keep their
// default values; unknown fields are rejected.
func ParseParams(raw []byte) (Params, error) {
	p := DefaultParams()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// pairEnergy returns the 37 °C energy of pairing a with b.
func (p Params) pairEnergy(a, b byte) (float64, bool) {
	switch string([]byte{a, b}) {
	case "GC", "CG":
		return p.GC, true
	case "AU", "UA":
		return p.AU, true
	case "GU", "UG":
		return p.GU, true
	default:
		return 0, false
	}
}

// scale returns the factor applied to pair energies at temp °C.
func (p Params) scale(temp float64) float64 {
	s := (p.MeltingTemp - temp) / (p.MeltingTemp - 37)
	if s < 0 {
		return 0
	}
	return s
}
