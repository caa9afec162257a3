package folding

import "errors"

// Input errors.
var (
	// ErrInvalidSequence indicates a symbol outside the nucleotide alphabet or a misplaced strand separator.
	ErrInvalidSequence = errors.New("folding: invalid sequence")

	// ErrEmptySequence indicates a sequence or strand with no nucleotides.
	ErrEmptySequence = errors.New("folding: empty sequence")

	// ErrInvalidStructure indicates a malformed pairing table or dot-bracket string.
	ErrInvalidStructure = errors.New("folding: invalid structure")

	// ErrNotNested indicates crossing pairs where a nested structure is required.
	ErrNotNested = errors.New("folding: structure is pseudoknotted")

	// ErrLengthMismatch indicates a structure or constraint whose length differs from its sequence.
	ErrLengthMismatch = errors.New("folding: length mismatch")

	// ErrInvalidBindingSite indicates a binding-site index outside the sequence.
	ErrInvalidBindingSite = errors.New("folding: invalid binding site")

	// ErrInvalidDotPlot indicates a probability outside [0,1] or an index outside the matrix.
	ErrInvalidDotPlot = errors.New("folding: invalid dot plot")

	// ErrInvalidMultifold indicates a multifold result inconsistent with the oligos it was computed from.
	ErrInvalidMultifold = errors.New("folding: invalid multifold result")
)

// Runtime errors.
var (
	// ErrComputationFailed wraps every error a backend returns from a computation.
	ErrComputationFailed = errors.New("folding: computation failed")

	// ErrNilBackend indicates NewEngine was given a nil backend.
	ErrNilBackend = errors.New("folding: backend is nil")
)

// Registry errors.
var (
	// ErrBackendNotRegistered indicates Create was asked for an unknown backend.
	ErrBackendNotRegistered = errors.New("folding: backend not registered")

	// ErrBackendExists indicates Register was called twice with one name.
	ErrBackendExists = errors.New("folding: backend already registered")

	// ErrInvalidRegistration indicates an empty name or nil factory.
	ErrInvalidRegistration = errors.New("folding: invalid backend registration")
)
