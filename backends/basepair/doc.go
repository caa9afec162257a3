// Package basepair is the reference folding backend: a weighted base-pair
// maximisation model with a matching partition function.
//
// Every pair contributes a fixed free energy by pair type (GC, AU, GU),
// scaled linearly with temperature so that pairing vanishes at the melting
// temperature. Hairpin loops inside one strand must hold at least MinHairpin
// unpaired positions. Pairs between strands are unrestricted and the first
// one pays an initiation penalty (the cofold malus, or Initiation per oligo
// in a multifold).
//
// The model is deliberately small. It produces real, deterministic answers
// for every capability Engine exposes, so callers and tests exercise the
// whole stack without a native thermodynamics library.
//
// Importing the package registers the backend as "basepair" in
// folding.DefaultRegistry.
package basepair
