// Package molecule holds the immutable 2D molecular graph and its readers
// (V2000 molfile/SDF and SMILES connectivity).
//
// Spatial tags are parities relative to a reference order of substituents,
// see Substituents. Setters return modified clones.
package molecule
