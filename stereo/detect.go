package stereo

import (
	"fmt"

	"tristereo/molecule"
)

// FeatureKind tells stereocentres from stereo double bonds.
type FeatureKind int

const (
	CenterFeature FeatureKind = iota
	BondFeature
)

func (k FeatureKind) String() string {
	if k == BondFeature {
		return "bond"
	}
	return "center"
}

// Feature is one stereogenic element of the input graph together with the two
// spatial tags it can take. Tag value 0 is the first in enumeration order.
type Feature struct {
	Kind FeatureKind
	Atom int // centre atom, -1 for bonds
	Bond int // bond index, -1 for centres
	From int // bond ends
	To   int

	// RingSize is the smallest ring through the bond, 0 when acyclic.
	RingSize int
	// ringFlip is set when the ring-path substituents of the two ends relate
	// oppositely to the reference substituents, so ring geometry is the stored
	// tag flipped.
	ringFlip bool
}

// Name is the 1-based locant used in labels: "2" for atom 2, "3=4" for the
// double bond between atoms 3 and 4.
func (f Feature) Name() string {
	if f.Kind == BondFeature {
		return fmt.Sprintf("%d=%d", f.From+1, f.To+1)
	}
	return fmt.Sprint(f.Atom + 1)
}

// CenterTags and BondTags list tag values in enumeration order.
var (
	CenterTags = [2]molecule.Chirality{molecule.ChiralityAnticlockwise, molecule.ChiralityClockwise}
	BondTags   = [2]molecule.BondStereo{molecule.BondStereoCis, molecule.BondStereoTrans}
)

// centre elements; nitrogen only when quaternary (amines invert)
var centerElements = map[string]bool{
	"C": true, "Si": true, "Ge": true, "Sn": true, "B": true,
	"N": true, "P": true, "As": true, "S": true, "Se": true,
}

// Detect finds the stereocentres and stereo double bonds of mol from its
// constitution alone. Centres come first in atom order, then bonds in bond
// order.
func Detect(mol *molecule.Molecule, opts ...Option) []Feature {
	o := buildOptions(opts)
	return detect(mol, o)
}

func detect(mol *molecule.Molecule, o Options) []Feature {
	rank := ConstitutionalRanks(mol)
	var out []Feature
	for i := 0; i < mol.NumAtoms(); i++ {
		if isCenter(mol, i, rank) {
			out = append(out, Feature{Kind: CenterFeature, Atom: i, Bond: -1, From: -1, To: -1})
		}
	}
	rings := mol.Rings()
	for bi := 0; bi < mol.NumBonds(); bi++ {
		b := mol.Bond(bi)
		if b.Order != molecule.Double {
			continue
		}
		size := rings.BondRingSize(bi)
		if size > 0 && size < o.MinStereoRingSize {
			continue
		}
		if !isStereoEnd(mol, b.From, b.To, rank) || !isStereoEnd(mol, b.To, b.From, rank) {
			continue
		}
		f := Feature{Kind: BondFeature, Atom: -1, Bond: bi, From: b.From, To: b.To, RingSize: size}
		if ru, rv, ok := rings.RingNeighbors(bi); ok {
			su := mol.Substituents(b.From, b.To)
			sv := mol.Substituents(b.To, b.From)
			f.ringFlip = (ru != su[0]) != (rv != sv[0])
		}
		out = append(out, f)
	}
	return out
}

func substituentKey(s int, rank []int) int {
	if s >= 0 {
		return rank[s]
	}
	return s // ImplicitH and LonePair sit below every rank
}

func distinctKeys(subs []int, rank []int) bool {
	seen := make(map[int]bool, len(subs))
	for _, s := range subs {
		k := substituentKey(s, rank)
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

func isCenter(mol *molecule.Molecule, i int, rank []int) bool {
	a := mol.Atom(i)
	if !centerElements[a.Element] {
		return false
	}
	subs := mol.Substituents(i, -1)
	if len(subs) != 4 {
		return false
	}
	for _, bi := range mol.BondsOf(i) {
		if mol.Bond(bi).Order == molecule.Aromatic {
			return false
		}
	}
	switch a.Element {
	case "N":
		if a.Charge != 1 || a.HCount != 0 {
			return false
		}
	case "C", "Si", "Ge", "Sn", "B":
		for _, bi := range mol.BondsOf(i) {
			if mol.Bond(bi).Order != molecule.Single {
				return false
			}
		}
	}
	return distinctKeys(subs, rank)
}

// isStereoEnd checks one end of a double bond: exactly two substituents
// besides the partner, at least one of them an atom, no cumulated double
// bond and distinct constitutional ranks.
func isStereoEnd(mol *molecule.Molecule, end, partner int, rank []int) bool {
	subs := mol.Substituents(end, partner)
	if len(subs) != 2 {
		return false
	}
	if subs[0] < 0 && subs[1] < 0 {
		return false
	}
	for _, bi := range mol.BondsOf(end) {
		b := mol.Bond(bi)
		if b.Other(end) == partner {
			continue
		}
		if b.Order != molecule.Single {
			return false
		}
	}
	return distinctKeys(subs, rank)
}
