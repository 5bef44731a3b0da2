package cip

import (
	"errors"
	"fmt"

	"tristereo/molecule"
)

// ErrCIPTieUnresolved reports two substituents the priority rules could not
// separate. Stereo features are detected on constitutional ranks, so reaching
// it points at a detection inconsistency rather than bad input.
var ErrCIPTieUnresolved = errors.New("cip: substituent tie unresolved")

// ErrNotStereo is returned when asked to label an atom or bond that carries no
// spatial tag or does not have the substituent count of a stereo element.
var ErrNotStereo = errors.New("cip: not a tagged stereo element")

// Descriptor is a CIP stereodescriptor.
type Descriptor string

const (
	R            Descriptor = "R"
	S            Descriptor = "S"
	E            Descriptor = "E"
	Z            Descriptor = "Z"
	Undetermined Descriptor = "undetermined"
)

// Mirror returns the descriptor of the mirror image. E and Z survive a
// reflection unchanged.
func (d Descriptor) Mirror() Descriptor {
	switch d {
	case R:
		return S
	case S:
		return R
	}
	return d
}

// Options bounds the digraph exploration.
type Options struct {
	MaxDepth int // deepest sphere expanded from the root
	MaxNodes int // digraph nodes created per ranking
}

// DefaultOptions suit small organic molecules.
func DefaultOptions() Options {
	return Options{MaxDepth: 64, MaxNodes: 200000}
}

// Rank orders the substituents of atom (given as ids from
// molecule.Substituents, excluding whichever neighbour the caller left out) by
// descending CIP priority. A tie between any two returns ErrCIPTieUnresolved
// together with the best order found.
func Rank(mol *molecule.Molecule, atom int, subs []int, opts Options) ([]int, error) {
	g := newDigraph(mol, opts)
	root := g.root(atom)
	branches := make([]*node, len(subs))
	for i, s := range subs {
		branches[i] = g.branch(root, s)
	}
	order := make([]int, len(subs))
	for i := range order {
		order[i] = i
	}
	// insertion sort keeps comparisons few for four branches
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && g.priority(branches[order[j]], branches[order[j-1]]) > 0; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	out := make([]int, len(order))
	for i, k := range order {
		out[i] = subs[k]
	}
	for i := 1; i < len(order); i++ {
		if g.priority(branches[order[i-1]], branches[order[i]]) == 0 {
			return out, fmt.Errorf("%w: atom %d substituents %s and %s", ErrCIPTieUnresolved,
				atom+1, subName(subs[order[i-1]]), subName(subs[order[i]]))
		}
	}
	return out, nil
}

func subName(s int) string {
	switch s {
	case molecule.ImplicitH:
		return "H"
	case molecule.LonePair:
		return "lone pair"
	}
	return fmt.Sprint(s + 1)
}

// Center assigns R or S to a tagged tetrahedral atom. The spatial tag is
// re-expressed for the order [lowest, highest, second, third]: viewed from the
// lowest priority substituent a clockwise turn of the other three is S, since
// the conventional view looks from the opposite side.
func Center(mol *molecule.Molecule, atom int, opts Options) (Descriptor, error) {
	a := mol.Atom(atom)
	ref := mol.Substituents(atom, -1)
	if a.Chirality == molecule.ChiralityUnspecified || len(ref) != 4 {
		return "", fmt.Errorf("%w: atom %d", ErrNotStereo, atom+1)
	}
	prio, err := Rank(mol, atom, ref, opts)
	if err != nil {
		return Undetermined, err
	}
	view := []int{prio[3], prio[0], prio[1], prio[2]}
	if a.Chirality.Permute(OddPermutation(ref, view)) == molecule.ChiralityClockwise {
		return S, nil
	}
	return R, nil
}

// Bond assigns E or Z to a tagged double bond. The stored tag relates the
// reference substituents (first in reference order) of each end; it is
// flipped once for every end whose higher-priority substituent is not the
// reference.
func Bond(mol *molecule.Molecule, bond int, opts Options) (Descriptor, error) {
	b := mol.Bond(bond)
	su := mol.Substituents(b.From, b.To)
	sv := mol.Substituents(b.To, b.From)
	if b.Stereo == molecule.BondStereoNone || len(su) != 2 || len(sv) != 2 {
		return "", fmt.Errorf("%w: bond %d=%d", ErrNotStereo, b.From+1, b.To+1)
	}
	pu, err := Rank(mol, b.From, su, opts)
	if err != nil {
		return Undetermined, err
	}
	pv, err := Rank(mol, b.To, sv, opts)
	if err != nil {
		return Undetermined, err
	}
	cis := b.Stereo == molecule.BondStereoCis
	if pu[0] != su[0] {
		cis = !cis
	}
	if pv[0] != sv[0] {
		cis = !cis
	}
	if cis {
		return Z, nil
	}
	return E, nil
}

// OddPermutation reports whether to is an odd permutation of from. Both must
// hold the same distinct ids.
func OddPermutation(from, to []int) bool {
	pos := make(map[int]int, len(to))
	for i, v := range to {
		pos[v] = i
	}
	seq := make([]int, len(from))
	for i, v := range from {
		seq[i] = pos[v]
	}
	odd := false
	for i := 0; i < len(seq); i++ {
		for j := i + 1; j < len(seq); j++ {
			if seq[i] > seq[j] {
				odd = !odd
			}
		}
	}
	return odd
}
