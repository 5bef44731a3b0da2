package stereo

import (
	"errors"
	"sort"

	"tristereo/molecule"
)

var errRefineLimit = errors.New("rank refinement did not converge")

// invariantKey orders atoms by their integer tuples.
type invariantKey []int

func lessKey(a, b invariantKey) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func equalKey(a, b invariantKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// denseRank assigns 0..classes-1 to atoms so that equal keys share a rank and
// ranks follow key order.
func denseRank(keys []invariantKey) ([]int, int) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool { return lessKey(keys[idx[x]], keys[idx[y]]) })
	rank := make([]int, len(keys))
	classes := 0
	for k, i := range idx {
		if k > 0 && !equalKey(keys[idx[k-1]], keys[i]) {
			classes++
		}
		rank[i] = classes
	}
	if len(keys) > 0 {
		classes++
	}
	return rank, classes
}

// atomInvariants is the starting point of refinement: element, heavy degree,
// hydrogens, charge, valence, ring membership and isotope.
func atomInvariants(mol *molecule.Molecule) []invariantKey {
	rings := mol.Rings()
	keys := make([]invariantKey, mol.NumAtoms())
	for i := range keys {
		a := mol.Atom(i)
		inRing := 0
		if rings.AtomRingSize(i) > 0 {
			inRing = 1
		}
		keys[i] = invariantKey{
			molecule.AtomicNumber(a.Element),
			mol.HeavyDegree(i),
			a.HCount,
			a.Charge,
			mol.ValenceSum(i),
			inRing,
			a.Isotope,
		}
	}
	return keys
}

// stereoInvariants reports spatial tags in a numbering-independent form for
// the current partition; nil means constitution only.
type stereoInvariants func(rank []int) (atoms []int, bonds []int)

// refine iterates extended connectivity: each round an atom's key is its
// current rank, its stereo invariant and the sorted multiset of
// (bond order, bond stereo invariant, neighbour rank). It stops once the
// number of classes no longer grows.
func refine(mol *molecule.Molecule, rank []int, stereo stereoInvariants, maxRounds int) ([]int, error) {
	n := mol.NumAtoms()
	classes := countClasses(rank)
	for round := 0; round < maxRounds; round++ {
		var atomSt, bondSt []int
		if stereo != nil {
			atomSt, bondSt = stereo(rank)
		}
		keys := make([]invariantKey, n)
		for i := 0; i < n; i++ {
			key := invariantKey{rank[i], 0}
			if atomSt != nil {
				key[1] = atomSt[i]
			}
			bs := mol.BondsOf(i)
			triples := make([][3]int, 0, len(bs))
			for _, bi := range bs {
				b := mol.Bond(bi)
				st := 0
				if bondSt != nil {
					st = bondSt[bi]
				}
				triples = append(triples, [3]int{int(b.Order), st, rank[b.Other(i)]})
			}
			sort.Slice(triples, func(x, y int) bool {
				for k := 0; k < 3; k++ {
					if triples[x][k] != triples[y][k] {
						return triples[x][k] < triples[y][k]
					}
				}
				return false
			})
			for _, t := range triples {
				key = append(key, t[0], t[1], t[2])
			}
			keys[i] = key
		}
		next, nextClasses := denseRank(keys)
		if nextClasses == classes {
			return next, nil
		}
		rank, classes = next, nextClasses
	}
	return nil, errRefineLimit
}

func countClasses(rank []int) int {
	seen := make(map[int]struct{}, len(rank))
	for _, r := range rank {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// ConstitutionalRanks returns Morgan-style symmetry classes of the atoms,
// ignoring every spatial tag. Atoms related by a graph automorphism always
// share a rank.
func ConstitutionalRanks(mol *molecule.Molecule) []int {
	rank, _ := denseRank(atomInvariants(mol))
	// a partition can only be refined n times
	out, err := refine(mol, rank, nil, mol.NumAtoms()+2)
	if err != nil {
		return rank
	}
	return out
}
