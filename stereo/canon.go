package stereo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"tristereo/cip"
	"tristereo/molecule"
)

// keyDomain prefixes every canonical key hash; bump the version when the
// serialisation changes.
const keyDomain = "tristereo/isomer/v1"

// Canonical is the result of canonical labelling.
type Canonical struct {
	Key    string // hex SHA-256 of the minimal serialisation
	Rank   []int  // canonical position of every atom
	Leaves int    // search tree leaves visited
}

type canonicalizer struct {
	mol       *molecule.Molecule
	maxRounds int
	maxLeaves int
	leaves    int
	best      string
	bestRank  []int
	err       error
}

// Canonicalize computes a key for mol that is equal for two graphs exactly
// when an isomorphism maps one onto the other preserving elements, charges,
// hydrogens, bond orders and spatial tags.
func Canonicalize(mol *molecule.Molecule, opts ...Option) (Canonical, error) {
	o := buildOptions(opts)
	return canonicalize(mol, o.MaxRefineRounds, o.MaxSearchLeaves)
}

func canonicalize(mol *molecule.Molecule, maxRounds, maxLeaves int) (Canonical, error) {
	c := &canonicalizer{mol: mol, maxRounds: maxRounds, maxLeaves: maxLeaves}
	start, _ := denseRank(atomInvariants(mol))
	c.search(start)
	if c.err != nil {
		return Canonical{Leaves: c.leaves}, fmt.Errorf("%w: %v", ErrCanonicalizationFailed, c.err)
	}
	return Canonical{Key: hashWithDomain(keyDomain, c.best), Rank: c.bestRank, Leaves: c.leaves}, nil
}

func hashWithDomain(domain, data string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *canonicalizer) search(rank []int) {
	if c.err != nil {
		return
	}
	rank, err := refine(c.mol, rank, c.stereoInvariants, c.maxRounds)
	if err != nil {
		c.err = err
		return
	}
	cell := targetCell(rank)
	if cell == nil {
		c.leaves++
		if c.leaves > c.maxLeaves {
			c.err = fmt.Errorf("search exceeded %d leaves", c.maxLeaves)
			return
		}
		s := c.serialize(rank)
		if c.bestRank == nil || s < c.best {
			c.best, c.bestRank = s, rank
		}
		return
	}
	for _, a := range c.prune(cell) {
		c.search(individualize(rank, a))
		if c.err != nil {
			return
		}
	}
}

// targetCell picks the smallest non-singleton class, lowest rank first.
// It returns nil when the partition is discrete.
func targetCell(rank []int) []int {
	cells := map[int][]int{}
	for i, r := range rank {
		cells[r] = append(cells[r], i)
	}
	bestRank, bestSize := -1, 0
	for r, members := range cells {
		if len(members) < 2 {
			continue
		}
		if bestRank < 0 || len(members) < bestSize || (len(members) == bestSize && r < bestRank) {
			bestRank, bestSize = r, len(members)
		}
	}
	if bestRank < 0 {
		return nil
	}
	return cells[bestRank] // ascending atom order
}

// prune keeps one representative of terminal atoms hanging off the same
// untagged atom: swapping such siblings is an automorphism, so their
// subtrees give identical leaves.
func (c *canonicalizer) prune(cell []int) []int {
	out := make([]int, 0, len(cell))
	seenParent := map[int]bool{}
	for _, a := range cell {
		if c.mol.HeavyDegree(a) == 1 {
			parent := c.mol.Neighbors(a)[0]
			if c.interchangeable(parent) {
				if seenParent[parent] {
					continue
				}
				seenParent[parent] = true
			}
		}
		out = append(out, a)
	}
	return out
}

func (c *canonicalizer) interchangeable(parent int) bool {
	if c.mol.Atom(parent).Chirality != molecule.ChiralityUnspecified {
		return false
	}
	for _, bi := range c.mol.BondsOf(parent) {
		if c.mol.Bond(bi).Stereo != molecule.BondStereoNone {
			return false
		}
	}
	return true
}

func individualize(rank []int, atom int) []int {
	keys := make([]invariantKey, len(rank))
	for i, r := range rank {
		mark := 1
		if i == atom {
			mark = 0
		}
		keys[i] = invariantKey{r, mark}
	}
	out, _ := denseRank(keys)
	return out
}

// orderedByRank sorts substituent ids by their current rank; virtual
// substituents (hydrogen, lone pair) go last. ok is false on a tie.
func orderedByRank(subs []int, rank []int) ([]int, bool) {
	out := append([]int(nil), subs...)
	key := func(s int) int {
		if s >= 0 {
			return rank[s]
		}
		return len(rank) - s // -1 -> n+1, -2 -> n+2
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	for i := 1; i < len(out); i++ {
		if key(out[i]) == key(out[i-1]) {
			return out, false
		}
	}
	return out, true
}

// stereoInvariants expresses each tag relative to rank order once the ranks
// around it are distinct: 1 or 2, and 0 while still ambiguous.
func (c *canonicalizer) stereoInvariants(rank []int) ([]int, []int) {
	atoms := make([]int, c.mol.NumAtoms())
	bonds := make([]int, c.mol.NumBonds())
	for i := range atoms {
		atoms[i] = c.atomParity(i, rank)
	}
	for bi := range bonds {
		bonds[bi] = c.bondParity(bi, rank)
	}
	return atoms, bonds
}

func (c *canonicalizer) atomParity(i int, rank []int) int {
	tag := c.mol.Atom(i).Chirality
	if tag == molecule.ChiralityUnspecified {
		return 0
	}
	ref := c.mol.Substituents(i, -1)
	ordered, ok := orderedByRank(ref, rank)
	if !ok {
		return 0
	}
	return int(tag.Permute(cip.OddPermutation(ref, ordered)))
}

func (c *canonicalizer) bondParity(bi int, rank []int) int {
	b := c.mol.Bond(bi)
	if b.Stereo == molecule.BondStereoNone {
		return 0
	}
	su := c.mol.Substituents(b.From, b.To)
	sv := c.mol.Substituents(b.To, b.From)
	ou, okU := orderedByRank(su, rank)
	ov, okV := orderedByRank(sv, rank)
	if !okU || !okV || len(su) == 0 || len(sv) == 0 {
		return 0
	}
	st := b.Stereo
	if ou[0] != su[0] {
		st = st.Flip()
	}
	if ov[0] != sv[0] {
		st = st.Flip()
	}
	return int(st)
}

// serialize writes the graph in canonical atom order for a discrete
// partition.
func (c *canonicalizer) serialize(rank []int) string {
	n := c.mol.NumAtoms()
	order := make([]int, n)
	for i, r := range rank {
		order[r] = i
	}
	var sb strings.Builder
	for _, i := range order {
		a := c.mol.Atom(i)
		if a.Isotope > 0 {
			fmt.Fprintf(&sb, "%d", a.Isotope)
		}
		fmt.Fprintf(&sb, "%s,%d,%d,%d;", a.Element, a.Charge, a.HCount, c.atomParity(i, rank))
	}
	sb.WriteByte('|')
	type edge struct{ u, v, order, st int }
	edges := make([]edge, 0, c.mol.NumBonds())
	for bi := 0; bi < c.mol.NumBonds(); bi++ {
		b := c.mol.Bond(bi)
		u, v := rank[b.From], rank[b.To]
		if u > v {
			u, v = v, u
		}
		edges = append(edges, edge{u, v, int(b.Order), c.bondParity(bi, rank)})
	}
	sort.Slice(edges, func(x, y int) bool {
		if edges[x].u != edges[y].u {
			return edges[x].u < edges[y].u
		}
		return edges[x].v < edges[y].v
	})
	for _, e := range edges {
		fmt.Fprintf(&sb, "%d-%d:%d:%d;", e.u, e.v, e.order, e.st)
	}
	return sb.String()
}
