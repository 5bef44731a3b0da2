package molecule

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidGraph marks malformed input: dangling or duplicate bonds, unknown
// elements and the like. Every validation failure wraps it.
var ErrInvalidGraph = errors.New("molecule: invalid graph")

// Virtual substituent ids used in reference orders next to real atom indices.
const (
	ImplicitH = -1
	LonePair  = -2
)

// BondOrder is the multiplicity of a bond. Aromatic matches the V2000 code 4.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

func (o BondOrder) String() string {
	switch o {
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	case Aromatic:
		return "aromatic"
	}
	return fmt.Sprintf("BondOrder(%d)", int(o))
}

// Chirality is the spatial tag of a tetrahedral atom, relative to the atom's
// reference order (see Molecule.Substituents). Clockwise means that looking
// from the first reference substituent toward the atom, the other three run
// clockwise.
type Chirality int8

const (
	ChiralityUnspecified Chirality = iota
	ChiralityAnticlockwise
	ChiralityClockwise
)

// Invert returns the mirror-image tag.
func (c Chirality) Invert() Chirality {
	switch c {
	case ChiralityAnticlockwise:
		return ChiralityClockwise
	case ChiralityClockwise:
		return ChiralityAnticlockwise
	}
	return c
}

// Permute re-expresses the tag for a reference order reached from the stored
// one by a permutation of the given parity (true = odd).
func (c Chirality) Permute(odd bool) Chirality {
	if odd {
		return c.Invert()
	}
	return c
}

func (c Chirality) String() string {
	switch c {
	case ChiralityAnticlockwise:
		return "@"
	case ChiralityClockwise:
		return "@@"
	}
	return ""
}

// BondStereo is the spatial tag of a double bond: whether the reference
// substituents of the two ends lie on the same side.
type BondStereo int8

const (
	BondStereoNone BondStereo = iota
	BondStereoCis
	BondStereoTrans
)

// Flip swaps cis and trans.
func (s BondStereo) Flip() BondStereo {
	switch s {
	case BondStereoCis:
		return BondStereoTrans
	case BondStereoTrans:
		return BondStereoCis
	}
	return s
}

func (s BondStereo) String() string {
	switch s {
	case BondStereoCis:
		return "cis"
	case BondStereoTrans:
		return "trans"
	}
	return ""
}

// Atom is one vertex of a molecular graph. Index is stable for the life of the
// graph; X and Y are optional depiction coordinates.
type Atom struct {
	Index     int
	X, Y      float64
	Element   string
	Charge    int
	HCount    int // implicit hydrogens
	Isotope   int // mass number, 0 when not given
	Chirality Chirality
}

// Bond joins From and To (atom indices).
type Bond struct {
	Index    int
	From, To int
	Order    BondOrder
	Stereo   BondStereo
}

// Other returns the endpoint of b that is not atom.
func (b Bond) Other(atom int) int {
	if b.From == atom {
		return b.To
	}
	return b.From
}

// Molecule is an immutable molecular graph. Build one with New; every method
// that changes tags returns a fresh clone.
type Molecule struct {
	Name  string
	atoms []Atom
	bonds []Bond
	adj   [][]int // atom -> incident bond indices, ordered by neighbour index
	rings *RingInfo
}

// New validates atoms and bonds and builds a Molecule. Atom and bond Index
// fields are overwritten with their slice positions. The slices are copied.
func New(name string, atoms []Atom, bonds []Bond) (*Molecule, error) {
	m := &Molecule{
		Name:  name,
		atoms: append([]Atom(nil), atoms...),
		bonds: append([]Bond(nil), bonds...),
		adj:   make([][]int, len(atoms)),
	}
	for i := range m.atoms {
		a := &m.atoms[i]
		a.Index = i
		if !IsElement(a.Element) {
			return nil, fmt.Errorf("%w: atom %d has unknown element %q", ErrInvalidGraph, i+1, a.Element)
		}
		if a.HCount < 0 {
			return nil, fmt.Errorf("%w: atom %d has negative hydrogen count", ErrInvalidGraph, i+1)
		}
	}
	seen := make(map[[2]int]int, len(bonds))
	for i := range m.bonds {
		b := &m.bonds[i]
		b.Index = i
		if b.From < 0 || b.From >= len(m.atoms) || b.To < 0 || b.To >= len(m.atoms) {
			return nil, fmt.Errorf("%w: bond %d references missing atom (%d-%d)", ErrInvalidGraph, i+1, b.From+1, b.To+1)
		}
		if b.From == b.To {
			return nil, fmt.Errorf("%w: bond %d is a self-loop on atom %d", ErrInvalidGraph, i+1, b.From+1)
		}
		switch b.Order {
		case Single, Double, Triple, Aromatic:
		default:
			return nil, fmt.Errorf("%w: bond %d has unsupported order %d", ErrInvalidGraph, i+1, int(b.Order))
		}
		key := [2]int{min(b.From, b.To), max(b.From, b.To)}
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: bonds %d and %d join the same atoms", ErrInvalidGraph, prev+1, i+1)
		}
		seen[key] = i
		m.adj[b.From] = append(m.adj[b.From], i)
		m.adj[b.To] = append(m.adj[b.To], i)
	}
	for a := range m.adj {
		bs := m.adj[a]
		sort.Slice(bs, func(x, y int) bool {
			return m.bonds[bs[x]].Other(a) < m.bonds[bs[y]].Other(a)
		})
	}
	rings, err := perceiveRings(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	m.rings = rings
	return m, nil
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.bonds) }

// Atom returns a copy of atom i (0-based).
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// Bond returns a copy of bond i (0-based).
func (m *Molecule) Bond(i int) Bond { return m.bonds[i] }

// Atoms returns a copy of the atom list.
func (m *Molecule) Atoms() []Atom { return append([]Atom(nil), m.atoms...) }

// Bonds returns a copy of the bond list.
func (m *Molecule) Bonds() []Bond { return append([]Bond(nil), m.bonds...) }

// Rings returns the ring data perceived when the graph was built.
func (m *Molecule) Rings() *RingInfo { return m.rings }

// BondsOf returns the indices of bonds incident to atom i, ordered by the
// index of the atom at the other end.
func (m *Molecule) BondsOf(i int) []int {
	return append([]int(nil), m.adj[i]...)
}

// Neighbors returns the atoms bonded to atom i in ascending index order.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, len(m.adj[i]))
	for k, b := range m.adj[i] {
		out[k] = m.bonds[b].Other(i)
	}
	return out
}

// HeavyDegree is the number of explicit neighbours of atom i.
func (m *Molecule) HeavyDegree(i int) int { return len(m.adj[i]) }

// BondBetween returns the bond joining i and j.
func (m *Molecule) BondBetween(i, j int) (Bond, bool) {
	for _, b := range m.adj[i] {
		if m.bonds[b].Other(i) == j {
			return m.bonds[b], true
		}
	}
	return Bond{}, false
}

// ValenceSum returns twice the sum of bond valences at atom i
// (aromatic bonds count 1.5).
func (m *Molecule) ValenceSum(i int) int {
	sum := 0
	for _, b := range m.adj[i] {
		sum += bondValence2(m.bonds[b].Order)
	}
	return sum
}

// LonePairs reports whether atom i carries a stereochemically relevant lone
// pair: three-coordinate S, Se, P or As without hydrogens (sulfoxides,
// sulfonium ions, phosphines) or a neutral imine nitrogen.
func (m *Molecule) LonePairs(i int) int {
	a := m.atoms[i]
	deg := len(m.adj[i])
	switch a.Element {
	case "S", "Se":
		if deg == 3 && a.HCount == 0 && a.Charge >= 0 {
			return 1
		}
	case "P", "As":
		if deg == 3 && a.HCount == 0 && a.Charge == 0 && m.countOrder(i, Double) == 0 {
			return 1
		}
	case "N":
		if deg == 2 && a.HCount == 0 && a.Charge == 0 && m.countOrder(i, Double) == 1 {
			return 1
		}
	}
	return 0
}

func (m *Molecule) countOrder(i int, o BondOrder) int {
	n := 0
	for _, b := range m.adj[i] {
		if m.bonds[b].Order == o {
			n++
		}
	}
	return n
}

// Substituents returns the reference order of atom i: its neighbours in
// ascending index order (skipping exclude, pass -1 to keep all), then one
// ImplicitH per implicit hydrogen, then LonePair when the atom carries one.
func (m *Molecule) Substituents(i, exclude int) []int {
	out := make([]int, 0, 4)
	for _, n := range m.Neighbors(i) {
		if n != exclude {
			out = append(out, n)
		}
	}
	for h := 0; h < m.atoms[i].HCount; h++ {
		out = append(out, ImplicitH)
	}
	if m.LonePairs(i) > 0 {
		out = append(out, LonePair)
	}
	return out
}

// Clone returns an independent deep copy. Ring data is constitutional and
// shared read-only between clones.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Name:  m.Name,
		atoms: append([]Atom(nil), m.atoms...),
		bonds: append([]Bond(nil), m.bonds...),
		adj:   make([][]int, len(m.adj)),
		rings: m.rings,
	}
	for i, bs := range m.adj {
		c.adj[i] = append([]int(nil), bs...)
	}
	return c
}

// WithChirality returns a clone with atom i tagged c.
func (m *Molecule) WithChirality(i int, c Chirality) *Molecule {
	out := m.Clone()
	out.atoms[i].Chirality = c
	return out
}

// WithBondStereo returns a clone with bond i tagged s.
func (m *Molecule) WithBondStereo(i int, s BondStereo) *Molecule {
	out := m.Clone()
	out.bonds[i].Stereo = s
	return out
}

// WithStereo returns a clone carrying the given atom and bond tags. Indices
// missing from the maps keep their current tag.
func (m *Molecule) WithStereo(atoms map[int]Chirality, bonds map[int]BondStereo) *Molecule {
	out := m.Clone()
	for i, c := range atoms {
		out.atoms[i].Chirality = c
	}
	for i, s := range bonds {
		out.bonds[i].Stereo = s
	}
	return out
}

// WithoutStereo returns a clone with every tag reset to unspecified.
func (m *Molecule) WithoutStereo() *Molecule {
	out := m.Clone()
	for i := range out.atoms {
		out.atoms[i].Chirality = ChiralityUnspecified
	}
	for i := range out.bonds {
		out.bonds[i].Stereo = BondStereoNone
	}
	return out
}

// Mirror returns the mirror image: every tetrahedral tag is inverted, double
// bond geometry is unchanged by a reflection.
func (m *Molecule) Mirror() *Molecule {
	out := m.Clone()
	for i := range out.atoms {
		out.atoms[i].Chirality = out.atoms[i].Chirality.Invert()
	}
	return out
}

// HasStereo reports whether any atom or bond carries a tag.
func (m *Molecule) HasStereo() bool {
	for _, a := range m.atoms {
		if a.Chirality != ChiralityUnspecified {
			return true
		}
	}
	for _, b := range m.bonds {
		if b.Stereo != BondStereoNone {
			return true
		}
	}
	return false
}

// Formula returns the Hill-order molecular formula, implicit hydrogens included.
func (m *Molecule) Formula() string {
	counts := map[string]int{}
	for _, a := range m.atoms {
		counts[a.Element]++
		if a.HCount > 0 {
			counts["H"] += a.HCount
		}
	}
	var syms []string
	for s := range counts {
		if s != "C" && s != "H" {
			syms = append(syms, s)
		}
	}
	sort.Strings(syms)
	if counts["C"] > 0 {
		syms = append([]string{"C", "H"}, syms...)
	} else {
		syms = append(syms, "H")
		sort.Strings(syms)
	}
	out := ""
	for _, s := range syms {
		n := counts[s]
		if n == 0 {
			continue
		}
		out += s
		if n > 1 {
			out += fmt.Sprint(n)
		}
	}
	return out
}
