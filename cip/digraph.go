package cip

import (
	"sort"

	"tristereo/molecule"
)

// pseudo atom ids for digraph nodes that do not stand for a graph atom
const (
	phantomAtom   = -3
	aromaticDummy = -4
)

// sequence rules applied in turn; the mass rule only runs on a full tie of
// atomic numbers
const (
	ruleAtomicNumber = 1
	ruleMass         = 2
)

// node is one vertex of the hierarchical digraph. Duplicate nodes copy the
// atomic number of the atom they stand for and end in phantoms.
type node struct {
	atom     int
	weight   int // ten times the atomic number; aromatic duplicates carry a mean
	mass     int // thousandths of a dalton, 0 for pseudo atoms
	dup      bool
	parent   *node
	depth    int
	children []*node
	expanded bool
	sorted   bool
}

// digraph lazily expands the hierarchical digraph of one molecule from a
// root atom. Nodes are created on demand while branches are compared.
type digraph struct {
	mol      *molecule.Molecule
	maxDepth int
	budget   int
	created  int
	overflow bool
}

func newDigraph(mol *molecule.Molecule, opts Options) *digraph {
	return &digraph{mol: mol, maxDepth: opts.MaxDepth, budget: opts.MaxNodes}
}

func atomWeight(mol *molecule.Molecule, atom int) int {
	switch atom {
	case molecule.ImplicitH:
		return 10
	case molecule.LonePair, phantomAtom:
		return 0
	}
	return 10 * molecule.AtomicNumber(mol.Atom(atom).Element)
}

func atomMass(mol *molecule.Molecule, atom int) int {
	switch {
	case atom == molecule.ImplicitH:
		return molecule.AtomicMass(molecule.Atom{Element: "H"})
	case atom < 0:
		return 0
	}
	return molecule.AtomicMass(mol.Atom(atom))
}

func (g *digraph) newNode(atom int, weight int, dup bool, parent *node) *node {
	g.created++
	n := &node{atom: atom, weight: weight, mass: atomMass(g.mol, atom), dup: dup, parent: parent}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	return n
}

// root creates the node for the stereocentre or double-bond end.
func (g *digraph) root(atom int) *node {
	return g.newNode(atom, atomWeight(g.mol, atom), false, nil)
}

// branch creates the first node of a substituent branch hanging off root.
func (g *digraph) branch(root *node, sub int) *node {
	n := g.newNode(sub, atomWeight(g.mol, sub), false, root)
	if sub < 0 {
		n.expanded = true
		n.sorted = true
	}
	return n
}

func (n *node) onPath(atom int) bool {
	for p := n; p != nil; p = p.parent {
		if p.atom == atom && !p.dup {
			return true
		}
	}
	return false
}

// expand fills the children of a real atom node: neighbours other than the
// one it was reached from, duplicates for bond multiplicity and ring
// closures, implicit hydrogens, lone pairs and phantom padding.
func (g *digraph) expand(n *node) {
	if n.expanded {
		return
	}
	n.expanded = true
	if n.atom < 0 {
		return
	}
	if n.dup {
		for i := 0; i < 3; i++ {
			n.children = append(n.children, g.newNode(phantomAtom, 0, false, n))
		}
		return
	}
	if n.depth >= g.maxDepth || g.created >= g.budget {
		g.overflow = true
		return
	}
	from := -1
	if n.parent != nil {
		from = n.parent.atom
	}
	var (
		aromaticSum   int
		aromaticCount int
	)
	for _, bi := range g.mol.BondsOf(n.atom) {
		b := g.mol.Bond(bi)
		x := b.Other(n.atom)
		w := atomWeight(g.mol, x)
		extra := 0
		switch b.Order {
		case molecule.Double:
			extra = 1
		case molecule.Triple:
			extra = 2
		case molecule.Aromatic:
			aromaticSum += w
			aromaticCount++
		}
		switch {
		case x == from:
			// the bond we came through contributes only its duplicates
		case n.parent != nil && n.parent.onPath(x):
			n.children = append(n.children, g.newNode(x, w, true, n))
		default:
			n.children = append(n.children, g.newNode(x, w, false, n))
		}
		for k := 0; k < extra; k++ {
			n.children = append(n.children, g.newNode(x, w, true, n))
		}
	}
	if aromaticCount > 0 {
		n.children = append(n.children, g.newNode(aromaticDummy, aromaticSum/aromaticCount, true, n))
	}
	a := g.mol.Atom(n.atom)
	for h := 0; h < a.HCount; h++ {
		c := g.newNode(molecule.ImplicitH, 10, false, n)
		c.expanded, c.sorted = true, true
		n.children = append(n.children, c)
	}
	for lp := 0; lp < g.mol.LonePairs(n.atom); lp++ {
		c := g.newNode(molecule.LonePair, 0, false, n)
		c.expanded, c.sorted = true, true
		n.children = append(n.children, c)
	}
	for len(n.children) < 3 {
		c := g.newNode(phantomAtom, 0, false, n)
		c.expanded, c.sorted = true, true
		n.children = append(n.children, c)
	}
}

// sortedChildren returns the children of n in descending priority. Equal
// weights are ordered by exploring their own branches.
func (g *digraph) sortedChildren(n *node) []*node {
	g.expand(n)
	if !n.sorted {
		n.sorted = true
		sort.SliceStable(n.children, func(i, j int) bool {
			return g.priority(n.children[i], n.children[j]) > 0
		})
	}
	return n.children
}

// priority applies the atomic number rule over the whole digraph and falls
// back to the mass rule only when it ties.
func (g *digraph) priority(a, b *node) int {
	if d := g.compare(a, b, ruleAtomicNumber); d != 0 {
		return d
	}
	return g.compare(a, b, ruleMass)
}

func key(n *node, rule int) int {
	if rule == ruleMass {
		return n.weight*1000000 + n.mass
	}
	return n.weight
}

// compare ranks two branches breadth-first, sphere by sphere, under one rule.
// It returns a positive value when a has priority over b, negative when b
// does, 0 on a tie. Within a sphere the child sets are compared in the order
// of their parents' ranking; a set that runs out ranks below one that
// continues.
func (g *digraph) compare(a, b *node, rule int) int {
	if d := key(a, rule) - key(b, rule); d != 0 {
		return d
	}
	sa, sb := []*node{a}, []*node{b}
	for len(sa) > 0 || len(sb) > 0 {
		var na, nb []*node
		for i := 0; i < len(sa) || i < len(sb); i++ {
			var ca, cb []*node
			if i < len(sa) {
				ca = g.sortedChildren(sa[i])
			}
			if i < len(sb) {
				cb = g.sortedChildren(sb[i])
			}
			if d := compareSets(ca, cb, rule); d != 0 {
				return d
			}
			na = append(na, ca...)
			nb = append(nb, cb...)
		}
		sa, sb = na, nb
	}
	return 0
}

func compareSets(a, b []*node, rule int) int {
	for k := 0; k < len(a) || k < len(b); k++ {
		switch {
		case k >= len(a):
			return -1
		case k >= len(b):
			return 1
		}
		if d := key(a[k], rule) - key(b[k], rule); d != 0 {
			return d
		}
	}
	return 0
}
