package molecule

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// RingInfo caches, per bond, the size of the smallest ring through it and the
// ring path that closes that ring. It is computed once when a Molecule is built
// and shared read-only by every clone.
type RingInfo struct {
	bondSize []int   // 0 when the bond is acyclic
	bondPath [][]int // atoms From..To along the ring, avoiding the bond itself
	atomSize []int
}

// BondRingSize returns the smallest ring size containing bond b, 0 if none.
func (r *RingInfo) BondRingSize(b int) int { return r.bondSize[b] }

// AtomRingSize returns the smallest ring size containing atom a, 0 if none.
func (r *RingInfo) AtomRingSize(a int) int { return r.atomSize[a] }

// InRing reports whether bond b lies on a cycle.
func (r *RingInfo) InRing(b int) bool { return r.bondSize[b] > 0 }

// RingPath returns the atoms of the smallest ring through bond b, starting at
// the bond's From atom and ending at its To atom without using b. It is nil
// for acyclic bonds.
func (r *RingInfo) RingPath(b int) []int {
	if r.bondPath[b] == nil {
		return nil
	}
	return append([]int(nil), r.bondPath[b]...)
}

// RingNeighbors returns, for a ring bond b, the neighbour of each end that
// continues the smallest ring: (next to From, next to To).
func (r *RingInfo) RingNeighbors(b int) (int, int, bool) {
	p := r.bondPath[b]
	if len(p) < 3 {
		return 0, 0, false
	}
	return p[1], p[len(p)-2], true
}

// perceiveRings mirrors the molecule into an lvlath graph once and, for every
// bond, searches the shortest path between its ends that does not use it.
func perceiveRings(m *Molecule) (*RingInfo, error) {
	r := &RingInfo{
		bondSize: make([]int, len(m.bonds)),
		bondPath: make([][]int, len(m.bonds)),
		atomSize: make([]int, len(m.atoms)),
	}
	g := core.NewGraph()
	for i := range m.atoms {
		if err := g.AddVertex(vertexID(i)); err != nil {
			return nil, err
		}
	}
	for _, b := range m.bonds {
		if _, err := g.AddEdge(vertexID(b.From), vertexID(b.To), 0); err != nil {
			return nil, fmt.Errorf("ring graph bond %d: %w", b.Index+1, err)
		}
	}
	for i, b := range m.bonds {
		path, err := shortestPathAvoiding(g, b.From, b.To)
		if err != nil {
			return nil, err
		}
		if path == nil {
			continue
		}
		size := len(path)
		r.bondSize[i] = size
		r.bondPath[i] = path
		for _, a := range [2]int{b.From, b.To} {
			if r.atomSize[a] == 0 || size < r.atomSize[a] {
				r.atomSize[a] = size
			}
		}
	}
	return r, nil
}

// vertexID zero-pads atom indices so that lvlath's lexical neighbour order is
// ascending atom order and ring paths come out deterministic.
func vertexID(atom int) string {
	return fmt.Sprintf("%06d", atom)
}

// shortestPathAvoiding runs a breadth-first search from src that never
// crosses the src-dst edge and returns the path to dst, nil when the bond is
// acyclic. Molecules have no parallel bonds, so the atom pair names the bond.
func shortestPathAvoiding(g *core.Graph, src, dst int) ([]int, error) {
	from, to := vertexID(src), vertexID(dst)
	res, err := bfs.BFS(g, from, bfs.WithFilterNeighbor(func(curr, nbr string) bool {
		return !(curr == from && nbr == to) && !(curr == to && nbr == from)
	}))
	if err != nil {
		return nil, fmt.Errorf("ring search from atom %d: %w", src+1, err)
	}
	ids, err := res.PathTo(to)
	if err != nil {
		return nil, nil // 不成环
	}
	path := make([]int, len(ids))
	for i, id := range ids {
		if path[i], err = strconv.Atoi(id); err != nil {
			return nil, err
		}
	}
	return path, nil
}
