package stereo

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Relationship between two isomers of the same constitution.
type Relationship int

const (
	Identical Relationship = iota
	Enantiomer
	Diastereomer
)

func (r Relationship) String() string {
	switch r {
	case Enantiomer:
		return "Enantiomer"
	case Diastereomer:
		return "Diastereomer"
	}
	return "Identical"
}

// Relation is one unordered pair, 1-based with I < J.
type Relation struct {
	I, J int
	Kind Relationship
}

// Relations holds the classification of every isomer pair.
type Relations struct {
	n     int
	kinds []Relationship // upper triangle, row major
}

func (r Relations) slot(i, j int) int {
	// pairs (a, b) with a < b over 0..n-1
	return i*r.n - i*(i+1)/2 + (j - i - 1)
}

// Len is the number of isomers covered.
func (r Relations) Len() int { return r.n }

// Kind returns the relationship of isomers i and j (1-based). It is
// symmetric and Identical for i == j.
func (r Relations) Kind(i, j int) Relationship {
	if i == j {
		return Identical
	}
	if i > j {
		i, j = j, i
	}
	return r.kinds[r.slot(i-1, j-1)]
}

// Entries lists every pair in (I, J) order.
func (r Relations) Entries() []Relation {
	out := make([]Relation, 0, len(r.kinds))
	for i := 1; i <= r.n; i++ {
		for j := i + 1; j <= r.n; j++ {
			out = append(out, Relation{I: i, J: j, Kind: r.Kind(i, j)})
		}
	}
	return out
}

// Enantiomers returns the 1-based index of iso's mirror partner, or 0.
func (r Relations) Enantiomers(i int) int {
	for j := 1; j <= r.n; j++ {
		if j != i && r.Kind(i, j) == Enantiomer {
			return j
		}
	}
	return 0
}

// Classify relates every pair of isomers. Pairs are split into rows and
// processed on at most workers goroutines; each row writes only its own slots.
func Classify(ctx context.Context, isomers []*Isomer, features []Feature, workers int) (Relations, error) {
	n := len(isomers)
	rel := Relations{n: n, kinds: make([]Relationship, n*(n-1)/2)}
	if n < 2 {
		return rel, nil
	}
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				rel.kinds[rel.slot(i, j)] = relate(isomers[i], isomers[j], features)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Relations{}, err
	}
	return rel, nil
}

func relate(a, b *Isomer, features []Feature) Relationship {
	if a.Meso || b.Meso {
		return Diastereomer
	}
	if mirrorImage(a, b, features) {
		return Enantiomer
	}
	return Diastereomer
}

// mirrorImage compares keys when both isomers have them and falls back to
// tag vectors otherwise.
func mirrorImage(a, b *Isomer, features []Feature) bool {
	if a.Keyed() && b.Keyed() {
		return a.MirrorKey == b.Key
	}
	return slices.Equal(MirrorTags(features, a.Tags), b.Tags)
}
