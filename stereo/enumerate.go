package stereo

import (
	"iter"

	"tristereo/molecule"
)

// Candidate is one stereo assignment realised on its own clone of the base
// graph. Tags[i] is the tag value index for feature i.
type Candidate struct {
	Ordinal uint64 // position in lexicographic tag order
	Tags    []uint8
	Mol     *molecule.Molecule
}

// Enumerator produces the Cartesian product of feature tags lazily.
type Enumerator struct {
	base     *molecule.Molecule
	features []Feature
	minTrans int
	total    uint64
}

// NewEnumerator prepares enumeration of base over features. It fails with a
// *CapError (ErrTooManyStereocenters) when 2^len(features) exceeds maxCandidates.
func NewEnumerator(base *molecule.Molecule, features []Feature, maxCandidates uint64, minTransRingSize int) (*Enumerator, error) {
	k := len(features)
	if k >= 63 {
		return nil, &CapError{Features: k, Cap: maxCandidates}
	}
	total := uint64(1) << uint(k)
	if total > maxCandidates {
		return nil, &CapError{Features: k, Candidates: total, Cap: maxCandidates}
	}
	return &Enumerator{base: base, features: features, minTrans: minTransRingSize, total: total}, nil
}

// Total is the size of the unpruned candidate space.
func (e *Enumerator) Total() uint64 { return e.total }

// Features returns the features being enumerated.
func (e *Enumerator) Features() []Feature { return e.features }

// TagsAt decodes ordinal into a tag vector; feature 0 is the most significant
// position, so ascending ordinals are lexicographic tag order.
func (e *Enumerator) TagsAt(ordinal uint64) []uint8 {
	k := len(e.features)
	tags := make([]uint8, k)
	for i := 0; i < k; i++ {
		tags[i] = uint8((ordinal >> uint(k-1-i)) & 1)
	}
	return tags
}

// Valid reports whether tags are geometrically possible. A ring double bond
// whose ring path would be trans in a ring smaller than the minimum
// trans-capable size is rejected. O(1) per feature.
func (e *Enumerator) Valid(tags []uint8) bool {
	for i, f := range e.features {
		if f.Kind != BondFeature || f.RingSize == 0 || f.RingSize >= e.minTrans {
			continue
		}
		geom := BondTags[tags[i]]
		if f.ringFlip {
			geom = geom.Flip()
		}
		if geom == molecule.BondStereoTrans {
			return false
		}
	}
	return true
}

// Apply returns a fresh clone of the base graph carrying tags.
func (e *Enumerator) Apply(tags []uint8) *molecule.Molecule {
	atoms := make(map[int]molecule.Chirality)
	bonds := make(map[int]molecule.BondStereo)
	for i, f := range e.features {
		if f.Kind == CenterFeature {
			atoms[f.Atom] = CenterTags[tags[i]]
		} else {
			bonds[f.Bond] = BondTags[tags[i]]
		}
	}
	return e.base.WithStereo(atoms, bonds)
}

// All yields every valid candidate in lexicographic tag order. Each call
// starts a new pass; nothing is materialised ahead of the consumer.
func (e *Enumerator) All() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for ord := uint64(0); ord < e.total; ord++ {
			tags := e.TagsAt(ord)
			if !e.Valid(tags) {
				continue
			}
			if !yield(Candidate{Ordinal: ord, Tags: tags, Mol: e.Apply(tags)}) {
				return
			}
		}
	}
}

// MirrorTags returns the tag vector of the mirror image: every centre tag is
// inverted, bond tags are kept. Applying it twice gives back tags.
func MirrorTags(features []Feature, tags []uint8) []uint8 {
	out := make([]uint8, len(tags))
	for i, t := range tags {
		if features[i].Kind == CenterFeature {
			t ^= 1
		}
		out[i] = t
	}
	return out
}
