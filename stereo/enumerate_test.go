package stereo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tristereo/molecule"
)

func centers(n int) []Feature {
	fs := make([]Feature, n)
	for i := range fs {
		fs[i] = Feature{Kind: CenterFeature, Atom: i, Bond: -1, From: -1, To: -1}
	}
	return fs
}

func TestNewEnumeratorCap(t *testing.T) {
	m := parse(t, "CCO")
	_, err := NewEnumerator(m, centers(3), 4, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyStereocenters))
	var capErr *CapError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 3, capErr.Features)
	assert.Equal(t, uint64(8), capErr.Candidates)
	assert.Equal(t, uint64(4), capErr.Cap)
	assert.Contains(t, err.Error(), "8 candidates")

	_, err = NewEnumerator(m, centers(63), ^uint64(0), 8)
	require.True(t, errors.As(err, &capErr))
	assert.Zero(t, capErr.Candidates)
	assert.Contains(t, err.Error(), "overflow")

	e, err := NewEnumerator(m, centers(3), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), e.Total())
}

func TestTagsAtIsLexicographic(t *testing.T) {
	e, err := NewEnumerator(parse(t, "CCO"), centers(3), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0}, e.TagsAt(0))
	assert.Equal(t, []uint8{0, 0, 1}, e.TagsAt(1))
	assert.Equal(t, []uint8{1, 0, 0}, e.TagsAt(4))
	assert.Equal(t, []uint8{1, 1, 1}, e.TagsAt(7))
}

func TestAllIsLazyAndRestartable(t *testing.T) {
	m := parse(t, "CC(O)C(Cl)C")
	fs := Detect(m)
	e, err := NewEnumerator(m, fs, 1024, 8)
	require.NoError(t, err)

	var ords []uint64
	for c := range e.All() {
		ords = append(ords, c.Ordinal)
		assert.Equal(t, e.TagsAt(c.Ordinal), c.Tags)
		assert.Equal(t, CenterTags[c.Tags[0]], c.Mol.Atom(1).Chirality)
		assert.Equal(t, CenterTags[c.Tags[1]], c.Mol.Atom(3).Chirality)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3}, ords)

	n := 0
	for range e.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	again := 0
	for range e.All() {
		again++
	}
	assert.Equal(t, 4, again)
	assert.False(t, m.HasStereo(), "base graph is never tagged")
}

func TestSmallRingPruning(t *testing.T) {
	m := parse(t, "CC1=CCCCC1")
	fs := Detect(m, WithMinStereoRingSize(3))
	require.Len(t, fs, 1)

	e, err := NewEnumerator(m, fs, 16, 8)
	require.NoError(t, err)
	assert.False(t, e.Valid([]uint8{0}), "stored cis is trans along the ring")
	assert.True(t, e.Valid([]uint8{1}))
	var got []Candidate
	for c := range e.All() {
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Ordinal)
	assert.Equal(t, molecule.BondStereoTrans, got[0].Mol.Bond(fs[0].Bond).Stereo)

	// a six-membered ring is allowed to be trans once the limit drops
	e, err = NewEnumerator(m, fs, 16, 6)
	require.NoError(t, err)
	n := 0
	for range e.All() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestMirrorTags(t *testing.T) {
	fs := []Feature{
		{Kind: CenterFeature, Atom: 1},
		{Kind: BondFeature, Bond: 2},
		{Kind: CenterFeature, Atom: 4},
	}
	tags := []uint8{0, 1, 1}
	mir := MirrorTags(fs, tags)
	assert.Equal(t, []uint8{1, 1, 0}, mir)
	assert.Equal(t, tags, MirrorTags(fs, mir))
}
