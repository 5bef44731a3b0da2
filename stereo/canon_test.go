package stereo

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tristereo/molecule"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

func key(t *testing.T, m *molecule.Molecule) string {
	t.Helper()
	c, err := Canonicalize(m)
	require.NoError(t, err)
	require.Regexp(t, hexKey, c.Key)
	require.GreaterOrEqual(t, c.Leaves, 1)
	return c.Key
}

func TestCanonicalizeIgnoresNumbering(t *testing.T) {
	pairs := [][2]string{
		{"CCO", "OCC"},
		{"CC(O)CC", "CCC(C)O"},
		{"c1ccccc1O", "Oc1ccccc1"},
		{"C1CCCCC1", "C1CCCCC1"},
		{"OC(=O)C(O)C(O)C(=O)O", "O=C(O)C(O)C(O)C(O)=O"},
		{"CC(C)(C)C", "C(C)(C)(C)C"},
	}
	for _, p := range pairs {
		assert.Equal(t, key(t, parse(t, p[0])), key(t, parse(t, p[1])), "%s vs %s", p[0], p[1])
	}
}

func TestCanonicalizeSeparatesConstitutions(t *testing.T) {
	pairs := [][2]string{
		{"CCO", "COC"},
		{"CC=CC", "C=CCC"},
		{"CC[O-]", "CCO"},
		{"C1CCCCC1", "C1CCCC1C"},
	}
	for _, p := range pairs {
		assert.NotEqual(t, key(t, parse(t, p[0])), key(t, parse(t, p[1])), "%s vs %s", p[0], p[1])
	}
}

func TestCanonicalizeStereo(t *testing.T) {
	m := parse(t, "CC(O)CC")
	a := m.WithChirality(1, molecule.ChiralityAnticlockwise)
	c := m.WithChirality(1, molecule.ChiralityClockwise)
	assert.NotEqual(t, key(t, a), key(t, c))
	assert.NotEqual(t, key(t, m), key(t, a))
	assert.Equal(t, key(t, c), key(t, a.Mirror()))
	assert.Equal(t, key(t, a), key(t, a.Mirror().Mirror()))

	cis := parse(t, "CC=CC").WithBondStereo(1, molecule.BondStereoCis)
	trans := cis.WithBondStereo(1, molecule.BondStereoTrans)
	assert.NotEqual(t, key(t, cis), key(t, trans))
	assert.Equal(t, key(t, cis), key(t, cis.Mirror()))
}

func TestCanonicalizeSymmetricStereo(t *testing.T) {
	tart := parse(t, "OC(=O)C(O)C(O)C(=O)O")
	tag := func(x, y molecule.Chirality) *molecule.Molecule {
		return tart.WithStereo(map[int]molecule.Chirality{3: x, 5: y}, nil)
	}
	aa := tag(molecule.ChiralityAnticlockwise, molecule.ChiralityAnticlockwise)
	cc := tag(molecule.ChiralityClockwise, molecule.ChiralityClockwise)
	ac := tag(molecule.ChiralityAnticlockwise, molecule.ChiralityClockwise)
	ca := tag(molecule.ChiralityClockwise, molecule.ChiralityAnticlockwise)

	assert.Equal(t, key(t, aa), key(t, cc), "meso form")
	assert.NotEqual(t, key(t, ac), key(t, ca), "enantiomers")
	assert.NotEqual(t, key(t, aa), key(t, ac))
	assert.Equal(t, key(t, ac), key(t, ca.Mirror()))
}

func TestCanonicalizeBounds(t *testing.T) {
	m := parse(t, "CC(O)CC").WithChirality(1, molecule.ChiralityClockwise)

	_, err := Canonicalize(m, WithSearchBounds(512, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanonicalizationFailed))

	_, err = Canonicalize(m, WithSearchBounds(0, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanonicalizationFailed))
}

func TestCanonicalizeRankIsPermutation(t *testing.T) {
	m := parse(t, "c1ccc2ccccc2c1")
	c, err := Canonicalize(m)
	require.NoError(t, err)
	seen := make([]bool, m.NumAtoms())
	for _, r := range c.Rank {
		require.False(t, seen[r])
		seen[r] = true
	}
}
