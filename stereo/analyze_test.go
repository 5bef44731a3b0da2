package stereo

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tristereo/cip"
	"tristereo/molecule"
)

func analyze(t *testing.T, smiles string, opts ...Option) *Analysis {
	t.Helper()
	a, err := Analyze(context.Background(), parse(t, smiles), opts...)
	require.NoError(t, err, smiles)
	return a
}

func describe(a *Analysis) []string {
	out := make([]string, len(a.Isomers))
	for i, iso := range a.Isomers {
		out[i] = iso.Describe()
	}
	return out
}

func TestAnalyzeCounts(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		isomers int
		meso    int
		chiral  bool
	}{
		{"ethanol", "CCO", 1, 0, false},
		{"butan-2-ol", "CC(O)CC", 2, 0, true},
		{"3-chloro-2-butanol", "CC(O)C(Cl)C", 4, 0, true},
		{"tartaric acid", "OC(=O)C(O)C(O)C(=O)O", 3, 1, true},
		{"2-butene", "CC=CC", 2, 0, false},
		{"pent-3-en-2-ol", "CC(O)C=CC", 4, 0, true},
		{"cyclohexene", "C1=CCCCC1", 1, 0, false},
		{"cyclooctene", "C1=CCCCCCC1", 2, 0, false},
		{"2,3-dibromobutane", "CC(Br)C(Br)C", 3, 1, true},
		{"sulfoxide", "CS(=O)CC", 2, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyze(t, tt.smiles)
			require.Len(t, a.Isomers, tt.isomers)
			meso := 0
			for i, iso := range a.Isomers {
				assert.Equal(t, i+1, iso.Index)
				assert.Empty(t, iso.Flags)
				if iso.Meso {
					meso++
				}
			}
			assert.Equal(t, tt.meso, meso)
			assert.Equal(t, tt.chiral, a.Chiral())
			assert.Equal(t, a.Candidates, len(a.Isomers)+a.Duplicates)
			assert.Equal(t, int(a.Total), a.Candidates+a.Pruned)
		})
	}
}

func TestAnalyzeAchiral(t *testing.T) {
	a := analyze(t, "CCO")
	require.Len(t, a.Isomers, 1)
	iso := a.Isomers[0]
	assert.Equal(t, "Achiral", iso.Describe())
	assert.False(t, iso.Chiral)
	assert.False(t, iso.Meso)
	assert.Equal(t, iso.Key, iso.MirrorKey)
	assert.Empty(t, a.Relations.Entries())
	assert.Equal(t, 1, a.Relations.Len())
}

func TestAnalyzeLabels(t *testing.T) {
	tests := map[string][]string{
		"CC(O)CC":              {"2-S", "2-R"},
		"CC=CC":                {"2=3-Z", "2=3-E"},
		"OC(=O)C(O)C(O)C(=O)O": {"4-R, 6-S (meso)", "4-R, 6-R", "4-S, 6-S"},
		"CC(O)C=CC":            {"2-S, 4=5-Z", "2-S, 4=5-E", "2-R, 4=5-Z", "2-R, 4=5-E"},
	}
	for smiles, want := range tests {
		t.Run(smiles, func(t *testing.T) {
			if diff := cmp.Diff(want, describe(analyze(t, smiles))); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeRelations(t *testing.T) {
	a := analyze(t, "CC(O)C(Cl)C")
	want := []Relation{
		{1, 2, Diastereomer},
		{1, 3, Diastereomer},
		{1, 4, Enantiomer},
		{2, 3, Enantiomer},
		{2, 4, Diastereomer},
		{3, 4, Diastereomer},
	}
	if diff := cmp.Diff(want, a.Relations.Entries()); diff != "" {
		t.Errorf("relations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, a.Relations.Enantiomers(1))
	assert.Equal(t, 0, analyze(t, "OC(=O)C(O)C(O)C(=O)O").Relations.Enantiomers(1), "meso has no enantiomer")
}

func TestAnalyzeClearsInputStereo(t *testing.T) {
	m := parse(t, "CC(O)CC").WithChirality(1, molecule.ChiralityClockwise)
	a, err := Analyze(context.Background(), m)
	require.NoError(t, err)
	assert.Len(t, a.Isomers, 2)
	assert.False(t, a.Input.HasStereo())
}

func TestAnalyzePruning(t *testing.T) {
	a := analyze(t, "CC1=CCCCC1", WithMinStereoRingSize(3))
	require.Len(t, a.Isomers, 1)
	assert.Equal(t, 1, a.Pruned)
	assert.Equal(t, uint64(2), a.Total)
	assert.Equal(t, []uint8{1}, a.Isomers[0].Tags)
	assert.Equal(t, "2=3-Z", a.Isomers[0].Describe())
}

func TestAnalyzeTooManyStereocenters(t *testing.T) {
	a, err := Analyze(context.Background(), parse(t, "CC(O)C(O)C(O)C(O)C"), WithMaxCandidates(8))
	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, ErrTooManyStereocenters))
	var capErr *CapError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 4, capErr.Features)
	assert.Equal(t, uint64(16), capErr.Candidates)

	a, err = Analyze(context.Background(), parse(t, "CC(O)C(O)C(O)C(O)C"), WithMaxCandidates(16))
	require.NoError(t, err)
	assert.Len(t, a.Isomers, 10)
}

func TestAnalyzeCanonicalizationFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := analyze(t, "CC(O)CC", WithSearchBounds(512, 0), WithLogger(zap.New(core)))
	require.Len(t, a.Isomers, 2)
	for _, iso := range a.Isomers {
		require.NotEmpty(t, iso.Flags)
		assert.True(t, errors.Is(iso.Flags[0], ErrCanonicalizationFailed))
		assert.False(t, iso.Keyed())
		assert.True(t, iso.Chiral)
	}
	assert.Equal(t, Enantiomer, a.Relations.Kind(1, 2), "tag fallback")
	assert.Equal(t, 2, logs.FilterMessage("candidate kept without deduplication").Len())
}

func TestAnalyzeCIPFallback(t *testing.T) {
	a := analyze(t, "CC(O)CC", WithCIPOptions(cip.Options{MaxDepth: 1, MaxNodes: 1}))
	for _, iso := range a.Isomers {
		require.Len(t, iso.Labels, 1)
		assert.Equal(t, cip.Undetermined, iso.Labels[0].Descriptor)
		require.NotEmpty(t, iso.Flags)
		assert.True(t, errors.Is(iso.Flags[0], cip.ErrCIPTieUnresolved))
	}
	assert.Equal(t, "2-undetermined", a.Isomers[0].Describe())
	// keys are unaffected
	assert.Equal(t, Enantiomer, a.Relations.Kind(1, 2))
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(context.Background(), nil)
	assert.True(t, errors.Is(err, molecule.ErrInvalidGraph))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Analyze(ctx, parse(t, "CC(O)CC"))
	assert.True(t, errors.Is(err, context.Canceled))
}

type snapshot struct {
	Keys      []string
	Mirrors   []string
	Labels    []string
	Relations []Relation
}

func snap(a *Analysis) snapshot {
	s := snapshot{Labels: describe(a), Relations: a.Relations.Entries()}
	for _, iso := range a.Isomers {
		s.Keys = append(s.Keys, iso.Key)
		s.Mirrors = append(s.Mirrors, iso.MirrorKey)
	}
	return s
}

func TestAnalyzeDeterministic(t *testing.T) {
	for _, smiles := range []string{"CC(O)C(O)C(O)C(O)C", "OC(=O)C(O)C(O)C(=O)O", "CC(O)C=CC"} {
		base := snap(analyze(t, smiles, WithWorkers(1), WithBatchSize(1)))
		for _, opts := range [][]Option{
			{WithWorkers(8), WithBatchSize(3)},
			{WithWorkers(4), WithBatchSize(64)},
			{WithWorkers(2)},
		} {
			if diff := cmp.Diff(base, snap(analyze(t, smiles, opts...))); diff != "" {
				t.Errorf("%s: nondeterministic result (-want +got):\n%s", smiles, diff)
			}
		}
	}
}

func TestMirrorInvolution(t *testing.T) {
	a := analyze(t, "CC(O)C=CC")
	for _, iso := range a.Isomers {
		k, err := Canonicalize(iso.Mol.Mirror().Mirror())
		require.NoError(t, err)
		assert.Equal(t, iso.Key, k.Key)
		mk, err := Canonicalize(iso.Mol.Mirror())
		require.NoError(t, err)
		assert.Equal(t, iso.MirrorKey, mk.Key)
		for i := range iso.Labels {
			d := iso.Labels[i].Descriptor
			var md cip.Descriptor
			f := a.Features[i]
			if f.Kind == CenterFeature {
				md, err = cip.Center(iso.Mol.Mirror(), f.Atom, cip.DefaultOptions())
			} else {
				md, err = cip.Bond(iso.Mol.Mirror(), f.Bond, cip.DefaultOptions())
			}
			require.NoError(t, err)
			assert.Equal(t, d.Mirror(), md)
		}
	}
}

func TestRelationsSymmetric(t *testing.T) {
	a := analyze(t, "CC(O)C(O)C(O)C(O)C")
	n := len(a.Isomers)
	for i := 1; i <= n; i++ {
		assert.Equal(t, Identical, a.Relations.Kind(i, i))
		for j := 1; j <= n; j++ {
			assert.Equal(t, a.Relations.Kind(i, j), a.Relations.Kind(j, i))
		}
	}
}

func TestCrossNumberingAgreement(t *testing.T) {
	byDescriptor := func(smiles string) map[string]string {
		out := map[string]string{}
		for _, iso := range analyze(t, smiles).Isomers {
			out[string(iso.Labels[0].Descriptor)] = iso.Key
		}
		return out
	}
	a := byDescriptor("CC(O)CC")
	b := byDescriptor("CCC(C)O")
	assert.Equal(t, a["R"], b["R"])
	assert.Equal(t, a["S"], b["S"])
	assert.NotEqual(t, a["R"], b["S"])
}

func TestAnalyzeGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	cases := map[string]string{
		"tartaric_acid": "OC(=O)C(O)C(O)C(=O)O",
		"chlorobutanol": "CC(O)C(Cl)C",
		"butene":        "CC=CC",
		"ethanol":       "CCO",
	}
	for name, smiles := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, analyze(t, smiles).WriteText(&buf))
			g.Assert(t, name, buf.Bytes())
		})
	}
}
