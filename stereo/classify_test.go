package stereo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tristereo/cip"
)

func TestClassify(t *testing.T) {
	fs := []Feature{{Kind: CenterFeature, Atom: 1}}
	isomers := []*Isomer{
		{Index: 1, Tags: []uint8{0}, Key: "a", MirrorKey: "b"},
		{Index: 2, Tags: []uint8{1}, Key: "b", MirrorKey: "a"},
		{Index: 3, Tags: []uint8{1}, Key: "m", MirrorKey: "m", Meso: true},
		{Index: 4, Tags: []uint8{0}}, // unkeyed, mirror of 2 and 5 by tags
		{Index: 5, Tags: []uint8{1}},
	}
	rel, err := Classify(context.Background(), isomers, fs, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, rel.Len())
	assert.Equal(t, Enantiomer, rel.Kind(1, 2))
	assert.Equal(t, Enantiomer, rel.Kind(2, 1))
	assert.Equal(t, Diastereomer, rel.Kind(1, 3))
	assert.Equal(t, Diastereomer, rel.Kind(2, 3), "meso never pairs")
	assert.Equal(t, Enantiomer, rel.Kind(2, 4), "tag fallback")
	assert.Equal(t, Enantiomer, rel.Kind(4, 5))
	assert.Equal(t, Diastereomer, rel.Kind(1, 4))
	assert.Equal(t, Identical, rel.Kind(3, 3))
	assert.Len(t, rel.Entries(), 10)
}

func TestClassifySmall(t *testing.T) {
	rel, err := Classify(context.Background(), nil, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, rel.Entries())

	rel, err = Classify(context.Background(), []*Isomer{{Index: 1}}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, Identical, rel.Kind(1, 1))
}

func TestClassifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Classify(ctx, []*Isomer{{Index: 1}, {Index: 2}}, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelationshipString(t *testing.T) {
	assert.Equal(t, "Identical", Identical.String())
	assert.Equal(t, "Enantiomer", Enantiomer.String())
	assert.Equal(t, "Diastereomer", Diastereomer.String())
}

func TestIsomerDescribe(t *testing.T) {
	iso := &Isomer{Labels: []Label{{"4", cip.R}, {"6", cip.S}}, Meso: true}
	assert.Equal(t, "4-R, 6-S (meso)", iso.Describe())
	assert.Equal(t, "2=3-E", Label{"2=3", cip.E}.String())
	assert.Equal(t, "Achiral", (&Isomer{}).Describe())
}
