package molecule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hCounts(m *Molecule) []int {
	out := make([]int, m.NumAtoms())
	for i := range out {
		out[i] = m.Atom(i).HCount
	}
	return out
}

func TestParseSMILES(t *testing.T) {
	tests := []struct {
		smiles string
		atoms  int
		bonds  int
		h      []int
	}{
		{"CCO", 3, 2, []int{3, 2, 1}},
		{"C=C", 2, 1, []int{2, 2}},
		{"C#N", 2, 1, []int{1, 0}},
		{"c1ccccc1", 6, 6, []int{1, 1, 1, 1, 1, 1}},
		{"c1ccncc1", 6, 6, []int{1, 1, 1, 0, 1, 1}},
		{"c1cc[nH]c1", 5, 5, []int{1, 1, 1, 1, 1}},
		{"[NH4+]", 1, 0, []int{4}},
		{"CC(=O)[O-]", 4, 3, []int{3, 0, 0, 0}},
		{"[13CH4]", 1, 0, []int{4}},
		{"C[C@@H](O)Cl", 4, 3, []int{3, 1, 1, 0}},
		{"F/C=C/F", 4, 3, []int{0, 1, 1, 0}},
		{"C%10CCCC%10", 5, 5, []int{2, 2, 2, 2, 2}},
		{"[Na+].[Cl-]", 2, 0, []int{0, 0}},
		{"ClCBr", 3, 2, []int{0, 2, 0}},
		{"[CH3:1]C", 2, 1, []int{3, 3}},
		{"C[Se]C", 3, 2, []int{3, 0, 3}},
		{"[H]C([H])([H])[H]", 1, 0, []int{4}},
		{"c1ccoc1", 5, 5, []int{1, 1, 1, 0, 1}},
		{"c1ccc2ccccc2c1", 10, 11, []int{1, 1, 1, 0, 1, 1, 1, 1, 0, 1}},
		{"CS(=O)(=O)C", 5, 4, []int{3, 0, 0, 0, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			m, err := ParseSMILES(tt.smiles)
			require.NoError(t, err)
			assert.Equal(t, tt.atoms, m.NumAtoms())
			assert.Equal(t, tt.bonds, m.NumBonds())
			assert.Equal(t, tt.h, hCounts(m))
			assert.False(t, m.HasStereo(), "stereo marks are discarded")
			assert.Equal(t, tt.smiles, m.Name)
		})
	}
}

func TestParseSMILESBondOrders(t *testing.T) {
	m := mustSMILES(t, "C1=CC=CC=C1")
	for bi := 0; bi < m.NumBonds(); bi++ {
		assert.Contains(t, []BondOrder{Single, Double}, m.Bond(bi).Order)
	}
	closure, ok := m.BondBetween(0, 5)
	require.True(t, ok)
	assert.Equal(t, Single, closure.Order)

	ar := mustSMILES(t, "c1ccccc1")
	for bi := 0; bi < ar.NumBonds(); bi++ {
		assert.Equal(t, Aromatic, ar.Bond(bi).Order)
	}

	biphenyl := mustSMILES(t, "c1ccccc1-c1ccccc1")
	link, ok := biphenyl.BondBetween(5, 6)
	require.True(t, ok)
	assert.Equal(t, Single, link.Order)

	ringDouble := mustSMILES(t, "C=1CCCCC=1")
	b, ok := ringDouble.BondBetween(0, 5)
	require.True(t, ok)
	assert.Equal(t, Double, b.Order)
}

func TestParseSMILESErrors(t *testing.T) {
	for _, s := range []string{
		"", "C(", "C)", "C1CC", "(C)", "CX", "C=", "[C", "[]", "C11", "%1",
		".", "..", "[99999999999999999999C]", "CC(=O)(=O)(=O)", "C(C)(C)(C)(C)C", "O(C)(C)C", "[CH5]",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseSMILES(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGraph))
		})
	}
}

func TestParseSMILESIsotopes(t *testing.T) {
	m := mustSMILES(t, "[2H]C(Cl)Br")
	require.Equal(t, 4, m.NumAtoms(), "isotopic hydrogen stays explicit")
	assert.Equal(t, "H", m.Atom(0).Element)
	assert.Equal(t, 2, m.Atom(0).Isotope)
	assert.Equal(t, []int{0, 1, 0, 0}, hCounts(m))

	plain := mustSMILES(t, "[H]C(Cl)Br")
	assert.Equal(t, 3, plain.NumAtoms())
	assert.Equal(t, 2, plain.Atom(0).HCount)

	c13 := mustSMILES(t, "[13CH3]C")
	assert.Equal(t, 13, c13.Atom(0).Isotope)
	assert.Equal(t, 0, c13.Atom(1).Isotope)
	assert.Equal(t, 13000, AtomicMass(c13.Atom(0)))
	assert.Equal(t, 12011, AtomicMass(c13.Atom(1)))
}
