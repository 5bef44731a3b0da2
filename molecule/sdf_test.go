package molecule

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type molAtom struct {
	x, y   float64
	el     string
	charge int // V2000 charge code
}

func molBlock(name string, atoms []molAtom, bonds [][3]int, props ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n  tristereo\n\n", name)
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), len(bonds))
	for _, a := range atoms {
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0%3d  0  0  0  0  0  0  0  0  0  0\n", a.x, a.y, 0.0, a.el, a.charge)
	}
	for _, b := range bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d  0  0  0  0\n", b[0], b[1], b[2])
	}
	for _, p := range props {
		sb.WriteString(p + "\n")
	}
	sb.WriteString("M  END\n")
	return sb.String()
}

var ethanolBlock = molBlock("ethanol",
	[]molAtom{{0, 0, "C", 0}, {1.3, 0.75, "C", 0}, {2.6, 0, "O", 0}, {3.4, 0.6, "H", 0}},
	[][3]int{{1, 2, 1}, {2, 3, 1}, {3, 4, 1}},
)

func TestParseMolBlock(t *testing.T) {
	m, err := ParseMolBlock(ethanolBlock)
	require.NoError(t, err)
	assert.Equal(t, "ethanol", m.Name)
	require.Equal(t, 3, m.NumAtoms(), "explicit H is folded")
	assert.Equal(t, []int{3, 2, 1}, hCounts(m))
	assert.InDelta(t, 1.3, m.Atom(1).X, 1e-9)
	assert.InDelta(t, 0.75, m.Atom(1).Y, 1e-9)
	assert.Equal(t, "C2H6O", m.Formula())
}

func TestParseMolBlockCharges(t *testing.T) {
	// charge code 3 is +1 in the atom block
	ammonium := molBlock("ammonium", []molAtom{{0, 0, "N", 3}}, nil)
	m, err := ParseMolBlock(ammonium)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atom(0).Charge)
	assert.Equal(t, 4, m.Atom(0).HCount)

	// M  CHG overrides the atom block
	acetate := molBlock("acetate",
		[]molAtom{{0, 0, "C", 0}, {1, 0, "C", 0}, {2, 1, "O", 0}, {2, -1, "O", 0}},
		[][3]int{{1, 2, 1}, {2, 3, 2}, {2, 4, 1}},
		"M  CHG  1   4  -1",
	)
	m, err = ParseMolBlock(acetate)
	require.NoError(t, err)
	assert.Equal(t, -1, m.Atom(3).Charge)
	assert.Equal(t, 0, m.Atom(3).HCount)
}

func TestParseMolBlockIsotopes(t *testing.T) {
	block := molBlock("CHDClBr",
		[]molAtom{{0, 0, "C", 0}, {1, 0, "H", 0}, {-1, 0, "Cl", 0}, {0, 1, "Br", 0}},
		[][3]int{{1, 2, 1}, {1, 3, 1}, {1, 4, 1}},
		"M  ISO  1   2   2",
	)
	m, err := ParseMolBlock(block)
	require.NoError(t, err)
	require.Equal(t, 4, m.NumAtoms(), "deuterium is not folded")
	assert.Equal(t, 2, m.Atom(1).Isotope)
	assert.Equal(t, []int{1, 0, 0, 0}, hCounts(m))
}

func TestParseMolBlockErrors(t *testing.T) {
	tests := map[string]string{
		"too short":   "x\n",
		"no counts":   "x\n\n\nnot a counts line\n",
		"truncated":   strings.Join(strings.Split(ethanolBlock, "\n")[:6], "\n"),
		"bad element": molBlock("bad", []molAtom{{0, 0, "Qq", 0}}, nil),
		"dangling":    molBlock("dangling", []molAtom{{0, 0, "C", 0}}, [][3]int{{1, 2, 1}}),
		"negative":    "neg\n\n\n -1  0  0  0  0  0  0  0  0  0999 V2000\nM  END\n",
		"neg bonds":   "neg\n\n\n  0 -5  0  0  0  0  0  0  0  0999 V2000\nM  END\n",
		"hypervalent": molBlock("penta",
			[]molAtom{{0, 0, "C", 0}, {1, 0, "C", 0}, {-1, 0, "C", 0}, {0, 1, "C", 0}, {0, -1, "C", 0}, {1, 1, "C", 0}},
			[][3]int{{1, 2, 1}, {1, 3, 1}, {1, 4, 1}, {1, 5, 1}, {1, 6, 1}}),
	}
	for name, block := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMolBlock(block)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGraph))
		})
	}
}

func TestParseSDF(t *testing.T) {
	ammonium := molBlock("ammonium", []molAtom{{0, 0, "N", 3}}, nil)
	broken := molBlock("broken", []molAtom{{0, 0, "Qq", 0}}, nil)
	sdf := ethanolBlock + "> <PUBCHEM_COMPOUND_CID>\n702\n\n$$$$\n" +
		broken + "$$$$\n" +
		ammonium + "$$$$\n"

	mols, err := ParseSDF(strings.NewReader(sdf))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGraph))
	assert.Contains(t, err.Error(), "record 2")
	require.Len(t, mols, 2)
	assert.Equal(t, "ethanol", mols[0].Name)
	assert.Equal(t, "ammonium", mols[1].Name)

	mols, err = ParseSDF(strings.NewReader(ethanolBlock))
	require.NoError(t, err)
	assert.Len(t, mols, 1)
}

func TestIndexSDFAndReadRecordAt(t *testing.T) {
	ammonium := molBlock("ammonium", []molAtom{{0, 0, "N", 3}}, nil)
	methanol := molBlock("methanol", []molAtom{{0, 0, "C", 0}, {1.3, 0, "O", 0}}, [][3]int{{1, 2, 1}})
	// the last record has no terminator
	sdf := ethanolBlock + "> <PUBCHEM_COMPOUND_CID>\n702\n\n$$$$\n" + ammonium + "$$$$\n" + methanol

	offsets, err := IndexSDF(strings.NewReader(sdf))
	require.NoError(t, err)
	require.Len(t, offsets, 3)
	assert.Equal(t, int64(0), offsets[0])

	r := strings.NewReader(sdf)
	for i, want := range []string{"ethanol", "ammonium", "methanol"} {
		m, err := ReadRecordAt(r, offsets[i])
		require.NoError(t, err, "record %d", i+1)
		assert.Equal(t, want, m.Name)
	}

	var buf strings.Builder
	require.NoError(t, WriteIndex(&buf, offsets))
	back, err := LoadIndex(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, offsets, back)

	_, err = LoadIndex(strings.NewReader("12\nabc\n"))
	assert.ErrorContains(t, err, `"abc"`)
}
