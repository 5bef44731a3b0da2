package molecule

import "fmt"

// elementInfo holds what the stereo core needs to know about an element.
type elementInfo struct {
	Z        int
	Mass     int   // standard atomic weight in thousandths of a dalton
	Valences []int // default valences, ascending
}

var elements = map[string]elementInfo{
	"H":  {1, 1008, []int{1}},
	"He": {2, 4003, nil},
	"Li": {3, 6940, []int{1}},
	"Be": {4, 9012, []int{2}},
	"B":  {5, 10810, []int{3}},
	"C":  {6, 12011, []int{4}},
	"N":  {7, 14007, []int{3, 5}},
	"O":  {8, 15999, []int{2}},
	"F":  {9, 18998, []int{1}},
	"Ne": {10, 20180, nil},
	"Na": {11, 22990, []int{1}},
	"Mg": {12, 24305, []int{2}},
	"Al": {13, 26982, []int{3}},
	"Si": {14, 28085, []int{4}},
	"P":  {15, 30974, []int{3, 5}},
	"S":  {16, 32060, []int{2, 4, 6}},
	"Cl": {17, 35450, []int{1}},
	"Ar": {18, 39948, nil},
	"K":  {19, 39098, []int{1}},
	"Ca": {20, 40078, []int{2}},
	"Fe": {26, 55845, nil},
	"Co": {27, 58933, nil},
	"Ni": {28, 58693, nil},
	"Cu": {29, 63546, nil},
	"Zn": {30, 65380, nil},
	"Ge": {32, 72630, []int{4}},
	"As": {33, 74922, []int{3, 5}},
	"Se": {34, 78971, []int{2, 4, 6}},
	"Br": {35, 79904, []int{1}},
	"Sn": {50, 118710, []int{2, 4}},
	"Te": {52, 127600, []int{2, 4, 6}},
	"I":  {53, 126904, []int{1, 3, 5}},
	"Pt": {78, 195084, nil},
	"Hg": {80, 200592, nil},
	"Pb": {82, 207200, []int{2, 4}},
}

// AtomicNumber returns the atomic number of symbol, or 0 when the symbol is unknown.
func AtomicNumber(symbol string) int {
	return elements[symbol].Z
}

// AtomicMass returns the mass of a in thousandths of a dalton: the isotope's
// mass number when one is given, the standard atomic weight otherwise.
func AtomicMass(a Atom) int {
	if a.Isotope > 0 {
		return a.Isotope * 1000
	}
	return elements[a.Element].Mass
}

// IsElement reports whether symbol is a known element symbol.
func IsElement(symbol string) bool {
	_, ok := elements[symbol]
	return ok
}

// bondValence2 returns twice the valence contribution of a bond order, so an
// aromatic bond counts 1.5 without leaving integer arithmetic.
func bondValence2(o BondOrder) int {
	switch o {
	case Single:
		return 2
	case Double:
		return 4
	case Triple:
		return 6
	case Aromatic:
		return 3
	}
	return 0
}

// implicitHydrogens picks the smallest default valence able to hold the
// bonds already drawn and returns the remaining hydrogen count.
// Charges shift the valence the way isoelectronic neighbours behave:
// N+ acts like C, O+ like N, O- like F, C+ and C- like B.
func implicitHydrogens(symbol string, charge, valence2 int) int {
	info, ok := elements[symbol]
	if !ok || len(info.Valences) == 0 {
		return 0
	}
	used := (valence2 + 1) / 2
	for _, v := range info.Valences {
		v = adjustValence(symbol, charge, v)
		if v >= used {
			return v - used
		}
	}
	return 0
}

// checkValence rejects atoms whose bonds and hydrogens exceed the largest
// default valence of their element. Aromatic bonds count as single bonds here
// so heteroatoms of five-membered aromatic rings pass.
func checkValence(atoms []Atom, bonds []Bond) error {
	sum := make([]int, len(atoms))
	for _, b := range bonds {
		if b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			continue
		}
		v := 1
		if b.Order != Aromatic {
			v = bondValence2(b.Order) / 2
		}
		sum[b.From] += v
		sum[b.To] += v
	}
	for i, a := range atoms {
		info, ok := elements[a.Element]
		if !ok || len(info.Valences) == 0 {
			continue
		}
		limit := adjustValence(a.Element, a.Charge, info.Valences[len(info.Valences)-1])
		if used := sum[i] + a.HCount; used > limit {
			return fmt.Errorf("atom %d (%s) has valence %d, at most %d allowed", i+1, a.Element, used, limit)
		}
	}
	return nil
}

func adjustValence(symbol string, charge, v int) int {
	if charge == 0 {
		return v
	}
	switch symbol {
	case "C", "Si", "B":
		if symbol == "B" && charge < 0 {
			return v + 1
		}
		return v - abs(charge)
	case "N", "P", "O", "S", "Se", "As":
		v += charge
		if v < 0 {
			return 0
		}
		return v
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
