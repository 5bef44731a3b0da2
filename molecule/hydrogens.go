package molecule

// Hydrogenate fills Atom.HCount with implicit hydrogens from default valences.
// Atoms whose element has no default valence keep the count they carry.
// It works on raw slices so readers can call it before New.
func Hydrogenate(atoms []Atom, bonds []Bond) {
	sum := make([]int, len(atoms))
	for _, b := range bonds {
		if b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			continue // New reports it
		}
		v := bondValence2(b.Order)
		sum[b.From] += v
		sum[b.To] += v
	}
	for i := range atoms {
		a := &atoms[i]
		// 显式氢在 SuppressHydrogens 里再并入
		if info, ok := elements[a.Element]; ok && len(info.Valences) > 0 {
			a.HCount = implicitHydrogens(a.Element, a.Charge, sum[i])
		}
	}
}

// SuppressHydrogens folds explicit terminal hydrogen atoms into the HCount of
// the heavy atom they are attached to and drops them, renumbering the rest.
// Hydrogens bonded to another hydrogen or to more than one atom are kept, and
// so are charged or isotopic ones (deuterium must stay distinguishable from
// the implicit hydrogens).
func SuppressHydrogens(atoms []Atom, bonds []Bond) ([]Atom, []Bond) {
	degree := make([]int, len(atoms))
	for _, b := range bonds {
		if b.From >= 0 && b.From < len(atoms) && b.To >= 0 && b.To < len(atoms) {
			degree[b.From]++
			degree[b.To]++
		}
	}
	drop := make([]bool, len(atoms))
	for _, b := range bonds {
		if b.Order != Single || b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			continue
		}
		for _, pair := range [2][2]int{{b.From, b.To}, {b.To, b.From}} {
			h, heavy := pair[0], pair[1]
			if atoms[h].Element == "H" && degree[h] == 1 && atoms[heavy].Element != "H" && atoms[h].Charge == 0 && atoms[h].Isotope == 0 {
				drop[h] = true
			}
		}
	}
	remap := make([]int, len(atoms))
	outAtoms := make([]Atom, 0, len(atoms))
	for i, a := range atoms {
		if drop[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(outAtoms)
		outAtoms = append(outAtoms, a)
	}
	outBonds := make([]Bond, 0, len(bonds))
	for _, b := range bonds {
		switch {
		case b.From >= 0 && b.From < len(atoms) && drop[b.From]:
			outAtoms[remap[b.To]].HCount++
		case b.To >= 0 && b.To < len(atoms) && drop[b.To]:
			outAtoms[remap[b.From]].HCount++
		default:
			nb := b
			if b.From >= 0 && b.From < len(atoms) {
				nb.From = remap[b.From]
			}
			if b.To >= 0 && b.To < len(atoms) {
				nb.To = remap[b.To]
			}
			outBonds = append(outBonds, nb)
		}
	}
	return outAtoms, outBonds
}
