package molecule

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseMolBlock parses a single V2000 mol block. Implicit hydrogens are filled
// from default valences and explicit terminal hydrogens are folded into their
// heavy atom. Stereo flags in the file are ignored: the analysis starts from
// unspecified stereochemistry.
func ParseMolBlock(str string) (*Molecule, error) {
	lines := strings.Split(strings.ReplaceAll(str, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: mol block has too few lines", ErrInvalidGraph)
	}
	name := strings.TrimSpace(lines[0])

	// counts line 可能不在第 4 行（有些文件头部多空行），按 V2000 标记定位
	countsAt := -1
	for i, line := range lines {
		if len(line) >= 39 && strings.Contains(line[30:39], "V2000") {
			countsAt = i
			break
		}
	}
	if countsAt < 0 {
		return nil, fmt.Errorf("%w: V2000 counts line not found", ErrInvalidGraph)
	}
	countsLine := lines[countsAt]
	body := lines[countsAt+1:]

	numAtoms := parseIntSafe(countsLine[:3])
	numBonds := parseIntSafe(countsLine[3:6])
	if numAtoms < 0 || numBonds < 0 {
		return nil, fmt.Errorf("%w: negative counts (%d atoms, %d bonds)", ErrInvalidGraph, numAtoms, numBonds)
	}
	if len(body) < numAtoms+numBonds {
		return nil, fmt.Errorf("%w: mol block truncated (%d atoms, %d bonds declared)", ErrInvalidGraph, numAtoms, numBonds)
	}

	atoms := make([]Atom, 0, numAtoms)
	for i := 0; i < numAtoms; i++ {
		l := body[i]
		if len(l) < 34 {
			return nil, fmt.Errorf("%w: atom line %d too short", ErrInvalidGraph, i+1)
		}
		a := Atom{
			X:       parseFloatSafe(l[0:10]),
			Y:       parseFloatSafe(l[10:20]),
			Element: strings.TrimSpace(l[31:34]),
		}
		if len(l) >= 39 {
			a.Charge = chargeFromCode(parseIntSafe(l[36:39]))
		}
		atoms = append(atoms, a)
	}

	bonds := make([]Bond, 0, numBonds)
	for i := 0; i < numBonds; i++ {
		l := body[numAtoms+i]
		if len(l) < 9 {
			return nil, fmt.Errorf("%w: bond line %d too short", ErrInvalidGraph, i+1)
		}
		bonds = append(bonds, Bond{
			From:  parseIntSafe(l[0:3]) - 1,
			To:    parseIntSafe(l[3:6]) - 1,
			Order: BondOrder(parseIntSafe(l[6:9])),
		})
	}

	// properties block: M  CHG 覆盖原子行里的电荷, M  ISO 给出质量数
	for _, l := range body[numAtoms+numBonds:] {
		if strings.HasPrefix(l, "M  END") {
			break
		}
		var set func(a *Atom, v int)
		switch {
		case strings.HasPrefix(l, "M  CHG"):
			set = func(a *Atom, v int) { a.Charge = v }
		case strings.HasPrefix(l, "M  ISO"):
			set = func(a *Atom, v int) { a.Isotope = max(v, 0) }
		default:
			continue
		}
		fields := strings.Fields(l[6:])
		if len(fields) == 0 {
			continue
		}
		n := parseIntSafe(fields[0])
		for k := 0; k < n && 2+2*k < len(fields); k++ {
			idx := parseIntSafe(fields[1+2*k]) - 1
			if idx >= 0 && idx < len(atoms) {
				set(&atoms[idx], parseIntSafe(fields[2+2*k]))
			}
		}
	}

	Hydrogenate(atoms, bonds)
	if err := checkValence(atoms, bonds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	atoms, bonds = SuppressHydrogens(atoms, bonds)
	return New(name, atoms, bonds)
}

// ParseSDF reads every record of an SD file. Records that fail to parse are
// reported together with their 1-based position; the good ones are returned.
func ParseSDF(r io.Reader) ([]*Molecule, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var (
		mols []*Molecule
		errs []string
		sb   strings.Builder
		rec  int
	)
	flush := func() {
		block := sb.String()
		sb.Reset()
		if strings.TrimSpace(block) == "" {
			return
		}
		rec++
		mol, err := ParseMolBlock(block)
		if err != nil {
			errs = append(errs, fmt.Sprintf("record %d: %v", rec, err))
			return
		}
		mols = append(mols, mol)
	}
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "$$$$" {
			flush()
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	if len(errs) > 0 {
		return mols, fmt.Errorf("%w: %s", ErrInvalidGraph, strings.Join(errs, "; "))
	}
	return mols, nil
}

// chargeFromCode decodes the V2000 atom-block charge column.
func chargeFromCode(code int) int {
	switch code {
	case 1:
		return 3
	case 2:
		return 2
	case 3:
		return 1
	case 5:
		return -1
	case 6:
		return -2
	case 7:
		return -3
	}
	return 0
}

func parseIntSafe(s string) int {
	n := 0
	fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	return n
}

func parseFloatSafe(s string) float64 {
	f := 0.0
	fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f
}
