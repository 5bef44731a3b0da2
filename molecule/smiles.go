package molecule

import (
	"fmt"
	"strconv"
	"strings"
)

// organic subset atoms that may appear without brackets
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As",
}

// ParseSMILES reads the connectivity of a SMILES string. Stereo marks
// (@, @@, / and \) are accepted and discarded. Atoms outside brackets get
// implicit hydrogens from their default valence; bracket atoms carry exactly
// the hydrogens written.
func ParseSMILES(s string) (*Molecule, error) {
	p := &smilesParser{src: s, prev: -1, rings: map[int]ringBond{}}
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("%w: smiles %q: %v", ErrInvalidGraph, s, err)
	}
	return New(s, p.atoms, p.bonds)
}

type ringBond struct {
	atom  int
	order BondOrder
}

type smilesParser struct {
	src      string
	pos      int
	atoms    []Atom
	bonds    []Bond
	aromatic []bool
	bracket  []bool
	prev     int
	pending  BondOrder
	branches []int
	rings    map[int]ringBond
}

func (p *smilesParser) parse() error {
	if strings.TrimSpace(p.src) == "" {
		return fmt.Errorf("empty input")
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch opened before any atom at %d", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return fmt.Errorf("unbalanced ')' at %d", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '-':
			p.pending = Single
			p.pos++
		case c == '=':
			p.pending = Double
			p.pos++
		case c == '#':
			p.pending = Triple
			p.pos++
		case c == ':':
			p.pending = Aromatic
			p.pos++
		case c == '/' || c == '\\':
			p.pending = Single
			p.pos++
		case c == '.':
			p.prev = -1
			p.pending = 0
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return fmt.Errorf("bad %%nn ring label at %d", p.pos)
			}
			if err := p.ringClosure(int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.branches) > 0 {
		return fmt.Errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		return fmt.Errorf("unclosed ring bond")
	}
	if p.pending != 0 {
		return fmt.Errorf("dangling bond symbol at end of input")
	}
	if len(p.atoms) == 0 {
		return fmt.Errorf("no atoms")
	}
	p.fillHydrogens()
	if err := checkValence(p.atoms, p.bonds); err != nil {
		return err
	}
	p.atoms, p.bonds = SuppressHydrogens(p.atoms, p.bonds)
	return nil
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.addAtom(Atom{Element: sym}, false, false)
			p.pos += 2
			return nil
		}
	}
	sym := rest[:1]
	if organicSubset[sym] {
		p.addAtom(Atom{Element: sym}, false, false)
		p.pos++
		return nil
	}
	if el, ok := aromaticSymbols[sym]; ok {
		p.addAtom(Atom{Element: el}, true, false)
		p.pos++
		return nil
	}
	return fmt.Errorf("unexpected %q at %d", sym, p.pos)
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return fmt.Errorf("unclosed bracket atom at %d", p.pos)
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	isotope := 0
	if i > 0 {
		n, err := strconv.Atoi(body[:i])
		if err != nil {
			return fmt.Errorf("bad isotope in %q", body)
		}
		isotope = n
	}
	if i >= len(body) {
		return fmt.Errorf("bracket atom %q has no element", body)
	}
	var (
		el       string
		aromatic bool
	)
	switch c := body[i]; {
	case c >= 'A' && c <= 'Z':
		el = body[i : i+1]
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' && IsElement(body[i:i+2]) {
			el = body[i : i+2]
		}
		i += len(el)
	case c >= 'a' && c <= 'z':
		if sym, ok := aromaticSymbols[body[i:min(i+2, len(body))]]; ok && i+2 <= len(body) {
			el, aromatic = sym, true
			i += 2
		} else if sym, ok := aromaticSymbols[body[i:i+1]]; ok {
			el, aromatic = sym, true
			i++
		} else {
			return fmt.Errorf("unknown aromatic symbol in %q", body)
		}
	default:
		return fmt.Errorf("bracket atom %q has no element", body)
	}

	a := Atom{Element: el, Isotope: isotope}
	if i < len(body) && body[i] == '@' { // chirality is discarded
		for i < len(body) && body[i] == '@' {
			i++
		}
		if i+1 < len(body) {
			switch body[i : i+2] {
			case "TH", "AL", "SP", "TB", "OH":
				i += 2
				for i < len(body) && isDigit(body[i]) {
					i++
				}
			}
		}
	}
	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = int(body[i] - '0')
			i++
		}
	}
	for i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		if i < len(body) && isDigit(body[i]) {
			a.Charge += sign * int(body[i]-'0')
			i++
		} else {
			a.Charge += sign
		}
	}
	if i < len(body) && body[i] == ':' { // atom class
		i = len(body)
	}
	if i != len(body) {
		return fmt.Errorf("cannot read bracket atom %q", body)
	}
	p.addAtom(a, aromatic, true)
	return nil
}

func (p *smilesParser) addAtom(a Atom, aromatic, bracket bool) {
	idx := len(p.atoms)
	p.atoms = append(p.atoms, a)
	p.aromatic = append(p.aromatic, aromatic)
	p.bracket = append(p.bracket, bracket)
	if p.prev >= 0 {
		p.bonds = append(p.bonds, Bond{From: p.prev, To: idx, Order: p.bondOrder(p.prev, idx, 0)})
	}
	p.prev = idx
	p.pending = 0
}

func (p *smilesParser) bondOrder(a, b int, ringOrder BondOrder) BondOrder {
	switch {
	case p.pending != 0:
		return p.pending
	case ringOrder != 0:
		return ringOrder
	case p.aromatic[a] && p.aromatic[b]:
		return Aromatic
	}
	return Single
}

func (p *smilesParser) ringClosure(label int) error {
	if p.prev < 0 {
		return fmt.Errorf("ring label %d before any atom", label)
	}
	if open, ok := p.rings[label]; ok {
		delete(p.rings, label)
		if open.atom == p.prev {
			return fmt.Errorf("ring label %d closes on its own atom", label)
		}
		p.bonds = append(p.bonds, Bond{From: open.atom, To: p.prev, Order: p.bondOrder(open.atom, p.prev, open.order)})
		p.pending = 0
		return nil
	}
	p.rings[label] = ringBond{atom: p.prev, order: p.pending}
	p.pending = 0
	return nil
}

func (p *smilesParser) fillHydrogens() {
	sum := make([]int, len(p.atoms))
	for _, b := range p.bonds {
		v := bondValence2(b.Order)
		sum[b.From] += v
		sum[b.To] += v
	}
	for i := range p.atoms {
		if p.bracket[i] {
			continue
		}
		p.atoms[i].HCount = implicitHydrogens(p.atoms[i].Element, 0, sum[i])
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
