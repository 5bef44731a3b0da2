package stereo

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FeatureNames lists the locants of the analysed features, "none" when the
// constitution has no stereo elements.
func (a *Analysis) FeatureNames() string {
	if len(a.Features) == 0 {
		return "none"
	}
	names := make([]string, len(a.Features))
	for i, f := range a.Features {
		names[i] = f.Name()
	}
	return strings.Join(names, ", ")
}

// WriteText writes the plain report: a header, one line per isomer and one
// line per isomer pair.
func (a *Analysis) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Molecule: %s\n", a.Input.Name)
	fmt.Fprintf(bw, "Formula: %s\n", a.Input.Formula())
	fmt.Fprintf(bw, "Stereo features: %s\n", a.FeatureNames())
	fmt.Fprintf(bw, "Candidates: %d of %d (pruned %d, duplicates %d)\n", a.Candidates, a.Total, a.Pruned, a.Duplicates)
	for _, iso := range a.Isomers {
		fmt.Fprintf(bw, "Isomer %d: %s\n", iso.Index, iso.Describe())
		for _, f := range iso.Flags {
			fmt.Fprintf(bw, "  warning: %v\n", f)
		}
	}
	for _, r := range a.Relations.Entries() {
		fmt.Fprintf(bw, "Isomer %d & Isomer %d: %s\n", r.I, r.J, r.Kind)
	}
	return bw.Flush()
}
