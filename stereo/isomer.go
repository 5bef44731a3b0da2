package stereo

import (
	"strings"

	"tristereo/cip"
	"tristereo/molecule"
)

// Label is the CIP descriptor of one feature of an isomer.
type Label struct {
	Feature    string // locant, see Feature.Name
	Descriptor cip.Descriptor
}

// String renders "2-R" or "3=4-E".
func (l Label) String() string {
	return l.Feature + "-" + string(l.Descriptor)
}

// Isomer is one distinct stereoisomer. Index is 1-based and follows the order
// in which its first candidate was enumerated.
type Isomer struct {
	Index     int
	Mol       *molecule.Molecule
	Tags      []uint8
	Ordinal   uint64
	Key       string // empty when canonicalization failed
	MirrorKey string
	Labels    []Label
	Chiral    bool
	Meso      bool
	// Flags holds per-isomer diagnostics: ErrCanonicalizationFailed and
	// ErrCIPTieUnresolved wraps. They never abort the analysis.
	Flags []error
}

// Keyed reports whether both canonical keys were computed.
func (iso *Isomer) Keyed() bool {
	return iso.Key != "" && iso.MirrorKey != ""
}

// Describe returns the comma separated labels, "Achiral" without features,
// with a "(meso)" suffix for meso forms.
func (iso *Isomer) Describe() string {
	if len(iso.Labels) == 0 {
		return "Achiral"
	}
	parts := make([]string, len(iso.Labels))
	for i, l := range iso.Labels {
		parts[i] = l.String()
	}
	s := strings.Join(parts, ", ")
	if iso.Meso {
		s += " (meso)"
	}
	return s
}
