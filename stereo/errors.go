package stereo

import (
	"errors"
	"fmt"
)

// Sentinel errors for the analysis pipeline.
var (
	// ErrTooManyStereocenters aborts a run whose 2^k candidate count exceeds the
	// configured cap. The returned error is a *CapError; retry with a larger
	// WithMaxCandidates if the cost is acceptable.
	ErrTooManyStereocenters = errors.New("stereo: too many stereo features")

	// ErrCanonicalizationFailed marks a candidate whose canonical key could not
	// be computed within the refinement and search bounds. It is attached to the
	// isomer, never returned from Analyze.
	ErrCanonicalizationFailed = errors.New("stereo: canonicalization failed")
)

// CapError carries the numbers behind ErrTooManyStereocenters.
type CapError struct {
	Features   int
	Candidates uint64 // 0 when 2^Features overflows
	Cap        uint64
}

func (e *CapError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("%v: %d features overflow the candidate space (cap %d)", ErrTooManyStereocenters, e.Features, e.Cap)
	}
	return fmt.Sprintf("%v: %d features give %d candidates (cap %d)", ErrTooManyStereocenters, e.Features, e.Candidates, e.Cap)
}

func (e *CapError) Unwrap() error { return ErrTooManyStereocenters }
