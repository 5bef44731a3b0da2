// Package stereo enumerates the distinct stereoisomers of a constitution and
// relates them to one another.
//
// What
//
//   - Detect finds stereocentres and stereo double bonds from constitutional
//     symmetry classes (iterative rank refinement).
//   - Enumerator walks the 2^k tag assignments lazily in lexicographic order,
//     pruning trans double bonds in rings too small to hold them.
//   - Canonicalize labels a tagged graph by individualization and refinement
//     and hashes the minimal serialisation into a key.
//   - Classify marks every isomer pair as Enantiomer or Diastereomer.
//   - Analyze runs the whole pipeline on a bounded worker pool.
//
// Determinism
//
//	Candidates are canonicalized in parallel batches but merged in emission
//	order, so isomer indices, labels and relations do not depend on
//	scheduling. The first candidate of each class is the one kept.
//
// Errors
//
//   - ErrTooManyStereocenters (as *CapError) aborts before any work.
//   - ErrCanonicalizationFailed is attached to the isomer it concerns;
//     such an isomer is never merged with another one.
//   - cip.ErrCIPTieUnresolved leaves the descriptor "undetermined".
//
// Usage
//
//	a, err := stereo.Analyze(ctx, mol, stereo.WithWorkers(4))
//	if err != nil {
//		return err
//	}
//	for _, iso := range a.Isomers {
//		fmt.Printf("Isomer %d: %s\n", iso.Index, iso.Describe())
//	}
package stereo
