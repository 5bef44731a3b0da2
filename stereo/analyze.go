package stereo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tristereo/cip"
	"tristereo/molecule"
)

// Analysis is the full result for one input constitution.
type Analysis struct {
	Input     *molecule.Molecule // the input with spatial tags cleared
	Features  []Feature
	Isomers   []*Isomer
	Relations Relations

	Total      uint64 // 2^k
	Candidates int    // candidates surviving geometric pruning
	Pruned     int
	Duplicates int // candidates folded into an earlier isomer
}

// Chiral reports whether any isomer lacks a superimposable mirror image.
func (a *Analysis) Chiral() bool {
	for _, iso := range a.Isomers {
		if iso.Chiral {
			return true
		}
	}
	return false
}

type keyed struct {
	key, mirror string
	err         error
}

// Analyze enumerates the distinct stereoisomers of mol and relates them.
// Spatial tags already present on mol are ignored. Fatal conditions
// (ErrTooManyStereocenters, context cancellation) return a nil Analysis;
// per-isomer problems are recorded in Isomer.Flags.
func Analyze(ctx context.Context, mol *molecule.Molecule, opts ...Option) (*Analysis, error) {
	if mol == nil {
		return nil, fmt.Errorf("%w: nil molecule", molecule.ErrInvalidGraph)
	}
	o := buildOptions(opts)
	log := o.Logger.With(zap.String("molecule", mol.Name))

	base := mol.WithoutStereo()
	features := detect(base, o)
	log.Debug("features detected", zap.Int("features", len(features)), zap.Int("atoms", base.NumAtoms()))

	a := &Analysis{Input: base, Features: features}
	if len(features) == 0 {
		a.Total, a.Candidates = 1, 1
		k := canonicalKeys(base, o)
		iso := &Isomer{Index: 1, Mol: base, Tags: []uint8{}, Key: k.key, MirrorKey: k.mirror}
		if k.err != nil {
			iso.Flags = append(iso.Flags, k.err)
		}
		a.Isomers = []*Isomer{iso}
		a.Relations = Relations{n: 1}
		return a, nil
	}

	en, err := NewEnumerator(base, features, o.MaxCandidates, o.MinTransRingSize)
	if err != nil {
		log.Warn("enumeration refused", zap.Error(err))
		return nil, err
	}
	a.Total = en.Total()

	m := &merger{seen: make(map[string]*Isomer), log: log}
	batch := make([]Candidate, 0, o.BatchSize)
	for c := range en.All() {
		batch = append(batch, c)
		if len(batch) < o.BatchSize {
			continue
		}
		if err := m.flush(ctx, batch, o); err != nil {
			return nil, err
		}
		batch = batch[:0]
	}
	if err := m.flush(ctx, batch, o); err != nil {
		return nil, err
	}
	a.Candidates = m.candidates
	a.Pruned = int(a.Total) - m.candidates
	a.Duplicates = m.duplicates
	a.Isomers = m.isomers
	log.Debug("candidates merged",
		zap.Uint64("total", a.Total),
		zap.Int("pruned", a.Pruned),
		zap.Int("duplicates", a.Duplicates),
		zap.Int("isomers", len(a.Isomers)))

	if err := label(ctx, a, o); err != nil {
		return nil, err
	}
	for _, iso := range a.Isomers {
		markSymmetry(iso, features)
	}
	rel, err := Classify(ctx, a.Isomers, features, o.Workers)
	if err != nil {
		return nil, err
	}
	a.Relations = rel
	return a, nil
}

func canonicalKeys(mol *molecule.Molecule, o Options) keyed {
	c, err := canonicalize(mol, o.MaxRefineRounds, o.MaxSearchLeaves)
	if err != nil {
		return keyed{err: err}
	}
	mc, err := canonicalize(mol.Mirror(), o.MaxRefineRounds, o.MaxSearchLeaves)
	if err != nil {
		return keyed{key: c.Key, err: err}
	}
	return keyed{key: c.Key, mirror: mc.Key}
}

// merger folds canonicalized batches into isomers in emission order, so the
// first candidate of every class wins regardless of worker scheduling.
type merger struct {
	seen       map[string]*Isomer
	isomers    []*Isomer
	candidates int
	duplicates int
	log        *zap.Logger
}

func (m *merger) flush(ctx context.Context, batch []Candidate, o Options) error {
	if len(batch) == 0 {
		return ctx.Err()
	}
	results := make([]keyed, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = canonicalKeys(batch[i].Mol, o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, c := range batch {
		m.candidates++
		r := results[i]
		if r.err == nil {
			if _, dup := m.seen[r.key]; dup {
				m.duplicates++
				continue
			}
		}
		iso := &Isomer{
			Index:     len(m.isomers) + 1,
			Mol:       c.Mol,
			Tags:      c.Tags,
			Ordinal:   c.Ordinal,
			Key:       r.key,
			MirrorKey: r.mirror,
		}
		if r.err != nil {
			m.log.Warn("candidate kept without deduplication",
				zap.Uint64("ordinal", c.Ordinal), zap.Error(r.err))
			iso.Flags = append(iso.Flags, r.err)
		} else {
			m.seen[r.key] = iso
		}
		m.isomers = append(m.isomers, iso)
	}
	return nil
}

// label assigns CIP descriptors to every feature of every isomer.
func label(ctx context.Context, a *Analysis, o Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for _, iso := range a.Isomers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			iso.Labels = make([]Label, len(a.Features))
			for i, f := range a.Features {
				var (
					d   cip.Descriptor
					err error
				)
				if f.Kind == CenterFeature {
					d, err = cip.Center(iso.Mol, f.Atom, o.CIP)
				} else {
					d, err = cip.Bond(iso.Mol, f.Bond, o.CIP)
				}
				if err != nil {
					o.Logger.Warn("descriptor undetermined",
						zap.Int("isomer", iso.Index), zap.String("feature", f.Name()), zap.Error(err))
					d = cip.Undetermined
					iso.Flags = append(iso.Flags, err)
				}
				iso.Labels[i] = Label{Feature: f.Name(), Descriptor: d}
			}
			return nil
		})
	}
	return g.Wait()
}

// markSymmetry sets Chiral and Meso. Without keys only centre count is
// known: any centre makes the isomer chiral and meso forms go unrecognised.
func markSymmetry(iso *Isomer, features []Feature) {
	centers := 0
	for _, f := range features {
		if f.Kind == CenterFeature {
			centers++
		}
	}
	if iso.Keyed() {
		iso.Chiral = iso.Key != iso.MirrorKey
	} else {
		iso.Chiral = centers > 0
	}
	iso.Meso = !iso.Chiral && centers > 0
}
