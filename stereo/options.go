package stereo

import (
	"runtime"

	"go.uber.org/zap"

	"tristereo/cip"
)

// Options configures detection, enumeration, canonicalization and the worker
// pool of one analysis.
type Options struct {
	MaxCandidates     uint64 // hard cap on 2^k
	Workers           int
	BatchSize         int // candidates canonicalized per parallel round
	MinStereoRingSize int // ring double bonds in smaller rings are not features
	MinTransRingSize  int // smallest ring that can hold a trans double bond
	MaxRefineRounds   int
	MaxSearchLeaves   int
	CIP               cip.Options
	Logger            *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the settings used when no Option is given.
func DefaultOptions() Options {
	return Options{
		MaxCandidates:     1 << 12,
		Workers:           runtime.GOMAXPROCS(0),
		BatchSize:         64,
		MinStereoRingSize: 8,
		MinTransRingSize:  8,
		MaxRefineRounds:   512,
		MaxSearchLeaves:   4096,
		CIP:               cip.DefaultOptions(),
		Logger:            zap.NewNop(),
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// WithMaxCandidates caps the number of stereo assignments (2^k) a run may
// enumerate.
func WithMaxCandidates(n uint64) Option {
	return func(o *Options) { o.MaxCandidates = n }
}

// WithWorkers sets the size of the canonicalization and classification pool.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithBatchSize sets how many candidates are pulled from the enumerator per
// parallel round.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithMinStereoRingSize sets the smallest ring whose double bonds are still
// treated as stereo features.
func WithMinStereoRingSize(n int) Option {
	return func(o *Options) { o.MinStereoRingSize = n }
}

// WithMinTransRingSize sets the smallest ring able to hold a trans double bond;
// candidates forcing one into a smaller ring are pruned.
func WithMinTransRingSize(n int) Option {
	return func(o *Options) { o.MinTransRingSize = n }
}

// WithSearchBounds bounds canonical labelling: refinement rounds and search
// tree leaves.
func WithSearchBounds(rounds, leaves int) Option {
	return func(o *Options) {
		o.MaxRefineRounds = rounds
		o.MaxSearchLeaves = leaves
	}
}

// WithCIPOptions bounds the CIP digraph exploration.
func WithCIPOptions(c cip.Options) Option {
	return func(o *Options) { o.CIP = c }
}

// WithLogger attaches a logger for stage and diagnostic messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
