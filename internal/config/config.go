// Package config loads tristereo settings from defaults, an optional YAML file
// and TRISTEREO_* environment variables, in that order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tristereo/cip"
	"tristereo/stereo"
)

// Config is the root configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Analysis Analysis `yaml:"analysis"`
	Render   Render   `yaml:"render"`
	Logging  Logging  `yaml:"logging"`
}

// Server configures the HTTP service.
type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gt=0"`
	MaxRequestSize int64         `yaml:"max_request_size" validate:"min=1024"`

	// StoreLimit bounds how many analyses are kept for grid rendering.
	StoreLimit int `yaml:"store_limit" validate:"min=1"`

	// MaxCandidatesOverride is the largest max_candidates a request may ask for.
	MaxCandidatesOverride uint64 `yaml:"max_candidates_override" validate:"min=1,max=1048576"`
}

// Analysis maps onto stereo.Options.
type Analysis struct {
	MaxCandidates     uint64 `yaml:"max_candidates" validate:"min=1"`
	Workers           int    `yaml:"workers" validate:"min=0,max=1024"` // 0 means GOMAXPROCS
	BatchSize         int    `yaml:"batch_size" validate:"min=1"`
	MinStereoRingSize int    `yaml:"min_stereo_ring_size" validate:"min=3"`
	MinTransRingSize  int    `yaml:"min_trans_ring_size" validate:"min=3"`
	MaxRefineRounds   int    `yaml:"max_refine_rounds" validate:"min=1"`
	MaxSearchLeaves   int    `yaml:"max_search_leaves" validate:"min=1"`
	CIPMaxDepth       int    `yaml:"cip_max_depth" validate:"min=1"`
	CIPMaxNodes       int    `yaml:"cip_max_nodes" validate:"min=16"`
}

// Render configures the isomer grid depiction.
type Render struct {
	CellSize  int     `yaml:"cell_size" validate:"min=64,max=2048"`
	PerRow    int     `yaml:"per_row" validate:"min=1,max=12"`
	FontSize  float64 `yaml:"font_size" validate:"gt=0"`
	ShowIndex bool    `yaml:"show_index"`
}

// Logging configures zap.
type Logging struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" validate:"oneof=json console"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	d := stereo.DefaultOptions()
	return &Config{
		Server: Server{
			Addr:           ":28416",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxRequestSize: 1 << 20,
			StoreLimit:     256,

			MaxCandidatesOverride: 1 << 13,
		},
		Analysis: Analysis{
			MaxCandidates:     d.MaxCandidates,
			BatchSize:         d.BatchSize,
			MinStereoRingSize: d.MinStereoRingSize,
			MinTransRingSize:  d.MinTransRingSize,
			MaxRefineRounds:   d.MaxRefineRounds,
			MaxSearchLeaves:   d.MaxSearchLeaves,
			CIPMaxDepth:       d.CIP.MaxDepth,
			CIPMaxNodes:       d.CIP.MaxNodes,
		},
		Render: Render{
			CellSize:  300,
			PerRow:    3,
			FontSize:  14,
			ShowIndex: true,
		},
		Logging: Logging{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load builds the configuration. An empty path skips the file; a missing file
// at a given path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and reports every violated field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(msgs, "; "))
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays TRISTEREO_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	unsigned := func(name string, dst *uint64) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	str("TRISTEREO_ADDR", &cfg.Server.Addr)
	integer("TRISTEREO_STORE_LIMIT", &cfg.Server.StoreLimit)
	unsigned("TRISTEREO_MAX_CANDIDATES_OVERRIDE", &cfg.Server.MaxCandidatesOverride)
	unsigned("TRISTEREO_MAX_CANDIDATES", &cfg.Analysis.MaxCandidates)
	integer("TRISTEREO_WORKERS", &cfg.Analysis.Workers)
	integer("TRISTEREO_BATCH_SIZE", &cfg.Analysis.BatchSize)
	integer("TRISTEREO_MIN_STEREO_RING_SIZE", &cfg.Analysis.MinStereoRingSize)
	integer("TRISTEREO_MIN_TRANS_RING_SIZE", &cfg.Analysis.MinTransRingSize)
	integer("TRISTEREO_MAX_SEARCH_LEAVES", &cfg.Analysis.MaxSearchLeaves)
	integer("TRISTEREO_RENDER_PER_ROW", &cfg.Render.PerRow)
	str("TRISTEREO_LOG_LEVEL", &cfg.Logging.Level)
	str("TRISTEREO_LOG_ENCODING", &cfg.Logging.Encoding)
	return errors.Join(errs...)
}

// Options converts the analysis section into stereo options.
func (a Analysis) Options() []stereo.Option {
	opts := []stereo.Option{
		stereo.WithMaxCandidates(a.MaxCandidates),
		stereo.WithBatchSize(a.BatchSize),
		stereo.WithMinStereoRingSize(a.MinStereoRingSize),
		stereo.WithMinTransRingSize(a.MinTransRingSize),
		stereo.WithSearchBounds(a.MaxRefineRounds, a.MaxSearchLeaves),
		stereo.WithCIPOptions(cip.Options{MaxDepth: a.CIPMaxDepth, MaxNodes: a.CIPMaxNodes}),
	}
	if a.Workers > 0 {
		opts = append(opts, stereo.WithWorkers(a.Workers))
	}
	return opts
}
