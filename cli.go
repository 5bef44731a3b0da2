// File: cli.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tristereo/internal/config"
	"tristereo/internal/observability"
	"tristereo/molecule"
	"tristereo/stereo"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Analysis refused or failed
	ExitCommandError = 2 // Bad flags, unreadable input, bad config
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err; plain errors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope written by --format json.
type CLIResponse struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// RootOptions holds global flags and what PersistentPreRunE builds from them.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg    *config.Config
	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the tristereo command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tristereo",
		Short:         "Enumerate and relate the stereoisomers of a molecule",
		Long:          "tristereo finds the stereocentres and stereogenic double bonds of a constitution, enumerates its distinct stereoisomers with CIP labels and classifies every pair as enantiomers or diastereomers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding, opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "build logger", err)
			}
			opts.cfg, opts.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")

	cmd.AddCommand(newAnalyzeCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newIndexCommand())
	return cmd
}

type analyzeFlags struct {
	molFile       string
	name          string
	maxCandidates uint64
	workers       int
	png           string
	record        int    // 1-based record of --molfile, 0 reads every record
	index         string // offset index written by `tristereo index`
}

func newAnalyzeCommand(opts *RootOptions) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [SMILES]",
		Short: "List the stereoisomers of a SMILES string or an SD file",
		Example: `  tristereo analyze 'OC(=O)C(O)C(O)C(=O)O' --name "tartaric acid"
  tristereo analyze --molfile compounds.sdf --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (f.molFile == "") {
				return WrapExitError(ExitCommandError, "invalid arguments",
					errors.New("give exactly one of a SMILES argument or --molfile"))
			}
			mols, err := readMolecules(args, f)
			if err != nil {
				return WrapExitError(ExitCommandError, "read input", err)
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts, f, mols)
		},
	}
	cmd.Flags().StringVarP(&f.molFile, "molfile", "m", "", "V2000 mol or SD file")
	cmd.Flags().StringVar(&f.name, "name", "", "molecule name used in the report")
	cmd.Flags().Uint64Var(&f.maxCandidates, "max-candidates", 0, "refuse inputs with more candidates (0 keeps the configured cap)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "canonicalization workers (0 keeps the configured value)")
	cmd.Flags().StringVar(&f.png, "png", "", "write the isomer grid to this PNG file")
	cmd.Flags().IntVar(&f.record, "record", 0, "analyze only this 1-based record of --molfile")
	cmd.Flags().StringVar(&f.index, "index", "", "offset index of --molfile, used with --record")
	return cmd
}

func newIndexCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "index SDF",
		Short: "Write the record offsets of an SD file, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "open sdf", err)
			}
			defer file.Close()
			offsets, err := molecule.IndexSDF(file)
			if err != nil {
				return WrapExitError(ExitFailure, "index sdf", err)
			}
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return WrapExitError(ExitCommandError, "create index", err)
				}
				defer f.Close()
				w = f
			}
			return molecule.WriteIndex(w, offsets)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "index file (default stdout)")
	return cmd
}

func readMolecules(args []string, f analyzeFlags) ([]*molecule.Molecule, error) {
	if len(args) == 1 {
		mol, err := parseInput(args[0], "", f.name)
		if err != nil {
			return nil, err
		}
		return []*molecule.Molecule{mol}, nil
	}
	file, err := os.Open(f.molFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if f.record > 0 {
		mol, err := readRecord(file, f)
		if err != nil {
			return nil, err
		}
		return []*molecule.Molecule{mol}, nil
	}
	mols, err := molecule.ParseSDF(file)
	if err != nil {
		return nil, err
	}
	if len(mols) == 0 {
		return nil, fmt.Errorf("%w: %s holds no records", molecule.ErrInvalidGraph, f.molFile)
	}
	if f.name != "" && len(mols) == 1 {
		mols[0].Name = f.name
	}
	return mols, nil
}

// readRecord seeks straight to one record, using the offset index when given.
func readRecord(file *os.File, f analyzeFlags) (*molecule.Molecule, error) {
	var (
		offsets []int64
		err     error
	)
	if f.index != "" {
		idx, err := os.Open(f.index)
		if err != nil {
			return nil, err
		}
		defer idx.Close()
		offsets, err = molecule.LoadIndex(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load index: %w", err)
		}
	} else if offsets, err = molecule.IndexSDF(file); err != nil {
		return nil, err
	}
	if f.record > len(offsets) {
		return nil, fmt.Errorf("record %d out of range: %s holds %d records", f.record, f.molFile, len(offsets))
	}
	mol, err := molecule.ReadRecordAt(file, offsets[f.record-1])
	if err != nil {
		return nil, err
	}
	if f.name != "" {
		mol.Name = f.name
	}
	return mol, nil
}

func runAnalyze(ctx context.Context, w io.Writer, opts *RootOptions, f analyzeFlags, mols []*molecule.Molecule) error {
	cfg := opts.cfg
	stereoOpts := append(cfg.Analysis.Options(), stereo.WithLogger(opts.logger))
	if f.maxCandidates > 0 {
		stereoOpts = append(stereoOpts, stereo.WithMaxCandidates(f.maxCandidates))
	}
	if f.workers > 0 {
		stereoOpts = append(stereoOpts, stereo.WithWorkers(f.workers))
	}

	results := make([]AnalysisResponse, 0, len(mols))
	for i, mol := range mols {
		a, err := stereo.Analyze(ctx, mol, stereoOpts...)
		if err != nil {
			return reportFailure(w, opts.Format, mol, err)
		}
		if f.png != "" {
			path := f.png
			if len(mols) > 1 {
				ext := filepath.Ext(path)
				path = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
			}
			img, err := RenderIsomerGrid(a, cfg.Render)
			if err != nil {
				return WrapExitError(ExitFailure, "render grid", err)
			}
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write png", err)
			}
			opts.logger.Debug("grid written", zap.String("path", path))
		}
		if opts.Format == "json" {
			results = append(results, newAnalysisResponse(uuid.New().String(), a))
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := a.WriteText(w); err != nil {
			return err
		}
	}
	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{Status: "ok", Data: results})
	}
	return nil
}

// reportFailure prints err in the chosen format and turns it into an exit code.
func reportFailure(w io.Writer, format string, mol *molecule.Molecule, err error) error {
	_, body := classifyError(err)
	if format == "json" {
		if encErr := json.NewEncoder(w).Encode(CLIResponse{Status: "error", Error: &body}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(w, "Error [%s]: %s\n", body.Code, body.Message)
	}
	code := ExitFailure
	if errors.Is(err, molecule.ErrInvalidGraph) {
		code = ExitCommandError
	}
	return WrapExitError(code, "analyze "+mol.Name, err)
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}
			return runServer(cmd.Context(), opts.cfg, opts.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// runServer blocks until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func runServer(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := NewServer(cfg, log, observability.NewCollector("tristereo"))
	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.Server.Addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return WrapExitError(ExitFailure, "listen", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown", err)
	}
	return nil
}
