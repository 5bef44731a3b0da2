// File: handler.go
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tristereo/internal/config"
	"tristereo/internal/observability"
	"tristereo/molecule"
	"tristereo/stereo"
)

// Server serves analyses over HTTP and keeps the most recent ones so their
// isomer grids can be fetched later.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *observability.Collector
	validate *validator.Validate

	mu       sync.Mutex
	analyses map[string]*stereo.Analysis
	order    []string // 插入顺序，超出 StoreLimit 时淘汰最旧的
}

// NewServer wires a server from cfg.
func NewServer(cfg *config.Config, log *zap.Logger, metrics *observability.Collector) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
		analyses: make(map[string]*stereo.Analysis),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/api/isomers", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/grid.png", s.handleGrid)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return r
}

// instrument records request count and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(took.Seconds())
		s.log.Debug("HTTP Request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", took),
			zap.String("requestID", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestSize)
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: err.Error()})
		return
	}

	if ceiling := s.cfg.Server.MaxCandidatesOverride; req.MaxCandidates > ceiling {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "too_many_stereocenters",
			Message: fmt.Sprintf("max_candidates %d exceeds the server limit %d", req.MaxCandidates, ceiling),
			Details: CapDetails{Candidates: req.MaxCandidates, Cap: ceiling},
		})
		return
	}

	mol, err := parseInput(req.SMILES, req.MolBlock, req.Name)
	if err != nil {
		status, body := classifyError(err)
		writeJSON(w, status, body)
		return
	}

	id := uuid.New().String()
	a, err := s.analyze(r.Context(), id, mol, req.MaxCandidates)
	if err != nil {
		status, body := classifyError(err)
		writeJSON(w, status, body)
		return
	}

	rsp := newAnalysisResponse(id, a)
	rsp.GridURL = "/api/isomers/" + id + "/grid.png"
	if req.IncludeImage {
		img, err := RenderIsomerGrid(a, s.cfg.Render)
		if err != nil {
			s.log.Error("render failed", zap.String("id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "render_failed", Message: err.Error()})
			return
		}
		rsp.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
	}
	writeJSON(w, http.StatusOK, rsp)
}

// analyze runs stereo.Analyze with the configured options and stores the
// result under id.
func (s *Server) analyze(ctx context.Context, id string, mol *molecule.Molecule, maxCandidates uint64) (*stereo.Analysis, error) {
	opts := append(s.cfg.Analysis.Options(), stereo.WithLogger(s.log.With(zap.String("id", id))))
	if maxCandidates > 0 {
		opts = append(opts, stereo.WithMaxCandidates(maxCandidates))
	}
	start := time.Now()
	a, err := stereo.Analyze(ctx, mol, opts...)
	s.metrics.ObserveAnalysis(a, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.log.Info("analysis done",
		zap.String("id", id),
		zap.String("formula", a.Input.Formula()),
		zap.Int("features", len(a.Features)),
		zap.Int("isomers", len(a.Isomers)),
		zap.Duration("took", time.Since(start)))
	s.store(id, a)
	return a, nil
}

func (s *Server) store(id string, a *stereo.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[id] = a
	s.order = append(s.order, id)
	for len(s.order) > s.cfg.Server.StoreLimit {
		delete(s.analyses, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(id string) (*stereo.Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	return a, ok
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: "analysis " + id + " not found"})
		return
	}
	rsp := newAnalysisResponse(id, a)
	rsp.GridURL = "/api/isomers/" + id + "/grid.png"
	writeJSON(w, http.StatusOK, rsp)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: "analysis " + id + " not found"})
		return
	}
	img, err := RenderIsomerGrid(a, s.cfg.Render)
	if err != nil {
		s.log.Error("render failed", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "render_failed", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	_, _ = w.Write(img)
}

// parseInput reads a molecule from SMILES or a V2000 mol block.
func parseInput(smiles, molBlock, name string) (*molecule.Molecule, error) {
	var (
		mol *molecule.Molecule
		err error
	)
	switch {
	case smiles != "":
		mol, err = molecule.ParseSMILES(smiles)
		if err == nil && name == "" {
			name = smiles
		}
	case molBlock != "":
		mol, err = molecule.ParseMolBlock(molBlock)
	default:
		return nil, fmt.Errorf("%w: no SMILES or mol block given", molecule.ErrInvalidGraph)
	}
	if err != nil {
		if !errors.Is(err, molecule.ErrInvalidGraph) {
			err = fmt.Errorf("%w: %v", molecule.ErrInvalidGraph, err)
		}
		return nil, err
	}
	if name != "" {
		mol.Name = name
	}
	return mol, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
