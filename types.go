// File: types.go
package main

import (
	"errors"
	"net/http"

	"tristereo/molecule"
	"tristereo/stereo"
)

// AnalyzeRequest is the JSON body for POST /api/isomers/analyze
type AnalyzeRequest struct {
	SMILES        string `json:"smiles" validate:"required_without=MolBlock,max=4096"`
	MolBlock      string `json:"molblock" validate:"required_without=SMILES,max=262144"`
	Name          string `json:"name" validate:"max=256"`
	MaxCandidates uint64 `json:"max_candidates" validate:"omitempty,min=1,max=1048576"`
	IncludeImage  bool   `json:"include_image"` // 同时返回 Base64 PNG
}

// AnalysisResponse is returned by the analyze endpoint and by `tristereo analyze --format json`
type AnalysisResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Formula   string         `json:"formula"`
	Features  []string       `json:"features"`
	Isomers   []IsomerDTO    `json:"isomers"`
	Relations []RelationDTO  `json:"relations"`
	Chiral    bool           `json:"chiral"`
	Stats     CandidateStats `json:"stats"`
	GridURL   string         `json:"grid_url,omitempty"`
	Image     string         `json:"image,omitempty"` // data:image/png;base64,...
}

// CandidateStats summarises enumeration.
type CandidateStats struct {
	Total      uint64 `json:"total"`
	Candidates int    `json:"candidates"`
	Pruned     int    `json:"pruned"`
	Duplicates int    `json:"duplicates"`
}

// IsomerDTO is one isomer in responses.
type IsomerDTO struct {
	Index       int               `json:"index"`
	Label       string            `json:"label"`
	Descriptors map[string]string `json:"descriptors"`
	Chiral      bool              `json:"chiral"`
	Meso        bool              `json:"meso"`
	Key         string            `json:"key,omitempty"`
	MirrorKey   string            `json:"mirror_key,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// RelationDTO is one isomer pair.
type RelationDTO struct {
	I    int    `json:"i"`
	J    int    `json:"j"`
	Kind string `json:"kind"`
}

// ErrorResponse is the error body for every endpoint.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// CapDetails explains a refused analysis so clients can retry with a larger cap.
type CapDetails struct {
	Features   int    `json:"features"`
	Candidates uint64 `json:"candidates"`
	Cap        uint64 `json:"cap"`
}

func newAnalysisResponse(id string, a *stereo.Analysis) AnalysisResponse {
	rsp := AnalysisResponse{
		ID:        id,
		Name:      a.Input.Name,
		Formula:   a.Input.Formula(),
		Features:  make([]string, len(a.Features)),
		Isomers:   make([]IsomerDTO, len(a.Isomers)),
		Relations: []RelationDTO{},
		Chiral:    a.Chiral(),
		Stats: CandidateStats{
			Total:      a.Total,
			Candidates: a.Candidates,
			Pruned:     a.Pruned,
			Duplicates: a.Duplicates,
		},
	}
	for i, f := range a.Features {
		rsp.Features[i] = f.Name()
	}
	for i, iso := range a.Isomers {
		dto := IsomerDTO{
			Index:       iso.Index,
			Label:       iso.Describe(),
			Descriptors: make(map[string]string, len(iso.Labels)),
			Chiral:      iso.Chiral,
			Meso:        iso.Meso,
			Key:         iso.Key,
			MirrorKey:   iso.MirrorKey,
		}
		for _, l := range iso.Labels {
			dto.Descriptors[l.Feature] = string(l.Descriptor)
		}
		for _, f := range iso.Flags {
			dto.Warnings = append(dto.Warnings, f.Error())
		}
		rsp.Isomers[i] = dto
	}
	for _, r := range a.Relations.Entries() {
		rsp.Relations = append(rsp.Relations, RelationDTO{I: r.I, J: r.J, Kind: r.Kind.String()})
	}
	return rsp
}

// classifyError maps analysis errors onto an HTTP status and a stable code.
func classifyError(err error) (int, ErrorResponse) {
	var capErr *stereo.CapError
	switch {
	case errors.As(err, &capErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "too_many_stereocenters",
			Message: err.Error(),
			Details: CapDetails{Features: capErr.Features, Candidates: capErr.Candidates, Cap: capErr.Cap},
		}
	case errors.Is(err, stereo.ErrTooManyStereocenters):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "too_many_stereocenters", Message: err.Error()}
	case errors.Is(err, molecule.ErrInvalidGraph):
		return http.StatusBadRequest, ErrorResponse{Code: "invalid_molecule", Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: err.Error()}
}
