package api

import (
	"encoding/json"
	"net/http"

	"github.com/qqlww1987/KnowFlow-sub000/internal/coordmap"
	"github.com/qqlww1987/KnowFlow-sub000/internal/hierarchy"
	"github.com/qqlww1987/KnowFlow-sub000/internal/segment"
)

type segmentRequest struct {
	Text           string `json:"text"`
	DocID          string `json:"doc_id"`
	Strategy       string `json:"strategy"`
	TargetTokens   int    `json:"target_tokens"`
	MinTokens      int    `json:"min_tokens"`
	BoundaryLevels []int  `json:"boundary_levels,omitempty"`

	// Advanced-repair overrides; zero values fall back to service config.
	MaxFactor           float64 `json:"max_factor,omitempty"`
	MergeFactor         float64 `json:"merge_factor,omitempty"`
	NumberingMaxLen     int     `json:"numbering_max_len,omitempty"`
	NumberingDigitRatio float64 `json:"numbering_digit_ratio,omitempty"`
	NumberingLookahead  int     `json:"numbering_lookahead,omitempty"`
}

type segmentResponse struct {
	Chunks       []segment.Chunk  `json:"chunks"`
	UsedStrategy segment.Strategy `json:"used_strategy"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	opts := segment.Options{
		Strategy:     segment.Strategy(req.Strategy),
		DocID:        req.DocID,
		TargetTokens: req.TargetTokens,
		MinTokens:    req.MinTokens,
	}
	if opts.Strategy == "" {
		opts.Strategy = segment.Strategy(s.cfg.DefaultStrategy)
	}
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = s.cfg.DefaultTargetTokens
	}
	if opts.MinTokens <= 0 {
		opts.MinTokens = s.cfg.DefaultMinTokens
	}
	opts.Advanced = segment.AdvancedOptions{
		BoundaryLevels:      req.BoundaryLevels,
		MaxFactor:           req.MaxFactor,
		MergeFactor:         req.MergeFactor,
		NumberingMaxLen:     req.NumberingMaxLen,
		NumberingDigitRatio: req.NumberingDigitRatio,
		NumberingLookahead:  req.NumberingLookahead,
	}
	if len(opts.Advanced.BoundaryLevels) == 0 {
		opts.Advanced.BoundaryLevels = s.cfg.BoundaryLevels
	}
	if opts.Advanced.MaxFactor <= 0 {
		opts.Advanced.MaxFactor = s.cfg.AdvancedMaxFactor
	}
	if opts.Advanced.MergeFactor <= 0 {
		opts.Advanced.MergeFactor = s.cfg.AdvancedMergeFactor
	}
	if opts.Advanced.NumberingMaxLen <= 0 {
		opts.Advanced.NumberingMaxLen = s.cfg.NumberingMaxLen
	}
	if opts.Advanced.NumberingDigitRatio <= 0 {
		opts.Advanced.NumberingDigitRatio = s.cfg.NumberingDigitRatio
	}
	if opts.Advanced.NumberingLookahead <= 0 {
		opts.Advanced.NumberingLookahead = s.cfg.NumberingLookahead
	}

	chunks, used := segment.Segment(req.Text, s.counter, opts)
	jsonResponse(w, http.StatusOK, segmentResponse{Chunks: chunks, UsedStrategy: used})
}

type hierarchyRequest struct {
	DocID        string          `json:"doc_id"`
	Chunks       []segment.Chunk `json:"chunks"`
	ParentBudget int             `json:"parent_token_budget"`
}

type hierarchyResponse struct {
	Parents       []hierarchy.Parent       `json:"parents"`
	Relationships []hierarchy.Relationship `json:"relationships"`
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	var req hierarchyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Chunks) == 0 {
		jsonError(w, "chunks are required", http.StatusBadRequest)
		return
	}
	budget := req.ParentBudget
	if budget <= 0 {
		budget = s.cfg.ParentTokenBudget
	}

	parents, rels := hierarchy.Build(req.DocID, req.Chunks, budget, s.counter)
	jsonResponse(w, http.StatusOK, hierarchyResponse{Parents: parents, Relationships: rels})
}

type coordinatesRequest struct {
	// Chunks are mapped in order against one shared consumed set, so a
	// whole document should arrive in a single request.
	Chunks   []string                 `json:"chunks"`
	Elements []coordmap.LayoutElement `json:"layout_elements"`
	System   string                   `json:"coordinate_system"`
}

type coordinatesResponse struct {
	// Positions[i] aligns with Chunks[i]; null when no match was found.
	Positions [][]coordmap.Position `json:"positions"`
}

func (s *Server) handleCoordinates(w http.ResponseWriter, r *http.Request) {
	var req coordinatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	system := coordmap.System(req.System)
	switch system {
	case coordmap.SystemMinerU, coordmap.SystemDOTS:
	default:
		jsonError(w, "coordinate_system must be mineru or dots", http.StatusBadRequest)
		return
	}

	consumed := coordmap.NewConsumedSet()
	positions := make([][]coordmap.Position, len(req.Chunks))
	for i, chunk := range req.Chunks {
		positions[i] = coordmap.Map(chunk, req.Elements, system, consumed)
	}
	jsonResponse(w, http.StatusOK, coordinatesResponse{Positions: positions})
}
