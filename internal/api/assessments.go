package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nyashahama/carefund-backend/internal/auth"
	"github.com/nyashahama/carefund-backend/internal/scoring"
	"github.com/nyashahama/carefund-backend/internal/store"
)

const maxHistoryLimit = 100

// ─── POST /api/assessments ───────────────────────────────────────────────────

type createAssessmentRequest struct {
	Profile       *scoring.Profile `json:"profile"`
	MonthlyIncome *float64         `json:"monthlyIncome,omitempty"`
}

// handleCreateAssessment runs both stages in one call and archives a single
// record for the caller.
func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Profile == nil {
		respondErr(w, http.StatusBadRequest, "Profile data is required")
		return
	}

	report, err := s.assessor.Assess(r.Context(), callerFrom(r), *req.Profile, req.MonthlyIncome)
	if err != nil {
		s.respondAssessmentErr(w, r, "Failed to complete assessment", err)
		return
	}

	respondOK(w, report)
}

// ─── GET /api/assessments ────────────────────────────────────────────────────

// handleListAssessments returns the caller's archived assessments, newest
// first. ?limit= is optional and capped at 100.
func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	id, _ := auth.FromContext(r.Context())
	records, err := s.history.ListByUser(r.Context(), id.UserID, limit)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list assessments: %w", err))
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	respondOK(w, records)
}

// ─── GET /api/assessments/:assessmentID ──────────────────────────────────────

// handleGetAssessment returns one archived assessment. Records belonging to
// another user are reported as not found.
func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "assessmentID")
	if _, err := uuid.Parse(assessmentID); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	rec, err := s.history.Get(r.Context(), assessmentID)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}

	id, _ := auth.FromContext(r.Context())
	if rec.UserID != id.UserID {
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	}

	respondOK(w, rec)
}
