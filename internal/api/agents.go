package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nyashahama/carefund-backend/internal/assessment"
	"github.com/nyashahama/carefund-backend/internal/auth"
	"github.com/nyashahama/carefund-backend/internal/scoring"
)

// Older clients send userProfile / agent1Results; both spellings are
// accepted and the newer one wins when both are present.

// ─── POST /api/agents/risk-analysis ──────────────────────────────────────────

type riskAnalysisRequest struct {
	Profile     *scoring.Profile `json:"profile"`
	UserProfile *scoring.Profile `json:"userProfile"`
}

func (req riskAnalysisRequest) profile() *scoring.Profile {
	if req.Profile != nil {
		return req.Profile
	}
	return req.UserProfile
}

// handleRiskAnalysis scores the caller's profile against the current
// environment of their city and returns the enriched risk report.
func (s *Server) handleRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	var req riskAnalysisRequest
	if !decode(w, r, &req) {
		return
	}

	profile := req.profile()
	if profile == nil {
		respondErr(w, http.StatusBadRequest, "Profile data is required")
		return
	}

	report, err := s.assessor.AnalyzeRisk(r.Context(), callerFrom(r), *profile)
	if err != nil {
		s.respondAssessmentErr(w, r, "Failed to complete risk analysis", err)
		return
	}

	respondOK(w, report)
}

// ─── POST /api/agents/financial-plan ─────────────────────────────────────────

type financialPlanRequest struct {
	RiskResults   json.RawMessage  `json:"riskResults"`
	Agent1Results json.RawMessage  `json:"agent1Results"`
	Profile       *scoring.Profile `json:"profile"`
	UserProfile   *scoring.Profile `json:"userProfile"`
	MonthlyIncome *float64         `json:"monthlyIncome,omitempty"`
}

func (req financialPlanRequest) riskDocument() json.RawMessage {
	if present(req.RiskResults) {
		return req.RiskResults
	}
	if present(req.Agent1Results) {
		return req.Agent1Results
	}
	return nil
}

func (req financialPlanRequest) profile() *scoring.Profile {
	if req.Profile != nil {
		return req.Profile
	}
	return req.UserProfile
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// riskProbe reads just the fields planning needs from a client-supplied risk
// report; riskScore must be present.
type riskProbe struct {
	Score   *int            `json:"riskScore"`
	Level   scoring.Level   `json:"riskLevel"`
	Factors json.RawMessage `json:"riskFactors"`
}

// handleFinancialPlan maps a previously computed risk result onto an
// insurance plan and savings targets. The assessment is archived in the
// background; an archive failure never fails the request.
func (s *Server) handleFinancialPlan(w http.ResponseWriter, r *http.Request) {
	var req financialPlanRequest
	if !decode(w, r, &req) {
		return
	}

	doc := req.riskDocument()
	profile := req.profile()
	if doc == nil || profile == nil {
		respondErr(w, http.StatusBadRequest, "Risk results and profile data are required")
		return
	}

	risk, err := parseRisk(doc)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "Risk results and profile data are required")
		return
	}

	report, err := s.assessor.PlanFinances(r.Context(), assessment.FinanceRequest{
		Caller:        callerFrom(r),
		Profile:       *profile,
		Risk:          risk,
		RiskDocument:  doc,
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		s.respondAssessmentErr(w, r, "Failed to complete financial planning", err)
		return
	}

	respondOK(w, report)
}

func parseRisk(doc json.RawMessage) (*scoring.Result, error) {
	var p riskProbe
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode risk results: %w", err)
	}
	if p.Score == nil {
		return nil, errors.New("risk results: riskScore is missing")
	}
	res := &scoring.Result{Score: *p.Score, Level: p.Level}
	if present(p.Factors) {
		// Factors only feed the finance narrative; malformed ones are dropped.
		_ = json.Unmarshal(p.Factors, &res.Factors)
	}
	if res.Level == "" {
		res.Level = scoring.LevelFor(res.Score)
	}
	return res, nil
}

// ─── SHARED ──────────────────────────────────────────────────────────────────

func callerFrom(r *http.Request) assessment.Caller {
	id, _ := auth.FromContext(r.Context())
	return assessment.Caller{UserID: id.UserID, Email: id.Email}
}

// respondAssessmentErr maps assessment errors onto HTTP statuses. Validation
// problems are 400. Computation faults are 500 with failMsg plus the fault
// detail; anything else is a generic 500.
func (s *Server) respondAssessmentErr(w http.ResponseWriter, r *http.Request, failMsg string, err error) {
	switch {
	case errors.Is(err, assessment.ErrInvalidProfile), errors.Is(err, assessment.ErrMissingRisk):
		respondErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assessment.ErrInternal):
		s.logger.Error("assessment failed",
			"error", err,
			"path", r.URL.Path,
			logField(r),
		)
		respond(w, http.StatusInternalServerError, map[string]string{
			"error":   failMsg,
			"details": strings.TrimPrefix(err.Error(), assessment.ErrInternal.Error()+": "),
		})
	default:
		s.respondInternalErr(w, r, err)
	}
}
