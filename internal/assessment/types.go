package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyashahama/carefund-backend/internal/environment"
	"github.com/nyashahama/carefund-backend/internal/narrative"
	"github.com/nyashahama/carefund-backend/internal/planning"
	"github.com/nyashahama/carefund-backend/internal/refdata"
	"github.com/nyashahama/carefund-backend/internal/scoring"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrInvalidProfile wraps the joined field errors of a rejected profile.
	ErrInvalidProfile = errors.New("assessment: invalid profile")
	// ErrMissingRisk is returned by PlanFinances without a usable risk score.
	ErrMissingRisk = errors.New("assessment: risk result is required")
	// ErrInternal wraps a fault recovered from the scoring or planning stage.
	ErrInternal = errors.New("assessment: internal error")
)

const maxAge = 120

// ValidateProfile rejects profiles the scorer cannot meaningfully use. Free
// text fields (condition, addictions, surgery) may be empty.
func ValidateProfile(p scoring.Profile) error {
	var errs []error
	if p.Age <= 0 || p.Age > maxAge {
		errs = append(errs, fmt.Errorf("age must be between 1 and %d, got %d", maxAge, p.Age))
	}
	if strings.TrimSpace(p.Occupation) == "" {
		errs = append(errs, errors.New("occupation is required"))
	}
	if strings.TrimSpace(p.City) == "" {
		errs = append(errs, errors.New("city is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, errors.Join(errs...))
	}
	return nil
}

// ─── DEPENDENCIES ────────────────────────────────────────────────────────────

// Reference is the slice of *refdata.Provider the service reads.
type Reference interface {
	LookupCityStats(city string) refdata.CityStats
	LookupOccupationHazard(occupation string) refdata.OccupationHazard
	LookupStatisticalData(city string) refdata.StatisticalData
	InsuranceTiers() []refdata.InsuranceTier
}

// EnvironmentSource never fails; unknown cities get default estimates.
type EnvironmentSource interface {
	Snapshot(ctx context.Context, city string) environment.Reading
}

// Narrator is implemented by *narrative.Adapter.
type Narrator interface {
	Enabled() bool
	RiskNarrative(ctx context.Context, rc narrative.RiskContext) narrative.Text
	FinanceNarrative(ctx context.Context, fc narrative.FinanceContext) narrative.Text
	PreventionSteps(ctx context.Context, rc narrative.RiskContext) narrative.Steps
}

// ─── REQUESTS ────────────────────────────────────────────────────────────────

// Caller identifies who the assessment belongs to.
type Caller struct {
	UserID string
	Email  string
}

// FinanceRequest is the input to PlanFinances.
type FinanceRequest struct {
	Caller  Caller
	Profile scoring.Profile
	// Risk is nil when the client sent no risk result.
	Risk *scoring.Result
	// RiskDocument is archived verbatim when set; otherwise Risk is.
	RiskDocument  json.RawMessage
	MonthlyIncome *float64
}

// ─── REPORTS ─────────────────────────────────────────────────────────────────

// RiskReport is the risk stage's response.
type RiskReport struct {
	scoring.Result
	RiskLevelInfo     scoring.LevelInfo          `json:"riskLevelInfo"`
	EnvironmentalData environment.Reading        `json:"environmentalData"`
	StatisticalData   refdata.StatisticalData    `json:"statisticalData"`
	OccupationHazard  refdata.OccupationHazard   `json:"occupationHazard"`
	CityStats         refdata.CityStats          `json:"cityStats"`
	PreventionSteps   []narrative.PreventionStep `json:"preventionSteps"`
	Analysis          string                     `json:"aiAnalysis"`
	AIEnabled         bool                       `json:"aiEnabled"`
	Degraded          bool                       `json:"aiDegraded"`
	Timestamp         time.Time                  `json:"timestamp"`
}

// FinancialReport is the finance stage's response.
type FinancialReport struct {
	planning.Result
	Analysis      string                  `json:"aiAnalysis"`
	Degraded      bool                    `json:"aiDegraded"`
	AutoPaySetup  planning.AutoPay        `json:"autoPaySetup"`
	Affordability *planning.Affordability `json:"affordability,omitempty"`
	AssessmentID  string                  `json:"assessmentId,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// FullReport is the combined response of Assess.
type FullReport struct {
	Risk         RiskReport      `json:"riskAnalysis"`
	Financial    FinancialReport `json:"financialPlan"`
	AssessmentID string          `json:"assessmentId,omitempty"`
}
