// Package assessment sequences one health-risk assessment: environment
// snapshot and reference lookups, deterministic scoring, narrative
// enrichment, financial planning, and the hand-off to the archive worker.
//
// Only validation and recovered internal faults are returned as errors.
// Enrichment and archiving failures degrade silently and are logged.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/carefund-backend/internal/email"
	"github.com/nyashahama/carefund-backend/internal/metrics"
	"github.com/nyashahama/carefund-backend/internal/narrative"
	"github.com/nyashahama/carefund-backend/internal/planning"
	"github.com/nyashahama/carefund-backend/internal/scoring"
	"github.com/nyashahama/carefund-backend/internal/store"
	"github.com/nyashahama/carefund-backend/internal/worker"
)

// Config holds behaviour switches fixed at startup.
type Config struct {
	// AutoPayEnabled reports whether premium payments can be set up.
	AutoPayEnabled bool
}

// Service is safe for concurrent use; requests share no mutable state.
type Service struct {
	ref      Reference
	env      EnvironmentSource
	narrator Narrator
	archive  worker.Enqueuer // nil disables archiving
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the orchestrator. archive may be nil.
func NewService(
	ref Reference,
	env EnvironmentSource,
	narrator Narrator,
	archive worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		ref:      ref,
		env:      env,
		narrator: narrator,
		archive:  archive,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides time.Now for report timestamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ─── RISK STAGE ───────────────────────────────────────────────────────────────

// AnalyzeRisk scores profile and enriches the result with a narrative and
// prevention steps. The two enrichments run concurrently.
func (s *Service) AnalyzeRisk(ctx context.Context, caller Caller, profile scoring.Profile) (RiskReport, error) {
	report, err := s.analyze(ctx, profile)
	if err != nil {
		s.count("risk", err)
		return RiskReport{}, err
	}
	s.count("risk", nil)
	s.logger.Info("assessment: risk analysed",
		"user_id", caller.UserID,
		"score", report.Score,
		"level", report.Level,
		"ai_degraded", report.Degraded,
	)
	return report, nil
}

func (s *Service) analyze(ctx context.Context, profile scoring.Profile) (RiskReport, error) {
	if err := ValidateProfile(profile); err != nil {
		return RiskReport{}, err
	}

	reading := s.env.Snapshot(ctx, profile.City)
	rc := narrative.RiskContext{
		Profile: profile,
		Environment: scoring.Environment{
			AQI:         reading.AQI,
			Temperature: reading.Temperature,
			Humidity:    reading.Humidity,
		},
		Occupation: s.ref.LookupOccupationHazard(profile.Occupation),
		City:       s.ref.LookupCityStats(profile.City),
		Statistics: s.ref.LookupStatisticalData(profile.City),
	}

	err := guard("scoring", func() {
		rc.Result = scoring.Score(scoring.Inputs{
			Profile:     rc.Profile,
			Environment: rc.Environment,
			Occupation:  rc.Occupation,
			City:        rc.City,
			Statistics:  rc.Statistics,
		})
	})
	if err != nil {
		return RiskReport{}, err
	}

	var (
		text  narrative.Text
		steps narrative.Steps
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text = s.narrator.RiskNarrative(gctx, rc)
		return nil
	})
	g.Go(func() error {
		steps = s.narrator.PreventionSteps(gctx, rc)
		return nil
	})
	_ = g.Wait()

	metrics.EnrichmentsTotal.WithLabelValues("risk", metrics.Outcome(text.Degraded)).Inc()
	metrics.EnrichmentsTotal.WithLabelValues("prevention", metrics.Outcome(steps.Degraded)).Inc()

	return RiskReport{
		Result:            rc.Result,
		RiskLevelInfo:     scoring.InfoFor(rc.Result.Score),
		EnvironmentalData: reading,
		StatisticalData:   rc.Statistics,
		OccupationHazard:  rc.Occupation,
		CityStats:         rc.City,
		PreventionSteps:   steps.Items,
		Analysis:          text.Value,
		AIEnabled:         s.narrator.Enabled(),
		Degraded:          text.Degraded || steps.Degraded,
		Timestamp:         s.now().UTC(),
	}, nil
}

// ─── FINANCE STAGE ────────────────────────────────────────────────────────────

// PlanFinances maps a risk result onto a plan and savings targets, then
// queues the assessment for archiving.
func (s *Service) PlanFinances(ctx context.Context, req FinanceRequest) (FinancialReport, error) {
	if err := validateFinance(req); err != nil {
		s.count("finance", err)
		return FinancialReport{}, err
	}

	report, err := s.plan(ctx, req.Profile, *req.Risk, req.MonthlyIncome)
	if err != nil {
		s.count("finance", err)
		return FinancialReport{}, err
	}

	riskDoc := req.RiskDocument
	if len(riskDoc) == 0 {
		riskDoc = mustJSON(req.Risk)
	}
	report.AssessmentID = s.enqueue(ctx, req.Caller, req.Profile, *req.Risk, riskDoc, report)

	s.count("finance", nil)
	s.logger.Info("assessment: finances planned",
		"user_id", req.Caller.UserID,
		"plan", report.Plan.Name,
		"premium", report.Plan.Premium,
		"tier_fallback", report.TierFallback,
	)
	return report, nil
}

func validateFinance(req FinanceRequest) error {
	if req.Risk == nil {
		return ErrMissingRisk
	}
	if req.Risk.Score < 0 || req.Risk.Score > 100 {
		return fmt.Errorf("%w: risk score %d is outside 0-100", ErrMissingRisk, req.Risk.Score)
	}
	return ValidateProfile(req.Profile)
}

func (s *Service) plan(ctx context.Context, profile scoring.Profile, risk scoring.Result, income *float64) (FinancialReport, error) {
	var result planning.Result
	err := guard("planning", func() {
		result = planning.Recommend(risk.Score, profile.Age, s.ref.InsuranceTiers())
	})
	if err != nil {
		return FinancialReport{}, err
	}
	if result.TierFallback {
		s.logger.Warn("assessment: no insurance tier covers score, using fallback tier",
			"score", risk.Score,
			"plan", result.Plan.Name,
		)
	}

	text := s.narrator.FinanceNarrative(ctx, narrative.FinanceContext{
		Profile: profile,
		Risk:    risk,
		Plan:    result.Plan,
	})
	metrics.EnrichmentsTotal.WithLabelValues("finance", metrics.Outcome(text.Degraded)).Inc()

	report := FinancialReport{
		Result:       result,
		Analysis:     text.Value,
		Degraded:     text.Degraded,
		AutoPaySetup: planning.AutoPayInfo(s.cfg.AutoPayEnabled),
		Timestamp:    s.now().UTC(),
	}

	if income != nil {
		a, err := planning.AssessAffordability(*income, result.Plan.Premium, result.MonthlySavings)
		if err != nil {
			// A bad income only drops the optional block.
			s.logger.Debug("assessment: affordability skipped", "error", err)
		} else {
			report.Affordability = &a
		}
	}
	return report, nil
}

// ─── FULL PIPELINE ────────────────────────────────────────────────────────────

// Assess runs both stages and archives a single combined record.
func (s *Service) Assess(ctx context.Context, caller Caller, profile scoring.Profile, income *float64) (FullReport, error) {
	risk, err := s.analyze(ctx, profile)
	if err != nil {
		s.count("full", err)
		return FullReport{}, err
	}

	fin, err := s.plan(ctx, profile, risk.Result, income)
	if err != nil {
		s.count("full", err)
		return FullReport{}, err
	}

	id := s.enqueue(ctx, caller, profile, risk.Result, mustJSON(risk), fin)
	fin.AssessmentID = id

	s.count("full", nil)
	s.logger.Info("assessment: completed",
		"user_id", caller.UserID,
		"score", risk.Score,
		"plan", fin.Plan.Name,
		"assessment_id", id,
	)
	return FullReport{Risk: risk, Financial: fin, AssessmentID: id}, nil
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// enqueue hands the record to the archive worker and returns its id, or ""
// when archiving is disabled or the queue rejected it. riskDoc is stored
// verbatim; the summary email is built from risk.
func (s *Service) enqueue(ctx context.Context, caller Caller, profile scoring.Profile, risk scoring.Result, riskDoc json.RawMessage, fin FinancialReport) string {
	if s.archive == nil || caller.UserID == "" {
		return ""
	}

	now := s.now().UTC()
	task := worker.Task{
		Record: store.Record{
			ID:        uuid.NewString(),
			UserID:    caller.UserID,
			Profile:   mustJSON(profile),
			Risk:      riskDoc,
			Financial: mustJSON(fin),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if caller.Email != "" {
		task.Notify = email.AssessmentReadyParams{
			To:             caller.Email,
			RiskScore:      risk.Score,
			RiskLevel:      string(risk.Level),
			PlanName:       fin.Plan.Name,
			MonthlyPremium: planning.Rupees(fin.Plan.Premium),
			MonthlySavings: planning.Rupees(fin.MonthlySavings),
		}
	}

	if err := s.archive.Enqueue(ctx, task); err != nil {
		s.logger.Warn("assessment: archive skipped", "user_id", caller.UserID, "error", err)
		return ""
	}
	return task.Record.ID
}

func (s *Service) count(stage string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrInternal):
		outcome = "failed"
	default:
		outcome = "invalid"
	}
	metrics.AssessmentsTotal.WithLabelValues(stage, outcome).Inc()
}

// guard converts a panic inside fn into ErrInternal.
func guard(stage string, fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInternal, stage, p)
		}
	}()
	fn()
	return nil
}

// mustJSON marshals values that are plain data and cannot fail to encode.
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("assessment: marshal %T: %v", v, err))
	}
	return b
}
