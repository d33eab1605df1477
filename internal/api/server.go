// Package api implements the HTTP layer for CareFund. Handlers are methods on
// *Server. Each handler file is responsible for one resource group and only
// imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nyashahama/carefund-backend/internal/assessment"
	"github.com/nyashahama/carefund-backend/internal/auth"
	"github.com/nyashahama/carefund-backend/internal/environment"
	"github.com/nyashahama/carefund-backend/internal/scoring"
	"github.com/nyashahama/carefund-backend/internal/store"
	stripeinternal "github.com/nyashahama/carefund-backend/internal/stripe"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// CORSOrigin pins Access-Control-Allow-Origin. Empty falls back to the
	// per-environment default in corsMiddleware.
	CORSOrigin string
}

// ─── DEPENDENCY INTERFACES ────────────────────────────────────────────────────

// Assessor is implemented by *assessment.Service.
type Assessor interface {
	AnalyzeRisk(ctx context.Context, caller assessment.Caller, profile scoring.Profile) (assessment.RiskReport, error)
	PlanFinances(ctx context.Context, req assessment.FinanceRequest) (assessment.FinancialReport, error)
	Assess(ctx context.Context, caller assessment.Caller, profile scoring.Profile, income *float64) (assessment.FullReport, error)
}

// History is the read side of *store.Store.
type History interface {
	Get(ctx context.Context, id string) (store.Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]store.Record, error)
	Ping(ctx context.Context) error
}

// Catalog lists the supported reference values.
type Catalog interface {
	Cities() []string
	Occupations() []string
}

// EnvironmentLookup is implemented by *environment.Service.
type EnvironmentLookup interface {
	Lookup(ctx context.Context, city string) (environment.Reading, error)
}

// Deps groups the collaborators NewServer wires into the router. Stripe may
// be nil, in which case auto-pay setup answers 503.
type Deps struct {
	Assessor    Assessor
	History     History
	Catalog     Catalog
	Environment EnvironmentLookup
	Stripe      stripeinternal.Client
	Verifier    auth.Verifier
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	assessor Assessor
	history  History
	catalog  Catalog
	env      EnvironmentLookup

	// stripe creates PaymentIntents for premium auto-pay; nil when unconfigured.
	stripe stripeinternal.Client

	verifier auth.Verifier

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	s := &Server{
		assessor: deps.Assessor,
		history:  deps.History,
		catalog:  deps.Catalog,
		env:      deps.Environment,
		stripe:   deps.Stripe,
		verifier: deps.Verifier,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health + metrics ──────────────────────────────────────────────────────
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Reference data, no auth.
		r.Get("/reference/cities", s.handleListCities)
		r.Get("/reference/occupations", s.handleListOccupations)
		r.Get("/environment", s.handleGetEnvironment)

		// Everything below needs a verified bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/agents/risk-analysis", s.handleRiskAnalysis)
			r.Post("/agents/financial-plan", s.handleFinancialPlan)

			r.Post("/assessments", s.handleCreateAssessment)
			r.Get("/assessments", s.handleListAssessments)
			r.Get("/assessments/{assessmentID}", s.handleGetAssessment)

			r.Post("/autopay/setup", s.handleAutoPaySetup)
		})
	})

	return r
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.history.Ping(ctx); err != nil {
		s.logger.Warn("healthz: database unreachable", "error", err, logField(r))
		respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
