// Package narrative decorates deterministic risk and financial results with
// model-written prose. Every call is best-effort: when generation is disabled,
// fails, or returns nothing usable, a fixed fallback is returned instead and
// the result is marked Degraded. No method returns an error.
package narrative

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nyashahama/carefund-backend/internal/ai"
	"github.com/nyashahama/carefund-backend/internal/planning"
	"github.com/nyashahama/carefund-backend/internal/refdata"
	"github.com/nyashahama/carefund-backend/internal/scoring"
)

// ─── FALLBACKS ────────────────────────────────────────────────────────────────

const (
	// RiskDisabled is used when no generator is configured.
	RiskDisabled = "Risk analysis based on statistical data and expert guidelines."
	// RiskUnavailable is used when a configured generator fails.
	RiskUnavailable = "AI analysis temporarily unavailable. Risk assessment based on statistical data and expert guidelines."

	FinanceDisabled    = "Financial recommendations based on standard planning guidelines and risk assessment."
	FinanceUnavailable = "AI financial analysis temporarily unavailable. Recommendations based on standard financial planning guidelines."
)

var fallbackSteps = []string{
	"Schedule regular health check-ups every 6 months",
	"Maintain a balanced diet rich in fruits and vegetables",
	"Exercise for at least 30 minutes daily",
	"Get adequate sleep (7-8 hours per night)",
	"Practice stress management techniques",
	"Follow workplace safety guidelines",
	"Stay hydrated and avoid excessive caffeine",
}

// FallbackSteps returns the generic prevention list used whenever generated
// steps are unavailable.
func FallbackSteps() []string {
	out := make([]string, len(fallbackSteps))
	copy(out, fallbackSteps)
	return out
}

const (
	maxSteps         = 7
	defaultFrequency = "Daily"
	defaultCategory  = "Prevention"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Config is fixed at construction. Enabled=false short-circuits every call
// without touching the generator.
type Config struct {
	Enabled bool
	// Timeout bounds each generation call. Zero means the caller's context
	// is the only bound.
	Timeout time.Duration
}

// Text is a generated or fallback narrative.
type Text struct {
	Value    string
	Degraded bool
}

// PreventionStep is one displayable prevention action.
type PreventionStep struct {
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Category    string `json:"category"`
}

// Steps is a generated or fallback prevention list.
type Steps struct {
	Items    []PreventionStep
	Degraded bool
}

// RiskContext is what the risk narrative and prevention prompts describe.
type RiskContext struct {
	Profile     scoring.Profile
	Environment scoring.Environment
	Occupation  refdata.OccupationHazard
	City        refdata.CityStats
	Statistics  refdata.StatisticalData
	Result      scoring.Result
}

// FinanceContext is what the financial narrative prompt describes.
type FinanceContext struct {
	Profile scoring.Profile
	Risk    scoring.Result
	Plan    planning.Selection
}

// ─── ADAPTER ──────────────────────────────────────────────────────────────────

// Adapter is safe for concurrent use.
type Adapter struct {
	cfg    Config
	gen    ai.Generator
	logger *slog.Logger
}

// New returns an Adapter. A nil generator forces the adapter into the
// disabled state regardless of cfg.Enabled.
func New(cfg Config, gen ai.Generator, logger *slog.Logger) *Adapter {
	if gen == nil {
		cfg.Enabled = false
	}
	return &Adapter{cfg: cfg, gen: gen, logger: logger}
}

// Enabled reports whether generation is attempted at all.
func (a *Adapter) Enabled() bool { return a.cfg.Enabled }

// RiskNarrative explains the risk assessment in prose.
func (a *Adapter) RiskNarrative(ctx context.Context, rc RiskContext) Text {
	if !a.cfg.Enabled {
		return Text{Value: RiskDisabled, Degraded: true}
	}
	text, err := a.generate(ctx, ai.Request{System: riskSystem, Prompt: riskPrompt(rc)})
	if err != nil {
		a.logger.Warn("narrative: risk analysis failed, using fallback", "error", err)
		return Text{Value: RiskUnavailable, Degraded: true}
	}
	return Text{Value: text}
}

// FinanceNarrative explains the financial plan in prose.
func (a *Adapter) FinanceNarrative(ctx context.Context, fc FinanceContext) Text {
	if !a.cfg.Enabled {
		return Text{Value: FinanceDisabled, Degraded: true}
	}
	text, err := a.generate(ctx, ai.Request{System: financeSystem, Prompt: financePrompt(fc)})
	if err != nil {
		a.logger.Warn("narrative: financial analysis failed, using fallback", "error", err)
		return Text{Value: FinanceUnavailable, Degraded: true}
	}
	return Text{Value: text}
}

// PreventionSteps asks for a numbered list of prevention actions and attaches
// display metadata to each.
func (a *Adapter) PreventionSteps(ctx context.Context, rc RiskContext) Steps {
	if !a.cfg.Enabled {
		return Steps{Items: Decorate(fallbackSteps), Degraded: true}
	}
	text, err := a.generate(ctx, ai.Request{Prompt: preventionPrompt(rc), MaxTokens: 1024})
	if err != nil {
		a.logger.Warn("narrative: prevention steps failed, using fallback", "error", err)
		return Steps{Items: Decorate(fallbackSteps), Degraded: true}
	}
	items := ParseNumberedList(text)
	if len(items) == 0 {
		a.logger.Warn("narrative: prevention steps unparseable, using fallback", "response_bytes", len(text))
		return Steps{Items: Decorate(fallbackSteps), Degraded: true}
	}
	return Steps{Items: Decorate(items)}
}

func (a *Adapter) generate(ctx context.Context, req ai.Request) (string, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	text, err := a.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyResponse
	}
	return strings.TrimSpace(text), nil
}

// ─── LIST HANDLING ────────────────────────────────────────────────────────────

var numberedLine = regexp.MustCompile(`^\d+\.\s*`)

// ParseNumberedList keeps lines that start with "N." and strips the number.
// At most seven items are returned.
func ParseNumberedList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !numberedLine.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(numberedLine.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxSteps {
			break
		}
	}
	return out
}

// Decorate attaches priority, frequency and category metadata by list position: the
// first two are high priority, the next two medium, the rest low.
func Decorate(items []string) []PreventionStep {
	out := make([]PreventionStep, len(items))
	for i, item := range items {
		out[i] = PreventionStep{
			Priority:    priorityAt(i),
			Action:      item,
			Description: item,
			Frequency:   defaultFrequency,
			Category:    defaultCategory,
		}
	}
	return out
}

func priorityAt(i int) string {
	switch {
	case i < 2:
		return string(planning.PriorityHigh)
	case i < 4:
		return string(planning.PriorityMedium)
	default:
		return string(planning.PriorityLow)
	}
}
