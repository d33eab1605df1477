// Package planning turns a risk score into an insurance and savings plan.
//
// Everything here is a pure function of its arguments. Money values are whole
// rupees; every rounding point is explicit because the reference pricing
// depends on where rounding happens.
package planning

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nyashahama/carefund-backend/internal/refdata"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Selection is an insurance tier priced for one person.
type Selection struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Coverage      int      `json:"coverage"`
	Premium       int      `json:"premium"`
	Features      []string `json:"features"`
	Advantages    []string `json:"advantages"`
	Disadvantages []string `json:"disadvantages"`
	Recommended   bool     `json:"recommended"`
}

// Priority orders recommendations for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is one actionable line of the financial plan. Amount is zero
// for advisory entries that carry no figure.
type Recommendation struct {
	Category   string   `json:"category"`
	Suggestion string   `json:"suggestion"`
	Amount     int      `json:"amount,omitempty"`
	Priority   Priority `json:"priority"`
}

// Result is the deterministic financial plan.
type Result struct {
	Plan               Selection        `json:"insurancePlan"`
	Alternatives       []Selection      `json:"alternativePlans"`
	MonthlySavings     int              `json:"monthlySavings"`
	EmergencyFund      int              `json:"emergencyFund"`
	YearlyHealthBudget int              `json:"yearlyHealthBudget"`
	Recommendations    []Recommendation `json:"financialRecommendations"`

	// TierFallback is set when no tier's range contained the score and the
	// second tier was used instead.
	TierFallback bool `json:"-"`
}

// fallbackTier is the table index used when no risk range matches.
const fallbackTier = 1

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Recommend selects and prices an insurance tier, prices the alternatives,
// and derives savings targets and the recommendation list.
//
// tiers must be non-empty and ordered by risk range; refdata guarantees this.
// An empty table is a programming error and panics.
func Recommend(riskScore, age int, tiers []refdata.InsuranceTier) Result {
	if len(tiers) == 0 {
		panic("planning: no insurance tiers configured")
	}

	idx, fallback := SelectTier(riskScore, tiers)
	tier := tiers[idx]

	plan := price(tier, riskScore, age)
	plan.Coverage = Coverage(tier, riskScore)
	plan.Recommended = true

	alternatives := make([]Selection, 0, len(tiers)-1)
	for _, t := range tiers {
		if t.Name == tier.Name {
			continue
		}
		alt := price(t, riskScore, age)
		alt.Coverage = t.MinCoverage
		alternatives = append(alternatives, alt)
	}

	savings := MonthlySavings(riskScore, plan.Premium, age)
	months := emergencyMonths(riskScore)
	fund := savings * months
	yearly := plan.Premium*12 + savings*12

	return Result{
		Plan:               plan,
		Alternatives:       alternatives,
		MonthlySavings:     savings,
		EmergencyFund:      fund,
		YearlyHealthBudget: yearly,
		Recommendations:    recommendations(plan, savings, fund, months, yearly, riskScore, age),
		TierFallback:       fallback,
	}
}

// SelectTier returns the index of the first tier whose range contains
// riskScore. When none does it returns the second tier (or the only one) and
// reports the fallback.
func SelectTier(riskScore int, tiers []refdata.InsuranceTier) (idx int, fallback bool) {
	for i, t := range tiers {
		if t.RiskRange.Contains(riskScore) {
			return i, false
		}
	}
	return min(fallbackTier, len(tiers)-1), true
}

// Coverage interpolates the sum insured within the tier's bounds.
func Coverage(t refdata.InsuranceTier, riskScore int) int {
	switch {
	case riskScore > 70:
		return t.MaxCoverage
	case riskScore > 50:
		return int(math.Round(float64(t.MinCoverage+t.MaxCoverage) / 2))
	default:
		return t.MinCoverage
	}
}

// Premium adjusts a base premium for age, rounds, then adjusts for risk and
// rounds again.
func Premium(basePremium, age, riskScore int) int {
	p := float64(basePremium)
	switch {
	case age > 50:
		p = math.Round(p * 1.5)
	case age > 35:
		p = math.Round(p * 1.2)
	}
	return int(math.Round(p * (1 + float64(riskScore)/100)))
}

// MonthlySavings is 2000 scaled by riskScore/50 and an age loading, floored
// at 30% of the premium.
func MonthlySavings(riskScore, premium, age int) int {
	base := math.Round(2000 * (float64(riskScore) / 50))
	switch {
	case age > 45:
		base = math.Round(base * 1.3)
	case age > 35:
		base = math.Round(base * 1.15)
	}
	floor := math.Round(float64(premium) * 0.3)
	return int(max(base, floor))
}

// EmergencyFund is monthlySavings times 12, 9 or 6 months by risk.
func EmergencyFund(monthlySavings, riskScore int) int {
	return monthlySavings * emergencyMonths(riskScore)
}

func emergencyMonths(riskScore int) int {
	switch {
	case riskScore > 70:
		return 12
	case riskScore > 50:
		return 9
	default:
		return 6
	}
}

func price(t refdata.InsuranceTier, riskScore, age int) Selection {
	return Selection{
		Name:          t.Name,
		Type:          t.Type,
		Coverage:      t.MinCoverage,
		Premium:       Premium(t.BasePremium, age, riskScore),
		Features:      t.Features,
		Advantages:    t.Advantages,
		Disadvantages: t.Disadvantages,
	}
}

// ─── RECOMMENDATIONS ──────────────────────────────────────────────────────────

var amountPrinter = message.NewPrinter(language.English)

// Rupees formats n with thousands separators and the rupee sign.
func Rupees(n int) string {
	return amountPrinter.Sprintf("₹%d", n)
}

func recommendations(plan Selection, savings, fund, months, yearly, riskScore, age int) []Recommendation {
	recs := []Recommendation{
		{
			Category:   "Insurance Premium",
			Suggestion: "Pay " + Rupees(plan.Premium) + " monthly for " + plan.Name,
			Amount:     plan.Premium,
			Priority:   PriorityHigh,
		},
		{
			Category:   "Emergency Savings",
			Suggestion: "Save " + Rupees(savings) + " monthly to build emergency health fund",
			Amount:     savings,
			Priority:   PriorityHigh,
		},
		{
			Category:   "Emergency Fund Target",
			Suggestion: amountPrinter.Sprintf("Build emergency fund of ₹%d over %d months", fund, months),
			Amount:     fund,
			Priority:   PriorityMedium,
		},
		{
			Category:   "Annual Health Budget",
			Suggestion: "Allocate " + Rupees(yearly) + " annually for health expenses",
			Amount:     yearly,
			Priority:   PriorityMedium,
		},
		{
			Category:   "Tax Benefits",
			Suggestion: "Claim tax deduction under Section 80D for health insurance premium",
			Priority:   PriorityLow,
		},
	}

	if riskScore > 70 {
		recs = append(recs, Recommendation{
			Category:   "Critical Illness Cover",
			Suggestion: "Consider additional critical illness rider for comprehensive protection",
			Priority:   PriorityLow,
		})
	}
	if age > 45 {
		recs = append(recs, Recommendation{
			Category:   "Senior Care",
			Suggestion: "Plan for increased healthcare costs in retirement years",
			Priority:   PriorityLow,
		})
	}

	return recs
}

// ─── AUTO-PAY ─────────────────────────────────────────────────────────────────

// AutoPay tells the client whether automatic premium payments can be set up.
type AutoPay struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// AutoPayInfo describes auto-pay availability given whether a payment
// provider is configured.
func AutoPayInfo(enabled bool) AutoPay {
	if !enabled {
		return AutoPay{
			Available: false,
			Message:   "Auto-pay feature coming soon! You'll be able to set up automatic deductions from your bank account for insurance premiums and savings.",
		}
	}
	return AutoPay{
		Available: true,
		Message:   "Auto-pay is available. Set up automatic monthly payments for your insurance premium.",
	}
}
