package planning

import (
	"errors"
	"math"
)

// ErrInvalidIncome is returned when monthly income is zero or negative.
var ErrInvalidIncome = errors.New("planning: monthly income must be positive")

// Strain is the financial strain tier of a plan relative to income.
type Strain string

const (
	StrainLow      Strain = "low"
	StrainModerate Strain = "moderate"
	StrainHigh     Strain = "high"
	StrainCritical Strain = "critical"
)

// Affordability relates the monthly commitment (premium + savings) to income.
type Affordability struct {
	IsAffordable     bool    `json:"isAffordable"`
	Score            int     `json:"affordabilityScore"`
	IncomePercentage float64 `json:"monthlyIncomePercentage"`
	Recommendation   string  `json:"recommendation"`
	Strain           Strain  `json:"financialStrain"`
}

type affordabilityBand struct {
	upTo       float64 // inclusive upper bound on income percentage
	score      int
	strain     Strain
	affordable bool
	text       string
}

var affordabilityBands = []affordabilityBand{
	{10, 100, StrainLow, true, "Excellent affordability. You can comfortably manage this plan with room for additional savings."},
	{15, 85, StrainLow, true, "Good affordability. This plan fits well within your budget with minimal financial strain."},
	{20, 70, StrainModerate, true, "Moderate affordability. This plan is manageable but will require careful budgeting."},
	{25, 50, StrainModerate, true, "Stretching your budget. Consider a lower-tier plan or reduce savings amount temporarily."},
	{30, 30, StrainHigh, false, "High financial strain. Strongly recommend considering a more affordable plan option."},
	{math.Inf(1), 10, StrainCritical, false, "Not affordable. This plan exceeds recommended spending limits. Please choose a lower-tier plan."},
}

// AssessAffordability bands (premium+savings)/income. Banding uses the exact
// percentage; the reported percentage is rounded to one decimal place.
func AssessAffordability(monthlyIncome float64, premium, monthlySavings int) (Affordability, error) {
	if monthlyIncome <= 0 || math.IsNaN(monthlyIncome) || math.IsInf(monthlyIncome, 0) {
		return Affordability{}, ErrInvalidIncome
	}

	pct := float64(premium+monthlySavings) / monthlyIncome * 100

	b := affordabilityBands[len(affordabilityBands)-1]
	for _, candidate := range affordabilityBands {
		if pct <= candidate.upTo {
			b = candidate
			break
		}
	}

	return Affordability{
		IsAffordable:     b.affordable,
		Score:            b.score,
		IncomePercentage: math.Round(pct*10) / 10,
		Recommendation:   b.text,
		Strain:           b.strain,
	}, nil
}
