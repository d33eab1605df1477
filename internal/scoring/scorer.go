package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nyashahama/carefund-backend/internal/refdata"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Level is the four-bucket risk classification. Values match the occupation
// hazard scale so a hazard level converts directly.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Shift is the normalised work schedule.
type Shift string

const (
	ShiftDay      Shift = "Day"
	ShiftNight    Shift = "Night"
	ShiftRotating Shift = "Rotating"
)

// ParseShift accepts "Night", "Night Shift", "rotating shift" and similar.
// Anything unrecognised is treated as a day shift.
func ParseShift(s string) Shift {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimSuffix(s, "shift"))
	switch s {
	case "night":
		return ShiftNight
	case "rotating":
		return ShiftRotating
	default:
		return ShiftDay
	}
}

// Profile is the caller-supplied description of the person being assessed.
// HealthCondition, Addictions and PastSurgery use "None" (or empty) to mean
// absent.
type Profile struct {
	Age             int    `json:"age"`
	Occupation      string `json:"occupation"`
	City            string `json:"city"`
	Area            string `json:"area"`
	WorkShift       string `json:"workShift"`
	HealthCondition string `json:"healthCondition"`
	Addictions      string `json:"addictions"`
	PastSurgery     string `json:"pastSurgery"`
}

// Environment is the environmental snapshot the score consumes.
type Environment struct {
	AQI         int     `json:"aqi"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Inputs bundles everything Score reads.
type Inputs struct {
	Profile     Profile
	Environment Environment
	Occupation  refdata.OccupationHazard
	City        refdata.CityStats
	Statistics  refdata.StatisticalData
}

// RiskFactor is one contributor surfaced to the user. Impact is not
// necessarily integral (occupation impact is riskScore/5).
type RiskFactor struct {
	Category    string  `json:"category"`
	Level       Level   `json:"level"`
	Description string  `json:"description"`
	Impact      float64 `json:"impact"`
}

// Result is the deterministic outcome of one assessment.
type Result struct {
	Score   int          `json:"riskScore"`
	Level   Level        `json:"riskLevel"`
	Factors []RiskFactor `json:"riskFactors"`
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Score computes the risk score, level and ranked factors for in. It never
// fails: absent or sentinel fields simply contribute nothing.
func Score(in Inputs) Result {
	score := TotalScore(in)
	return Result{
		Score:   score,
		Level:   LevelFor(score),
		Factors: Factors(in),
	}
}

// TotalScore is the additive weighted sum, rounded and clamped to [0, 100].
func TotalScore(in Inputs) int {
	p := in.Profile

	sum := float64(baseRisk)
	sum += float64(ageLadder.eval(float64(p.Age)))
	sum += float64(aqiLadder.eval(float64(in.Environment.AQI)))
	sum += math.Round(float64(in.Occupation.RiskScore) / occupationScale)

	if present(p.HealthCondition) {
		sum += conditionWeight
	}
	if present(p.Addictions) {
		sum += addictionWeight
	}
	if present(p.PastSurgery) {
		sum += surgeryWeight
	}

	switch ParseShift(p.WorkShift) {
	case ShiftNight:
		sum += nightShiftRisk
	case ShiftRotating:
		sum += rotatingShift
	}

	sum += float64(min(CrimeStressImpact(in.City.CrimeRate), crimeStressCap))

	return clamp(int(math.Round(sum)))
}

// LevelFor maps a score onto its level. Boundaries 40, 60 and 80 belong to
// the upper level.
func LevelFor(score int) Level {
	return levelLadder.eval(float64(score))
}

// CrimeStressImpact tiers a crime rate (per 100k) into its stress impact.
func CrimeStressImpact(crimeRate float64) int {
	return crimeStressLadder.eval(crimeRate)
}

// Factors derives the user-facing risk factors, sorted by impact descending.
// Ties keep emission order. The thresholds here are independent of the score
// bands and deliberately differ from them.
func Factors(in Inputs) []RiskFactor {
	p := in.Profile
	factors := make([]RiskFactor, 0, 8)

	aqi := in.Environment.AQI
	switch {
	case aqi > 200:
		factors = append(factors, RiskFactor{
			Category:    "Air Quality",
			Level:       LevelCritical,
			Description: fmt.Sprintf("AQI of %d poses significant respiratory health risks", aqi),
			Impact:      25,
		})
	case aqi > 150:
		factors = append(factors, RiskFactor{
			Category:    "Air Quality",
			Level:       LevelHigh,
			Description: fmt.Sprintf("AQI of %d poses significant respiratory health risks", aqi),
			Impact:      20,
		})
	case aqi > 100:
		factors = append(factors, RiskFactor{
			Category:    "Air Quality",
			Level:       LevelMedium,
			Description: fmt.Sprintf("AQI of %d may affect sensitive individuals", aqi),
			Impact:      15,
		})
	}

	occ := in.Occupation
	if occ.HazardLevel == refdata.HazardHigh || occ.HazardLevel == refdata.HazardCritical {
		factors = append(factors, RiskFactor{
			Category: "Occupational Hazard",
			Level:    Level(occ.HazardLevel),
			Description: fmt.Sprintf("%s has %s risk level with death rate of %s per 100,000 workers",
				p.Occupation, occ.HazardLevel, formatNumber(occ.DeathRate)),
			Impact: float64(occ.RiskScore) / occupationScale,
		})
	}

	if p.Age > 50 {
		f := RiskFactor{
			Category:    "Age Factor",
			Level:       LevelMedium,
			Description: fmt.Sprintf("Age %d increases susceptibility to health conditions", p.Age),
			Impact:      15,
		}
		if p.Age > 60 {
			f.Level, f.Impact = LevelHigh, 20
		}
		factors = append(factors, f)
	}

	if present(p.HealthCondition) {
		factors = append(factors, RiskFactor{
			Category:    "Pre-existing Condition",
			Level:       LevelHigh,
			Description: "Existing health condition: " + strings.TrimSpace(p.HealthCondition),
			Impact:      15,
		})
	}

	if present(p.Addictions) {
		factors = append(factors, RiskFactor{
			Category:    "Lifestyle Risk",
			Level:       LevelMedium,
			Description: fmt.Sprintf("Addiction to %s increases health risks", strings.TrimSpace(p.Addictions)),
			Impact:      10,
		})
	}

	// Rotating shifts add to the score but are not surfaced as a factor.
	if ParseShift(p.WorkShift) == ShiftNight {
		factors = append(factors, RiskFactor{
			Category:    "Work Schedule",
			Level:       LevelMedium,
			Description: "Night shift work disrupts circadian rhythm and increases health risks",
			Impact:      5,
		})
	}

	if rate := in.City.CrimeRate; rate > 500 {
		f := RiskFactor{
			Category:    "Environmental Stress",
			Level:       LevelMedium,
			Description: fmt.Sprintf("High crime rate (%s per 100k) contributes to chronic stress", formatNumber(rate)),
			Impact:      float64(CrimeStressImpact(rate)),
		}
		if rate > 1000 {
			f.Level = LevelHigh
		}
		factors = append(factors, f)
	}

	if idx := in.Statistics.CityHealthIndex; idx < 60 {
		f := RiskFactor{
			Category:    "City Health Infrastructure",
			Level:       LevelMedium,
			Description: fmt.Sprintf("City health index of %d/100 indicates limited healthcare access", idx),
			Impact:      10,
		}
		if idx < 40 {
			f.Level = LevelHigh
		}
		factors = append(factors, f)
	}

	sort.SliceStable(factors, func(a, b int) bool {
		return factors[a].Impact > factors[b].Impact
	})

	return factors
}

// ─── DISPLAY ──────────────────────────────────────────────────────────────────

// LevelInfo is the presentation metadata for a risk level.
type LevelInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Background  string `json:"bgColor"`
}

var levelInfo = map[Level]LevelInfo{
	LevelLow: {
		Label:       "Low Risk",
		Description: "Your health risk profile is favorable. Continue maintaining healthy habits.",
		Color:       "text-green-600",
		Background:  "bg-green-100",
	},
	LevelMedium: {
		Label:       "Medium Risk",
		Description: "Some risk factors identified. Follow prevention steps to reduce risks.",
		Color:       "text-yellow-600",
		Background:  "bg-yellow-100",
	},
	LevelHigh: {
		Label:       "High Risk",
		Description: "Multiple risk factors present. Immediate preventive action recommended.",
		Color:       "text-orange-600",
		Background:  "bg-orange-100",
	},
	LevelCritical: {
		Label:       "Critical Risk",
		Description: "Significant health risks identified. Urgent medical consultation advised.",
		Color:       "text-red-600",
		Background:  "bg-red-100",
	},
}

// InfoFor returns display metadata for the level a score maps to.
func InfoFor(score int) LevelInfo {
	return levelInfo[LevelFor(score)]
}

// ─── HELPERS ──────────────────────────────────────────────────────────────────

// present reports whether a free-text profile field carries a real value.
func present(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, "none")
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

// formatNumber prints 18.5 as "18.5" and 5.0 as "5".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
