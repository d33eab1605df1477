package planning_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/carefund-backend/internal/planning"
	"github.com/nyashahama/carefund-backend/internal/refdata"
)

func tiers() []refdata.InsuranceTier {
	return refdata.MustDefault().InsuranceTiers()
}

// ─── Tier selection & pricing ─────────────────────────────────────────────────

func TestSelectTier(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "Essential Health Cover"},
		{40, "Essential Health Cover"},
		{41, "Comprehensive Care Plus"},
		{70, "Comprehensive Care Plus"},
		{71, "Premium Health Shield"},
		{100, "Premium Health Shield"},
	}
	all := tiers()
	for _, tt := range tests {
		idx, fallback := planning.SelectTier(tt.score, all)
		assert.False(t, fallback, "score %d", tt.score)
		assert.Equal(t, tt.want, all[idx].Name, "score %d", tt.score)
	}
}

func TestSelectTier_FallsBackToSecondTier(t *testing.T) {
	gappy := []refdata.InsuranceTier{
		{Name: "A", RiskRange: refdata.RiskRange{Min: 0, Max: 10}},
		{Name: "B", RiskRange: refdata.RiskRange{Min: 11, Max: 20}},
		{Name: "C", RiskRange: refdata.RiskRange{Min: 50, Max: 100}},
	}
	idx, fallback := planning.SelectTier(30, gappy)
	assert.True(t, fallback)
	assert.Equal(t, 1, idx)

	idx, fallback = planning.SelectTier(30, gappy[:1])
	assert.True(t, fallback)
	assert.Equal(t, 0, idx, "single-tier table falls back to its only tier")
}

func TestCoverage(t *testing.T) {
	tier := refdata.InsuranceTier{MinCoverage: 500000, MaxCoverage: 1000000}

	assert.Equal(t, 1000000, planning.Coverage(tier, 71))
	assert.Equal(t, 750000, planning.Coverage(tier, 55))
	assert.Equal(t, 750000, planning.Coverage(tier, 70))
	assert.Equal(t, 500000, planning.Coverage(tier, 50))
	assert.Equal(t, 500000, planning.Coverage(tier, 30))

	odd := refdata.InsuranceTier{MinCoverage: 1, MaxCoverage: 2}
	assert.Equal(t, 2, planning.Coverage(odd, 60), "midpoint 1.5 rounds half up")
}

func TestPremium(t *testing.T) {
	tests := []struct {
		name            string
		base, age, risk int
		want            int
	}{
		{"young, zero risk", 3500, 30, 0, 3500},
		{"age 36, zero risk", 3500, 36, 0, 4200},
		{"age 35 is not loaded", 3500, 35, 0, 3500},
		{"age 51", 3500, 51, 0, 5250},
		{"age 50 uses the 1.2 band", 3500, 50, 0, 4200},
		{"risk only", 5500, 30, 50, 8250},
		{"both rounding points", 8500, 45, 92, 19584},
		{"full risk doubles", 3500, 20, 100, 7000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planning.Premium(tt.base, tt.age, tt.risk))
		})
	}
}

// ─── Savings ──────────────────────────────────────────────────────────────────

func TestMonthlySavings(t *testing.T) {
	tests := []struct {
		name               string
		risk, premium, age int
		want               int
	}{
		{"floor dominates", 20, 10000, 25, 3000},
		{"base at risk 50", 50, 1000, 30, 2000},
		{"age over 35 loading", 50, 1000, 36, 2300},
		{"age over 45 loading", 50, 1000, 46, 2600},
		{"zero risk takes the floor", 0, 3500, 25, 1050},
		{"rounded base then loading", 92, 19584, 45, 5875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planning.MonthlySavings(tt.risk, tt.premium, tt.age))
		})
	}
}

func TestEmergencyFund(t *testing.T) {
	assert.Equal(t, 12000, planning.EmergencyFund(1000, 71))
	assert.Equal(t, 9000, planning.EmergencyFund(1000, 70))
	assert.Equal(t, 9000, planning.EmergencyFund(1000, 51))
	assert.Equal(t, 6000, planning.EmergencyFund(1000, 50))
}

// ─── Recommend ────────────────────────────────────────────────────────────────

func TestRecommend_HighRisk(t *testing.T) {
	res := planning.Recommend(92, 45, tiers())

	assert.False(t, res.TierFallback)
	assert.Equal(t, "Premium Health Shield", res.Plan.Name)
	assert.True(t, res.Plan.Recommended)
	assert.Equal(t, 2000000, res.Plan.Coverage)
	assert.Equal(t, 19584, res.Plan.Premium)
	assert.Equal(t, 5875, res.MonthlySavings)
	assert.Equal(t, 70500, res.EmergencyFund)
	assert.Equal(t, 305508, res.YearlyHealthBudget)

	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, planning.Selection{
		Name:          "Essential Health Cover",
		Type:          "Basic",
		Coverage:      300000,
		Premium:       8064,
		Features:      tiers()[0].Features,
		Advantages:    tiers()[0].Advantages,
		Disadvantages: tiers()[0].Disadvantages,
		Recommended:   false,
	}, res.Alternatives[0])
	assert.Equal(t, "Comprehensive Care Plus", res.Alternatives[1].Name)
	assert.Equal(t, 500000, res.Alternatives[1].Coverage)
	assert.Equal(t, 12672, res.Alternatives[1].Premium)
}

func TestRecommend_RecommendationOrder(t *testing.T) {
	categories := func(recs []planning.Recommendation) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Category
		}
		return out
	}
	base := []string{"Insurance Premium", "Emergency Savings", "Emergency Fund Target", "Annual Health Budget", "Tax Benefits"}

	assert.Equal(t, base, categories(planning.Recommend(30, 30, tiers()).Recommendations))
	assert.Equal(t, append(base, "Critical Illness Cover"), categories(planning.Recommend(80, 45, tiers()).Recommendations))
	assert.Equal(t, append(base, "Senior Care"), categories(planning.Recommend(60, 46, tiers()).Recommendations))
	assert.Equal(t, append(base, "Critical Illness Cover", "Senior Care"), categories(planning.Recommend(90, 60, tiers()).Recommendations))
}

func TestRecommend_RecommendationText(t *testing.T) {
	res := planning.Recommend(92, 45, tiers())
	recs := res.Recommendations

	assert.Equal(t, "Pay ₹19,584 monthly for Premium Health Shield", recs[0].Suggestion)
	assert.Equal(t, 19584, recs[0].Amount)
	assert.Equal(t, planning.PriorityHigh, recs[0].Priority)
	assert.Equal(t, "Save ₹5,875 monthly to build emergency health fund", recs[1].Suggestion)
	assert.Equal(t, "Build emergency fund of ₹70,500 over 12 months", recs[2].Suggestion)
	assert.Equal(t, planning.PriorityMedium, recs[2].Priority)
	assert.Equal(t, "Allocate ₹305,508 annually for health expenses", recs[3].Suggestion)
	assert.Zero(t, recs[4].Amount)
	assert.Equal(t, planning.PriorityLow, recs[4].Priority)
}

func TestRecommend_FallbackFlagged(t *testing.T) {
	gappy := []refdata.InsuranceTier{
		{Name: "Low", BasePremium: 1000, MinCoverage: 100, MaxCoverage: 200, RiskRange: refdata.RiskRange{Min: 0, Max: 10}},
		{Name: "Mid", BasePremium: 2000, MinCoverage: 300, MaxCoverage: 400, RiskRange: refdata.RiskRange{Min: 11, Max: 20}},
	}
	res := planning.Recommend(50, 30, gappy)

	assert.True(t, res.TierFallback)
	assert.Equal(t, "Mid", res.Plan.Name)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "Low", res.Alternatives[0].Name)
}

func TestRecommend_PanicsWithoutTiers(t *testing.T) {
	assert.Panics(t, func() { planning.Recommend(50, 30, nil) })
}

func TestRecommend_Deterministic(t *testing.T) {
	first := planning.Recommend(67, 52, tiers())
	for range 3 {
		assert.Equal(t, first, planning.Recommend(67, 52, tiers()))
	}
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "₹950", planning.Rupees(950))
	assert.Equal(t, "₹4,200", planning.Rupees(4200))
	assert.Equal(t, "₹2,000,000", planning.Rupees(2000000))
}

func TestAutoPayInfo(t *testing.T) {
	off := planning.AutoPayInfo(false)
	assert.False(t, off.Available)
	assert.Contains(t, off.Message, "coming soon")

	assert.True(t, planning.AutoPayInfo(true).Available)
}

// ─── Affordability ────────────────────────────────────────────────────────────

func TestAssessAffordability_Bands(t *testing.T) {
	tests := []struct {
		name       string
		income     float64
		premium    int
		savings    int
		score      int
		strain     planning.Strain
		affordable bool
		pct        float64
	}{
		{"under 10%", 100000, 4000, 4000, 100, planning.StrainLow, true, 8},
		{"12.5%", 80000, 5000, 5000, 85, planning.StrainLow, true, 12.5},
		{"17.5%", 40000, 4000, 3000, 70, planning.StrainModerate, true, 17.5},
		{"exactly 25%", 40000, 6000, 4000, 50, planning.StrainModerate, true, 25},
		{"just over 25%", 40000, 6000, 4040, 30, planning.StrainHigh, false, 25.1},
		{"a third", 30000, 6000, 4000, 10, planning.StrainCritical, false, 33.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planning.AssessAffordability(tt.income, tt.premium, tt.savings)
			require.NoError(t, err)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.strain, got.Strain)
			assert.Equal(t, tt.affordable, got.IsAffordable)
			assert.InDelta(t, tt.pct, got.IncomePercentage, 1e-9)
			assert.NotEmpty(t, got.Recommendation)
		})
	}
}

func TestAssessAffordability_InvalidIncome(t *testing.T) {
	for _, income := range []float64{0, -5000} {
		_, err := planning.AssessAffordability(income, 1000, 1000)
		assert.ErrorIs(t, err, planning.ErrInvalidIncome)
	}
}
