package refdata_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/carefund-backend/internal/refdata"
)

func TestDefault_Loads(t *testing.T) {
	p, err := refdata.Default()
	require.NoError(t, err)

	assert.Len(t, p.Cities(), 10)
	assert.Contains(t, p.Occupations(), "Other")
	assert.Len(t, p.InsuranceTiers(), 3)
}

func TestLookupCityStats(t *testing.T) {
	p := refdata.MustDefault()

	delhi := p.LookupCityStats("Delhi")
	assert.Equal(t, 1586.1, delhi.CrimeRate)
	assert.Equal(t, 45, delhi.SafetyIndex)
	assert.Equal(t, "high", delhi.StressLevel)

	padded := p.LookupCityStats("  Pune ")
	assert.Equal(t, "Pune", padded.City)

	unknown := p.LookupCityStats("Atlantis")
	assert.Equal(t, "Atlantis", unknown.City, "default profile carries the requested name")
	assert.Equal(t, 300.0, unknown.CrimeRate)
	assert.Equal(t, 70, unknown.SafetyIndex)
	assert.Equal(t, []string{"General urban crimes"}, unknown.CommonCrimes)
	assert.Len(t, unknown.Recommendations, 4)
}

func TestLookupOccupationHazard(t *testing.T) {
	p := refdata.MustDefault()

	cw := p.LookupOccupationHazard("Construction Worker")
	assert.Equal(t, refdata.HazardCritical, cw.HazardLevel)
	assert.Equal(t, 85, cw.RiskScore)
	assert.Equal(t, 18.5, cw.DeathRate)
	assert.Len(t, cw.CommonRisks, 5)

	other := p.LookupOccupationHazard("Astronaut")
	assert.Equal(t, "Other", other.Occupation)
	assert.Equal(t, refdata.HazardMedium, other.HazardLevel)
	assert.Equal(t, 30, other.RiskScore)
	assert.Len(t, other.PreventiveMeasures, 4)
}

func TestLookupStatisticalData_Default(t *testing.T) {
	p := refdata.MustDefault()

	assert.Equal(t, refdata.StatisticalData{CityHealthIndex: 65, DeathRate: 7.0}, p.LookupStatisticalData("Nowhere"))
	assert.Equal(t, 55, p.LookupStatisticalData("Delhi").CityHealthIndex)
}

func TestLookupCity(t *testing.T) {
	p := refdata.MustDefault()

	loc, ok := p.LookupCity("Mumbai")
	require.True(t, ok)
	assert.Equal(t, "Mumbai", loc.City)
	assert.InDelta(t, 19.076, loc.Latitude, 1e-9)
	assert.Equal(t, 165, loc.EstimatedAQI)

	_, ok = p.LookupCity("Springfield")
	assert.False(t, ok)
	assert.Equal(t, 150, p.DefaultAQI())
}

func TestInsuranceTiers_CoverFullRange(t *testing.T) {
	tiers := refdata.MustDefault().InsuranceTiers()

	for score := 0; score <= 100; score++ {
		matches := 0
		for _, tier := range tiers {
			if tier.RiskRange.Contains(score) {
				matches++
			}
		}
		assert.Equalf(t, 1, matches, "score %d should fall in exactly one tier", score)
	}
}

func TestInsuranceTiers_ReturnsCopy(t *testing.T) {
	p := refdata.MustDefault()

	tiers := p.InsuranceTiers()
	tiers[0].Name = "mutated"

	assert.Equal(t, "Essential Health Cover", p.InsuranceTiers()[0].Name)
}

func TestLoad_Validation(t *testing.T) {
	const doc = `
cities:
  - city: Testville
    crime_rate: 10
default_occupation: Ghost
occupations:
  - occupation: Diver
    hazard_level: extreme
    risk_score: 120
insurance_tiers:
  - name: Only
    risk_range: {min: 5, max: 50}
`
	_, err := refdata.Load(strings.NewReader(doc))
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		`invalid hazard level "extreme"`,
		"risk score 120",
		`default occupation "Ghost"`,
		"at least two insurance tiers",
		"range starts at 5",
		"tiers end at 50",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := refdata.Load(strings.NewReader("citties: []\n"))
	assert.Error(t, err)
}
