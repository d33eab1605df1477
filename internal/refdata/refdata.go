// Package refdata holds the static reference tables the scoring and planning
// engines read: city crime/safety statistics, occupation hazards, insurance
// tiers, city coordinates and per-city health statistics.
//
// The tables are data, not code. They ship as an embedded YAML document and
// can be replaced at startup with a file of the same shape. A Provider is
// immutable once built and safe for concurrent use.
package refdata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// ─── TYPES ────────────────────────────────────────────────────────────────────

// HazardLevel is the ordered occupation hazard scale low < medium < high < critical.
type HazardLevel string

const (
	HazardLow      HazardLevel = "low"
	HazardMedium   HazardLevel = "medium"
	HazardHigh     HazardLevel = "high"
	HazardCritical HazardLevel = "critical"
)

// Valid reports whether h is one of the four known levels.
func (h HazardLevel) Valid() bool {
	switch h {
	case HazardLow, HazardMedium, HazardHigh, HazardCritical:
		return true
	}
	return false
}

// CityStats is the crime and safety profile for one city.
type CityStats struct {
	City             string   `yaml:"city" json:"city"`
	CrimeRate        float64  `yaml:"crime_rate" json:"crimeRate"` // per 100,000 population
	SafetyIndex      int      `yaml:"safety_index" json:"safetyIndex"`
	CommonCrimes     []string `yaml:"common_crimes" json:"commonCrimes"`
	HealthRiskImpact int      `yaml:"health_risk_impact" json:"healthRiskImpact"`
	StressLevel      string   `yaml:"stress_level" json:"stressLevel"`
	Recommendations  []string `yaml:"recommendations" json:"recommendations"`
}

// OccupationHazard describes the health hazards of one occupation.
type OccupationHazard struct {
	Occupation         string      `yaml:"occupation" json:"occupation"`
	HazardLevel        HazardLevel `yaml:"hazard_level" json:"hazardLevel"`
	RiskScore          int         `yaml:"risk_score" json:"riskScore"`
	CommonRisks        []string    `yaml:"common_risks" json:"commonRisks"`
	DeathRate          float64     `yaml:"death_rate" json:"deathRate"` // per 100,000 workers
	HealthIssues       []string    `yaml:"health_issues" json:"healthIssues"`
	PreventiveMeasures []string    `yaml:"preventive_measures" json:"preventiveMeasures"`
}

// RiskRange is an inclusive [Min, Max] band of risk scores.
type RiskRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether score lies within the inclusive range.
func (r RiskRange) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

// InsuranceTier is one health insurance product template.
type InsuranceTier struct {
	Name          string    `yaml:"name" json:"name"`
	Type          string    `yaml:"type" json:"type"`
	MinCoverage   int       `yaml:"min_coverage" json:"minCoverage"`
	MaxCoverage   int       `yaml:"max_coverage" json:"maxCoverage"`
	BasePremium   int       `yaml:"base_premium" json:"basePremium"`
	Features      []string  `yaml:"features" json:"features"`
	Advantages    []string  `yaml:"advantages" json:"advantages"`
	Disadvantages []string  `yaml:"disadvantages" json:"disadvantages"`
	SuitableFor   []string  `yaml:"suitable_for" json:"suitableFor"`
	RiskRange     RiskRange `yaml:"risk_range" json:"riskRange"`
}

// StatisticalData carries the aggregate health indicators for a city.
type StatisticalData struct {
	CityHealthIndex int     `yaml:"city_health_index" json:"cityHealthIndex"` // 0-100, higher is better
	DeathRate       float64 `yaml:"death_rate" json:"deathRate"`              // per 1,000 population
}

// CityLocation is the coordinate and climate estimate for a supported city.
// The estimates are used whenever live environmental readings are missing.
type CityLocation struct {
	City              string  `yaml:"city" json:"city"`
	Latitude          float64 `yaml:"latitude" json:"latitude"`
	Longitude         float64 `yaml:"longitude" json:"longitude"`
	EstimatedAQI      int     `yaml:"estimated_aqi" json:"estimatedAqi"`
	EstimatedTemp     float64 `yaml:"estimated_temperature" json:"estimatedTemperature"`
	EstimatedHumidity int     `yaml:"estimated_humidity" json:"estimatedHumidity"`
}

// ─── DOCUMENT SHAPE ───────────────────────────────────────────────────────────

type cityEntry struct {
	CityStats  `yaml:",inline"`
	Location   *CityLocation    `yaml:"location"`
	Statistics *StatisticalData `yaml:"statistics"`
}

type document struct {
	Cities            []cityEntry        `yaml:"cities"`
	DefaultCity       CityStats          `yaml:"default_city"`
	DefaultStatistics StatisticalData    `yaml:"default_statistics"`
	DefaultAQI        int                `yaml:"default_aqi"`
	Occupations       []OccupationHazard `yaml:"occupations"`
	DefaultOccupation string             `yaml:"default_occupation"`
	InsuranceTiers    []InsuranceTier    `yaml:"insurance_tiers"`
}

// ─── PROVIDER ─────────────────────────────────────────────────────────────────

// Provider answers reference lookups. Every lookup has a deterministic
// default for unknown keys, so callers never handle a "not found" case except
// for LookupCity, which drives input validation.
type Provider struct {
	cities            map[string]CityStats
	locations         map[string]CityLocation
	statistics        map[string]StatisticalData
	occupations       map[string]OccupationHazard
	tiers             []InsuranceTier
	defaultCity       CityStats
	defaultStatistics StatisticalData
	defaultOccupation OccupationHazard
	defaultAQI        int
}

// Default returns a Provider built from the embedded tables.
func Default() (*Provider, error) {
	return Load(bytes.NewReader(defaultTables))
}

// MustDefault is Default for package-level initialisation and tests.
func MustDefault() *Provider {
	p, err := Default()
	if err != nil {
		panic(err)
	}
	return p
}

// LoadFile reads replacement tables from path.
func LoadFile(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a tables document.
func Load(r io.Reader) (*Provider, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("refdata: decode: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("refdata: invalid tables: %w", err)
	}

	p := &Provider{
		cities:            make(map[string]CityStats, len(doc.Cities)),
		locations:         make(map[string]CityLocation, len(doc.Cities)),
		statistics:        make(map[string]StatisticalData, len(doc.Cities)),
		occupations:       make(map[string]OccupationHazard, len(doc.Occupations)),
		tiers:             doc.InsuranceTiers,
		defaultCity:       doc.DefaultCity,
		defaultStatistics: doc.DefaultStatistics,
		defaultAQI:        doc.DefaultAQI,
	}
	for _, c := range doc.Cities {
		p.cities[c.City] = c.CityStats
		if c.Location != nil {
			loc := *c.Location
			loc.City = c.City
			p.locations[c.City] = loc
		}
		if c.Statistics != nil {
			p.statistics[c.City] = *c.Statistics
		}
	}
	for _, o := range doc.Occupations {
		p.occupations[o.Occupation] = o
	}
	p.defaultOccupation = p.occupations[doc.DefaultOccupation]
	return p, nil
}

func (d *document) validate() error {
	var errs []error

	if len(d.Cities) == 0 {
		errs = append(errs, errors.New("no cities"))
	}
	for i, c := range d.Cities {
		if c.City == "" {
			errs = append(errs, fmt.Errorf("city %d: missing name", i))
		}
	}

	known := make(map[string]bool, len(d.Occupations))
	for _, o := range d.Occupations {
		if !o.HazardLevel.Valid() {
			errs = append(errs, fmt.Errorf("occupation %q: invalid hazard level %q", o.Occupation, o.HazardLevel))
		}
		if o.RiskScore < 0 || o.RiskScore > 100 {
			errs = append(errs, fmt.Errorf("occupation %q: risk score %d outside 0-100", o.Occupation, o.RiskScore))
		}
		known[o.Occupation] = true
	}
	if !known[d.DefaultOccupation] {
		errs = append(errs, fmt.Errorf("default occupation %q not in table", d.DefaultOccupation))
	}

	// Tiers must cover 0-100 contiguously, in ascending order. Planning falls
	// back to the second tier when nothing matches, so two are required.
	if len(d.InsuranceTiers) < 2 {
		errs = append(errs, errors.New("at least two insurance tiers are required"))
	}
	next := 0
	for _, t := range d.InsuranceTiers {
		if t.RiskRange.Min > t.RiskRange.Max {
			errs = append(errs, fmt.Errorf("tier %q: min %d > max %d", t.Name, t.RiskRange.Min, t.RiskRange.Max))
		}
		if t.RiskRange.Min != next {
			errs = append(errs, fmt.Errorf("tier %q: range starts at %d, want %d", t.Name, t.RiskRange.Min, next))
		}
		if t.MinCoverage > t.MaxCoverage {
			errs = append(errs, fmt.Errorf("tier %q: min coverage exceeds max coverage", t.Name))
		}
		next = t.RiskRange.Max + 1
	}
	if len(d.InsuranceTiers) > 0 && next != 101 {
		errs = append(errs, fmt.Errorf("tiers end at %d, want 100", next-1))
	}

	return errors.Join(errs...)
}

// ─── LOOKUPS ──────────────────────────────────────────────────────────────────

// LookupCityStats returns the statistics for city, or the default profile
// (labelled with the requested name) when the city is unknown.
func (p *Provider) LookupCityStats(city string) CityStats {
	city = strings.TrimSpace(city)
	if s, ok := p.cities[city]; ok {
		return s
	}
	s := p.defaultCity
	s.City = city
	return s
}

// LookupOccupationHazard returns the hazard profile for occupation, or the
// default occupation's profile when unknown.
func (p *Provider) LookupOccupationHazard(occupation string) OccupationHazard {
	if h, ok := p.occupations[strings.TrimSpace(occupation)]; ok {
		return h
	}
	return p.defaultOccupation
}

// LookupStatisticalData returns the health indicators for city.
func (p *Provider) LookupStatisticalData(city string) StatisticalData {
	if s, ok := p.statistics[strings.TrimSpace(city)]; ok {
		return s
	}
	return p.defaultStatistics
}

// LookupCity returns the location of a supported city.
func (p *Provider) LookupCity(city string) (CityLocation, bool) {
	loc, ok := p.locations[strings.TrimSpace(city)]
	return loc, ok
}

// DefaultAQI is the estimate used when a city has no location entry.
func (p *Provider) DefaultAQI() int { return p.defaultAQI }

// InsuranceTiers returns the tiers in ascending risk-range order.
func (p *Provider) InsuranceTiers() []InsuranceTier {
	return slices.Clone(p.tiers)
}

// Cities lists the cities with a location entry, sorted.
func (p *Provider) Cities() []string {
	out := make([]string, 0, len(p.locations))
	for name := range p.locations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Occupations lists every known occupation, sorted.
func (p *Provider) Occupations() []string {
	out := make([]string, 0, len(p.occupations))
	for name := range p.occupations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
