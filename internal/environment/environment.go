// Package environment produces the air-quality and weather snapshot a risk
// assessment is scored against. Live readings come from AQICN and
// Open-Meteo; whenever either is unconfigured or fails, the per-city
// historical estimate from the reference tables is used instead, so a lookup
// for a known city always yields a usable Reading.
package environment

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/carefund-backend/internal/metrics"
	"github.com/nyashahama/carefund-backend/internal/refdata"
)

// ErrUnknownCity is returned by Lookup for cities without a location entry.
var ErrUnknownCity = errors.New("environment: unknown city")

const (
	SourceAQICN     = "AQICN (Real-time)"
	SourceOpenMeteo = "Open-Meteo (Real-time)"
	SourceEstimated = "Estimated (Historical Average)"

	// Climate used for cities outside the reference table.
	defaultTemperature = 28
	defaultHumidity    = 60
)

// Reading is a point-in-time environmental snapshot for one city.
type Reading struct {
	City          string    `json:"city"`
	AQI           int       `json:"aqi"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	AQISource     string    `json:"aqiSource"`
	WeatherSource string    `json:"weatherSource"`
	FetchedAt     time.Time `json:"timestamp"`
}

// Weather is the subset of a forecast response the scorer needs.
type Weather struct {
	Temperature float64
	Humidity    float64
}

// AirQualityFetcher returns a live AQI for a location.
type AirQualityFetcher interface {
	FetchAQI(ctx context.Context, loc refdata.CityLocation) (int, error)
}

// WeatherFetcher returns current conditions for a location.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, loc refdata.CityLocation) (Weather, error)
}

// Cache stores readings by city. A miss is (Reading{}, false, nil).
type Cache interface {
	Get(ctx context.Context, city string) (Reading, bool, error)
	Set(ctx context.Context, city string, r Reading, ttl time.Duration) error
}

// Locator resolves a city to its coordinates and climate estimates.
type Locator interface {
	LookupCity(city string) (refdata.CityLocation, bool)
	DefaultAQI() int
}

// ─── SERVICE ──────────────────────────────────────────────────────────────────

// Option configures a Service.
type Option func(*Service)

// WithAirQuality enables live AQI lookups.
func WithAirQuality(f AirQualityFetcher) Option { return func(s *Service) { s.air = f } }

// WithWeather enables live weather lookups.
func WithWeather(f WeatherFetcher) Option { return func(s *Service) { s.weather = f } }

// WithCache enables a read-through cache. A non-positive ttl disables it.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache, s.ttl = c, ttl
		}
	}
}

// WithClock overrides time.Now for FetchedAt.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service combines live sources, estimates and the cache.
type Service struct {
	locator Locator
	air     AirQualityFetcher
	weather WeatherFetcher
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(locator Locator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{locator: locator, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the snapshot for a supported city. The only error is
// ErrUnknownCity; upstream failures degrade to estimates.
func (s *Service) Lookup(ctx context.Context, city string) (Reading, error) {
	loc, ok := s.locator.LookupCity(city)
	if !ok {
		return Reading{}, ErrUnknownCity
	}

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, loc.City)
		if err != nil {
			s.logger.Warn("environment: cache read failed", "city", loc.City, "error", err)
		} else if hit {
			metrics.EnvironmentLookupsTotal.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	r := s.fetch(ctx, loc)

	// A configured live source that failed is retried on the next lookup.
	if s.cache != nil && !s.degraded(r) {
		if err := s.cache.Set(ctx, loc.City, r, s.ttl); err != nil {
			s.logger.Warn("environment: cache write failed", "city", loc.City, "error", err)
		}
	}
	return r, nil
}

// Snapshot never fails. Unknown cities get the default AQI and climate.
func (s *Service) Snapshot(ctx context.Context, city string) Reading {
	r, err := s.Lookup(ctx, city)
	if err == nil {
		return r
	}
	metrics.EnvironmentLookupsTotal.WithLabelValues("estimated").Inc()
	return Reading{
		City:          city,
		AQI:           s.locator.DefaultAQI(),
		Temperature:   defaultTemperature,
		Humidity:      defaultHumidity,
		AQISource:     SourceEstimated,
		WeatherSource: SourceEstimated,
		FetchedAt:     s.now().UTC(),
	}
}

func (s *Service) degraded(r Reading) bool {
	return (s.air != nil && r.AQISource == SourceEstimated) ||
		(s.weather != nil && r.WeatherSource == SourceEstimated)
}

func (s *Service) fetch(ctx context.Context, loc refdata.CityLocation) Reading {
	r := Reading{
		City:          loc.City,
		AQI:           loc.EstimatedAQI,
		Temperature:   loc.EstimatedTemp,
		Humidity:      float64(loc.EstimatedHumidity),
		AQISource:     SourceEstimated,
		WeatherSource: SourceEstimated,
	}

	// Both goroutines swallow their errors so one slow source never cancels
	// the other.
	var g errgroup.Group
	if s.air != nil {
		g.Go(func() error {
			aqi, err := s.air.FetchAQI(ctx, loc)
			if err != nil {
				s.logger.Warn("environment: live AQI unavailable, using estimate", "city", loc.City, "error", err)
				return nil
			}
			r.AQI, r.AQISource = aqi, SourceAQICN
			return nil
		})
	}
	if s.weather != nil {
		g.Go(func() error {
			w, err := s.weather.FetchWeather(ctx, loc)
			if err != nil {
				s.logger.Warn("environment: live weather unavailable, using estimate", "city", loc.City, "error", err)
				return nil
			}
			r.Temperature, r.Humidity, r.WeatherSource = math.Round(w.Temperature), w.Humidity, SourceOpenMeteo
			return nil
		})
	}
	_ = g.Wait()

	if r.AQISource == SourceAQICN {
		metrics.EnvironmentLookupsTotal.WithLabelValues("live").Inc()
	} else {
		metrics.EnvironmentLookupsTotal.WithLabelValues("estimated").Inc()
	}
	r.FetchedAt = s.now().UTC()
	return r
}
