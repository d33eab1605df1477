package environment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/carefund-backend/internal/environment"
	"github.com/nyashahama/carefund-backend/internal/refdata"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubAir struct {
	aqi   int
	err   error
	calls int
}

func (s *stubAir) FetchAQI(_ context.Context, _ refdata.CityLocation) (int, error) {
	s.calls++
	return s.aqi, s.err
}

type stubWeather struct {
	w   environment.Weather
	err error
}

func (s *stubWeather) FetchWeather(_ context.Context, _ refdata.CityLocation) (environment.Weather, error) {
	return s.w, s.err
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]environment.Reading
	getErr  error
	sets    int
	lastTTL time.Duration
}

func newMemCache() *memCache { return &memCache{entries: map[string]environment.Reading{}} }

func (c *memCache) Get(_ context.Context, city string) (environment.Reading, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return environment.Reading{}, false, c.getErr
	}
	r, ok := c.entries[city]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, city string, r environment.Reading, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[city] = r
	c.sets++
	c.lastTTL = ttl
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newService(opts ...environment.Option) *environment.Service {
	opts = append(opts, environment.WithClock(func() time.Time { return fixedNow }))
	return environment.NewService(refdata.MustDefault(), discardLogger(), opts...)
}

// ─── Service ──────────────────────────────────────────────────────────────────

func TestLookup_NoLiveSourcesUsesEstimates(t *testing.T) {
	r, err := newService().Lookup(context.Background(), "Delhi")
	require.NoError(t, err)

	assert.Equal(t, "Delhi", r.City)
	assert.Equal(t, 220, r.AQI)
	assert.Equal(t, environment.SourceEstimated, r.AQISource)
	assert.Equal(t, environment.SourceEstimated, r.WeatherSource)
	assert.Equal(t, fixedNow, r.FetchedAt)
}

func TestLookup_LiveSources(t *testing.T) {
	svc := newService(
		environment.WithAirQuality(&stubAir{aqi: 312}),
		environment.WithWeather(&stubWeather{w: environment.Weather{Temperature: 31.6, Humidity: 48}}),
	)
	r, err := svc.Lookup(context.Background(), "Delhi")
	require.NoError(t, err)

	assert.Equal(t, 312, r.AQI)
	assert.Equal(t, environment.SourceAQICN, r.AQISource)
	assert.Equal(t, 32.0, r.Temperature, "temperature is rounded")
	assert.Equal(t, 48.0, r.Humidity)
	assert.Equal(t, environment.SourceOpenMeteo, r.WeatherSource)
}

func TestLookup_LiveFailuresDegradeIndependently(t *testing.T) {
	svc := newService(
		environment.WithAirQuality(&stubAir{err: errors.New("timeout")}),
		environment.WithWeather(&stubWeather{w: environment.Weather{Temperature: 25, Humidity: 80}}),
	)
	r, err := svc.Lookup(context.Background(), "Mumbai")
	require.NoError(t, err)

	assert.Equal(t, 165, r.AQI)
	assert.Equal(t, environment.SourceEstimated, r.AQISource)
	assert.Equal(t, environment.SourceOpenMeteo, r.WeatherSource)
}

func TestLookup_UnknownCity(t *testing.T) {
	_, err := newService().Lookup(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, environment.ErrUnknownCity)
}

func TestSnapshot_UnknownCityUsesDefaults(t *testing.T) {
	r := newService().Snapshot(context.Background(), "Atlantis")

	assert.Equal(t, "Atlantis", r.City)
	assert.Equal(t, 150, r.AQI)
	assert.Equal(t, environment.SourceEstimated, r.AQISource)
	assert.Equal(t, fixedNow, r.FetchedAt)
}

func TestLookup_CacheReadThrough(t *testing.T) {
	cache := newMemCache()
	air := &stubAir{aqi: 99}
	svc := newService(environment.WithAirQuality(air), environment.WithCache(cache, 10*time.Minute))

	first, err := svc.Lookup(context.Background(), "Pune")
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), "Pune")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, air.calls, "second lookup should be served from cache")
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 10*time.Minute, cache.lastTTL)
}

func TestLookup_DegradedReadingNotCached(t *testing.T) {
	tests := map[string][]environment.Option{
		"aqi down": {
			environment.WithAirQuality(&stubAir{err: errors.New("timeout")}),
		},
		"weather down": {
			environment.WithAirQuality(&stubAir{aqi: 140}),
			environment.WithWeather(&stubWeather{err: errors.New("503")}),
		},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			cache := newMemCache()
			svc := newService(append(opts, environment.WithCache(cache, 10*time.Minute))...)

			_, err := svc.Lookup(context.Background(), "Delhi")
			require.NoError(t, err)
			assert.Zero(t, cache.sets, "estimate after a live failure should not be cached")
		})
	}
}

func TestLookup_RecoveredSourceRefreshesAfterOutage(t *testing.T) {
	cache := newMemCache()
	air := &stubAir{err: errors.New("timeout")}
	svc := newService(environment.WithAirQuality(air), environment.WithCache(cache, 10*time.Minute))

	first, err := svc.Lookup(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, environment.SourceEstimated, first.AQISource)

	air.err, air.aqi = nil, 305
	second, err := svc.Lookup(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, environment.SourceAQICN, second.AQISource)
	assert.Equal(t, 305, second.AQI)
	assert.Equal(t, 2, air.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestLookup_CacheErrorsIgnored(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	air := &stubAir{aqi: 120}
	svc := newService(environment.WithAirQuality(air), environment.WithCache(cache, time.Minute))

	r, err := svc.Lookup(context.Background(), "Chennai")
	require.NoError(t, err)
	assert.Equal(t, 120, r.AQI)
}

func TestWithCache_ZeroTTLDisables(t *testing.T) {
	cache := newMemCache()
	svc := newService(environment.WithCache(cache, 0))

	_, err := svc.Lookup(context.Background(), "Jaipur")
	require.NoError(t, err)
	assert.Zero(t, cache.sets)
}

// ─── AQICN ────────────────────────────────────────────────────────────────────

func mumbai(t *testing.T) refdata.CityLocation {
	t.Helper()
	loc, ok := refdata.MustDefault().LookupCity("Mumbai")
	require.True(t, ok)
	return loc
}

func TestAQICNClient_CityFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feed/mumbai/", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		_, _ = io.WriteString(w, `{"status":"ok","data":{"aqi":174}}`)
	}))
	defer srv.Close()

	aqi, err := environment.NewAQICNClient("tok", srv.URL).FetchAQI(context.Background(), mumbai(t))
	require.NoError(t, err)
	assert.Equal(t, 174, aqi)
}

func TestAQICNClient_RoundsFractionalReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","data":{"aqi":174.6}}`)
	}))
	defer srv.Close()

	aqi, err := environment.NewAQICNClient("tok", srv.URL).FetchAQI(context.Background(), mumbai(t))
	require.NoError(t, err)
	assert.Equal(t, 175, aqi)
}

func TestAQICNClient_FallsBackToGeoFeed(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/feed/geo:") {
			_, _ = io.WriteString(w, `{"status":"ok","data":{"aqi":88}}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok","data":{"aqi":"-"}}`)
	}))
	defer srv.Close()

	aqi, err := environment.NewAQICNClient("tok", srv.URL).FetchAQI(context.Background(), mumbai(t))
	require.NoError(t, err)
	assert.Equal(t, 88, aqi)
	require.Len(t, paths, 2)
	assert.Equal(t, "/feed/geo:19.076;72.8777/", paths[1])
}

func TestAQICNClient_BothFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","data":"Invalid key"}`)
	}))
	defer srv.Close()

	_, err := environment.NewAQICNClient("bad", srv.URL).FetchAQI(context.Background(), mumbai(t))
	assert.Error(t, err)
}

// ─── Open-Meteo ───────────────────────────────────────────────────────────────

func TestOpenMeteoClient_FetchWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "19.076", q.Get("latitude"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m", q.Get("current"))
		assert.Equal(t, "Asia/Kolkata", q.Get("timezone"))
		_, _ = io.WriteString(w, `{"current":{"temperature_2m":29.4,"relative_humidity_2m":71}}`)
	}))
	defer srv.Close()

	got, err := environment.NewOpenMeteoClient(srv.URL).FetchWeather(context.Background(), mumbai(t))
	require.NoError(t, err)
	assert.Equal(t, environment.Weather{Temperature: 29.4, Humidity: 71}, got)
}

func TestOpenMeteoClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := environment.NewOpenMeteoClient(srv.URL).FetchWeather(context.Background(), mumbai(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}
