package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nyashahama/carefund-backend/internal/refdata"
)

const defaultAQICNBaseURL = "https://api.waqi.info"

// AQICNClient fetches real-time AQI from the World Air Quality Index API.
type AQICNClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewAQICNClient builds a client. An empty baseURL uses the public endpoint.
func NewAQICNClient(token, baseURL string) *AQICNClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultAQICNBaseURL
	}
	return &AQICNClient{
		token:   token,
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchAQI tries the city feed first and the geo feed second. Each endpoint
// is attempted once.
func (c *AQICNClient) FetchAQI(ctx context.Context, loc refdata.CityLocation) (int, error) {
	cityFeed := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, url.PathEscape(strings.ToLower(loc.City)), url.QueryEscape(c.token))
	aqi, cityErr := c.feed(ctx, cityFeed)
	if cityErr == nil {
		return aqi, nil
	}

	geoFeed := fmt.Sprintf("%s/feed/geo:%g;%g/?token=%s", c.baseURL, loc.Latitude, loc.Longitude, url.QueryEscape(c.token))
	aqi, geoErr := c.feed(ctx, geoFeed)
	if geoErr == nil {
		return aqi, nil
	}
	return 0, fmt.Errorf("aqicn: city feed: %v; geo feed: %w", cityErr, geoErr)
}

type aqicnResponse struct {
	Status string `json:"status"`
	Data   struct {
		// AQI is a number, or "-" when the station has no reading.
		AQI json.RawMessage `json:"aqi"`
	} `json:"data"`
}

func (c *AQICNClient) feed(ctx context.Context, endpoint string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build aqi request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("aqi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("aqi request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw aqicnResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return 0, fmt.Errorf("decode aqi response: %w", err)
	}
	if raw.Status != "ok" {
		return 0, fmt.Errorf("aqi api status %q", raw.Status)
	}

	var aqi float64
	if err := json.Unmarshal(raw.Data.AQI, &aqi); err != nil || aqi <= 0 {
		return 0, fmt.Errorf("aqi api returned no reading: %s", string(raw.Data.AQI))
	}
	return int(math.Round(aqi)), nil
}
