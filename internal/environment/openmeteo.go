package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nyashahama/carefund-backend/internal/refdata"
)

const defaultOpenMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteoClient fetches current temperature and humidity. No key required.
type OpenMeteoClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenMeteoClient(baseURL string) *OpenMeteoClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultOpenMeteoBaseURL
	}
	return &OpenMeteoClient{
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type forecastResponse struct {
	Current *struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
	} `json:"current"`
}

func (c *OpenMeteoClient) FetchWeather(ctx context.Context, loc refdata.CityLocation) (Weather, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m")
	q.Set("timezone", "Asia/Kolkata")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Weather{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Weather{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Weather{}, fmt.Errorf("weather request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw forecastResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return Weather{}, fmt.Errorf("decode weather response: %w", err)
	}
	if raw.Current == nil {
		return Weather{}, fmt.Errorf("weather response missing current block")
	}
	return Weather{Temperature: raw.Current.Temperature, Humidity: raw.Current.Humidity}, nil
}
