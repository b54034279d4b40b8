// Package weather talks to the current-weather provider. The client reports
// every failure as an error; substituting defaults is the gateway's job.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/floramind/floramind/internal/config"
)

const defaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// Snapshot is a point-in-time copy of a provider response for one city.
type Snapshot struct {
	City      string    `json:"city"`
	Condition string    `json:"condition"`
	Temp      float64   `json:"temp"`
	FeelsLike float64   `json:"feels_like"`
	Humidity  int       `json:"humidity"`
	Pressure  int       `json:"pressure"`
	WindSpeed float64   `json:"wind_speed"`
	WindDeg   int       `json:"wind_deg"`
	Icon      string    `json:"icon"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Summary renders the short form used in prompts, e.g. "clear sky, 20°C".
func (s Snapshot) Summary() string {
	return fmt.Sprintf("%s, %.0f°C", s.Condition, s.Temp)
}

// Default returns the fixed fallback snapshot served when the provider is
// unreachable. It is never cached.
func Default(city string) Snapshot {
	return Snapshot{
		City:      city,
		Condition: "clear sky",
		Temp:      20,
		FeelsLike: 20,
		Humidity:  50,
		Pressure:  1013,
		WindSpeed: 2,
		Icon:      "01d",
	}
}

// Client fetches current conditions from the weather provider.
type Client struct {
	apiKey     string
	baseURL    string
	HTTPClient *http.Client
}

// NewClient creates a weather provider client from the config section.
func NewClient(cfg config.WeatherConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// currentResponse is the provider's current-weather payload, reduced to the
// fields the snapshot carries.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
}

// Current fetches current conditions for a city by name.
func (c *Client) Current(ctx context.Context, city string) (*Snapshot, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather api status %d: %s", resp.StatusCode, body)
	}

	var cur currentResponse
	if err := json.Unmarshal(body, &cur); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(cur.Weather) == 0 {
		return nil, fmt.Errorf("weather api: empty conditions for %q", city)
	}

	return &Snapshot{
		City:      city,
		Condition: cur.Weather[0].Description,
		Temp:      cur.Main.Temp,
		FeelsLike: cur.Main.FeelsLike,
		Humidity:  cur.Main.Humidity,
		Pressure:  cur.Main.Pressure,
		WindSpeed: cur.Wind.Speed,
		WindDeg:   cur.Wind.Deg,
		Icon:      cur.Weather[0].Icon,
		FetchedAt: time.Now(),
	}, nil
}
