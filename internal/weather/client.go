// Package weather fetches next-day forecasts from the point forecast service.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jgoulah/greenbutton/internal/logging"
)

// Forecast is one day's forecast at a point
type Forecast struct {
	Date            time.Time
	TempMaxC        float64
	PrecipitationMM float64
}

// RemoteServiceError reports a non-200 response from the forecast service
type RemoteServiceError struct {
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("weather service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("weather service returned status %d: %s", e.StatusCode, e.Body)
}

// ErrNoForecast means the service answered without any forecast entries
var ErrNoForecast = errors.New("weather service returned no forecast data")

// Client fetches forecasts for a fixed point
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
	baseURL    string
	apiKey     string
	latitude   float64
	longitude  float64
}

// Options configures a Client
type Options struct {
	BaseURL   string
	APIKey    string
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
}

// NewClient creates a forecast client
func NewClient(opts Options, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("weather"),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		latitude:   opts.Latitude,
		longitude:  opts.Longitude,
	}
}

type forecastResponse struct {
	Forecast []struct {
		TempMax *float64 `json:"tempMax"`
		Precip  *float64 `json:"precip"`
	} `json:"forecast"`
}

// Tomorrow fetches the forecast for the day after now
func (c *Client) Tomorrow(ctx context.Context, now time.Time) (*Forecast, error) {
	return c.ForDate(ctx, now.AddDate(0, 0, 1))
}

// ForDate fetches the forecast for a calendar day
func (c *Client) ForDate(ctx context.Context, date time.Time) (*Forecast, error) {
	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s/v2/points/%g,%g/days/%s?fields=all&unitScale=METRIC",
		c.baseURL, c.latitude, c.longitude, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating weather request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching forecast", "date", day)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Weather service returned non-200 status", "status", resp.StatusCode)
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding forecast: %w", err)
	}
	if len(payload.Forecast) == 0 {
		return nil, ErrNoForecast
	}

	first := payload.Forecast[0]
	if first.TempMax == nil {
		return nil, fmt.Errorf("forecast for %s has no tempMax", day)
	}

	f := &Forecast{
		Date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		TempMaxC: *first.TempMax,
	}
	if first.Precip != nil {
		f.PrecipitationMM = *first.Precip
	}

	c.logger.Info("Fetched forecast", "date", day, "temp_max", f.TempMaxC, "precip", f.PrecipitationMM)
	return f, nil
}
