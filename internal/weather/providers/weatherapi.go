package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com v1 root.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// GenericFailureMessage is used when the upstream gives no usable reason.
const GenericFailureMessage = "Failed to fetch weather data"

var errMalformedBody = errors.New("malformed upstream body")

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// Option customizes a WeatherAPIProvider.
type Option func(*WeatherAPIProvider)

// WithBaseURL points the provider at another root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(p *WeatherAPIProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b BackoffConfig) Option {
	return func(p *WeatherAPIProvider) {
		p.httpCfg.Backoff = b
	}
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...Option) *WeatherAPIProvider {
	p := &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// Configured reports whether an API key is present.
func (p *WeatherAPIProvider) Configured() bool {
	return p.apiKey != ""
}

// Forecast calls forecast.json with air-quality and alerts requested and
// returns the body untouched. Non-2xx answers become *weather.UpstreamError.
func (p *WeatherAPIProvider) Forecast(ctx context.Context, req weather.ForecastRequest) ([]byte, error) {
	if p.apiKey == "" {
		return nil, weather.ErrNotConfigured
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts a place name or "lat,lon".
		values.Set("q", string(req.Query))
		values.Set("days", strconv.Itoa(req.Days))
		values.Set("aqi", "yes")
		values.Set("alerts", "yes")

		u := fmt.Sprintf("%s/forecast.json?%s", p.baseURL, values.Encode())
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		return r, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &weather.UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamErrorMessage(body),
		}
	}

	if !json.Valid(body) {
		return nil, errMalformedBody
	}
	return body, nil
}

// upstreamErrorMessage extracts error.message from a provider error body.
func upstreamErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return GenericFailureMessage
	}
	return payload.Error.Message
}
