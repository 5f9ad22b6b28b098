package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// GenericFailureMessage is shown when a failure carries no usable reason.
const GenericFailureMessage = "Failed to fetch weather data"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Fetcher retrieves the weather snapshot for a location.
type Fetcher interface {
	Fetch(ctx context.Context, q weather.LocationQuery) (*weather.Snapshot, error)
}

// RequestError is a non-success answer from the dashboard endpoint.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("weather request failed (%d): %s", e.Status, e.Message)
}

type requestIDKey struct{}

// WithRequestID tags ctx so outgoing requests carry id as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// APIClient calls the weather proxy endpoint of a dashboard server.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient targets baseURL, e.g. "http://localhost:8080". The client's
// transport decides caching; pass an offline.Registration to work offline.
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Fetch returns ctx.Err() when the request was cancelled.
func (c *APIClient) Fetch(ctx context.Context, q weather.LocationQuery) (*weather.Snapshot, error) {
	endpoint := c.baseURL + "/api/weather?query=" + url.QueryEscape(q.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if id := requestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RequestError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	var snap weather.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	return &snap, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return GenericFailureMessage
	}
	return body.Error
}
