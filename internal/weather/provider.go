package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotConfigured is returned when the upstream credential is missing.
	ErrNotConfigured = errors.New("weather api key is not configured")
	// ErrUnavailable is returned while calls to the provider are suspended.
	ErrUnavailable = errors.New("weather provider unavailable")
)

// ForecastRequest identifies one upstream forecast call.
type ForecastRequest struct {
	Query LocationQuery
	Days  int
}

// Key returns a canonical string key for indexing this request in stores.
func (r ForecastRequest) Key() string {
	return strconv.Itoa(r.Days) + ":" + string(NormalizeQuery(string(r.Query)))
}

// UpstreamError is a non-success answer from the provider. Status is the
// provider's HTTP status and Message the best-effort parsed reason.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// Provider abstracts the upstream forecast source (WeatherAPI.com).
// Forecast returns the provider's JSON body untouched.
type Provider interface {
	Name() string
	Configured() bool
	Forecast(ctx context.Context, req ForecastRequest) ([]byte, error)
}

// Store is the contract for the upstream response cache.
type Store interface {
	Get(key string) ([]byte, bool)
	Save(key string, body []byte)
	Purge(now time.Time) int
}
