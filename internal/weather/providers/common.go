package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errCircuitOpen   = fmt.Errorf("circuit breaker open: %w", weather.ErrUnavailable)
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newCircuitBreaker returns the breaker settings shared by all providers.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential
// backoff, and a circuit breaker. Transport errors, 429 and 5xx answers are
// retried. When retries run out on a 429/5xx the last response is returned
// with a nil error so the caller can propagate the upstream status.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			// The response rides along with the error so the last one can
			// still be propagated once retries are exhausted.
			if resp.StatusCode == http.StatusTooManyRequests {
				return resp, errRateLimited
			}
			if resp.StatusCode >= 500 {
				return resp, errServerError
			}
			return resp, nil
		})
		metrics.UpstreamLatency.Observe(time.Since(start).Seconds())

		resp, _ := result.(*http.Response)

		if err == nil {
			if resp == nil {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			metrics.UpstreamRequests.WithLabelValues(outcomeFor(resp.StatusCode)).Inc()
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues("circuit_open").Inc()
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if resp != nil {
			metrics.UpstreamRequests.WithLabelValues(outcomeFor(resp.StatusCode)).Inc()
		} else {
			metrics.UpstreamRequests.WithLabelValues("transport_error").Inc()
		}

		if attempt >= cfg.Backoff.MaxRetries {
			if resp != nil {
				return resp, nil
			}
			return nil, err
		}
		if resp != nil {
			drain(resp)
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func outcomeFor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
