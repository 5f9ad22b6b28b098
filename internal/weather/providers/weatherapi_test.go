package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var noRetry = BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...Option) (*WeatherAPIProvider, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithBackoff(noRetry)}, opts...)
	return NewWeatherAPIProvider(srv.Client(), "test-key", opts...), &calls
}

func TestForecastSendsExpectedQuery(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "New York", q.Get("q"))
		assert.Equal(t, "5", q.Get("days"))
		assert.Equal(t, "yes", q.Get("aqi"))
		assert.Equal(t, "yes", q.Get("alerts"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"location":{"name":"New York"}}`))
	})

	body, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "New York", Days: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":{"name":"New York"}}`, string(body))
}

func TestForecastUpstreamErrorMessage(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	})

	_, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "nowhere", Days: 3})
	var upErr *weather.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Equal(t, "No matching location found.", upErr.Message)
}

func TestForecastUnparseableErrorBody(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html>denied</html>`))
	})

	_, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "Paris", Days: 3})
	var upErr *weather.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusForbidden, upErr.Status)
	assert.Equal(t, GenericFailureMessage, upErr.Message)
}

func TestForecastMissingKeyNeverCallsUpstream(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "", WithBaseURL(srv.URL))
	assert.False(t, p.Configured())

	_, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "Paris", Days: 3})
	assert.ErrorIs(t, err, weather.ErrNotConfigured)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestForecastRetriesServerErrors(t *testing.T) {
	var n int32
	p, calls := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"current":{"temp_c":12}}`))
	}, WithBackoff(BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}))

	body, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "Oslo", Days: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":{"temp_c":12}}`, string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestForecastPropagatesFinalServerError(t *testing.T) {
	p, calls := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"maintenance"}}`))
	}, WithBackoff(BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond}))

	_, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "Oslo", Days: 1})
	var upErr *weather.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusServiceUnavailable, upErr.Status)
	assert.Equal(t, "maintenance", upErr.Message)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestForecastOpenCircuitIsUnavailable(t *testing.T) {
	p, calls := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	req := weather.ForecastRequest{Query: "Oslo", Days: 1}

	for i := 0; i < 6; i++ {
		_, err := p.Forecast(context.Background(), req)
		var upErr *weather.UpstreamError
		require.True(t, errors.As(err, &upErr), "request %d", i)
	}

	_, err := p.Forecast(context.Background(), req)
	assert.ErrorIs(t, err, weather.ErrUnavailable)
	assert.EqualValues(t, 6, atomic.LoadInt32(calls))
}

func TestForecastMalformedSuccessBody(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":`))
	})

	_, err := p.Forecast(context.Background(), weather.ForecastRequest{Query: "Rome", Days: 3})
	assert.ErrorIs(t, err, errMalformedBody)
}

func TestForecastHonoursCancellation(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Forecast(ctx, weather.ForecastRequest{Query: "Rome", Days: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
