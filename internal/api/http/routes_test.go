package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

type upstream struct {
	srv   *httptest.Server
	calls int32
	last  atomic.Value // url.Values of the last call
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.calls, 1)
		u.last.Store(r.URL.Query())
		handler(w, r)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newTestApp(t *testing.T, up *upstream, apiKey string) *fiber.App {
	t.Helper()
	provider := providers.NewWeatherAPIProvider(up.srv.Client(), apiKey,
		providers.WithBaseURL(up.srv.URL),
		providers.WithBackoff(providers.BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}),
	)
	svc := weather.NewService(store.NewMemoryStore(100, 10*time.Minute), provider)
	return NewApp(svc, Options{})
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp, body
}

func TestWeatherPassesUpstreamBodyThrough(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":{"name":"Tokyo"},"current":{"temp_c":21.5}}`))
	})
	app := newTestApp(t, up, "key")

	resp, body := get(t, app, "/api/weather?query=Tokyo&days=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, CacheControl, resp.Header.Get("Cache-Control"))
	assert.Equal(t, CDNCacheControl, resp.Header.Get("CDN-Cache-Control"))
	assert.Equal(t, "Tokyo", body["location"].(map[string]any)["name"])

	q := up.last.Load().(url.Values)
	assert.Equal(t, []string{"Tokyo"}, q["q"])
	assert.Equal(t, []string{"2"}, q["days"])
}

func TestWeatherDefaults(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	app := newTestApp(t, up, "key")

	resp, _ := get(t, app, "/api/weather")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	q := up.last.Load().(url.Values)
	assert.Equal(t, []string{"London"}, q["q"])
	assert.Equal(t, []string{"3"}, q["days"])
	assert.Equal(t, []string{"yes"}, q["aqi"])
	assert.Equal(t, []string{"yes"}, q["alerts"])
}

func TestWeatherRepeatedQueryServedFromCache(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"temp_c":3}}`))
	})
	app := newTestApp(t, up, "key")

	resp, _ := get(t, app, "/api/weather?query=Oslo")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp, _ = get(t, app, "/api/weather?query=%20Oslo%20")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&up.calls))
}

func TestWeatherNormalizesUpstreamError(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":1006,"message":"X"}}`))
	})
	app := newTestApp(t, up, "key")

	resp, body := get(t, app, "/api/weather?query=nowhere")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "X"}, body)
}

func TestWeatherUnparseableUpstreamError(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`not json`))
	})
	app := newTestApp(t, up, "key")

	resp, body := get(t, app, "/api/weather?query=Paris")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, providers.GenericFailureMessage, body["error"])
}

func TestWeatherMissingCredential(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	app := newTestApp(t, up, "")

	resp, body := get(t, app, "/api/weather?query=Paris")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Weather API key is not configured", body["error"])
	assert.Zero(t, atomic.LoadInt32(&up.calls))
}

func TestWeatherMissingCredentialBeforeValidation(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	app := newTestApp(t, up, "")

	for _, days := range []string{"abc", "30"} {
		resp, body := get(t, app, "/api/weather?query=Paris&days="+days)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, "days=%s", days)
		assert.Equal(t, msgNotConfigured, body["error"])
	}
	assert.Zero(t, atomic.LoadInt32(&up.calls))
}

func TestWeatherOpenCircuitIsServiceUnavailable(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"busy"}}`))
	})
	app := newTestApp(t, up, "key")

	// Six consecutive failures trip the breaker.
	for i := 0; i < 6; i++ {
		resp, body := get(t, app, "/api/weather?query=Paris")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "request %d", i)
		assert.Equal(t, "busy", body["error"])
	}

	resp, body := get(t, app, "/api/weather?query=Paris")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, msgUnavailable, body["error"])
	assert.Equal(t, "120", resp.Header.Get("Retry-After"))
	assert.EqualValues(t, 6, atomic.LoadInt32(&up.calls))
}

func TestWeatherUpstreamUnreachable(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	app := newTestApp(t, up, "key")
	up.srv.Close()

	resp, body := get(t, app, "/api/weather?query=Paris")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": providers.GenericFailureMessage}, body)
}

func TestWeatherMalformedSuccessBody(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":`))
	})
	app := newTestApp(t, up, "key")

	resp, body := get(t, app, "/api/weather?query=Paris")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, providers.GenericFailureMessage, body["error"])
}

// TestForecastDaysValidation verifies that the weather endpoint enforces the
// 1-14 range for the `days` query parameter.
func TestForecastDaysValidation(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	app := newTestApp(t, up, "key")

	for _, days := range []string{"0", "15", "abc", "-2"} {
		resp, body := get(t, app, "/api/weather?query=Paris&days="+days)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "days=%s", days)
		assert.Equal(t, msgInvalidDays, body["error"])
	}
	assert.Zero(t, atomic.LoadInt32(&up.calls))
}

func TestHealthAndStaticAssets(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	app := newTestApp(t, up, "key")

	resp, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	for _, path := range []string{"/", "/offline.html", "/favicon.ico"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestPanicsBecomeStableErrors(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	app := newTestApp(t, up, "key")
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, body := get(t, app, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": providers.GenericFailureMessage}, body)
}
