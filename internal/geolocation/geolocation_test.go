package geolocation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type locatorFunc func(ctx context.Context, opts PositionOptions) (Position, error)

func (f locatorFunc) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	return f(ctx, opts)
}

func TestStaticLocatorResolvesCoordinates(t *testing.T) {
	a := NewAdapter(StaticLocator{Latitude: 48.8566, Longitude: 2.3522})

	res := a.RequestCurrentLocation(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, weather.LocationQuery("48.8566,2.3522"), res.Query)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 48.8566, res.Position.Latitude, 1e-9)
}

func TestDefaultOptionsArePassedThrough(t *testing.T) {
	var got PositionOptions
	a := NewAdapter(locatorFunc(func(ctx context.Context, opts PositionOptions) (Position, error) {
		got = opts
		return Position{Latitude: 1, Longitude: 2}, nil
	}))

	a.RequestCurrentLocation(context.Background())
	assert.True(t, got.EnableHighAccuracy)
	assert.Equal(t, 10*time.Second, got.Timeout)
	assert.Zero(t, got.MaximumAge)
}

func TestDeniedResolvesToFallback(t *testing.T) {
	a := NewAdapter(DeniedLocator{})

	res := a.RequestCurrentLocation(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, MsgPermissionDenied, res.Message)
	assert.Equal(t, weather.DefaultLocation, res.Query)
	assert.Nil(t, res.Position)
}

func TestUnsupportedResolvesToFallback(t *testing.T) {
	a := NewAdapter(nil, WithFallback("Berlin"))
	assert.False(t, a.Supported())

	res := a.RequestCurrentLocation(context.Background())
	assert.Equal(t, MsgUnsupported, res.Message)
	assert.Equal(t, weather.LocationQuery("Berlin"), res.Query)
}

func TestTimeoutResolvesToFallback(t *testing.T) {
	// The locator never answers and ignores its context.
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	a := NewAdapter(locatorFunc(func(ctx context.Context, opts PositionOptions) (Position, error) {
		<-block
		return Position{}, nil
	}), WithOptions(PositionOptions{Timeout: 20 * time.Millisecond}))

	start := time.Now()
	res := a.RequestCurrentLocation(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, MsgTimeout, res.Message)
	assert.Equal(t, weather.DefaultLocation, res.Query)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unavailable", &PositionError{Code: PositionUnavailable}, MsgPositionUnavailable},
		{"timeout code", &PositionError{Code: Timeout}, MsgTimeout},
		{"unknown code", &PositionError{Code: 42}, MsgUnknown},
		{"plain error", errors.New("boom"), MsgUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(locatorFunc(func(context.Context, PositionOptions) (Position, error) {
				return Position{}, tt.err
			}))
			res := a.RequestCurrentLocation(context.Background())
			assert.Equal(t, tt.want, res.Message)
			assert.Equal(t, weather.DefaultLocation, res.Query)
		})
	}
}

func TestPanickingLocatorIsRecovered(t *testing.T) {
	a := NewAdapter(locatorFunc(func(context.Context, PositionOptions) (Position, error) {
		panic("driver crashed")
	}))

	res := a.RequestCurrentLocation(context.Background())
	assert.Equal(t, MsgServiceFailure, res.Message)
	assert.Equal(t, weather.DefaultLocation, res.Query)
}

func TestOutOfRangeCoordinatesAreUnavailable(t *testing.T) {
	a := NewAdapter(StaticLocator{Latitude: 120, Longitude: 0})
	res := a.RequestCurrentLocation(context.Background())
	assert.Equal(t, MsgPositionUnavailable, res.Message)
}

func TestIPLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","city":"Lisbon","country":"Portugal","lat":38.7167,"lon":-9.1333,"query":"203.0.113.7"}`))
	}))
	defer srv.Close()

	a := NewAdapter(NewIPLocator(srv.Client(), srv.URL))
	res := a.RequestCurrentLocation(context.Background())
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, weather.LocationQuery("38.7167,-9.1333"), res.Query)
	assert.Equal(t, float64(ipAccuracy), res.Position.Accuracy)
}

func TestIPLocatorFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer srv.Close()

	_, err := NewIPLocator(srv.Client(), srv.URL).CurrentPosition(context.Background(), DefaultOptions)
	var perr *PositionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PositionUnavailable, perr.Code)
	assert.ErrorContains(t, err, "private range")
}

func TestIPLocatorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAdapter(NewIPLocator(srv.Client(), srv.URL))
	res := a.RequestCurrentLocation(context.Background())
	assert.Equal(t, MsgPositionUnavailable, res.Message)
}
