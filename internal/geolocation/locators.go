package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StaticLocator always reports the same coordinates.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
}

func (s StaticLocator) CurrentPosition(ctx context.Context, _ PositionOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Latitude: s.Latitude, Longitude: s.Longitude, Timestamp: time.Now()}, nil
}

// DeniedLocator models a user who refused location access.
type DeniedLocator struct{}

func (DeniedLocator) CurrentPosition(context.Context, PositionOptions) (Position, error) {
	return Position{}, &PositionError{Code: PermissionDenied}
}

// DefaultIPLookupURL is the ip-api.com JSON endpoint for the caller's address.
const DefaultIPLookupURL = "http://ip-api.com/json"

// ipAccuracy is a rough city-level radius for IP based positions.
const ipAccuracy = 5000

// IPLocator approximates the position from the public IP address.
type IPLocator struct {
	client *http.Client
	url    string
}

func NewIPLocator(client *http.Client, url string) *IPLocator {
	if client == nil {
		client = http.DefaultClient
	}
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPLocator{client: client, url: url}
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Query   string  `json:"query"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentPosition queries the lookup service. IP lookups always return a
// fresh coarse fix, so high accuracy and maximum age are not applicable.
func (l *IPLocator) CurrentPosition(ctx context.Context, _ PositionOptions) (Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return Position{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, &PositionError{Code: Timeout, Err: err}
		}
		if ctx.Err() != nil {
			return Position{}, ctx.Err()
		}
		return Position{}, &PositionError{Code: PositionUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Position{}, &PositionError{
			Code: PositionUnavailable,
			Err:  fmt.Errorf("ip lookup returned status %d", resp.StatusCode),
		}
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, &PositionError{Code: PositionUnavailable, Err: fmt.Errorf("decode ip lookup: %w", err)}
	}
	if body.Status != "success" {
		return Position{}, &PositionError{
			Code: PositionUnavailable,
			Err:  fmt.Errorf("ip lookup failed: %s", body.Message),
		}
	}

	return Position{
		Latitude:  body.Lat,
		Longitude: body.Lon,
		Accuracy:  ipAccuracy,
		Timestamp: time.Now(),
	}, nil
}
