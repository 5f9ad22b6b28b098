// Package geolocation resolves the device position into a location query and
// classifies every failure into a user-facing message with a fallback query.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrorCode mirrors the position error codes reported by location services.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

const messagePrefix = "Unable to get your location. "

// User-facing failure messages.
const (
	MsgPermissionDenied    = messagePrefix + "Please allow location access in your browser settings."
	MsgPositionUnavailable = messagePrefix + "Location information is unavailable."
	MsgTimeout             = messagePrefix + "The request to get your location timed out."
	MsgUnknown             = messagePrefix + "An unknown error occurred."
	MsgUnsupported         = "Geolocation is not supported by your browser"
	MsgServiceFailure      = "Unable to access location services"
)

// PositionError is returned by a Locator that could not determine a position.
type PositionError struct {
	Code ErrorCode
	Err  error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("position error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("position error %d", e.Code)
}

func (e *PositionError) Unwrap() error { return e.Err }

// Position is a resolved device position.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy in meters, zero when unknown.
	Accuracy  float64
	Timestamp time.Time
}

// PositionOptions are passed through to the Locator.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	// MaximumAge of a cached position the locator may return. Zero forces a fresh fix.
	MaximumAge time.Duration
}

// DefaultOptions asks for a fresh high accuracy fix within ten seconds.
var DefaultOptions = PositionOptions{
	EnableHighAccuracy: true,
	Timeout:            10 * time.Second,
	MaximumAge:         0,
}

// Locator is a source of device positions.
type Locator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// Result is the outcome of a location request. On failure Query holds the
// fallback location and Message explains what went wrong.
type Result struct {
	Query    weather.LocationQuery
	Position *Position
	Message  string
}

// OK reports whether the device position was resolved.
func (r Result) OK() bool { return r.Message == "" }

// Adapter wraps a Locator. A nil Locator means location services are not supported.
type Adapter struct {
	locator  Locator
	opts     PositionOptions
	fallback weather.LocationQuery
	log      *zap.SugaredLogger
}

type Option func(*Adapter)

// WithOptions overrides DefaultOptions.
func WithOptions(o PositionOptions) Option {
	return func(a *Adapter) { a.opts = o }
}

// WithFallback overrides the query used when no position is available.
func WithFallback(q weather.LocationQuery) Option {
	return func(a *Adapter) {
		if !q.IsEmpty() {
			a.fallback = q
		}
	}
}

func NewAdapter(locator Locator, opts ...Option) *Adapter {
	a := &Adapter{
		locator:  locator,
		opts:     DefaultOptions,
		fallback: weather.DefaultLocation,
		log:      logger.GetLogger().Named("geolocation"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Supported reports whether a location source is available.
func (a *Adapter) Supported() bool { return a.locator != nil }

type outcome struct {
	pos      Position
	err      error
	panicked bool
}

// RequestCurrentLocation asks the locator for a position. It never fails:
// every error is turned into a Result carrying the fallback query.
func (a *Adapter) RequestCurrentLocation(ctx context.Context) Result {
	if a.locator == nil {
		return a.failed(MsgUnsupported)
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Errorw("locator panicked", "panic", r)
				done <- outcome{panicked: true}
			}
		}()
		pos, err := a.locator.CurrentPosition(ctx, a.opts)
		done <- outcome{pos: pos, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		// The locator ignored its context; stop waiting on it.
		out = outcome{err: ctx.Err()}
	}

	switch {
	case out.panicked:
		return a.failed(MsgServiceFailure)
	case out.err != nil:
		a.log.Warnw("could not get current position", "error", out.err)
		return a.failed(classify(out.err))
	}

	pos := out.pos
	q := weather.CoordinatesQuery(pos.Latitude, pos.Longitude)
	if _, _, ok := q.Coordinates(); !ok {
		a.log.Warnw("locator returned out of range coordinates", "lat", pos.Latitude, "lon", pos.Longitude)
		return a.failed(MsgPositionUnavailable)
	}
	return Result{Query: q, Position: &pos}
}

func (a *Adapter) failed(msg string) Result {
	return Result{Query: a.fallback, Message: msg}
}

func classify(err error) string {
	var perr *PositionError
	if errors.As(err, &perr) {
		switch perr.Code {
		case PermissionDenied:
			return MsgPermissionDenied
		case PositionUnavailable:
			return MsgPositionUnavailable
		case Timeout:
			return MsgTimeout
		}
		return MsgUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}
	return MsgUnknown
}
