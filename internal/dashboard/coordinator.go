// Package dashboard turns location input into weather state: it debounces
// the input, keeps a single cancellable request in flight and decides what
// a consumer should render.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/debounce"
	"github.com/i474232898/weather-dashboard/internal/geolocation"
	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultDebounceDelay is how long input must stay unchanged before a fetch.
const DefaultDebounceDelay = 300 * time.Millisecond

// Phase is the fetch lifecycle derived from a State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// State is a snapshot of what the coordinator knows.
type State struct {
	// Location is the most recent input, before debouncing.
	Location weather.LocationQuery
	// Data is the last successfully fetched snapshot. Failures keep it.
	Data      *weather.Snapshot
	IsLoading bool
	Error     string
	// LocationError is the last geolocation failure. Fetches do not clear it.
	LocationError string
}

func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.Error != "":
		return PhaseError
	case s.Data != nil:
		return PhaseSuccess
	default:
		return PhaseIdle
	}
}

// Coordinator owns the location to weather pipeline.
type Coordinator struct {
	fetcher  Fetcher
	geo      *geolocation.Adapter
	delay    time.Duration
	fallback weather.LocationQuery
	onChange func(State)
	log      *zap.SugaredLogger

	input *debounce.Debouncer[weather.LocationQuery]

	mu      sync.Mutex
	state   State
	settled weather.LocationQuery
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup

	notifyMu sync.Mutex
}

type Option func(*Coordinator)

func WithDebounceDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

// WithDefaultLocation sets the query used by UseDefaultLocation and
// geolocation fallbacks.
func WithDefaultLocation(q weather.LocationQuery) Option {
	return func(c *Coordinator) {
		if !q.IsEmpty() {
			c.fallback = q
		}
	}
}

func WithGeolocation(a *geolocation.Adapter) Option {
	return func(c *Coordinator) { c.geo = a }
}

// WithOnChange registers fn to receive every state change. fn is called
// serially with the latest state and must not call back into the Coordinator.
func WithOnChange(fn func(State)) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

func NewCoordinator(fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:  fetcher,
		delay:    DefaultDebounceDelay,
		fallback: weather.DefaultLocation,
		log:      logger.GetLogger().Named("dashboard"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.geo == nil {
		c.geo = geolocation.NewAdapter(nil, geolocation.WithFallback(c.fallback))
	}
	c.input = debounce.New(c.delay, c.onSettled)
	return c
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetLocation records raw as the desired location. The fetch follows once
// the input has been stable for the debounce delay.
func (c *Coordinator) SetLocation(raw string) {
	q := weather.NormalizeQuery(raw)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Location = q
	c.mu.Unlock()

	c.notify()
	c.input.Set(q)
}

// Retry re-issues the current location without waiting for the debouncer.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	q := c.state.Location
	if q.IsEmpty() {
		q = c.fallback
		c.state.Location = q
	}
	c.settled = q
	c.startLocked(q)
	c.mu.Unlock()

	c.notify()
}

// UseDefaultLocation switches to the fallback location immediately.
func (c *Coordinator) UseDefaultLocation() {
	c.SetLocation(c.fallback.String())
	c.input.Flush()
}

// UseCurrentLocation resolves the device position and fetches its weather.
// On failure the geolocation message is kept in LocationError and the
// fallback location is used instead.
func (c *Coordinator) UseCurrentLocation(ctx context.Context) geolocation.Result {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return geolocation.Result{}
	}
	c.state.IsLoading = true
	c.mu.Unlock()
	c.notify()

	res := c.geo.RequestCurrentLocation(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return res
	}
	c.state.LocationError = res.Message
	c.state.IsLoading = c.cancel != nil
	c.mu.Unlock()

	if !res.OK() {
		c.log.Infow("falling back to default location", "reason", res.Message, "location", res.Query)
	}
	c.SetLocation(res.Query.String())
	c.input.Flush()
	return res
}

// Close stops the debouncer and cancels the outstanding request. It waits
// for in-flight requests to return; none of them touch state afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.input.Stop()
	c.wg.Wait()
}

func (c *Coordinator) onSettled(q weather.LocationQuery) {
	c.mu.Lock()
	if c.closed || q == c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = q
	if q.IsEmpty() {
		c.mu.Unlock()
		return
	}
	c.startLocked(q)
	c.mu.Unlock()

	c.notify()
}

// startLocked cancels the outstanding request and starts a new one.
// c.mu must be held.
func (c *Coordinator) startLocked(q weather.LocationQuery) {
	if c.cancel != nil {
		c.cancel()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), id))
	c.cancel = cancel
	c.state.IsLoading = true
	c.state.Error = ""

	c.wg.Add(1)
	go c.run(ctx, cancel, id, q)
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, id string, q weather.LocationQuery) {
	defer c.wg.Done()
	log := c.log.With("request_id", id, "location", q)
	log.Debug("fetching weather")

	start := time.Now()
	snap, err := c.fetcher.Fetch(ctx, q)

	c.mu.Lock()
	if ctx.Err() != nil {
		// Superseded or closed; the newer request owns state.
		c.mu.Unlock()
		log.Debugw("discarding superseded response", "elapsed", time.Since(start))
		return
	}
	cancel()
	c.cancel = nil
	c.state.IsLoading = false

	switch {
	case err == nil:
		c.state.Data = snap
		c.state.Error = ""
	case errors.Is(err, context.Canceled):
		// Aborted below us; not a user-visible failure.
	default:
		c.state.Error = failureMessage(err)
		log.Errorw("error fetching weather data", "error", err)
	}
	c.mu.Unlock()

	log.Debugw("weather request finished", "elapsed", time.Since(start), "ok", err == nil)
	c.notify()
}

func (c *Coordinator) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	closed := c.closed
	st := c.state
	c.mu.Unlock()
	if closed {
		return
	}
	c.onChange(st)
}

func failureMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	return GenericFailureMessage
}
