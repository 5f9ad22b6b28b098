// Package offline implements an offline capable HTTP transport. A versioned
// Worker precaches the application shell and answers same-origin GET
// requests from a cache when the network is unavailable.
package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/metrics"
)

const (
	// DefaultVersion names the cache of the current worker.
	DefaultVersion = "aurora-cache-v1"
	OfflinePage    = "/offline.html"
)

// DefaultPrecache is fetched during Install.
var DefaultPrecache = []string{"/", OfflinePage, "/favicon.ico"}

// State is the worker lifecycle.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActive
	StateSuperseded
	// StateRedundant marks a worker whose install failed.
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateRedundant:
		return "redundant"
	default:
		return "new"
	}
}

var ErrNotInstalled = errors.New("worker is not installed")

const (
	strategyNetworkFirst = "network_first"
	strategyCacheFirst   = "cache_first"
	strategyStale        = "stale_while_revalidate"
	strategyPassThrough  = "pass_through"
)

// Worker intercepts requests for one origin. It is an http.RoundTripper.
type Worker struct {
	version  string
	origin   *url.URL
	network  http.RoundTripper
	storage  CacheStorage
	precache []string
	log      *zap.SugaredLogger

	mu    sync.RWMutex
	state State
	cache Cache

	revalidating sync.WaitGroup
}

type WorkerOption func(*Worker)

// WithVersion sets the cache name. Activating a new version deletes the
// caches of every other version.
func WithVersion(v string) WorkerOption {
	return func(w *Worker) {
		if v != "" {
			w.version = v
		}
	}
}

// WithNetwork sets the transport used to reach the origin.
func WithNetwork(rt http.RoundTripper) WorkerOption {
	return func(w *Worker) {
		if rt != nil {
			w.network = rt
		}
	}
}

func WithPrecache(paths ...string) WorkerOption {
	return func(w *Worker) { w.precache = paths }
}

// NewWorker creates a worker for origin, e.g. "http://localhost:8080".
func NewWorker(origin string, storage CacheStorage, opts ...WorkerOption) (*Worker, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", origin)
	}

	w := &Worker{
		version:  DefaultVersion,
		origin:   &url.URL{Scheme: u.Scheme, Host: u.Host},
		network:  http.DefaultTransport,
		storage:  storage,
		precache: DefaultPrecache,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.GetLogger().Named("offline").With("version", w.version)
	return w, nil
}

func (w *Worker) Version() string { return w.version }

func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Install opens the versioned cache and stores every precache asset. Any
// failed asset fails the install and leaves the worker redundant.
func (w *Worker) Install(ctx context.Context) error {
	w.setState(StateInstalling)

	cache, err := w.storage.Open(ctx, w.version)
	if err != nil {
		w.setState(StateRedundant)
		return err
	}

	for _, p := range w.precache {
		if err := w.precacheAsset(ctx, cache, p); err != nil {
			w.setState(StateRedundant)
			w.log.Errorw("install failed", "asset", p, "error", err)
			return fmt.Errorf("precache %s: %w", p, err)
		}
	}

	w.mu.Lock()
	w.cache = cache
	w.state = StateInstalled
	w.mu.Unlock()
	w.log.Infow("worker installed", "assets", len(w.precache))
	return nil
}

func (w *Worker) precacheAsset(ctx context.Context, cache Cache, path string) error {
	target := w.origin.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	resp, err := w.network.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return cache.Put(ctx, entryFor(req, resp, body))
}

// Activate deletes the caches of other versions and starts serving requests.
func (w *Worker) Activate(ctx context.Context) error {
	if w.State() != StateInstalled {
		return ErrNotInstalled
	}

	names, err := w.storage.Keys(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == w.version {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			return err
		}
		w.log.Infow("deleted outdated cache", "cache", name)
	}

	w.setState(StateActive)
	return nil
}

// Wait blocks until background revalidations started so far have finished.
func (w *Worker) Wait() {
	w.revalidating.Wait()
}

func (w *Worker) supersede() {
	w.mu.Lock()
	if w.state == StateActive || w.state == StateInstalled {
		w.state = StateSuperseded
	}
	w.mu.Unlock()
}

// RoundTrip serves req according to its kind. Requests the worker does not
// control go straight to the network.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	cache, ok := w.controls(req)
	if !ok {
		w.served(strategyPassThrough, "network")
		return w.network.RoundTrip(req)
	}

	switch {
	case strings.Contains(req.URL.Path, "/api/"):
		return w.networkFirst(cache, req)
	case req.Header.Get("Sec-Fetch-Mode") == "navigate":
		return w.cacheFirst(cache, req)
	default:
		return w.staleWhileRevalidate(cache, req)
	}
}

func (w *Worker) controls(req *http.Request) (Cache, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state != StateActive || w.cache == nil {
		return nil, false
	}
	if req.Method != http.MethodGet {
		return nil, false
	}
	if req.URL.Scheme != w.origin.Scheme || req.URL.Host != w.origin.Host {
		return nil, false
	}
	return w.cache, true
}

func (w *Worker) networkFirst(cache Cache, req *http.Request) (*http.Response, error) {
	resp, err := w.fetchAndStore(cache, req)
	if err == nil {
		w.served(strategyNetworkFirst, "network")
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}
	w.log.Debugw("network failed, trying cache", "url", req.URL.String(), "error", err)

	if resp, ok := w.match(cache, req, cacheKey(req.URL)); ok {
		w.served(strategyNetworkFirst, "cache")
		return resp, nil
	}
	if strings.Contains(req.Header.Get("Accept"), "text/html") {
		if resp, ok := w.offlinePage(cache, req); ok {
			w.served(strategyNetworkFirst, "offline_page")
			return resp, nil
		}
	}
	w.served(strategyNetworkFirst, "synthetic")
	return networkError(req), nil
}

func (w *Worker) cacheFirst(cache Cache, req *http.Request) (*http.Response, error) {
	if resp, ok := w.match(cache, req, cacheKey(req.URL)); ok {
		w.served(strategyCacheFirst, "cache")
		return resp, nil
	}

	resp, err := w.fetchAndStore(cache, req)
	if err == nil {
		w.served(strategyCacheFirst, "network")
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}
	if resp, ok := w.offlinePage(cache, req); ok {
		w.served(strategyCacheFirst, "offline_page")
		return resp, nil
	}
	w.served(strategyCacheFirst, "synthetic")
	return networkError(req), nil
}

func (w *Worker) staleWhileRevalidate(cache Cache, req *http.Request) (*http.Response, error) {
	if resp, ok := w.match(cache, req, cacheKey(req.URL)); ok {
		w.revalidating.Add(1)
		go w.revalidate(cache, req.Clone(context.WithoutCancel(req.Context())))
		w.served(strategyStale, "cache")
		return resp, nil
	}

	resp, err := w.fetchAndStore(cache, req)
	if err == nil {
		w.served(strategyStale, "network")
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}
	w.served(strategyStale, "synthetic")
	return networkError(req), nil
}

func (w *Worker) revalidate(cache Cache, req *http.Request) {
	defer w.revalidating.Done()

	resp, err := w.fetchAndStore(cache, req)
	if err != nil {
		w.log.Debugw("background revalidation failed", "url", req.URL.String(), "error", err)
		return
	}
	resp.Body.Close()
}

// fetchAndStore performs req on the network and stores successful answers.
// The returned response body is buffered.
func (w *Worker) fetchAndStore(cache Cache, req *http.Request) (*http.Response, error) {
	resp, err := w.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if err := cache.Put(req.Context(), entryFor(req, resp, body)); err != nil {
		w.log.Warnw("failed to store response", "url", req.URL.String(), "error", err)
	}
	return resp, nil
}

func (w *Worker) match(cache Cache, req *http.Request, key string) (*http.Response, bool) {
	e, ok, err := cache.Match(req.Context(), key)
	if err != nil {
		w.log.Warnw("cache lookup failed", "url", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return e.Response(req), true
}

func (w *Worker) offlinePage(cache Cache, req *http.Request) (*http.Response, bool) {
	return w.match(cache, req, cacheKey(w.origin.ResolveReference(&url.URL{Path: OfflinePage})))
}

// cacheKey is the URL entries are stored under. An empty path is the root.
func cacheKey(u *url.URL) string {
	if u.Path != "" || u.Opaque != "" {
		return u.String()
	}
	c := *u
	c.Path = "/"
	return c.String()
}

func (w *Worker) served(strategy, source string) {
	metrics.OfflineResponses.WithLabelValues(strategy, source).Inc()
}

func entryFor(req *http.Request, resp *http.Response, body []byte) Entry {
	return Entry{
		URL:      cacheKey(req.URL),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}
}

func networkError(req *http.Request) *http.Response {
	return Entry{
		Status: http.StatusRequestTimeout,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte("Network error"),
	}.Response(req)
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
