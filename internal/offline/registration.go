package offline

import (
	"context"
	"net/http"
	"sync"
)

// Registration routes requests to the active worker and replaces it when a
// new version is registered. Before any worker is active, requests go to
// the network transport unchanged.
type Registration struct {
	network http.RoundTripper

	mu     sync.RWMutex
	active *Worker
}

func NewRegistration(network http.RoundTripper) *Registration {
	if network == nil {
		network = http.DefaultTransport
	}
	return &Registration{network: network}
}

// Register installs and activates w, then supersedes the previous worker.
// On failure the previous worker stays in control.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	if err := w.Install(ctx); err != nil {
		return err
	}
	if err := w.Activate(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.active
	r.active = w
	r.mu.Unlock()

	if prev != nil && prev != w {
		prev.supersede()
	}
	return nil
}

// Active returns the controlling worker, or nil.
func (r *Registration) Active() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registration) RoundTrip(req *http.Request) (*http.Response, error) {
	if w := r.Active(); w != nil {
		return w.RoundTrip(req)
	}
	return r.network.RoundTrip(req)
}
