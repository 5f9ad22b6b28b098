// Package debounce delays propagation of a rapidly changing value until it
// has stayed unchanged for a fixed delay.
package debounce

import (
	"sync"
	"time"
)

// Debouncer emits the last value passed to Set once no newer value has
// arrived for delay. Intermediate values are dropped.
//
// fn runs on a timer goroutine and must not call Stop or Flush.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	value   T
	pending bool
	stopped bool

	// emitMu serialises emission against Stop so nothing is emitted once
	// Stop has returned.
	emitMu sync.Mutex
}

// New returns a Debouncer calling fn with each settled value.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Set records v and restarts the timer. Calls after Stop are ignored.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending reports whether a value is waiting for its timer.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush emits the pending value immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	v, ok := d.take(0, false)
	if ok {
		d.fn(v)
	}
}

// Stop cancels the pending timer. Once Stop returns fn is never called again.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	// Wait out an emission that already passed its checks.
	d.emitMu.Lock()
	d.emitMu.Unlock()
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	v, ok := d.take(gen, true)
	if ok {
		d.fn(v)
	}
}

// take claims the pending value. With matchGen set, only the timer of the
// most recent Set may claim it.
func (d *Debouncer[T]) take(gen uint64, matchGen bool) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if d.stopped || !d.pending || (matchGen && gen != d.gen) {
		return zero, false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	v := d.value
	d.value = zero
	return v, true
}
