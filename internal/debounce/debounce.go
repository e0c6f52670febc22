// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used for text and number inputs.
const DefaultWindow = 300 * time.Millisecond

type pending struct {
	timer *time.Timer
	fn    func()
}

// Debouncer runs, per key, only the last function submitted within a window.
// Each Call restarts the window for its key; different keys are independent.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	stopped bool
}

// New returns a Debouncer with the given window. A non-positive window uses DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, pending: make(map[string]*pending)}
}

// Window returns the configured quiet period.
func (d *Debouncer) Window() time.Duration { return d.window }

// Call schedules fn for key, replacing any call still waiting for that key.
func (d *Debouncer) Call(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{fn: fn}
	p.timer = time.AfterFunc(d.window, func() { d.fire(key, p) })
	d.pending[key] = p
}

func (d *Debouncer) fire(key string, p *pending) {
	d.mu.Lock()
	// A newer call may have replaced p after its timer already started.
	if d.pending[key] != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	p.fn()
}

// Pending reports how many keys have a call waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every waiting call now, in no particular order.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Stop drops every waiting call. Later Calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
