// Package refresh drives the periodic background refresh of the catalog.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"
)

// Func performs one refresh. It receives a context bounded by the scheduler timeout.
type Func func(ctx context.Context)

// Scheduler owns at most one periodic timer. Reconfiguring always cancels the
// previous timer before a new one is armed.
type Scheduler struct {
	run     Func
	timeout time.Duration
	logger  *log.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// NewScheduler creates an idle Scheduler. Each tick runs fn with a context that
// expires after timeout.
func NewScheduler(fn Func, timeout time.Duration, logger *log.Logger) *Scheduler {
	return &Scheduler{run: fn, timeout: timeout, logger: logger}
}

// Reconfigure replaces the active timer. With enabled false or a non-positive
// interval no timer remains armed.
func (s *Scheduler) Reconfigure(enabled bool, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if !enabled || interval <= 0 {
		s.logger.Println("INFO: Auto refresh disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done, s.interval = cancel, done, interval
	go s.loop(ctx, interval, done)
	s.logger.Printf("INFO: Auto refresh enabled: every %s", interval)
}

// Active reports the interval of the armed timer, or false when none is armed.
func (s *Scheduler) Active() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval, s.cancel != nil
}

// Stop disarms the timer and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done, s.interval = nil, nil, 0
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, s.timeout)
			s.run(tickCtx)
			cancel()
		}
	}
}
