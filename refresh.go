package unifeed

import (
	"sync"
	"time"
)

// Refresher re-invokes a recompute callback on a fixed interval until
// stopped. It backs the auto-refresh toggle: contexts that cannot rely on
// change notifications still converge by periodically re-deriving their
// views from full persisted state.
type Refresher struct {
	interval time.Duration
	fn       func()

	mu   sync.Mutex
	stop chan struct{}
}

func NewRefresher(interval time.Duration, fn func()) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{interval: interval, fn: fn}
}

// Start begins the periodic recompute. Starting a running refresher is a
// no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return
	}
	stop := make(chan struct{})
	r.stop = stop

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.fn()
			}
		}
	}()
}

// Stop halts the periodic recompute. Stopping a stopped refresher is a
// no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
}

// Running reports whether the refresher is currently ticking.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}
