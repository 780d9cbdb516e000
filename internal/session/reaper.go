package session

import (
	"context"
	"sync"
	"time"
)

// Reaper periodically removes expired sessions.
type Reaper struct {
	mu       sync.RWMutex
	manager  *Manager
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewReaper(m *Manager, interval time.Duration) *Reaper {
	return &Reaper{manager: m, interval: interval}
}

// Start begins the reaper loop.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()
}

// Stop stops the loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	done := r.done
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (r *Reaper) tick() {
	n, err := r.manager.Reap()
	if err != nil {
		r.manager.logger.Error("reap sessions", "error", err)
		return
	}
	if n > 0 {
		r.manager.logger.Info("reaped expired sessions", "count", n)
	}
}
