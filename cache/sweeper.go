package cache

import (
	"log/slog"
	"time"
)

// Sweepable is any cache that can evict its expired entries.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically evicts expired entries from one or more caches.
// Lazy eviction on Get keeps reads correct on its own; the sweeper just
// bounds memory held by keys that are never looked up again.
type Sweeper struct {
	caches   []Sweepable
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	logger   *slog.Logger
}

// NewSweeper creates a sweeper over the given caches. It does not start
// sweeping until Start is called.
func NewSweeper(interval time.Duration, caches ...Sweepable) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		caches:   caches,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "cache-sweeper"),
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				removed := 0
				for _, c := range s.caches {
					removed += c.Sweep()
				}
				if removed > 0 {
					s.logger.Debug("swept expired cache entries", "removed", removed)
				}
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}
