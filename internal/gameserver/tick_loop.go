package gameserver

import (
	"context"
	"sync"
	"time"
)

// TickLoop drives registered callbacks at a fixed interval, handing each
// the wall-clock time since the previous tick.
//
// Invariant: callbacks run sequentially on the loop goroutine, at most once
// per tick.
type TickLoop struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func(delta time.Duration)
	now      func() time.Time
}

// NewTickLoop returns a loop that fires every interval.
//
// Precondition: interval must be > 0.
func NewTickLoop(interval time.Duration) *TickLoop {
	if interval <= 0 {
		panic("gameserver.NewTickLoop: interval must be > 0")
	}
	return &TickLoop{
		interval: interval,
		ticks:    make(map[string]func(time.Duration)),
		now:      time.Now,
	}
}

// Interval returns the configured tick interval.
func (l *TickLoop) Interval() time.Duration { return l.interval }

// Register installs fn under id, replacing any previous callback.
func (l *TickLoop) Register(id string, fn func(delta time.Duration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks[id] = fn
}

// Unregister removes the callback for id.
func (l *TickLoop) Unregister(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ticks, id)
}

// Len returns the number of registered callbacks.
func (l *TickLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ticks)
}

// Fire runs every registered callback once with delta.
func (l *TickLoop) Fire(delta time.Duration) {
	l.mu.Lock()
	callbacks := make([]func(time.Duration), 0, len(l.ticks))
	for _, fn := range l.ticks {
		callbacks = append(callbacks, fn)
	}
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(delta)
	}
}

// Run ticks until ctx is cancelled.
//
// Postcondition: returns ctx.Err().
func (l *TickLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := l.now()
			l.Fire(now.Sub(last))
			last = now
		}
	}
}
