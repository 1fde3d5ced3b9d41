// Package timer provides simulation-time timers owned by the actor they act on.
//
// Timers never run on their own goroutine: the owning simulation advances them
// once per tick. Owners cancel their whole Set when they are destroyed, and
// every callback scheduled with a Subject is additionally skipped once that
// subject is no longer active.
package timer

import "time"

// Subject is anything a timer callback acts on.
type Subject interface {
	IsActive() bool
}

type entry struct {
	remaining time.Duration
	interval  time.Duration // 0 = one-shot
	fn        func()
	subject   Subject
	stopped   bool
}

// Handle refers to one scheduled timer.
type Handle struct {
	e *entry
}

// Cancel prevents the callback from firing again. Safe to call multiple
// times and on the zero Handle.
//
// Postcondition: the callback will not be called after Cancel returns.
func (h Handle) Cancel() {
	if h.e != nil {
		h.e.stopped = true
	}
}

// Pending reports whether the timer can still fire.
func (h Handle) Pending() bool {
	return h.e != nil && !h.e.stopped
}

// Remaining returns the time left before the next firing.
func (h Handle) Remaining() time.Duration {
	if h.e == nil || h.e.stopped {
		return 0
	}
	return h.e.remaining
}

// Set is the collection of timers owned by one actor (or by the simulation
// itself). It is not safe for concurrent use; the simulation serialises access.
type Set struct {
	entries []*entry
}

// After schedules fn to run once after d of simulation time.
//
// Precondition: fn must not be nil.
// Postcondition: fn runs during the first Advance that brings the total
// elapsed time to >= d, unless cancelled first.
func (s *Set) After(d time.Duration, fn func()) Handle {
	return s.add(&entry{remaining: d, fn: fn})
}

// AfterFor is After with a liveness guard: fn is skipped and the timer
// cancelled when subject is no longer active at firing time.
func (s *Set) AfterFor(subject Subject, d time.Duration, fn func()) Handle {
	return s.add(&entry{remaining: d, fn: fn, subject: subject})
}

// Every schedules fn to run every interval, starting one interval from now.
//
// Precondition: interval > 0; fn must not be nil.
func (s *Set) Every(interval time.Duration, fn func()) Handle {
	return s.add(&entry{remaining: interval, interval: interval, fn: fn})
}

// EveryFor is Every with a liveness guard on subject.
func (s *Set) EveryFor(subject Subject, interval time.Duration, fn func()) Handle {
	return s.add(&entry{remaining: interval, interval: interval, fn: fn, subject: subject})
}

func (s *Set) add(e *entry) Handle {
	if e.interval < 0 {
		e.interval = 0
	}
	s.entries = append(s.entries, e)
	return Handle{e: e}
}

// Advance moves every timer forward by delta and runs the callbacks that
// came due. A periodic timer fires at most once per Advance. Callbacks may
// schedule or cancel timers on the same Set; timers added during Advance
// start counting on the next call.
//
// Postcondition: returns the number of callbacks run; stopped timers are
// removed from the Set.
func (s *Set) Advance(delta time.Duration) int {
	if delta < 0 {
		delta = 0
	}
	fired := 0
	due := append([]*entry(nil), s.entries...)
	for _, e := range due {
		if e.stopped {
			continue
		}
		e.remaining -= delta
		if e.remaining > 0 {
			continue
		}
		if e.subject != nil && !e.subject.IsActive() {
			e.stopped = true
			continue
		}
		if e.interval > 0 {
			e.remaining += e.interval
			if e.remaining < 0 {
				e.remaining = 0
			}
		} else {
			e.stopped = true
		}
		e.fn()
		fired++
	}
	s.compact()
	return fired
}

// CancelAll stops every timer in the Set.
//
// Postcondition: Len() == 0 and no callback of this Set will run again.
func (s *Set) CancelAll() {
	for _, e := range s.entries {
		e.stopped = true
	}
	s.entries = nil
}

// Len returns the number of timers that can still fire.
func (s *Set) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.stopped {
			n++
		}
	}
	return n
}

func (s *Set) compact() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.stopped {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = live
}
