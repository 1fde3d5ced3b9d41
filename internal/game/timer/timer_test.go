package timer_test

import (
	"testing"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/timer"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type subject struct{ active bool }

func (s *subject) IsActive() bool { return s.active }

func TestSet_After_FiresOnce(t *testing.T) {
	var s timer.Set
	calls := 0
	s.After(100*time.Millisecond, func() { calls++ })

	s.Advance(99 * time.Millisecond)
	assert.Equal(t, 0, calls)
	s.Advance(1 * time.Millisecond)
	assert.Equal(t, 1, calls)
	s.Advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
}

func TestSet_Cancel_PreventsCallback(t *testing.T) {
	var s timer.Set
	calls := 0
	h := s.After(10*time.Millisecond, func() { calls++ })
	h.Cancel()
	h.Cancel()
	s.Advance(time.Second)
	assert.Equal(t, 0, calls)
	assert.False(t, h.Pending())
}

func TestSet_Every_FiresAtMostOncePerAdvance(t *testing.T) {
	var s timer.Set
	calls := 0
	s.Every(10*time.Millisecond, func() { calls++ })
	s.Advance(35 * time.Millisecond)
	assert.Equal(t, 1, calls)
	s.Advance(0)
	assert.Equal(t, 2, calls, "clamped backlog fires on the next advance")
	s.Advance(10 * time.Millisecond)
	assert.Equal(t, 3, calls)
}

func TestSet_AfterFor_SkipsInactiveSubject(t *testing.T) {
	var s timer.Set
	subj := &subject{active: true}
	calls := 0
	s.AfterFor(subj, 10*time.Millisecond, func() { calls++ })
	subj.active = false
	s.Advance(time.Second)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, s.Len())
}

func TestSet_CancelAll_FromCallback(t *testing.T) {
	var s timer.Set
	calls := 0
	s.After(10*time.Millisecond, func() {
		calls++
		s.CancelAll()
	})
	s.After(10*time.Millisecond, func() { calls++ })
	s.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
}

func TestSet_ScheduleDuringAdvance(t *testing.T) {
	var s timer.Set
	calls := 0
	s.After(5*time.Millisecond, func() {
		s.After(5*time.Millisecond, func() { calls++ })
	})
	s.Advance(5 * time.Millisecond)
	assert.Equal(t, 0, calls)
	s.Advance(5 * time.Millisecond)
	assert.Equal(t, 1, calls)
}

func TestSet_Property_OneShotFiresExactlyOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var s timer.Set
		d := time.Duration(rapid.IntRange(1, 1000).Draw(rt, "delay_ms")) * time.Millisecond
		steps := rapid.SliceOfN(rapid.IntRange(0, 200), 1, 50).Draw(rt, "steps_ms")
		calls := 0
		s.After(d, func() { calls++ })
		var total time.Duration
		for _, st := range steps {
			total += time.Duration(st) * time.Millisecond
			s.Advance(time.Duration(st) * time.Millisecond)
		}
		if total >= d {
			assert.Equal(rt, 1, calls)
		} else {
			assert.Equal(rt, 0, calls)
		}
	})
}
