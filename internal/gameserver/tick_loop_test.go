package gameserver_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/survivors/internal/gameserver"
)

func TestTickLoop_RunStopsOnCancel(t *testing.T) {
	l := gameserver.NewTickLoop(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("tick loop did not stop")
	}
}

func TestTickLoop_CallbackGetsPositiveDelta(t *testing.T) {
	l := gameserver.NewTickLoop(10 * time.Millisecond)
	deltas := make(chan time.Duration, 8)
	l.Register("a", func(d time.Duration) {
		select {
		case deltas <- d:
		default:
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	select {
	case d := <-deltas:
		assert.Greater(t, d, time.Duration(0))
	case <-ctx.Done():
		t.Fatal("callback not invoked")
	}
}

func TestTickLoop_FireAndUnregister(t *testing.T) {
	l := gameserver.NewTickLoop(time.Hour)
	var count atomic.Int64
	l.Register("a", func(time.Duration) { count.Add(1) })
	l.Register("b", func(time.Duration) { count.Add(10) })
	require.Equal(t, 2, l.Len())

	l.Fire(time.Millisecond)
	assert.Equal(t, int64(11), count.Load())

	l.Unregister("b")
	l.Fire(time.Millisecond)
	assert.Equal(t, int64(12), count.Load())
}

func TestNewTickLoop_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { gameserver.NewTickLoop(0) })
}
