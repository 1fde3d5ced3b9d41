package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/survivors/internal/game/event"
)

func TestBus_FansOutInSubscriptionOrder(t *testing.T) {
	var order []string
	a := event.SinkFunc(func(event.Event) { order = append(order, "a") })
	b := event.SinkFunc(func(event.Event) { order = append(order, "b") })
	bus := event.NewBus(a, nil)
	bus.Subscribe(b)
	bus.Subscribe(nil)

	bus.Publish(event.Event{Kind: event.WaveChanged})
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRecorder_CountAndReset(t *testing.T) {
	rec := &event.Recorder{}
	bus := event.NewBus(rec)
	bus.Publish(event.Event{Kind: event.EnemyKilled})
	bus.Publish(event.Event{Kind: event.EnemyKilled})
	bus.Publish(event.Event{Kind: event.BossSpawned})

	assert.Equal(t, 2, rec.Count(event.EnemyKilled))
	assert.Equal(t, 1, rec.Count(event.BossSpawned))
	evs := rec.Events()
	require.Len(t, evs, 3)
	evs[0].Kind = event.RunEnded
	assert.Equal(t, event.EnemyKilled, rec.Events()[0].Kind, "Events returns a copy")

	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	rec := &event.Recorder{}
	bus := event.NewBus(rec)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(event.Event{Kind: event.PickupCollected})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, rec.Count(event.PickupCollected))
}

func TestLogSink_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := event.NewLogSink(zap.New(core))
	sink.Publish(event.Event{Kind: event.BossSpawned, At: 5 * time.Minute, Ref: "giant_bat", Value: 1})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boss_spawned", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "giant_bat", entries[0].ContextMap()["ref"])
}

func TestLogSink_SilentAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	event.NewLogSink(zap.New(core)).Publish(event.Event{Kind: event.EnemyKilled})
	assert.Zero(t, logs.Len())
	event.NewLogSink(nil).Publish(event.Event{Kind: event.EnemyKilled})
}
