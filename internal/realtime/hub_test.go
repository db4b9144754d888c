package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"quizhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, queueSize int) *Hub {
	t.Helper()
	hub := NewHub(queueSize, logger.NewNop())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	return hub
}

func receive(t *testing.T, sub *Subscriber) Envelope {
	t.Helper()
	select {
	case payload, ok := <-sub.C():
		require.True(t, ok, "subscriber channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := startHub(t, 8)

	subs := []*Subscriber{hub.Subscribe(), hub.Subscribe(), hub.Subscribe()}
	assert.Equal(t, 3, hub.SubscriberCount())

	hub.Publish("new_comment", map[string]string{"text": "hi"})

	for _, sub := range subs {
		env := receive(t, sub)
		assert.Equal(t, "new_comment", env.Event)
		assert.Equal(t, map[string]interface{}{"text": "hi"}, env.Data)
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	hub := startHub(t, 64)
	sub := hub.Subscribe()

	for i := 0; i < 20; i++ {
		hub.Publish("update_timer", i)
	}
	for i := 0; i < 20; i++ {
		env := receive(t, sub)
		assert.Equal(t, float64(i), env.Data)
	}
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	hub := startHub(t, 2)
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	// fast keeps up, slow never reads until the end
	for i := 0; i < 5; i++ {
		hub.Publish("update_timer", i)
		assert.Equal(t, float64(i), receive(t, fast).Data)
	}

	assert.Equal(t, float64(3), receive(t, slow).Data)
	assert.Equal(t, float64(4), receive(t, slow).Data)
	assert.Equal(t, int64(3), slow.Dropped())
	assert.Equal(t, int64(0), fast.Dropped())
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	hub := startHub(t, 1000)
	sub := hub.Subscribe()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.Publish("like_quiz", fmt.Sprintf("%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		env := receive(t, sub)
		seen[env.Data.(string)] = true
	}
	assert.Len(t, seen, 500)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := startHub(t, 8)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub(8, logger.NewNop())
	go hub.Run()
	sub := hub.Subscribe()

	require.NoError(t, hub.Shutdown(time.Second))

	_, ok := <-sub.C()
	assert.False(t, ok, "subscriber channels close on shutdown")

	assert.NotPanics(t, func() {
		hub.Publish("update_times", nil)
		hub.Unsubscribe(sub)
	})
	assert.Nil(t, hub.Subscribe())
	assert.NoError(t, hub.Shutdown(time.Second))
}
