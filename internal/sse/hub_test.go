package sse

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clientGauge struct {
	mu      sync.Mutex
	current int
}

func (g *clientGauge) SSEClientConnected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
}

func (g *clientGauge) SSEClientDisconnected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

func (g *clientGauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func runHub(t *testing.T) (*Hub, *clientGauge) {
	t.Helper()
	gauge := &clientGauge{}
	hub := NewHub(gauge, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, gauge
}

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case f, ok := <-c.Send:
		require.True(t, ok, "client channel closed")
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return Frame{}
}

func TestNewClient_DefaultTopics(t *testing.T) {
	c := NewClient("c1")
	assert.True(t, c.Topics[TopicSession])
	assert.True(t, c.Topics[TopicNotification])

	only := NewClient("c2", TopicNotification)
	assert.False(t, only.Topics[TopicSession])
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub, gauge := runHub(t)
	client := NewClient("c1")

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, gauge.value())

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, gauge.value())

	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub, gauge := runHub(t)
	client := NewClient("c1")

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, gauge.value())
}

func TestHub_PublishSession(t *testing.T) {
	hub, _ := runHub(t)
	client := NewClient("c1")
	hub.Register(client)

	hub.PublishSession(session.Snapshot{
		User:  &models.User{ID: "uid-1", Name: "John", Role: models.RoleAdmin},
		Phase: session.PhaseConfirmed,
	})

	frame := receive(t, client)
	assert.Equal(t, TopicSession, frame.Event)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(frame.Data, &snap))
	require.NotNil(t, snap.User)
	assert.Equal(t, "uid-1", snap.User.ID)
	assert.False(t, snap.IsLoading)
}

func TestHub_NotifyRespectsTopics(t *testing.T) {
	hub, _ := runHub(t)
	sessionOnly := NewClient("s", TopicSession)
	everything := NewClient("e")
	hub.Register(sessionOnly)
	hub.Register(everything)

	hub.Notify(session.Notification{ID: "n1", Level: session.LevelError, Title: "Login Failed", Text: "Incorrect password"})

	frame := receive(t, everything)
	assert.Equal(t, TopicNotification, frame.Event)
	assert.Contains(t, string(frame.Data), `"text":"Incorrect password"`)

	select {
	case f := <-sessionOnly.Send:
		t.Fatalf("unexpected frame %q", f.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_OrderPreserved(t *testing.T) {
	hub, _ := runHub(t)
	client := NewClient("c1", TopicNotification)
	hub.Register(client)

	for _, id := range []string{"a", "b", "c"} {
		hub.Notify(session.Notification{ID: id})
	}

	for _, id := range []string{"a", "b", "c"} {
		var n session.Notification
		require.NoError(t, json.Unmarshal(receive(t, client).Data, &n))
		assert.Equal(t, id, n.ID)
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Notify(session.Notification{ID: "n"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running hub")
	}
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient("c1")
	hub.Register(client)
	cancel()
	<-stopped

	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_UnregisterAfterShutdown(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient("c1")
	hub.Register(client)
	cancel()
	<-stopped
	for range client.Send {
	}

	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after the hub stopped")
	}
}

func TestHub_RegisterAfterShutdownClosesClient(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	client := NewClient("late")
	hub.Register(client)

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())
}
