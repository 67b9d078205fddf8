package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/contesthub/contesthub/internal/session"
	"go.uber.org/zap"
)

type Topic string

const (
	TopicSession      Topic = "session"
	TopicNotification Topic = "notification"
)

var AllTopics = []Topic{TopicSession, TopicNotification}

type Event struct {
	Type Topic `json:"type"`
	Data any   `json:"data"`
}

// Frame is one encoded event as a client receives it.
type Frame struct {
	Event Topic
	Data  []byte
}

type Client struct {
	ID     string
	Topics map[Topic]bool
	Send   chan Frame
}

func NewClient(id string, topics ...Topic) *Client {
	if len(topics) == 0 {
		topics = AllTopics
	}
	c := &Client{
		ID:     id,
		Topics: make(map[Topic]bool, len(topics)),
		Send:   make(chan Frame, 64),
	}
	for _, t := range topics {
		c.Topics[t] = true
	}
	return c
}

type Metrics interface {
	SSEClientConnected()
	SSEClientDisconnected()
}

// Hub fans session snapshots and notifications out to the connected event streams.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	mu         sync.RWMutex
	metrics    Metrics
	logger     *zap.Logger
}

func NewHub(metrics Metrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.Named("sse"),
	}
}

// Run dispatches until ctx ends, then closes every client. Register and Unregister stop
// blocking once Run has returned.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.metrics != nil {
				h.metrics.SSEClientConnected()
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				if h.metrics != nil {
					h.metrics.SSEClientDisconnected()
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event.Data)
			if err != nil {
				h.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.Topics[event.Type] {
					select {
					case client.Send <- Frame{Event: event.Type, Data: data}:
					default:
						h.logger.Warn("client buffer full, dropping event", zap.String("client", client.ID))
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds client to the fan-out. After shutdown the client's channel is closed at once.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// publish never blocks; it runs inside the session store's listeners.
func (h *Hub) publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("event queue full, dropping event", zap.String("type", string(event.Type)))
	}
}

// PublishSession is a session.Store listener.
func (h *Hub) PublishSession(snap session.Snapshot) {
	h.publish(Event{Type: TopicSession, Data: snap})
}

// Notify makes the Hub a session.Notifier.
func (h *Hub) Notify(n session.Notification) {
	h.publish(Event{Type: TopicNotification, Data: n})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
