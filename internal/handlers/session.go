package handlers

import (
	"encoding/json"

	"github.com/contesthub/contesthub/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SessionHandler struct {
	sessions SessionServiceInterface
	hub      EventHubInterface
}

func NewSessionHandler(sessions SessionServiceInterface, hub EventHubInterface) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		hub:      hub,
	}
}

// Get returns the current snapshot, loading flag included, so a page can render before the
// event stream connects.
func (h *SessionHandler) Get(c *drift.Context) {
	_ = c.JSON(200, h.sessions.Snapshot())
}

// Events streams session snapshots and notifications. The current snapshot is sent first so a
// client never waits for the next change to learn the state.
func (h *SessionHandler) Events(c *drift.Context) {
	var topics []sse.Topic
	switch c.QueryParam("topic") {
	case string(sse.TopicSession):
		topics = []sse.Topic{sse.TopicSession}
	case string(sse.TopicNotification):
		topics = []sse.Topic{sse.TopicNotification}
	}

	sseCtx := c.SSE()

	client := sse.NewClient(uuid.New().String(), topics...)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if client.Topics[sse.TopicSession] {
		data, err := json.Marshal(h.sessions.Snapshot())
		if err != nil {
			return
		}
		if err := sseCtx.Send(string(data), string(sse.TopicSession), ""); err != nil {
			return
		}
	}

	done := c.Request.Context().Done()
	for {
		select {
		case frame, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(frame.Data), string(frame.Event), ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
