// Package realtime pushes back-office events to connected admin dashboards.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Feed events share names with the webhook event types.
const (
	EventRegistrationCreated      = models.NotifyRegistrationCreated
	EventEventRegistrationCreated = models.NotifyEventRegistrationCreated
	EventPaymentUpdated           = models.NotifyPaymentUpdated
)

// Hub keeps the connected admin clients and broadcasts feed events to them.
// With a Redis bridge, events published on any instance reach every instance's clients.
type Hub struct {
	clients  map[string]*Client
	cancel   func() // stops the Redis subscription while clients are connected
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes feed events for other instances.
type RedisPublisher interface {
	PublishFeedEvent(event string, payload []byte) error
}

// RedisSubscriber subscribes to the feed channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a hub. Both Redis arguments may be nil for a single-instance deployment.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client. Starts the Redis subscription for the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if len(h.clients) == 0 && h.redisSub != nil && h.cancel == nil {
		cancel, err := h.redisSub.SubscribeFeed(func(event string, payload []byte) {
			h.Broadcast(event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("feed subscribe failed, serving local events only", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("admin joined feed", zap.String("client_id", c.ID), zap.String("user_id", c.UserID))
}

// Unregister removes a client. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.logger.Debug("admin left feed", zap.String("client_id", c.ID))
}

// Count returns the number of connected clients on this instance.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to local clients only. Slow clients drop messages.
func (h *Hub) Broadcast(event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("encode feed event failed", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to every admin on every instance. With Redis the subscriber callback
// performs the broadcast, including on this instance, so local clients get it exactly once.
func (h *Hub) Publish(event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("encode feed event failed", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.redis.PublishFeedEvent(event, data); err != nil {
		h.logger.Warn("publish feed event failed, broadcasting locally", zap.String("event", event), zap.Error(err))
		h.Broadcast(event, json.RawMessage(data))
	}
}
