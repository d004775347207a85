package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localClient(h *Hub, id string) *Client {
	return &Client{ID: id, hub: h, send: make(chan WSMessage, 4)}
}

func TestHubBroadcastLocal(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a, b := localClient(h, "a"), localClient(h, "b")
	h.Register(a)
	h.Register(b)
	require.Equal(t, 2, h.Count())

	h.Publish(EventRegistrationCreated, map[string]string{"code": "REG-ABCD1234"})
	for _, c := range []*Client{a, b} {
		msg := <-c.send
		assert.Equal(t, EventRegistrationCreated, msg.Event)
		assert.JSONEq(t, `{"code":"REG-ABCD1234"}`, string(msg.Data))
	}

	h.Unregister(a)
	assert.Equal(t, 1, h.Count())
	_, open := <-a.send
	assert.False(t, open)
}

func TestHubDropsForSlowClient(t *testing.T) {
	h := NewHub(nil, nil, nil)
	c := &Client{ID: "slow", hub: h, send: make(chan WSMessage, 1)}
	h.Register(c)
	h.Broadcast("a", 1)
	h.Broadcast("b", 2)
	assert.Len(t, c.send, 1)
}

// loopback stands in for Redis: published events come back through the subscription.
type loopback struct {
	mu        sync.Mutex
	handler   func(string, []byte)
	published int
	cancelled bool
	fail      bool
}

func (l *loopback) PublishFeedEvent(event string, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("redis down")
	}
	l.published++
	if l.handler != nil {
		l.handler(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeFeed(handler func(string, []byte)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
	return func() { l.cancelled = true }, nil
}

func TestHubPublishThroughRedisDeliversOnce(t *testing.T) {
	lb := &loopback{}
	h := NewHub(nil, lb, lb)
	c := localClient(h, "a")
	h.Register(c)

	h.Publish(EventPaymentUpdated, map[string]string{"status": "paid"})
	assert.Equal(t, 1, lb.published)
	require.Len(t, c.send, 1)
	assert.Equal(t, EventPaymentUpdated, (<-c.send).Event)

	h.Unregister(c)
	assert.True(t, lb.cancelled)
}

func TestHubPublishFallsBackWhenRedisFails(t *testing.T) {
	lb := &loopback{fail: true}
	h := NewHub(nil, lb, lb)
	c := localClient(h, "a")
	h.Register(c)

	h.Publish(EventPaymentUpdated, "x")
	require.Len(t, c.send, 1)
}

func validator(token string) (string, string, error) {
	switch token {
	case "admin-token":
		return "u1", "admin", nil
	case "guest-token":
		return "u2", "member", nil
	}
	return "", "", errors.New("bad token")
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/admin/ws", ServeWs(h, NewUpgrader(nil), validator, nil, "admin", "editor"))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws"

	for token, want := range map[string]int{"": http.StatusBadRequest, "nope": http.StatusUnauthorized, "guest-token": http.StatusForbidden} {
		_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, want, resp.StatusCode, "token %q", token)
		resp.Body.Close()
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token=admin-token", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)

	h.Publish(EventRegistrationCreated, map[string]int{"final_price": 7000})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventRegistrationCreated, msg.Event)
	var data map[string]int
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, 7000, data["final_price"])

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Event)

	conn.Close()
	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestUpgraderOrigins(t *testing.T) {
	up := NewUpgrader([]string{"https://admin.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, up.CheckOrigin(req))
}
