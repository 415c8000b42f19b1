package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialTestClient(t *testing.T, h *Hub, userID uint) (*Client, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}
	registered := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		registered <- h.Register(conn, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case c := <-registered:
		return c, conn
	case <-time.After(2 * time.Second):
		t.Fatal("client never registered")
		return nil, nil
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	h := New()
	c, conn := dialTestClient(t, h, 7)
	c.Subscribe(42)

	h.Publish(Event{Type: "task.moved", ProjectID: 42, ActorID: 7})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "task.moved", got.Type)
	require.Equal(t, uint(42), got.ProjectID)
	require.False(t, got.At.IsZero())
}

func TestPublishSkipsOtherProjects(t *testing.T) {
	h := New()
	c, conn := dialTestClient(t, h, 7)
	c.Subscribe(1)

	h.Publish(Event{Type: "task.created", ProjectID: 2, ActorID: 7})
	h.Publish(Event{Type: "task.created", ProjectID: 1, ActorID: 7})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, uint(1), got.ProjectID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New()
	c, _ := dialTestClient(t, h, 3)
	c.Subscribe(5)
	c.Unsubscribe(5)
	require.False(t, c.subscribed(5))
}

func TestCloseRemovesClient(t *testing.T) {
	h := New()
	c, _ := dialTestClient(t, h, 3)
	require.Equal(t, 1, h.ClientCount())
	c.Close()
	c.Close() // idempotent
	require.Equal(t, 0, h.ClientCount())
}
