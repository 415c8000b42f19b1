// Package hub fans project events out to connected websocket clients.
// Each client subscribes to the projects it can see; publishes are
// non-blocking and slow clients are dropped rather than stalling the
// event path.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"
)

const (
	// WriteTimeout specifies the maximum duration for completing a write operation.
	WriteTimeout = 10 * time.Second
	// PingInterval keeps intermediaries from closing idle connections.
	PingInterval = 30 * time.Second

	sendBufferSize = 64
)

// Event is the wire envelope pushed to clients.
type Event struct {
	Type      string    `json:"type"`
	ProjectID uint      `json:"projectId"`
	ActorID   uint      `json:"actorId"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uint
	send     chan []byte
	projects map[uint]struct{}
	mu       sync.RWMutex
	once     sync.Once
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register wraps an upgraded connection and starts its write pump.
// The caller owns the read loop and must call Client.Close when done.
func (h *Hub) Register(conn *websocket.Conn, userID uint) *Client {
	c := &Client{
		hub:      h,
		conn:     conn,
		userID:   userID,
		send:     make(chan []byte, sendBufferSize),
		projects: make(map[uint]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writePump()
	return c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Publish delivers the event to every client subscribed to its project.
// Clients whose buffers are full are disconnected.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		klog.Errorf("hub: marshal event %q: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.subscribed(event.ProjectID) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		klog.Warningf("hub: dropping slow client (user %d)", c.userID)
		c.Close()
	}
}

// ClientCount reports the number of connected clients, for metrics.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) Subscribe(projectID uint) {
	c.mu.Lock()
	c.projects[projectID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) Unsubscribe(projectID uint) {
	c.mu.Lock()
	delete(c.projects, projectID)
	c.mu.Unlock()
}

func (c *Client) subscribed(projectID uint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.projects[projectID]
	return ok
}

func (c *Client) UserID() uint { return c.userID }

// Close tears the client down exactly once; safe from any goroutine.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.remove(c)
		close(c.send)
		c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
