package session

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/arnab9957/CodeFuse/internal/models"
)

// Client wraps one websocket connection with a serialized writer.
type Client struct {
	ID   string
	Conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Event)
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, Conn: conn}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Event)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send writes the event to the peer. Write errors are swallowed: a dead
// connection is cleaned up by its own read loop.
func (c *Client) Send(evt models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(evt)
		return
	}
	if c.Conn == nil {
		return
	}
	_ = c.Conn.WriteJSON(evt)
}
