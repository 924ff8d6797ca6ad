package session

import (
	"sync"

	"github.com/gorilla/websocket"
)

// sendQueueSize bounds each connection's outbound queue. When the queue is
// full the oldest frame is dropped so the newest code/presence frame always
// lands; a slow consumer loses stale snapshots instead of stalling the
// session. Frames that stay queued are delivered in FIFO order by a single
// write pump, so one connection never sees reordering.
const sendQueueSize = 32

// Client is one live connection to a session. The identity is generated at
// accept time and is unique within the session.
type Client struct {
	ID   string
	Name string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	hook func([]byte)
}

func NewClient(id, name string, conn *websocket.Conn) *Client {
	c := &Client{
		ID:   id,
		Name: name,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	if conn != nil {
		go c.writePump()
	}
	return c
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func([]byte)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send enqueues a frame for delivery. It never blocks: when the queue is
// full the oldest queued frame is discarded to make room.
func (c *Client) Send(msg []byte) {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(msg)
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send: // drop oldest
		default:
		}
	}
}

// Open reports whether the connection has not been closed yet. A client
// removed mid-broadcast may still receive that one broadcast; that is fine.
func (c *Client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close shuts down the write pump and the underlying connection. Safe to
// call from any exit path, any number of times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Write failures are isolated to this connection; the
				// read loop observes the closed conn and triggers Leave.
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
