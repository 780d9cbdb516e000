package websocket

import (
	"context"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single WebSocket connection subscribed to one room.
type Client struct {
	hub         *Hub
	conn        *ws.Conn
	roomID      int64
	send        chan []byte
	onRoomEvent func()
}

// NewClient creates a Client tied to the given hub, connection and room.
func NewClient(hub *Hub, conn *ws.Conn, roomID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		roomID: roomID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) RoomID() int64 {
	return c.roomID
}

// OnRoomEvent sets a callback run whenever a message for the client's room
// is broadcast. It must not block. Set it before Run.
func (c *Client) OnRoomEvent(fn func()) {
	c.onRoomEvent = fn
}

// Run registers the client, starts the write pump and the given tasks, and
// runs the read pump. It blocks until the connection is closed, cancels the
// tasks, waits for them, then unregisters.
func (c *Client) Run(ctx context.Context, tasks ...func(context.Context)) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			task(ctx)
		}()
	}
	defer wg.Wait()
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close ends the connection with a normal closure and reason.
func (c *Client) Close(reason string) {
	c.conn.Close(ws.StatusNormalClosure, reason)
}
