package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// ClientOptions tunes a connection's pumps.
type ClientOptions struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Capacity of the outbound queue
	SendBuffer int
}

// DefaultClientOptions matches the config package defaults.
var DefaultClientOptions = ClientOptions{
	WriteWait:      10 * time.Second,
	PongWait:       60 * time.Second,
	MaxMessageSize: 64 * 1024,
	SendBuffer:     256,
}

// pingPeriod must be less than PongWait.
func (o ClientOptions) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Client is one relay connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	opts ClientOptions

	// id is the connection identifier handed to other participants.
	id string

	// send is closed by the hub when the connection is unregistered.
	send chan []byte
}

// NewClient wraps conn. The connection is not registered with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, id string, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultClientOptions.SendBuffer
	}
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultClientOptions.PongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = DefaultClientOptions.WriteWait
	}
	return &Client{
		hub:  hub,
		conn: conn,
		opts: opts,
		id:   id,
		send: make(chan []byte, opts.SendBuffer),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// readPump pumps frames from the websocket connection to the hub. It owns
// all reads on the connection and triggers the disconnect path on exit.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "conn", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring undecodable frame", "conn", c.id, "error", err)
			continue
		}
		c.hub.Dispatch(c, msg)
	}
}

// writePump pumps frames from the hub to the websocket connection. It owns
// all writes on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame so clients can decode each independently.
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("websocket write failed", "conn", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
