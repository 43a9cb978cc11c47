package realtime

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ClientOptions bounds a single WebSocket connection.
type ClientOptions struct {
	MaxMessageSize int64
	SendBuffer     int
	RateBurst      int
	RateInterval   time.Duration
}

// Client is a WebSocket connection attached to the hub. The hub owns its send
// buffer: only the hub loop sends to it or closes it.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	id      ConnID
	addr    string
	userID  string
	name    string
	limiter *tokenBucket
	opts    ClientOptions
	logger  *slog.Logger

	closeOnce sync.Once
	closed    bool
}

// NewClient prepares a client for an upgraded connection whose user was
// verified during the handshake.
func NewClient(conn *websocket.Conn, hub *Hub, addr, userID, name string, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if conn != nil && opts.MaxMessageSize > 0 {
		conn.SetReadLimit(opts.MaxMessageSize)
	}

	return &Client{
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		hub:     hub,
		addr:    addr,
		userID:  userID,
		name:    name,
		limiter: newTokenBucket(opts.RateBurst, opts.RateInterval),
		opts:    opts,
		logger:  hub.logger.With("remote_addr", addr, "user_id", userID),
	}
}

// ID returns the hub-assigned connection ID.
func (c *Client) ID() ConnID {
	return c.id
}

// AuthenticatedUser implements Authenticated.
func (c *Client) AuthenticatedUser() (string, string) {
	return c.userID, c.name
}

// Send implements Conn. It never blocks.
func (c *Client) Send(frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements Conn. The write pump sends a close frame once the buffer drains.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed = true
		close(c.send)
	})
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError logs the read failure at a level matching its cause.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "max_bytes", c.opts.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Debug("client disconnected", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("client connection closed", "error", err)
	default:
		c.logger.Warn("websocket read error", "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.closeConn()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.logger.Warn("rate limit exceeded; discarding message",
				"burst", c.opts.RateBurst,
				"interval", c.opts.RateInterval)
			continue
		}

		event, err := DecodeInbound(raw)
		if err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}
		c.hub.Dispatch(c.id, event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeFrame(frame, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one frame per WebSocket message, or a close frame once the
// hub has closed the buffer.
func (c *Client) writeFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.logger.Debug("error writing close message", "error", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug("error writing ping", "error", err)
		return false
	}
	return true
}

func (c *Client) closeConn() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error closing connection", "error", err)
	}
}

// isExpectedCloseError reports errors produced by a connection that is
// already shutting down.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
