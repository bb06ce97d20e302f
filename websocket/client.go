package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clinicdesk/clinic-assistant/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// MessageHandler receives each inbound frame. It runs on the read pump
// goroutine; long work must be spawned off.
type MessageHandler func(c *Client, data []byte)

// Client is one websocket connection attached to a hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	onMsg   MessageHandler
	onClose func(c *Client)
}

// NewUpgrader builds the handshake upgrader with an origin allowlist.
// "*" (or an empty list) allows any origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// Serve attaches conn to the hub and starts both pumps. onMsg handles
// inbound frames; onClose (optional) fires when the connection drops.
func Serve(hub *Hub, conn *websocket.Conn, onMsg MessageHandler, onClose func(c *Client)) *Client {
	c := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 32),
		onMsg:   onMsg,
		onClose: onClose,
	}
	hub.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

// Send queues a frame for this client only. Returns false if the client's
// buffer is full or the connection is gone.
func (c *Client) Send(msg []byte) bool {
	defer func() { recover() }() // send channel closes on unregister
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.For("websocket").Debug().Err(err).Msg("read error")
			}
			return
		}
		if c.onMsg != nil {
			c.onMsg(c, data)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
