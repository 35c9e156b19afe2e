package push

import (
	"encoding/json"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/gorilla/websocket"
)

// Client is one connected screen inside a school group. The read pump is the
// connection owner: when it returns the client is unregistered and the
// socket closed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	school int64
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, school int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		school: school,
		send:   make(chan []byte, params.DisplayConfig().WSSendBuffer),
	}
}

// readPump consumes inbound frames. The protocol only recognizes ping;
// anything else is noise. Clients ping on a fixed cadence, so the rolling
// read deadline reaps connections that fall silent.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			log.WithError(err).Debug("Could not close socket")
		}
	}()

	cfg := params.DisplayConfig()
	c.conn.SetReadLimit(cfg.WSMaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(cfg.WSReadTimeout)); err != nil {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("Socket read ended")
			}
			return
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(cfg.WSReadTimeout)); err != nil {
			return
		}

		var msg display.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug("Dropped malformed socket frame")
			continue
		}
		switch msg.Type {
		case display.MsgPing:
			c.enqueue(pongMessage)
		default:
			log.WithField("type", msg.Type).Debug("Ignoring unexpected socket message")
		}
	}
}

var pongMessage = mustMarshal(&display.WSMessage{Type: display.MsgPong})

func mustMarshal(msg *display.WSMessage) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// enqueue offers a frame to the write pump without ever blocking the read
// side. A full queue just skips the frame; invalidations lost this way are
// recovered by the next poll.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// writePump flushes the send queue until the hub closes it, then says
// goodbye to the peer.
func (c *Client) writePump() {
	timeout := params.DisplayConfig().WSWriteTimeout
	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Debug("Socket write failed")
			return
		}
	}
	deadline := time.Now().Add(timeout)
	closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
	if err := c.conn.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil {
		log.WithError(err).Debug("Could not write socket close")
	}
}
