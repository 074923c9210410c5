package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"trackpulse/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected observer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan WSMessage
}

// ServeWS upgrades an HTTP request to an observer socket.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   utils.GenerateUUID(),
		hub:  hub,
		conn: conn,
		send: make(chan WSMessage, 64),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
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
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("Observer %s read error: %v", c.id, err)
			}
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.sendError("malformed command")
			continue
		}

		switch cmd.Action {
		case WSCmdSubscribe:
			if cmd.DeviceID == "" {
				c.sendError("deviceId required")
				continue
			}
			c.hub.Subscribe(c, cmd.DeviceID)
			c.enqueue(WSMessage{Type: WSTypeSubscribed, DeviceID: cmd.DeviceID, Timestamp: time.Now()})

		case WSCmdUnsubscribe:
			c.hub.Unsubscribe(c, cmd.DeviceID)

		default:
			c.sendError("unknown action")
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

func (c *Client) enqueue(message WSMessage) {
	select {
	case c.send <- message:
	default:
	}
}

func (c *Client) sendError(detail string) {
	c.enqueue(WSMessage{Type: WSTypeError, Data: detail, Timestamp: time.Now()})
}
