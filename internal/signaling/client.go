package signaling

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/rendezvous/internal/metrics"
)

// Client wraps a single WebSocket connection (one endpoint).
type Client struct {
	// ID identifies the connection in logs.
	ID uuid.UUID

	// ConnectedAt is when the transport accepted the connection.
	ConnectedAt time.Time

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// Send is the bounded outbound queue. Only the hub goroutine writes to it
	// and only the hub closes it; WritePump drains it onto the connection.
	Send chan *Message

	hub   *Hub
	codec Codec
}

// NewClient wraps conn for use with hub. Frames are encoded with codec.
func NewClient(hub *Hub, conn *websocket.Conn, codec Codec) *Client {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Client{
		ID:          uuid.New(),
		ConnectedAt: time.Now(),
		Conn:        conn,
		Send:        make(chan *Message, hub.cfg.SendQueueSize),
		hub:         hub,
		codec:       codec,
	}
}

// enqueue hands msg to the write pump without blocking. A full queue drops
// msg and reports false.
func (c *Client) enqueue(msg *Message) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) logger() *slog.Logger {
	return c.hub.logger.With("conn_id", c.ID.String())
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine. Frames reach the hub in the order they were read.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	cfg := c.hub.cfg
	c.Conn.SetReadLimit(cfg.MaxPayloadBytes)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger().Warn("Read failed", "err", err)
			}
			return
		}

		msg, err := c.codec.Decode(data)
		if err != nil || msg.Type == "" {
			c.logger().Debug("Dropping malformed frame", "codec", c.codec.Name(), "err", err)
			c.hub.metrics.Dropped("", metrics.DropReasonMalformedFrame)
			continue
		}

		req := &Request{Client: c, Event: msg.Type, Payload: msg.Payload}
		if msg.Ack != nil {
			req.Ack = NewReply(*msg.Ack)
		}
		if !c.hub.Dispatch(req) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				// The hub closed the queue.
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := c.codec.Encode(msg)
			if err != nil {
				c.logger().Error("Encoding frame failed", "event", msg.Type, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.logger().Debug("Write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
