package signalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Option configures a Client.
type Option func(*Client)

// WithMsgpack asks the server for MessagePack frames.
func WithMsgpack() Option {
	return func(c *Client) { c.subprotocol = signaling.SubprotocolMsgpack }
}

// WithSystemResolver dials with the system resolver only, skipping the
// public DNS fallback.
func WithSystemResolver() Option {
	return func(c *Client) { c.systemDNS = true }
}

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	serverURL   string
	subprotocol string
	systemDNS   bool

	conn  *websocket.Conn
	codec signaling.Codec

	incoming chan *signaling.Message
	outgoing chan *signaling.Message
	done     chan struct{}
	closeMu  sync.Once

	mu      sync.Mutex
	nextAck uint64
	pending map[uint64]chan signaling.Ack
	gone    bool // read side has ended; no more acks will arrive
}

// NewClient creates a new signaling client
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL:   serverURL,
		subprotocol: signaling.SubprotocolJSON,
		incoming:    make(chan *signaling.Message, 64),
		outgoing:    make(chan *signaling.Message, 64),
		done:        make(chan struct{}),
		pending:     make(map[uint64]chan signaling.Ack),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the WebSocket connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{c.subprotocol},
	}
	if !c.systemDNS {
		dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ip, err := Lookup(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("dns lookup failed: %w", err)
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
		}
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.codec = signaling.CodecFor(conn.Subprotocol())
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

// Codec is the negotiated frame codec.
func (c *Client) Codec() signaling.Codec {
	return c.codec
}

// readPump reads frames from the connection. Acks are matched to their
// waiting EmitWithAck call; everything else goes to Incoming.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
		c.failPending()
		c.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := c.codec.Decode(data)
		if err != nil {
			continue
		}

		if msg.Type == signaling.EventAck && msg.Ack != nil {
			c.resolve(*msg.Ack, msg.Payload)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes frames to the connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := c.codec.Encode(msg)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Emit sends a fire-and-forget event.
func (c *Client) Emit(event string, payload any) error {
	msg, err := newMessage(event, payload)
	if err != nil {
		return err
	}
	return c.send(context.Background(), msg)
}

// EmitWithAck sends an event and waits for the server's acknowledgement. A
// negative ack is returned together with a *ServerError.
func (c *Client) EmitWithAck(ctx context.Context, event string, payload any) (signaling.Ack, error) {
	msg, err := newMessage(event, payload)
	if err != nil {
		return signaling.Ack{}, err
	}

	id, wait := c.expectAck()
	defer c.forget(id)
	msg.Ack = &id

	if err := c.send(ctx, msg); err != nil {
		return signaling.Ack{}, err
	}

	select {
	case ack, ok := <-wait:
		if !ok {
			return signaling.Ack{}, ErrClosed
		}
		if !ack.OK {
			return ack, &ServerError{Event: event, Message: ack.Message}
		}
		return ack, nil
	case <-ctx.Done():
		return signaling.Ack{}, ctx.Err()
	}
}

// send queues msg for writePump. It fails once either pump has stopped.
func (c *Client) send(ctx context.Context, msg *signaling.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) expectAck() (uint64, chan signaling.Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextAck++
	ch := make(chan signaling.Ack, 1)
	if c.gone {
		close(ch)
		return c.nextAck, ch
	}
	c.pending[c.nextAck] = ch
	return c.nextAck, ch
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) resolve(id uint64, payload json.RawMessage) {
	var ack signaling.Ack
	if err := json.Unmarshal(payload, &ack); err != nil {
		ack = signaling.Ack{Message: "malformed ack"}
	}

	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ok {
		ch <- ack
	}
}

// failPending wakes every EmitWithAck still waiting once the connection is gone.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Incoming returns the channel of server events other than acks. It is
// closed when the connection ends.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (c *Client) Close() {
	c.closeMu.Do(func() {
		close(c.done)
	})
}

func newMessage(event string, payload any) (*signaling.Message, error) {
	msg := &signaling.Message{Type: event}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	msg.Payload = b
	return msg, nil
}
