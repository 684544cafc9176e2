package signaling

import (
	"context"
	"log/slog"
	"time"

	"github.com/BioHazard786/rendezvous/internal/metrics"
	"github.com/BioHazard786/rendezvous/internal/registry"
)

// Config holds the per-connection transport limits.
type Config struct {
	// PingInterval is how often the server pings an idle connection. Must be
	// less than PongWait.
	PingInterval time.Duration

	// PongWait is how long a connection may stay silent before it is dropped.
	PongWait time.Duration

	// WriteWait bounds a single frame write.
	WriteWait time.Duration

	// MaxPayloadBytes is the largest inbound frame accepted.
	MaxPayloadBytes int64

	// SendQueueSize bounds each connection's outbound queue.
	SendQueueSize int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		PingInterval:    25 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		MaxPayloadBytes: 64 * 1024, // enough for SDP with many candidates
		SendQueueSize:   256,
	}
}

// Hub is the central brain of the signaling server. Its Run loop is the only
// goroutine that handles events, so handlers never run concurrently.
type Hub struct {
	rooms   *registry.Registry[*Client]
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config

	// clients is the set of live connections. Owned by Run.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan *Request

	// done is closed when Run returns.
	done chan struct{}

	handlers map[string]handlerFunc
	now      func() time.Time
}

// NewHub creates a Hub that tracks memberships in rooms. m may be nil.
func NewHub(rooms *registry.Registry[*Client], m *metrics.Metrics, logger *slog.Logger, cfg Config) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = def.MaxPayloadBytes
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}

	h := &Hub{
		rooms:      rooms,
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Request),
		done:       make(chan struct{}),
		now:        time.Now,
	}
	h.handlers = map[string]handlerFunc{
		EventJoinRoom:         h.handleJoinRoom,
		EventLeaveRoom:        h.handleLeaveRoom,
		EventOfferSent:        h.handleOffer,
		EventAnswerSent:       h.handleAnswer,
		EventICECandidateSent: h.handleICECandidate,
		EventPingServer:       h.handlePing,
	}
	return h
}

// Rooms returns the registry the hub forwards through.
func (h *Hub) Rooms() *registry.Registry[*Client] {
	return h.rooms
}

// Config returns the effective transport limits.
func (h *Hub) Config() Config {
	return h.cfg
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds c to the hub. It reports false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from the hub and from every room it joined, then
// closes its outbound queue. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch hands req to the event loop. It reports false if the hub has
// stopped.
func (h *Hub) Dispatch(req *Request) bool {
	select {
	case h.inbound <- req:
		return true
	case <-h.done:
		return false
	}
}

// Run starts the hub's main processing loop and blocks until ctx is done.
// This is the single goroutine that manages client state and runs handlers.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Info("Hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.ConnectionOpened()
			h.logger.Debug("Client registered", "conn_id", c.ID.String(), "remote", remoteAddr(c))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
			}

		case req := <-h.inbound:
			// Frames read before a disconnect may arrive after it.
			if _, ok := h.clients[req.Client]; !ok {
				continue
			}
			h.handle(req)
		}
	}
}

func (h *Hub) remove(c *Client) {
	left := h.rooms.LeaveAll(c)
	delete(h.clients, c)
	close(c.Send)

	h.metrics.ConnectionClosed()
	h.metrics.SetRooms(h.rooms.RoomCount())
	h.logger.Debug("Client unregistered",
		"conn_id", c.ID.String(),
		"rooms", left,
		"connected_for", h.now().Sub(c.ConnectedAt).Round(time.Millisecond),
	)
}

// deliver enqueues msg for c, dropping it if c's queue is full.
func (h *Hub) deliver(c *Client, msg *Message) bool {
	if c.enqueue(msg) {
		h.metrics.Forwarded(msg.Type)
		return true
	}
	h.metrics.Dropped(msg.Type, metrics.DropReasonQueueFull)
	h.logger.Warn("Outbound queue full, dropping message", "conn_id", c.ID.String(), "event", msg.Type)
	return false
}

// reply sends the ack for req if one was requested and not yet sent.
func (h *Hub) reply(req *Request, a Ack) {
	if msg := req.Ack.frame(a); msg != nil {
		h.deliver(req.Client, msg)
	}
}

func remoteAddr(c *Client) string {
	if c.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}
