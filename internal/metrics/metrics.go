package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rendezvous"

// Drop reasons.
const (
	DropReasonInvalidPayload = "invalid_payload"
	DropReasonInvalidRoomKey = "invalid_room_key"
	DropReasonMalformedFrame = "malformed_frame"
	DropReasonUnknownEvent   = "unknown_event"
	DropReasonQueueFull      = "queue_full"
	DropReasonInternal       = "internal"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	events      *prometheus.CounterVec
	forwarded   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently connected signaling endpoints.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events by event name.",
		}, []string{"event"}),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Messages handed to a peer's outbound queue, by outbound event.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound events or outbound messages that were dropped, by reason.",
		}, []string{"event", "reason"}),
	}
	reg.MustRegister(m.connections, m.rooms, m.events, m.forwarded, m.dropped)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

func (m *Metrics) EventReceived(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) Forwarded(event string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(event).Inc()
}

func (m *Metrics) Dropped(event, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(event, reason).Inc()
}

// Handler exposes the collectors registered with g at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
