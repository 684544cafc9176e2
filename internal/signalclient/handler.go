package signalclient

import (
	"encoding/json"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// Handler routes incoming signaling messages to typed channels.
type Handler struct {
	client     *Client
	Offers     chan signaling.SessionDescription
	Answers    chan signaling.SessionDescription
	Candidates chan Candidate

	// Error receives messages that could not be decoded.
	Error chan string
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Offers:     make(chan signaling.SessionDescription, 1),
		Answers:    make(chan signaling.SessionDescription, 1),
		Candidates: make(chan Candidate, 32),
		Error:      make(chan string, 8),
	}
}

// Start routes incoming messages until the connection ends, then closes the
// handler's channels.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case signaling.EventOfferReceived:
			var p OfferReceived
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				h.report("Failed to parse offer")
				continue
			}
			h.Offers <- p.Offer

		case signaling.EventAnswerReceived:
			var p AnswerReceived
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				h.report("Failed to parse answer")
				continue
			}
			h.Answers <- p.Answer

		case signaling.EventICECandidateReceived:
			var cand Candidate
			if err := json.Unmarshal(msg.Payload, &cand); err != nil {
				h.report("Failed to parse ICE candidate")
				continue
			}
			h.Candidates <- cand

		default:
		}
	}
}

func (h *Handler) report(s string) {
	select {
	case h.Error <- s:
	default:
	}
}

func (h *Handler) close() {
	close(h.Offers)
	close(h.Answers)
	close(h.Candidates)
	close(h.Error)
}
