package signaling

import "encoding/json"

// Message is the frame exchanged with every connected endpoint, in both
// directions. Type carries the event name.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Ack is set by a client that wants an acknowledgement for this frame.
	// Replies of type "ack" echo the same id.
	Ack *uint64 `json:"ack,omitempty"`
}

// Inbound (client to server) events.
const (
	EventJoinRoom         = "join-room"
	EventLeaveRoom        = "leave-room"
	EventOfferSent        = "offer-sent"
	EventAnswerSent       = "answer-sent"
	EventICECandidateSent = "ice-candidate-sent"
	EventPingServer       = "ping-server"
)

// Outbound (server to client) events.
const (
	EventOfferReceived        = "offer-received"
	EventAnswerReceived       = "answer-received"
	EventICECandidateReceived = "ice-candidate-received"
	EventAck                  = "ack"
)

// Ack is the result carried by an "ack" frame.
type Ack struct {
	OK      bool   `json:"ok"`
	Room    string `json:"room,omitempty"`
	Peers   *int   `json:"peers,omitempty"`
	Time    int64  `json:"time,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionDescription is the normalized {sdp, type} pair forwarded for offers
// and answers. Neither field is interpreted.
type SessionDescription struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

type offerReceived struct {
	Offer SessionDescription `json:"offer"`
}

type answerReceived struct {
	Answer SessionDescription `json:"answer"`
}

func newFrame(event string, payload any) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: event, Payload: b}, nil
}
