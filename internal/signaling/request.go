package signaling

import "encoding/json"

// Request is one inbound event from a client.
type Request struct {
	Client  *Client
	Event   string
	Payload json.RawMessage

	// Ack is nil when the sender did not ask for an acknowledgement.
	Ack *Reply
}

// Reply is the acknowledgement handle of a Request. At most one ack frame is
// produced per Reply; a nil Reply produces none.
type Reply struct {
	id   uint64
	sent bool
}

// NewReply returns a reply handle for the ack id.
func NewReply(id uint64) *Reply {
	return &Reply{id: id}
}

// frame builds the ack frame for a, or returns nil if there is nothing to
// send.
func (r *Reply) frame(a Ack) *Message {
	if r == nil || r.sent {
		return nil
	}
	msg, err := newFrame(EventAck, a)
	if err != nil {
		return nil
	}
	r.sent = true
	id := r.id
	msg.Ack = &id
	return msg
}
