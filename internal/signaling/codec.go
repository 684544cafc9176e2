package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// WebSocket subprotocols a client may offer to pick a codec. A client that
// offers none gets JSON.
const (
	SubprotocolJSON    = "rendezvous.json"
	SubprotocolMsgpack = "rendezvous.msgpack"
)

// Subprotocols lists the supported subprotocols in server preference order.
var Subprotocols = []string{SubprotocolJSON, SubprotocolMsgpack}

// Codec converts between WebSocket frames and Messages. Payloads are always
// JSON inside the relay; a codec only changes how they travel on the wire.
type Codec interface {
	Name() string
	FrameType() int
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
}

// CodecFor returns the codec for a negotiated subprotocol.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// JSONCodec carries frames as JSON text messages.
type JSONCodec struct{}

func (JSONCodec) Name() string   { return "json" }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MsgpackCodec carries frames as MessagePack binary messages. The payload is
// a native MessagePack value that is converted to and from JSON at this
// boundary.
type MsgpackCodec struct{}

type msgpackFrame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
	Ack     *uint64            `msgpack:"ack,omitempty"`
}

func (MsgpackCodec) Name() string   { return "msgpack" }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(msg *Message) ([]byte, error) {
	frame := msgpackFrame{Type: msg.Type, Ack: msg.Ack}
	if len(msg.Payload) > 0 {
		var v any
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode json payload: %w", err)
		}
		b, err := marshalCompact(v)
		if err != nil {
			return nil, err
		}
		frame.Payload = b
	}
	return marshalCompact(&frame)
}

func (MsgpackCodec) Decode(data []byte) (*Message, error) {
	var frame msgpackFrame
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		return nil, err
	}

	msg := &Message{Type: frame.Type, Ack: frame.Ack}
	if len(frame.Payload) > 0 {
		var v any
		if err := msgpack.Unmarshal(frame.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode msgpack payload: %w", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("payload is not representable as json: %w", err)
		}
		msg.Payload = b
	}
	return msg, nil
}

// marshalCompact encodes whole-number floats (JSON numbers) as MessagePack
// integers so sdpMLineIndex and friends stay integers on the wire.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
