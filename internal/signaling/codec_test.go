package signaling

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCodecFor(t *testing.T) {
	if got := CodecFor(SubprotocolMsgpack).Name(); got != "msgpack" {
		t.Fatalf("codec=%s, want msgpack", got)
	}
	for _, sub := range []string{"", SubprotocolJSON, "something-else"} {
		if got := CodecFor(sub).Name(); got != "json" {
			t.Fatalf("CodecFor(%q)=%s, want json", sub, got)
		}
	}
}

func TestJSONCodecFrame(t *testing.T) {
	c := JSONCodec{}
	if c.FrameType() != websocket.TextMessage {
		t.Fatalf("frame type=%d, want text", c.FrameType())
	}

	msg, err := c.Decode([]byte(`{"type":"join-room","payload":"r1","ack":3}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Type != EventJoinRoom || string(msg.Payload) != `"r1"` || msg.Ack == nil || *msg.Ack != 3 {
		t.Fatalf("msg=%+v", msg)
	}

	out, err := c.Encode(&Message{Type: EventOfferReceived, Payload: json.RawMessage(`{"offer":{"sdp":"v=0","type":"offer"}}`)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != `{"type":"offer-received","payload":{"offer":{"sdp":"v=0","type":"offer"}}}` {
		t.Fatalf("encoded=%s", out)
	}
}

func TestJSONCodecRejectsGarbage(t *testing.T) {
	if _, err := (JSONCodec{}).Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestMsgpackCodecCarriesNativePayload(t *testing.T) {
	c := MsgpackCodec{}
	if c.FrameType() != websocket.BinaryMessage {
		t.Fatalf("frame type=%d, want binary", c.FrameType())
	}

	ack := uint64(9)
	data, err := c.Encode(&Message{
		Type:    EventICECandidateReceived,
		Payload: json.RawMessage(`{"candidate":"candidate:1","sdpMLineIndex":0}`),
		Ack:     &ack,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// A plain msgpack decoder sees a native map, not embedded JSON text.
	var frame struct {
		Type    string         `msgpack:"type"`
		Payload map[string]any `msgpack:"payload"`
		Ack     uint64         `msgpack:"ack"`
	}
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatalf("msgpack.Unmarshal: %v", err)
	}
	if frame.Type != EventICECandidateReceived || frame.Ack != 9 {
		t.Fatalf("frame=%+v", frame)
	}
	if frame.Payload["candidate"] != "candidate:1" {
		t.Fatalf("payload=%v", frame.Payload)
	}

	back, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(back.Payload, &obj); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if obj["candidate"] != "candidate:1" || obj["sdpMLineIndex"] != float64(0) {
		t.Fatalf("payload=%v", obj)
	}
}

func TestMsgpackCodecWithoutPayload(t *testing.T) {
	c := MsgpackCodec{}
	data, err := c.Encode(&Message{Type: EventPingServer})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Type != EventPingServer || msg.Payload != nil || msg.Ack != nil {
		t.Fatalf("msg=%+v", msg)
	}
}
