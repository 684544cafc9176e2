package signaling

import (
	"bytes"
	"encoding/json"
)

const roomKeyField = "roomKey"

// SDPShape identifies which wire shape a session description arrived in.
type SDPShape int

const (
	ShapeInvalid SDPShape = iota
	// ShapeRaw is {sdp, type} at the top level of the payload.
	ShapeRaw
	// ShapeWrappedOffer is {offer: {sdp, type}}.
	ShapeWrappedOffer
	// ShapeWrappedAnswer is {answer: {sdp, type}}.
	ShapeWrappedAnswer
)

func (s SDPShape) String() string {
	switch s {
	case ShapeRaw:
		return "raw"
	case ShapeWrappedOffer:
		return "wrapped-offer"
	case ShapeWrappedAnswer:
		return "wrapped-answer"
	default:
		return "invalid"
	}
}

// SDPEnvelope is the result of matching a payload against the accepted
// session description shapes.
type SDPEnvelope struct {
	Shape       SDPShape
	Description SessionDescription
}

// Valid reports whether the payload matched any accepted shape.
func (e SDPEnvelope) Valid() bool {
	return e.Shape != ShapeInvalid
}

// ParseSessionDescription matches raw against the accepted shapes in order:
// the payload itself, then its "offer" member, then its "answer" member. The
// first one carrying non-empty string "sdp" and "type" fields wins.
func ParseSessionDescription(raw json.RawMessage) SDPEnvelope {
	obj, ok := decodeObject(raw)
	if !ok {
		return SDPEnvelope{}
	}

	if desc, ok := descriptionFrom(obj); ok {
		return SDPEnvelope{Shape: ShapeRaw, Description: desc}
	}
	if sub, ok := decodeObject(obj["offer"]); ok {
		if desc, ok := descriptionFrom(sub); ok {
			return SDPEnvelope{Shape: ShapeWrappedOffer, Description: desc}
		}
	}
	if sub, ok := decodeObject(obj["answer"]); ok {
		if desc, ok := descriptionFrom(sub); ok {
			return SDPEnvelope{Shape: ShapeWrappedAnswer, Description: desc}
		}
	}
	return SDPEnvelope{}
}

// NormalizeSDP returns the {sdp, type} pair carried by raw in either wire
// shape. ok is false when no shape matched.
func NormalizeSDP(raw json.RawMessage) (SessionDescription, bool) {
	env := ParseSessionDescription(raw)
	return env.Description, env.Valid()
}

// ParseCandidate extracts the ICE candidate object from raw.
//
// The candidate may be nested under a "candidate" member (legacy) or be the
// payload itself, in which case the envelope's roomKey member is removed.
// Either way the result is a flat object whose "candidate" member is a
// string; its content is not inspected.
func ParseCandidate(raw json.RawMessage) (json.RawMessage, bool) {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil, false
	}

	if inner, ok := decodeObject(obj["candidate"]); ok {
		if _, ok := stringMember(inner, "candidate"); !ok {
			return nil, false
		}
		return obj["candidate"], true
	}

	if _, ok := stringMember(obj, "candidate"); !ok {
		return nil, false
	}
	if _, ok := obj[roomKeyField]; !ok {
		return raw, true
	}

	delete(obj, roomKeyField)
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	return b, true
}

// RoomKeyFromPayload returns the non-empty roomKey member of an object
// payload.
func RoomKeyFromPayload(raw json.RawMessage) (string, bool) {
	obj, ok := decodeObject(raw)
	if !ok {
		return "", false
	}
	key, ok := stringMember(obj, roomKeyField)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// parseRoomKey reads the payload of join-room/leave-room, which is the room
// key itself as a JSON string.
func parseRoomKey(raw json.RawMessage) (string, bool) {
	if !isJSONString(raw) {
		return "", false
	}
	var key string
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", false
	}
	return key, true
}

func descriptionFrom(obj map[string]json.RawMessage) (SessionDescription, bool) {
	sdp, ok := stringMember(obj, "sdp")
	if !ok || sdp == "" {
		return SessionDescription{}, false
	}
	typ, ok := stringMember(obj, "type")
	if !ok || typ == "" {
		return SessionDescription{}, false
	}
	return SessionDescription{SDP: sdp, Type: typ}, true
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stringMember(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok || !isJSONString(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
