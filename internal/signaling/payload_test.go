package signaling

import (
	"encoding/json"
	"testing"
)

func TestParseSessionDescriptionShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		shape   SDPShape
	}{
		{"raw", `{"sdp":"v=0","type":"offer","roomKey":"r1"}`, ShapeRaw},
		{"wrapped offer", `{"offer":{"sdp":"v=0","type":"offer"},"roomKey":"r1"}`, ShapeWrappedOffer},
		{"wrapped answer", `{"answer":{"sdp":"v=0","type":"answer"},"roomKey":"r1"}`, ShapeWrappedAnswer},
		{"raw wins over wrapped", `{"sdp":"v=0","type":"offer","offer":{"sdp":"x","type":"y"}}`, ShapeRaw},
		{"empty object", `{}`, ShapeInvalid},
		{"null", `null`, ShapeInvalid},
		{"string", `"v=0"`, ShapeInvalid},
		{"array", `[{"sdp":"v=0","type":"offer"}]`, ShapeInvalid},
		{"missing type", `{"sdp":"v=0"}`, ShapeInvalid},
		{"empty sdp", `{"sdp":"","type":"offer"}`, ShapeInvalid},
		{"non-string sdp", `{"sdp":1,"type":"offer"}`, ShapeInvalid},
		{"null offer", `{"offer":null}`, ShapeInvalid},
		{"no payload", ``, ShapeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := ParseSessionDescription(json.RawMessage(tt.payload))
			if env.Shape != tt.shape {
				t.Fatalf("shape=%v, want %v", env.Shape, tt.shape)
			}
			if env.Valid() != (tt.shape != ShapeInvalid) {
				t.Fatalf("Valid()=%v for shape %v", env.Valid(), env.Shape)
			}
		})
	}
}

func TestNormalizeSDPBothShapesAgree(t *testing.T) {
	raw, ok := NormalizeSDP(json.RawMessage(`{"sdp":"v=0\r\no=- 1 2 IN IP4 0.0.0.0","type":"offer","roomKey":"r1"}`))
	if !ok {
		t.Fatal("raw shape rejected")
	}
	wrapped, ok := NormalizeSDP(json.RawMessage(`{"offer":{"sdp":"v=0\r\no=- 1 2 IN IP4 0.0.0.0","type":"offer"},"roomKey":"r1"}`))
	if !ok {
		t.Fatal("wrapped shape rejected")
	}
	if raw != wrapped {
		t.Fatalf("raw=%+v, wrapped=%+v", raw, wrapped)
	}
	if raw.SDP != "v=0\r\no=- 1 2 IN IP4 0.0.0.0" || raw.Type != "offer" {
		t.Fatalf("description=%+v", raw)
	}
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[string]any
		ok      bool
	}{
		{
			name:    "flat strips roomKey",
			payload: `{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host","sdpMid":"0","sdpMLineIndex":0,"roomKey":"r1"}`,
			want:    map[string]any{"candidate": "candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host", "sdpMid": "0", "sdpMLineIndex": float64(0)},
			ok:      true,
		},
		{
			name:    "wrapped passes inner object",
			payload: `{"candidate":{"candidate":"candidate:2","sdpMid":"0","usernameFragment":"abcd"},"roomKey":"r1"}`,
			want:    map[string]any{"candidate": "candidate:2", "sdpMid": "0", "usernameFragment": "abcd"},
			ok:      true,
		},
		{
			name:    "end of candidates",
			payload: `{"candidate":"","sdpMid":null,"roomKey":"r1"}`,
			want:    map[string]any{"candidate": "", "sdpMid": nil},
			ok:      true,
		},
		{name: "missing candidate", payload: `{"sdpMid":"0","roomKey":"r1"}`},
		{name: "numeric candidate", payload: `{"candidate":7,"roomKey":"r1"}`},
		{name: "wrapped without string", payload: `{"candidate":{"sdpMid":"0"}}`},
		{name: "null", payload: `null`},
		{name: "empty object", payload: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCandidate(json.RawMessage(tt.payload))
			if ok != tt.ok {
				t.Fatalf("ok=%v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			var obj map[string]any
			if err := json.Unmarshal(got, &obj); err != nil {
				t.Fatalf("candidate is not an object: %v", err)
			}
			if len(obj) != len(tt.want) {
				t.Fatalf("candidate=%v, want %v", obj, tt.want)
			}
			for k, v := range tt.want {
				if obj[k] != v {
					t.Fatalf("candidate[%q]=%v, want %v", k, obj[k], v)
				}
			}
		})
	}
}

func TestParseCandidateWithoutRoomKeyIsUnchanged(t *testing.T) {
	in := `{"candidate":"candidate:1","sdpMLineIndex":0}`
	got, ok := ParseCandidate(json.RawMessage(in))
	if !ok {
		t.Fatal("candidate rejected")
	}
	if string(got) != in {
		t.Fatalf("candidate=%s, want %s", got, in)
	}
}

func TestRoomKeyFromPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{`{"roomKey":"r1"}`, "r1", true},
		{`{"roomKey":""}`, "", false},
		{`{"roomKey":5}`, "", false},
		{`{}`, "", false},
		{`"r1"`, "", false},
	}
	for _, tt := range tests {
		got, ok := RoomKeyFromPayload(json.RawMessage(tt.payload))
		if got != tt.want || ok != tt.ok {
			t.Fatalf("RoomKeyFromPayload(%s)=(%q, %v), want (%q, %v)", tt.payload, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRoomKeyRequiresString(t *testing.T) {
	if key, ok := parseRoomKey(json.RawMessage(`"room-1"`)); !ok || key != "room-1" {
		t.Fatalf("parseRoomKey=(%q, %v)", key, ok)
	}
	for _, bad := range []string{`1`, `null`, `{"roomKey":"r"}`, ``} {
		if _, ok := parseRoomKey(json.RawMessage(bad)); ok {
			t.Fatalf("parseRoomKey(%s) accepted", bad)
		}
	}
}
