package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/BioHazard786/rendezvous/internal/metrics"
	"github.com/BioHazard786/rendezvous/internal/registry"
	"github.com/BioHazard786/rendezvous/internal/signaling"
	"github.com/BioHazard786/rendezvous/internal/version"
)

type testServer struct {
	*httptest.Server
	hub *signaling.Hub
}

func startTestServer(t *testing.T, origins []string) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	hub := signaling.NewHub(registry.New[*signaling.Client](), metrics.New(reg), logger, signaling.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(Options{
		Hub:            hub,
		Logger:         logger,
		AllowedOrigins: origins,
		Gatherer:       reg,
		Version:        version.Info{Version: "v0.0.0-test", GoVersion: "go"},
	}))
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		srv.Close()
	})
	return &testServer{Server: srv, hub: hub}
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func (s *testServer) dial(t *testing.T, header http.Header, subprotocols ...string) *websocket.Conn {
	t.Helper()
	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second, Subprotocols: subprotocols}
	conn, resp, err := d.Dial(s.wsURL(), header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any, ack ...uint64) {
	t.Helper()
	frame := map[string]any{"type": event}
	if payload != nil {
		frame["payload"] = payload
	}
	if len(ack) > 0 {
		frame["ack"] = ack[0]
	}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg signaling.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func recvAck(t *testing.T, conn *websocket.Conn, id uint64) signaling.Ack {
	t.Helper()
	msg := recv(t, conn)
	if msg.Type != signaling.EventAck || msg.Ack == nil || *msg.Ack != id {
		t.Fatalf("got %s ack=%v, want ack %d (payload %s)", msg.Type, msg.Ack, id, msg.Payload)
	}
	var a signaling.Ack
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return a
}

// ping round-trips ping-server; anything delivered to conn earlier arrives
// before the ack, so the ack being next proves nothing else was queued.
func ping(t *testing.T, conn *websocket.Conn, id uint64) {
	t.Helper()
	send(t, conn, signaling.EventPingServer, nil, id)
	if a := recvAck(t, conn, id); !a.OK || a.Time == 0 {
		t.Fatalf("ping ack=%+v", a)
	}
}

func TestHealthVersionMetrics(t *testing.T) {
	srv := startTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != HealthBody {
		t.Fatalf("health=%d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}

	resp, err = http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var info version.Info
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if info.Version != "v0.0.0-test" {
		t.Fatalf("version=%+v", info)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "rendezvous_connections") {
		t.Fatalf("metrics missing gauge:\n%s", body)
	}
}

func TestOfferAnswerCandidateExchange(t *testing.T) {
	srv := startTestServer(t, nil)
	a := srv.dial(t, nil)
	b := srv.dial(t, nil)

	send(t, a, signaling.EventJoinRoom, "r1", 1)
	if ack := recvAck(t, a, 1); !ack.OK || ack.Room != "r1" || *ack.Peers != 0 {
		t.Fatalf("A join ack=%+v", ack)
	}
	send(t, b, signaling.EventJoinRoom, "r1", 1)
	if ack := recvAck(t, b, 1); !ack.OK || *ack.Peers != 1 {
		t.Fatalf("B join ack=%+v", ack)
	}

	// A sends a wrapped offer; B sees the normalized shape.
	send(t, a, signaling.EventOfferSent, map[string]any{
		"offer":   map[string]string{"sdp": "v=0 offer", "type": "offer"},
		"roomKey": "r1",
	})
	msg := recv(t, b)
	if msg.Type != signaling.EventOfferReceived || string(msg.Payload) != `{"offer":{"sdp":"v=0 offer","type":"offer"}}` {
		t.Fatalf("B got %s %s", msg.Type, msg.Payload)
	}

	// B answers with the raw shape.
	send(t, b, signaling.EventAnswerSent, map[string]any{"sdp": "v=0 answer", "type": "answer", "roomKey": "r1"})
	msg = recv(t, a)
	if msg.Type != signaling.EventAnswerReceived || string(msg.Payload) != `{"answer":{"sdp":"v=0 answer","type":"answer"}}` {
		t.Fatalf("A got %s %s", msg.Type, msg.Payload)
	}

	send(t, a, signaling.EventICECandidateSent, map[string]any{"candidate": "candidate:a", "sdpMid": "0", "roomKey": "r1"})
	send(t, b, signaling.EventICECandidateSent, map[string]any{"candidate": map[string]any{"candidate": "candidate:b", "sdpMLineIndex": 0}, "roomKey": "r1"})

	msg = recv(t, b)
	if msg.Type != signaling.EventICECandidateReceived || string(msg.Payload) != `{"candidate":"candidate:a","sdpMid":"0"}` {
		t.Fatalf("B got %s %s", msg.Type, msg.Payload)
	}
	msg = recv(t, a)
	if msg.Type != signaling.EventICECandidateReceived || string(msg.Payload) != `{"candidate":"candidate:b","sdpMLineIndex":0}` {
		t.Fatalf("A got %s %s", msg.Type, msg.Payload)
	}

	// Neither side got its own messages back.
	ping(t, a, 50)
	ping(t, b, 50)
}

func TestMalformedOfferIsNotForwarded(t *testing.T) {
	srv := startTestServer(t, nil)
	a := srv.dial(t, nil)
	b := srv.dial(t, nil)
	send(t, a, signaling.EventJoinRoom, "r1", 1)
	recvAck(t, a, 1)
	send(t, b, signaling.EventJoinRoom, "r1", 1)
	recvAck(t, b, 1)

	send(t, a, signaling.EventOfferSent, map[string]any{"roomKey": "r1"}, 2)
	send(t, a, signaling.EventOfferSent, nil)

	// A gets no ack for the rejected offer, B gets nothing, and A's
	// connection still works.
	ping(t, a, 3)
	ping(t, b, 3)
}

func TestGarbageFrameKeepsConnectionOpen(t *testing.T) {
	srv := startTestServer(t, nil)
	a := srv.dial(t, nil)

	if err := a.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	ping(t, a, 1)
}

func TestDisconnectRemovesMembership(t *testing.T) {
	srv := startTestServer(t, nil)
	a := srv.dial(t, nil)
	b := srv.dial(t, nil)
	for _, room := range []string{"r1", "r2"} {
		send(t, a, signaling.EventJoinRoom, room, 1)
		recvAck(t, a, 1)
	}
	send(t, b, signaling.EventJoinRoom, "r1", 1)
	recvAck(t, b, 1)

	a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Rooms().Size("r1") != 1 || srv.hub.Rooms().Size("r2") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sizes r1=%d r2=%d after disconnect", srv.hub.Rooms().Size("r1"), srv.hub.Rooms().Size("r2"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	send(t, b, signaling.EventJoinRoom, "r1", 2)
	if ack := recvAck(t, b, 2); *ack.Peers != 0 {
		t.Fatalf("peers=%d after A left, want 0", *ack.Peers)
	}
}

func TestMsgpackSubprotocol(t *testing.T) {
	srv := startTestServer(t, nil)
	a := srv.dial(t, nil, signaling.SubprotocolMsgpack)
	if a.Subprotocol() != signaling.SubprotocolMsgpack {
		t.Fatalf("subprotocol=%q", a.Subprotocol())
	}
	b := srv.dial(t, nil)

	frame, err := msgpack.Marshal(map[string]any{"type": signaling.EventJoinRoom, "payload": "r1", "ack": 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := a.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("frame type=%d, want binary", mt)
	}
	var ack struct {
		Type    string         `msgpack:"type"`
		Ack     uint64         `msgpack:"ack"`
		Payload map[string]any `msgpack:"payload"`
	}
	if err := msgpack.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.Type != signaling.EventAck || ack.Ack != 1 || ack.Payload["ok"] != true {
		t.Fatalf("ack=%+v", ack)
	}

	// A JSON peer and a msgpack peer share a room.
	send(t, b, signaling.EventJoinRoom, "r1", 1)
	recvAck(t, b, 1)
	send(t, b, signaling.EventOfferSent, map[string]any{"sdp": "v=0", "type": "offer", "roomKey": "r1"})

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = a.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var offer struct {
		Type    string `msgpack:"type"`
		Payload struct {
			Offer struct {
				SDP  string `msgpack:"sdp"`
				Type string `msgpack:"type"`
			} `msgpack:"offer"`
		} `msgpack:"payload"`
	}
	if err := msgpack.Unmarshal(data, &offer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if offer.Type != signaling.EventOfferReceived || offer.Payload.Offer.SDP != "v=0" {
		t.Fatalf("offer=%+v", offer)
	}
}

func TestOriginCheck(t *testing.T) {
	srv := startTestServer(t, []string{"https://app.example"})

	srv.dial(t, http.Header{"Origin": {"https://app.example"}})
	srv.dial(t, nil)

	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := d.Dial(srv.wsURL(), http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("dial from disallowed origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp=%v, want 403", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := startTestServer(t, []string{"https://app.example"})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/health", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestStatusWriterRecordsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusTeapot)
	if sw.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d code=%d", sw.status, rec.Code)
	}
	if _, _, err := sw.Hijack(); err == nil {
		t.Fatal("recorder cannot be hijacked")
	}
}
