package peer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/registry"
	"github.com/BioHazard786/rendezvous/internal/server"
	"github.com/BioHazard786/rendezvous/internal/signalclient"
	"github.com/BioHazard786/rendezvous/internal/signaling"
)

func TestICEServers(t *testing.T) {
	cfg := &config.ClientConfig{
		STUNServer: "stun:stun.example:3478",
		TURNServer: "turn.example",
		TURNUser:   "user",
		TURNPass:   "pass",
	}
	servers := ICEServers(cfg)
	if len(servers) != 2 {
		t.Fatalf("servers=%v", servers)
	}
	if servers[0].URLs[0] != "stun:stun.example:3478" {
		t.Fatalf("stun=%v", servers[0].URLs)
	}
	if len(servers[1].URLs) != 3 || servers[1].Username != "user" || servers[1].Credential != "pass" {
		t.Fatalf("turn=%+v", servers[1])
	}

	if got := ICEServers(&config.ClientConfig{}); len(got) != 0 {
		t.Fatalf("servers=%v, want none", got)
	}
}

func TestForceRelayNeedsTURN(t *testing.T) {
	_, err := NewPeerConnection(&config.ClientConfig{}, true)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("err=%v, want ErrConnectionFailed", err)
	}
}

func TestDescriptionConversion(t *testing.T) {
	d, err := toDescription(signaling.SessionDescription{SDP: "v=0", Type: "answer"})
	if err != nil || d.Type != pion.SDPTypeAnswer || d.SDP != "v=0" {
		t.Fatalf("desc=%+v err=%v", d, err)
	}
	if back := fromDescription(&d); back.Type != "answer" || back.SDP != "v=0" {
		t.Fatalf("back=%+v", back)
	}
	if _, err := toDescription(signaling.SessionDescription{SDP: "v=0", Type: "bogus"}); !errors.Is(err, ErrUnexpectedSignal) {
		t.Fatalf("err=%v, want ErrUnexpectedSignal", err)
	}
}

func TestCandidateConversion(t *testing.T) {
	mid, idx, frag := "0", uint16(1), "abcd"
	in := signalclient.Candidate{Candidate: "candidate:1", SDPMid: &mid, SDPMLineIndex: &idx, UsernameFragment: &frag}
	out := fromCandidateInit(toCandidateInit(in))
	if out.Candidate != in.Candidate || *out.SDPMid != mid || *out.SDPMLineIndex != idx || *out.UsernameFragment != frag {
		t.Fatalf("candidate=%+v", out)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := WrapError("ice", ErrConnectionFailed, "failed")
	if err.Error() != "ice: connection failed (failed)" || !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("err=%q", err)
	}
	if NewError("create offer", ErrPeerDisconnected).Error() != "create offer: peer disconnected" {
		t.Fatal("unexpected NewError format")
	}
}

// TestSessionsExchangeDescriptions runs a caller and a callee through a real
// relay and checks that each side ends up with the other's description. ICE
// connectivity itself depends on the host network and is not asserted.
func TestSessionsExchangeDescriptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := signaling.NewHub(registry.New[*signaling.Client](), nil, logger, signaling.Config{})
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	srv := httptest.NewServer(server.NewRouter(server.Options{Hub: hub, Logger: logger}))
	t.Cleanup(func() {
		stopHub()
		<-hub.Done()
		srv.Close()
	})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	newSession := func(role Role) *Session {
		client := signalclient.NewClient(url, signalclient.WithSystemResolver())
		if err := client.Connect(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
		if _, err := client.JoinRoom(ctx, "call-room"); err != nil {
			t.Fatalf("join: %v", err)
		}
		pc, err := NewPeerConnection(&config.ClientConfig{}, false)
		if err != nil {
			t.Fatalf("peer connection: %v", err)
		}
		s := NewSession(role, "call-room", pc, client)
		t.Cleanup(func() { s.Close() })
		return s
	}

	callee := newSession(Callee)
	caller := newSession(Caller)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go callee.Run(runCtx)
	go caller.Run(runCtx)

	for {
		if caller.PeerConnection().RemoteDescription() != nil && callee.PeerConnection().RemoteDescription() != nil {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatal("descriptions were not exchanged")
		case <-time.After(20 * time.Millisecond):
		}
	}

	if got := callee.PeerConnection().RemoteDescription().Type; got != pion.SDPTypeOffer {
		t.Fatalf("callee remote=%s, want offer", got)
	}
	if got := caller.PeerConnection().RemoteDescription().Type; got != pion.SDPTypeAnswer {
		t.Fatalf("caller remote=%s, want answer", got)
	}
}
