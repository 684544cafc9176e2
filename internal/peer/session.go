package peer

import (
	"context"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/rendezvous/internal/signalclient"
	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// Role says which side of the handshake a Session plays.
type Role int

const (
	Caller Role = iota
	Callee
)

func (r Role) String() string {
	if r == Caller {
		return "caller"
	}
	return "callee"
}

// Session drives one WebRTC handshake over a signaling room.
type Session struct {
	role   Role
	room   string
	pc     *pion.PeerConnection
	client *signalclient.Client
	events *signalclient.Handler

	states chan pion.ICEConnectionState

	// Candidates that arrive before the remote description are held here.
	pending   []pion.ICECandidateInit
	remoteSet bool

	// OnState, if set, is called for every ICE connection state change.
	OnState func(pion.ICEConnectionState)

	closeOnce sync.Once
}

// NewSession wires pc to the signaling client for room. Local candidates are
// trickled to the room as they are gathered.
func NewSession(role Role, room string, pc *pion.PeerConnection, client *signalclient.Client) *Session {
	s := &Session{
		role:   role,
		room:   room,
		pc:     pc,
		client: client,
		events: signalclient.NewHandler(client),
		states: make(chan pion.ICEConnectionState, 16),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		if err := client.SendCandidate(room, fromCandidateInit(c.ToJSON())); err != nil {
			slog.Debug("Dropping local candidate", "err", err)
		}
	})
	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		slog.Debug("ICE state changed", "role", role.String(), "state", state.String())
		select {
		case s.states <- state:
		default:
		}
	})
	return s
}

// PeerConnection returns the underlying pion connection.
func (s *Session) PeerConnection() *pion.PeerConnection {
	return s.pc
}

// Run performs the handshake and returns once ICE is connected. The caller
// sends the offer first; the callee waits for it.
func (s *Session) Run(ctx context.Context) error {
	go s.events.Start()

	if s.role == Caller {
		if _, err := s.pc.CreateDataChannel(DataChannelLabel, nil); err != nil {
			return NewError("create data channel", err)
		}
		offer, err := CreateOffer(s.pc)
		if err != nil {
			return err
		}
		if err := s.client.SendOffer(s.room, fromDescription(offer)); err != nil {
			return NewError("send offer", err)
		}
	}

	problems := s.events.Error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case state := <-s.states:
			if s.OnState != nil {
				s.OnState(state)
			}
			switch state {
			case pion.ICEConnectionStateConnected, pion.ICEConnectionStateCompleted:
				return nil
			case pion.ICEConnectionStateFailed:
				return WrapError("ice", ErrConnectionFailed, state.String())
			case pion.ICEConnectionStateClosed:
				return ErrPeerDisconnected
			}

		case offer, ok := <-s.events.Offers:
			if !ok {
				return ErrSignalingClosed
			}
			if err := s.handleOffer(offer); err != nil {
				return err
			}

		case answer, ok := <-s.events.Answers:
			if !ok {
				return ErrSignalingClosed
			}
			if err := s.handleAnswer(answer); err != nil {
				return err
			}

		case cand, ok := <-s.events.Candidates:
			if !ok {
				return ErrSignalingClosed
			}
			if err := s.addCandidate(toCandidateInit(cand)); err != nil {
				return err
			}

		case msg, ok := <-problems:
			if !ok {
				problems = nil
				continue
			}
			slog.Warn("Signaling message ignored", "reason", msg)
		}
	}
}

func (s *Session) handleOffer(d signaling.SessionDescription) error {
	if s.role != Callee {
		return WrapError("handle offer", ErrUnexpectedSignal, "caller received an offer")
	}
	offer, err := toDescription(d)
	if err != nil {
		return err
	}
	answer, err := CreateAnswer(s.pc, offer)
	if err != nil {
		return err
	}
	if err := s.flushCandidates(); err != nil {
		return err
	}
	if err := s.client.SendAnswer(s.room, fromDescription(answer)); err != nil {
		return NewError("send answer", err)
	}
	return nil
}

func (s *Session) handleAnswer(d signaling.SessionDescription) error {
	if s.role != Caller {
		return WrapError("handle answer", ErrUnexpectedSignal, "callee received an answer")
	}
	answer, err := toDescription(d)
	if err != nil {
		return err
	}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return NewError("set remote description", err)
	}
	return s.flushCandidates()
}

func (s *Session) addCandidate(c pion.ICECandidateInit) error {
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		return nil
	}
	// An empty candidate marks the end of the remote's gathering.
	if c.Candidate == "" {
		return nil
	}
	if err := s.pc.AddICECandidate(c); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (s *Session) flushCandidates() error {
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		if err := s.addCandidate(c); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the peer connection and the signaling client.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pc.Close()
		s.client.Close()
	})
	return err
}

// CreateOffer creates an offer and sets it as the local description.
func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// CreateAnswer applies offer and sets the local answer.
func CreateAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, NewError("set remote description", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}
