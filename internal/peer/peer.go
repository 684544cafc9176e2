package peer

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/signalclient"
	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// DataChannelLabel names the channel the caller opens so the offer carries an
// application m-line.
const DataChannelLabel = "rendezvous"

// ICEServers builds the pion ICE server list from the client config.
func ICEServers(cfg *config.ClientConfig) []pion.ICEServer {
	var servers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}
	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

// NewPeerConnection creates a peer connection using the configured ICE
// servers. With forceRelay only TURN candidates are used.
func NewPeerConnection(cfg *config.ClientConfig, forceRelay bool) (*pion.PeerConnection, error) {
	policy := pion.ICETransportPolicyAll
	if forceRelay {
		if cfg.GetTURNServers() == nil {
			return nil, WrapError("create peer connection", ErrConnectionFailed, "relay-only mode needs a TURN server")
		}
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         ICEServers(cfg),
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// toDescription converts a relayed description into pion's type.
func toDescription(d signaling.SessionDescription) (pion.SessionDescription, error) {
	t := pion.NewSDPType(d.Type)
	if t == pion.SDPTypeUnknown {
		return pion.SessionDescription{}, WrapError("parse description", ErrUnexpectedSignal, d.Type)
	}
	return pion.SessionDescription{Type: t, SDP: d.SDP}, nil
}

func fromDescription(d *pion.SessionDescription) signaling.SessionDescription {
	return signaling.SessionDescription{SDP: d.SDP, Type: d.Type.String()}
}

func toCandidateInit(c signalclient.Candidate) pion.ICECandidateInit {
	return pion.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func fromCandidateInit(c pion.ICECandidateInit) signalclient.Candidate {
	return signalclient.Candidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
