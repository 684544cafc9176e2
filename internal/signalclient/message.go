package signalclient

import "github.com/BioHazard786/rendezvous/internal/signaling"

// DescriptionSent is the payload of offer-sent and answer-sent, in the flat
// shape.
type DescriptionSent struct {
	SDP     string `json:"sdp"`
	Type    string `json:"type"`
	RoomKey string `json:"roomKey"`
}

// Candidate is a trickled ICE candidate. Optional fields are pointers so
// that absent and zero stay distinct.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// CandidateSent is the payload of ice-candidate-sent.
type CandidateSent struct {
	Candidate
	RoomKey string `json:"roomKey"`
}

// OfferReceived is the payload of offer-received.
type OfferReceived struct {
	Offer signaling.SessionDescription `json:"offer"`
}

// AnswerReceived is the payload of answer-received.
type AnswerReceived struct {
	Answer signaling.SessionDescription `json:"answer"`
}
