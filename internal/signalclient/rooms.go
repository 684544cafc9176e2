package signalclient

import (
	"context"
	"time"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// JoinRoom joins room and returns how many other members it already had.
func (c *Client) JoinRoom(ctx context.Context, room string) (int, error) {
	ack, err := c.EmitWithAck(ctx, signaling.EventJoinRoom, room)
	if err != nil {
		return 0, err
	}
	if ack.Peers == nil {
		return 0, nil
	}
	return *ack.Peers, nil
}

// LeaveRoom leaves room.
func (c *Client) LeaveRoom(ctx context.Context, room string) error {
	_, err := c.EmitWithAck(ctx, signaling.EventLeaveRoom, room)
	return err
}

// Ping asks the server for its clock and measures the round trip.
func (c *Client) Ping(ctx context.Context) (serverTime time.Time, rtt time.Duration, err error) {
	start := time.Now()
	ack, err := c.EmitWithAck(ctx, signaling.EventPingServer, nil)
	if err != nil {
		return time.Time{}, 0, err
	}
	return time.UnixMilli(ack.Time), time.Since(start), nil
}

// SendOffer relays an offer to the other members of room.
func (c *Client) SendOffer(room string, desc signaling.SessionDescription) error {
	return c.Emit(signaling.EventOfferSent, DescriptionSent{SDP: desc.SDP, Type: desc.Type, RoomKey: room})
}

// SendAnswer relays an answer to the other members of room.
func (c *Client) SendAnswer(room string, desc signaling.SessionDescription) error {
	return c.Emit(signaling.EventAnswerSent, DescriptionSent{SDP: desc.SDP, Type: desc.Type, RoomKey: room})
}

// SendCandidate relays an ICE candidate to the other members of room.
func (c *Client) SendCandidate(room string, cand Candidate) error {
	return c.Emit(signaling.EventICECandidateSent, CandidateSent{Candidate: cand, RoomKey: room})
}
