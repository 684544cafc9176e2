package signaling

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/BioHazard786/rendezvous/internal/metrics"
)

type handlerFunc func(req *Request) error

// unknownEventLabel stands in for client-chosen event names in metrics.
const unknownEventLabel = "unknown"

// handle runs the handler for req. A failing handler never affects other
// connections; the sender gets a failed ack only when it asked for one and
// the failure is not a rejected relay payload.
func (h *Hub) handle(req *Request) {
	handler, ok := h.handlers[req.Event]
	if !ok {
		h.metrics.EventReceived(unknownEventLabel)
		h.fail(req, newHandlerError(req.Event, ErrUnknownEvent, ""))
		return
	}

	h.metrics.EventReceived(req.Event)
	if err := h.invoke(handler, req); err != nil {
		h.fail(req, err)
	}
}

// invoke calls handler, converting a panic into ErrInternal.
func (h *Hub) invoke(handler handlerFunc, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Handler panicked",
				"conn_id", req.Client.ID.String(),
				"event", req.Event,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = newHandlerError(req.Event, ErrInternal, fmt.Sprint(r))
		}
	}()
	return handler(req)
}

func (h *Hub) fail(req *Request, err error) {
	reason := dropReason(err)
	h.metrics.Dropped(h.eventLabel(req.Event), reason)

	log := h.logger.With("conn_id", req.Client.ID.String(), "event", req.Event, "reason", reason, "err", err)
	if reason == metrics.DropReasonInternal {
		log.Error("Event failed")
	} else {
		log.Debug("Event rejected")
	}

	if errors.Is(err, ErrInvalidPayload) {
		return
	}
	h.reply(req, Ack{OK: false, Message: failureMessage(err)})
}

// eventLabel returns event if it names a handler and unknownEventLabel
// otherwise, keeping metric label values to a fixed set.
func (h *Hub) eventLabel(event string) string {
	if _, ok := h.handlers[event]; ok {
		return event
	}
	return unknownEventLabel
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return metrics.DropReasonInvalidPayload
	case errors.Is(err, ErrInvalidRoomKey):
		return metrics.DropReasonInvalidRoomKey
	case errors.Is(err, ErrUnknownEvent):
		return metrics.DropReasonUnknownEvent
	default:
		return metrics.DropReasonInternal
	}
}

// failureMessage is the client-visible text for err. Details stay in the
// server log.
func failureMessage(err error) string {
	for _, sentinel := range []error{ErrInvalidRoomKey, ErrUnknownEvent} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrInternal.Error()
}

func (h *Hub) handleJoinRoom(req *Request) error {
	key, ok := parseRoomKey(req.Payload)
	if !ok || key == "" {
		return newHandlerError(req.Event, ErrInvalidRoomKey, "room key must be a non-empty string")
	}

	added, err := h.rooms.Join(req.Client, key)
	if err != nil {
		return newHandlerError(req.Event, err, "")
	}
	peers := h.rooms.Size(key) - 1
	h.metrics.SetRooms(h.rooms.RoomCount())

	if added {
		h.logger.Debug("Joined room", "conn_id", req.Client.ID.String(), "room", key, "peers", peers)
	}
	h.reply(req, Ack{OK: true, Room: key, Peers: &peers})
	return nil
}

func (h *Hub) handleLeaveRoom(req *Request) error {
	key, ok := parseRoomKey(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidRoomKey, "room key must be a string")
	}

	if h.rooms.Leave(req.Client, key) {
		h.metrics.SetRooms(h.rooms.RoomCount())
		h.logger.Debug("Left room", "conn_id", req.Client.ID.String(), "room", key)
	}
	h.reply(req, Ack{OK: true})
	return nil
}

func (h *Hub) handleOffer(req *Request) error {
	sdp, ok := NormalizeSDP(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidPayload, "no session description with sdp and type")
	}
	return h.relay(req, EventOfferReceived, offerReceived{Offer: sdp})
}

func (h *Hub) handleAnswer(req *Request) error {
	sdp, ok := NormalizeSDP(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidPayload, "no session description with sdp and type")
	}
	return h.relay(req, EventAnswerReceived, answerReceived{Answer: sdp})
}

func (h *Hub) handleICECandidate(req *Request) error {
	candidate, ok := ParseCandidate(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidPayload, "no candidate string")
	}
	key, ok := RoomKeyFromPayload(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidPayload, "missing roomKey")
	}
	h.forward(req, key, &Message{Type: EventICECandidateReceived, Payload: candidate})
	return nil
}

func (h *Hub) handlePing(req *Request) error {
	h.reply(req, Ack{OK: true, Time: h.now().UnixMilli()})
	return nil
}

// relay forwards payload as event to the other members of the request's room.
func (h *Hub) relay(req *Request, event string, payload any) error {
	key, ok := RoomKeyFromPayload(req.Payload)
	if !ok {
		return newHandlerError(req.Event, ErrInvalidPayload, "missing roomKey")
	}
	msg, err := newFrame(event, payload)
	if err != nil {
		return newHandlerError(req.Event, ErrInternal, err.Error())
	}
	h.forward(req, key, msg)
	return nil
}

// forward enqueues msg for every member of room except the sender. The
// sender does not have to be a member itself.
func (h *Hub) forward(req *Request, room string, msg *Message) {
	peers := h.rooms.MembersExcept(room, req.Client)
	for _, peer := range peers {
		h.deliver(peer, msg)
	}
	h.logger.Debug("Relayed", "conn_id", req.Client.ID.String(), "event", msg.Type, "room", room, "recipients", len(peers))
}
