package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/CUknot/teleconsult_relay/models"
)

// now is swapped in tests.
var now = time.Now

// dispatch routes one inbound frame. Malformed frames are dropped without
// telling the sender.
func (h *Hub) dispatch(c *Client, msg Message) {
	switch msg.Type {
	case EventJoinRoom:
		var p joinRoomPayload
		if decode(c, msg, &p) && p.RoomID != "" {
			h.handleJoin(c, p)
		}

	case EventSignal:
		var p signalPayload
		if decode(c, msg, &p) && p.RoomID != "" {
			h.handleSignal(c, p)
		}

	case EventMessage:
		var p chatPayload
		if decode(c, msg, &p) && p.RoomID != "" {
			h.handleChat(c, p)
		}

	case EventTyping:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			who := h.sender(c.id)
			h.broadcast(p.RoomID, c.id, EventTyping, typingEvent{
				UserID:   c.id,
				UserName: who.UserName,
				UserType: who.UserType,
			})
		}

	case EventStopTyping:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			h.broadcast(p.RoomID, c.id, EventStopTyping, stopTypingEvent{UserID: c.id})
		}

	case EventCallQuality:
		var p callQualityPayload
		if decode(c, msg, &p) && p.RoomID != "" {
			h.broadcast(p.RoomID, c.id, EventCallQualityUpdate, callQualityEvent{
				FromUser: c.id,
				Quality:  p.Quality,
				Stats:    p.Stats,
			})
		}

	case EventScreenShareStart:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			h.broadcast(p.RoomID, c.id, EventScreenShareStarted, screenShareStartedEvent{
				FromUser:     c.id,
				FromUserName: h.sender(c.id).UserName,
			})
		}

	case EventScreenShareStop:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			h.broadcast(p.RoomID, c.id, EventScreenShareStopped, screenShareStoppedEvent{FromUser: c.id})
		}

	case EventEndCall:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			who := h.sender(c.id)
			h.broadcast(p.RoomID, c.id, EventCallEnded, callEndedEvent{
				EndedBy:     c.id,
				EndedByName: who.UserName,
				EndedByType: who.UserType,
			})
			slog.Info("call ended", "conn", c.id, "room", p.RoomID)
		}

	case EventLeaveRoom:
		var p roomPayload
		if decode(c, msg, &p) && p.valid() {
			h.handleLeave(c, p)
		}

	default:
		slog.Debug("ignoring unknown event", "conn", c.id, "type", msg.Type)
	}
}

func decode(c *Client, msg Message, dst any) bool {
	if len(msg.Payload) == 0 {
		slog.Debug("ignoring event without payload", "conn", c.id, "type", msg.Type)
		return false
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		slog.Debug("ignoring malformed event", "conn", c.id, "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (h *Hub) handleJoin(c *Client, p joinRoomPayload) {
	if _, live := h.clients[c.id]; !live {
		return
	}

	// A connection belongs to one room at a time.
	if prev, ok := h.identities[c.id]; ok && prev.RoomID != "" && prev.RoomID != p.RoomID {
		h.leaveRoom(c.id, prev.RoomID, *prev)
	}

	role := models.ParseRole(p.UserType)
	name := p.UserName
	if name == "" {
		name = models.DefaultDisplayName(role, string(p.DoctorID))
	}

	ident := &models.Participant{
		ID:       c.id,
		UserType: role,
		UserName: name,
		SocketID: c.id,
		RoomID:   p.RoomID,
		DoctorID: string(p.DoctorID),
	}
	h.identities[c.id] = ident

	room := h.registry.UpsertMember(p.RoomID, *ident)

	h.broadcast(p.RoomID, c.id, EventUserJoined, userJoinedEvent{
		UserID:    c.id,
		UserType:  role,
		UserName:  name,
		RoomUsers: room.Users,
	})
	h.unicast(c.id, EventRoomState, roomStateEvent{
		RoomID:   p.RoomID,
		Users:    room.Users,
		Messages: room.Messages,
	})

	slog.Info("participant joined room", "conn", c.id, "room", p.RoomID, "role", role, "members", len(room.Users))
}

func (h *Hub) handleSignal(c *Client, p signalPayload) {
	out := signalEvent{
		Signal:       p.Signal,
		FromUser:     c.id,
		FromUserType: h.sender(c.id).UserType,
	}
	if p.TargetUser != "" {
		h.unicast(p.TargetUser, EventSignal, out)
		return
	}
	h.broadcast(p.RoomID, c.id, EventSignal, out)
}

func (h *Hub) handleChat(c *Client, p chatPayload) {
	msg, err := models.NewChatMessage(p.RoomID, p.Message, h.sender(c.id), now())
	if err != nil {
		slog.Debug("ignoring chat message", "conn", c.id, "room", p.RoomID, "error", err)
		return
	}
	if !h.registry.AppendMessage(p.RoomID, msg) {
		slog.Debug("chat message for inactive room", "conn", c.id, "room", p.RoomID)
		return
	}

	// The sender gets its own copy back with the server envelope.
	h.broadcast(p.RoomID, "", EventMessage, msg)

	if h.archiver != nil {
		h.archiver.Archive(msg)
	}
}

func (h *Hub) handleLeave(c *Client, p roomPayload) {
	ident, ok := h.identities[c.id]
	if !ok || !h.registry.isMember(p.RoomID, c.id) {
		return
	}
	h.leaveRoom(c.id, p.RoomID, *ident)
	if ident.RoomID == p.RoomID {
		ident.RoomID = ""
	}
}
