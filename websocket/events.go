package websocket

import (
	"encoding/json"

	"github.com/CUknot/teleconsult_relay/models"
)

// Inbound event types.
const (
	EventJoinRoom         = "join-room"
	EventSignal           = "signal"
	EventMessage          = "message"
	EventTyping           = "typing"
	EventStopTyping       = "stop-typing"
	EventCallQuality      = "call-quality"
	EventScreenShareStart = "screen-share-start"
	EventScreenShareStop  = "screen-share-stop"
	EventEndCall          = "end-call"
	EventLeaveRoom        = "leave-room"
)

// Outbound event types not shared with the inbound set.
const (
	EventUserJoined         = "user-joined"
	EventRoomState          = "room-state"
	EventCallQualityUpdate  = "call-quality-update"
	EventScreenShareStarted = "screen-share-started"
	EventScreenShareStopped = "screen-share-stopped"
	EventCallEnded          = "call-ended"
	EventUserLeft           = "user-left"
)

// Message is the frame exchanged in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// looseString accepts either a JSON string or a JSON number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

func (p roomPayload) valid() bool { return p.RoomID != "" }

type joinRoomPayload struct {
	RoomID   string      `json:"roomId"`
	DoctorID looseString `json:"doctorId"`
	UserType string      `json:"userType"`
	UserName string      `json:"userName"`
}

type signalPayload struct {
	RoomID     string          `json:"roomId"`
	Signal     json.RawMessage `json:"signal"`
	TargetUser string          `json:"targetUser"`
}

type chatPayload struct {
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

type callQualityPayload struct {
	RoomID  string          `json:"roomId"`
	Quality json.RawMessage `json:"quality"`
	Stats   json.RawMessage `json:"stats"`
}

// Outbound payloads.

type userJoinedEvent struct {
	UserID    string               `json:"userId"`
	UserType  models.Role          `json:"userType"`
	UserName  string               `json:"userName"`
	RoomUsers []models.Participant `json:"roomUsers"`
}

type roomStateEvent struct {
	RoomID   string               `json:"roomId"`
	Users    []models.Participant `json:"users"`
	Messages []models.ChatMessage `json:"messages"`
}

type signalEvent struct {
	Signal       json.RawMessage `json:"signal,omitempty"`
	FromUser     string          `json:"fromUser"`
	FromUserType models.Role     `json:"fromUserType,omitempty"`
}

type typingEvent struct {
	UserID   string      `json:"userId"`
	UserName string      `json:"userName,omitempty"`
	UserType models.Role `json:"userType,omitempty"`
}

type stopTypingEvent struct {
	UserID string `json:"userId"`
}

type callQualityEvent struct {
	FromUser string          `json:"fromUser"`
	Quality  json.RawMessage `json:"quality,omitempty"`
	Stats    json.RawMessage `json:"stats,omitempty"`
}

type screenShareStartedEvent struct {
	FromUser     string `json:"fromUser"`
	FromUserName string `json:"fromUserName,omitempty"`
}

type screenShareStoppedEvent struct {
	FromUser string `json:"fromUser"`
}

type callEndedEvent struct {
	EndedBy     string      `json:"endedBy"`
	EndedByName string      `json:"endedByName,omitempty"`
	EndedByType models.Role `json:"endedByType,omitempty"`
}

type userLeftEvent struct {
	UserID         string               `json:"userId"`
	UserName       string               `json:"userName"`
	UserType       models.Role          `json:"userType"`
	RemainingUsers []models.Participant `json:"remainingUsers"`
}

// encode builds a ready to send frame.
func encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: eventType, Payload: raw})
}
