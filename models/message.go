package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ChatMessage is a chat payload after the relay has stamped it with the
// sender envelope. Raw is the exact JSON object delivered to clients and is
// never modified once built.
type ChatMessage struct {
	RoomID       string
	FromUser     string
	FromUserName string
	FromUserType Role
	Timestamp    string
	Raw          json.RawMessage
}

// NewChatMessage merges the sender envelope into body. Object bodies keep
// their own fields; anything else is wrapped under "content".
func NewChatMessage(roomID string, body json.RawMessage, from Participant, at time.Time) (ChatMessage, error) {
	fields := map[string]json.RawMessage{}

	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return ChatMessage{}, fmt.Errorf("decode chat message: %w", err)
		}
	default:
		if !json.Valid(trimmed) {
			return ChatMessage{}, fmt.Errorf("decode chat message: invalid json")
		}
		fields["content"] = json.RawMessage(trimmed)
	}

	msg := ChatMessage{
		RoomID:       roomID,
		FromUser:     from.ID,
		FromUserName: from.UserName,
		FromUserType: from.UserType,
		Timestamp:    at.UTC().Format(TimestampLayout),
	}
	if msg.FromUserName == "" {
		msg.FromUserName = "Unknown"
	}
	if msg.FromUserType == "" {
		msg.FromUserType = RoleUser
	}

	envelope := map[string]string{
		"fromUser":     msg.FromUser,
		"fromUserName": msg.FromUserName,
		"fromUserType": string(msg.FromUserType),
		"timestamp":    msg.Timestamp,
	}
	for k, v := range envelope {
		encoded, err := json.Marshal(v)
		if err != nil {
			return ChatMessage{}, fmt.Errorf("encode envelope field %s: %w", k, err)
		}
		fields[k] = encoded
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("encode chat message: %w", err)
	}
	msg.Raw = raw
	return msg, nil
}

// MarshalJSON emits the enveloped message as clients see it.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("{}"), nil
	}
	return m.Raw, nil
}

// TranscriptEntry is an archived chat message.
type TranscriptEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomID       string    `gorm:"size:255;not null;index:idx_transcript_room_sent" json:"roomId"`
	FromUser     string    `gorm:"size:64;not null" json:"fromUser"`
	FromUserName string    `gorm:"size:255" json:"fromUserName"`
	FromUserType string    `gorm:"size:20" json:"fromUserType"`
	Payload      string    `gorm:"type:text;not null" json:"-"`
	SentAt       time.Time `gorm:"not null;index:idx_transcript_room_sent" json:"sentAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName keeps transcripts apart from any application tables.
func (TranscriptEntry) TableName() string {
	return "consultation_messages"
}

// NewTranscriptEntry converts a relayed chat message into its archived row.
func NewTranscriptEntry(m ChatMessage) TranscriptEntry {
	sentAt, err := time.Parse(TimestampLayout, m.Timestamp)
	if err != nil {
		sentAt = time.Now().UTC()
	}
	return TranscriptEntry{
		RoomID:       m.RoomID,
		FromUser:     m.FromUser,
		FromUserName: m.FromUserName,
		FromUserType: string(m.FromUserType),
		Payload:      string(m.Raw),
		SentAt:       sentAt,
	}
}

// Message returns the archived payload as it was delivered.
func (e TranscriptEntry) Message() json.RawMessage {
	if e.Payload == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(e.Payload)
}
