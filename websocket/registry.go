package websocket

import (
	"sort"

	"github.com/CUknot/teleconsult_relay/models"
)

// Registry is the in-memory store of rooms, their members and chat logs.
// It is not safe for concurrent use; the Hub goroutine is its only owner.
type Registry struct {
	rooms map[string]*models.Room

	// maxMessages caps each room's chat log, oldest first. Zero means no cap.
	maxMessages int
}

// NewRegistry creates an empty registry.
func NewRegistry(maxMessages int) *Registry {
	if maxMessages < 0 {
		maxMessages = 0
	}
	return &Registry{
		rooms:       make(map[string]*models.Room),
		maxMessages: maxMessages,
	}
}

// GetOrCreateRoomView returns a copy of the room, or an empty room with that
// id if none exists. The empty view is not stored.
func (r *Registry) GetOrCreateRoomView(roomID string) models.Room {
	if room, ok := r.rooms[roomID]; ok {
		return room.Clone()
	}
	return models.Room{
		ID:       roomID,
		Users:    []models.Participant{},
		Messages: []models.ChatMessage{},
	}
}

// UpsertMember adds p to the room, replacing any entry with the same id.
// The room is created if needed.
func (r *Registry) UpsertMember(roomID string, p models.Participant) models.Room {
	room, ok := r.rooms[roomID]
	if !ok {
		room = &models.Room{
			ID:       roomID,
			Users:    []models.Participant{},
			Messages: []models.ChatMessage{},
		}
		r.rooms[roomID] = room
	}

	p.RoomID = roomID
	for i := range room.Users {
		if room.Users[i].ID == p.ID {
			room.Users[i] = p
			return room.Clone()
		}
	}
	room.Users = append(room.Users, p)
	return room.Clone()
}

// RemoveMember drops connID from the room and deletes the room once empty.
// The returned snapshot reflects the room after removal.
func (r *Registry) RemoveMember(roomID, connID string) models.Room {
	room, ok := r.rooms[roomID]
	if !ok {
		return r.GetOrCreateRoomView(roomID)
	}

	kept := room.Users[:0]
	for _, u := range room.Users {
		if u.ID != connID {
			kept = append(kept, u)
		}
	}
	room.Users = kept

	snapshot := room.Clone()
	if len(room.Users) == 0 {
		delete(r.rooms, roomID)
	}
	return snapshot
}

// AppendMessage adds msg to the room's log. Rooms without members do not
// exist, so messages for them are discarded and false is returned.
func (r *Registry) AppendMessage(roomID string, msg models.ChatMessage) bool {
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	room.Messages = append(room.Messages, msg)
	if r.maxMessages > 0 && len(room.Messages) > r.maxMessages {
		trimmed := make([]models.ChatMessage, r.maxMessages)
		copy(trimmed, room.Messages[len(room.Messages)-r.maxMessages:])
		room.Messages = trimmed
	}
	return true
}

// Room returns a copy of an active room.
func (r *Registry) Room(roomID string) (models.Room, bool) {
	room, ok := r.rooms[roomID]
	if !ok {
		return models.Room{}, false
	}
	return room.Clone(), true
}

// Rooms returns copies of all active rooms ordered by id.
func (r *Registry) Rooms() []models.Room {
	out := make([]models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of active rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

// memberIDs lists the connection ids in a room without copying the room.
func (r *Registry) memberIDs(roomID string) []string {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, len(room.Users))
	for i, u := range room.Users {
		ids[i] = u.ID
	}
	return ids
}

func (r *Registry) isMember(roomID, connID string) bool {
	room, ok := r.rooms[roomID]
	return ok && room.HasMember(connID)
}
