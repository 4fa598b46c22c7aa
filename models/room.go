package models

// Room is the state of one consultation room: who is in it and what has
// been said. Values handed out of the registry are copies.
type Room struct {
	ID       string        `json:"id"`
	Users    []Participant `json:"users"`
	Messages []ChatMessage `json:"messages"`
}

// Clone returns a copy that shares no slices with r.
func (r Room) Clone() Room {
	out := Room{
		ID:       r.ID,
		Users:    make([]Participant, len(r.Users)),
		Messages: make([]ChatMessage, len(r.Messages)),
	}
	copy(out.Users, r.Users)
	copy(out.Messages, r.Messages)
	return out
}

// HasMember reports whether connID is in the room.
func (r Room) HasMember(connID string) bool {
	for _, u := range r.Users {
		if u.ID == connID {
			return true
		}
	}
	return false
}

// RelayStats is a point in time view of the relay used by the health check.
type RelayStats struct {
	ActiveRooms       int
	ActiveUsers       int
	ActiveConnections int
}
