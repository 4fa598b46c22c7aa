package models

import "strings"

// Role is the kind of participant connected to a consultation room.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleUser    Role = "user"
)

// ParseRole maps the client supplied userType onto a known role.
// Anything other than doctor or patient is treated as a plain user.
func ParseRole(userType string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(userType))) {
	case RoleDoctor:
		return RoleDoctor
	case RolePatient:
		return RolePatient
	default:
		return RoleUser
	}
}

// DefaultDisplayName is used when a participant joins without a userName.
func DefaultDisplayName(role Role, doctorID string) string {
	if role != RoleDoctor {
		return "Patient"
	}
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return "Doctor"
	}
	return "Dr. " + doctorID
}

// Participant is one live connection bound to a room.
type Participant struct {
	ID       string `json:"id"`
	UserType Role   `json:"userType"`
	UserName string `json:"userName"`
	SocketID string `json:"socketId"`

	// RoomID and DoctorID are bookkeeping only and are not sent to clients.
	RoomID   string `json:"-"`
	DoctorID string `json:"-"`
}
