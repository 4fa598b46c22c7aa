package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CUknot/teleconsult_relay/models"
)

// RoomQuerier is the read side of the relay hub.
type RoomQuerier interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Room(ctx context.Context, roomID string) (models.Room, bool, error)
	Stats(ctx context.Context) (models.RelayStats, error)
}

// UserSummary is the public view of a room member.
type UserSummary struct {
	UserType models.Role `json:"userType" example:"doctor"`
	UserName string      `json:"userName" example:"Dr. 42"`
}

// RoomSummary is one entry of the room listing.
type RoomSummary struct {
	ID           string        `json:"id" example:"apt-123"`
	UserCount    int           `json:"userCount" example:"2"`
	MessageCount int           `json:"messageCount" example:"5"`
	Users        []UserSummary `json:"users"`
}

// RoomDetail describes a single room.
type RoomDetail struct {
	ID           string        `json:"id" example:"apt-123"`
	Users        []UserSummary `json:"users"`
	MessageCount int           `json:"messageCount" example:"5"`
}

// HealthResponse reports relay liveness and load.
type HealthResponse struct {
	Status      string `json:"status" example:"healthy"`
	Timestamp   string `json:"timestamp" example:"2026-01-01T09:00:00.000Z"`
	ActiveRooms int    `json:"activeRooms" example:"1"`
	ActiveUsers int    `json:"activeUsers" example:"2"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error" example:"Room not found"`
}

// RoomController serves the diagnostic room endpoints.
type RoomController struct {
	rooms RoomQuerier
	now   func() time.Time
}

// NewRoomController creates a controller backed by rooms.
func NewRoomController(rooms RoomQuerier) *RoomController {
	return &RoomController{rooms: rooms, now: time.Now}
}

func summarize(users []models.Participant) []UserSummary {
	out := make([]UserSummary, len(users))
	for i, u := range users {
		out[i] = UserSummary{UserType: u.UserType, UserName: u.UserName}
	}
	return out
}

func relayUnavailable(c *gin.Context, err error) {
	slog.Error("relay query failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Relay unavailable"})
}

// Health godoc
// @Summary Health check
// @Description Reports relay status with active room and user counts
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} ErrorResponse "Relay unavailable"
// @Router /health [get]
func (rc *RoomController) Health(c *gin.Context) {
	stats, err := rc.rooms.Stats(c.Request.Context())
	if err != nil {
		relayUnavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   rc.now().UTC().Format(models.TimestampLayout),
		ActiveRooms: stats.ActiveRooms,
		ActiveUsers: stats.ActiveUsers,
	})
}

// ListRooms godoc
// @Summary List active rooms
// @Description Returns every room that currently has at least one member
// @Tags rooms
// @Produce json
// @Success 200 {array} RoomSummary
// @Failure 503 {object} ErrorResponse "Relay unavailable"
// @Router /api/rooms [get]
func (rc *RoomController) ListRooms(c *gin.Context) {
	rooms, err := rc.rooms.Rooms(c.Request.Context())
	if err != nil {
		relayUnavailable(c, err)
		return
	}

	response := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, RoomSummary{
			ID:           room.ID,
			UserCount:    len(room.Users),
			MessageCount: len(room.Messages),
			Users:        summarize(room.Users),
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetRoom godoc
// @Summary Get a room
// @Description Returns the members and message count of an active room
// @Tags rooms
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} RoomDetail
// @Failure 404 {object} ErrorResponse "Room not found"
// @Failure 503 {object} ErrorResponse "Relay unavailable"
// @Router /api/rooms/{roomId} [get]
func (rc *RoomController) GetRoom(c *gin.Context) {
	room, found, err := rc.rooms.Room(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		relayUnavailable(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}

	c.JSON(http.StatusOK, RoomDetail{
		ID:           room.ID,
		Users:        summarize(room.Users),
		MessageCount: len(room.Messages),
	})
}
