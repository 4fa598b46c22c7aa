package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CUknot/teleconsult_relay/database"
	"github.com/CUknot/teleconsult_relay/models"
)

// TranscriptReader reads archived chat messages.
type TranscriptReader interface {
	ListByRoom(ctx context.Context, roomID string, limit int) ([]models.TranscriptEntry, error)
}

// TranscriptResponse is a room's archived chat history.
type TranscriptResponse struct {
	RoomID   string            `json:"roomId" example:"apt-123"`
	Messages []json.RawMessage `json:"messages" swaggertype:"array,object"`
}

// MessageController serves archived transcripts.
type MessageController struct {
	transcripts TranscriptReader
}

// NewMessageController creates a controller. A nil reader means the archive
// is disabled.
func NewMessageController(transcripts TranscriptReader) *MessageController {
	return &MessageController{transcripts: transcripts}
}

// GetTranscript godoc
// @Summary Get a room transcript
// @Description Returns archived chat messages for a room, oldest first. Rooms that no longer exist keep their transcript.
// @Tags messages
// @Produce json
// @Param roomId path string true "Room ID"
// @Param limit query int false "Maximum number of messages" default(500)
// @Success 200 {object} TranscriptResponse
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 500 {object} ErrorResponse "Server error"
// @Failure 503 {object} ErrorResponse "Transcript archive disabled"
// @Router /api/rooms/{roomId}/transcript [get]
func (mc *MessageController) GetTranscript(c *gin.Context) {
	if mc.transcripts == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Transcript archive disabled"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit"})
			return
		}
		limit = n
	}

	roomID := c.Param("roomId")
	entries, err := mc.transcripts.ListByRoom(c.Request.Context(), roomID, limit)
	if err != nil {
		if errors.Is(err, database.ErrArchiveDisabled) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Transcript archive disabled"})
			return
		}
		slog.Error("failed to fetch transcript", "room", roomID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch transcript"})
		return
	}

	messages := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		messages[i] = e.Message()
	}

	c.JSON(http.StatusOK, TranscriptResponse{RoomID: roomID, Messages: messages})
}
