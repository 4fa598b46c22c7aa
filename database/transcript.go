package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CUknot/teleconsult_relay/models"
)

// ErrArchiveDisabled is returned when transcripts are requested but the relay
// runs without a database.
var ErrArchiveDisabled = errors.New("transcript archive disabled")

// DefaultTranscriptLimit bounds a transcript listing when no limit is given.
const DefaultTranscriptLimit = 500

// TranscriptRepository stores archived chat messages.
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a repository. A nil db yields a repository
// whose every call fails with ErrArchiveDisabled.
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Enabled reports whether a database is attached.
func (r *TranscriptRepository) Enabled() bool {
	return r != nil && r.db != nil
}

// Save inserts one archived message.
func (r *TranscriptRepository) Save(ctx context.Context, entry *models.TranscriptEntry) error {
	if !r.Enabled() {
		return ErrArchiveDisabled
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save transcript entry: %w", err)
	}
	return nil
}

// ListByRoom returns up to limit archived messages for a room, oldest first.
// A non-positive limit uses DefaultTranscriptLimit.
func (r *TranscriptRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.TranscriptEntry, error) {
	if !r.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}

	entries := []models.TranscriptEntry{}
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("sent_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript: %w", err)
	}
	return entries, nil
}
