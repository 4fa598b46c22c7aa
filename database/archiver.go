package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/CUknot/teleconsult_relay/models"
)

const saveTimeout = 5 * time.Second

// Archiver copies relayed chat messages into the transcript store off the
// hub goroutine. Archive never blocks; a full queue drops the message.
type Archiver struct {
	repo  *TranscriptRepository
	queue chan models.ChatMessage
	done  chan struct{}
}

// NewArchiver creates an archiver with room for queueSize pending messages.
func NewArchiver(repo *TranscriptRepository, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Archiver{
		repo:  repo,
		queue: make(chan models.ChatMessage, queueSize),
		done:  make(chan struct{}),
	}
}

// Archive queues msg for storage.
func (a *Archiver) Archive(msg models.ChatMessage) {
	select {
	case a.queue <- msg:
	default:
		slog.Warn("transcript queue full, dropping message", "room", msg.RoomID, "from", msg.FromUser)
	}
}

// Run writes queued messages until ctx is cancelled, then flushes whatever is
// still queued and returns.
func (a *Archiver) Run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case msg := <-a.queue:
			a.save(msg)
		case <-ctx.Done():
			a.flush()
			return
		}
	}
}

// Wait blocks until Run has returned or ctx expires.
func (a *Archiver) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Archiver) flush() {
	for {
		select {
		case msg := <-a.queue:
			a.save(msg)
		default:
			return
		}
	}
}

func (a *Archiver) save(msg models.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	entry := models.NewTranscriptEntry(msg)
	if err := a.repo.Save(ctx, &entry); err != nil {
		slog.Error("failed to archive chat message", "room", msg.RoomID, "error", err)
	}
}
