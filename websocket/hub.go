package websocket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CUknot/teleconsult_relay/models"
)

// ErrHubStopped is returned by queries made after the hub has shut down.
var ErrHubStopped = errors.New("hub stopped")

// Archiver receives every chat message stored in a room.
// Archive must not block.
type Archiver interface {
	Archive(msg models.ChatMessage)
}

type inboundEvent struct {
	client *Client
	msg    Message
}

// Hub owns all relay state. Every mutation and every read of the registry,
// the connection table and the identity map happens on the Run goroutine.
type Hub struct {
	registry *Registry
	archiver Archiver

	// clients maps connection id to a live connection.
	clients map[string]*Client

	// identities maps connection id to the identity given on join.
	// Participant.RoomID is empty once the connection has left its room.
	identities map[string]*models.Participant

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	queries    chan func()

	done chan struct{}
}

// NewHub creates a hub whose rooms keep at most maxMessages chat messages.
// archiver may be nil.
func NewHub(maxMessages int, archiver Archiver) *Hub {
	return &Hub{
		registry:   NewRegistry(maxMessages),
		archiver:   archiver,
		clients:    make(map[string]*Client),
		identities: make(map[string]*models.Participant),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		queries:    make(chan func()),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled. On exit every client's
// send channel is closed so its writer can say goodbye.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			slog.Info("hub stopped")
			return

		case client := <-h.register:
			h.clients[client.id] = client
			slog.Debug("client registered", "conn", client.id)

		case client := <-h.unregister:
			h.disconnect(client)

		case ev := <-h.inbound:
			h.dispatch(ev.client, ev.msg)

		case q := <-h.queries:
			q()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Run has returned or ctx expires.
func (h *Hub) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a connection. It reports false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection and runs its room cleanup. Calling it more
// than once for the same client is harmless.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch queues one inbound frame from c. Frames from a single client are
// handled in the order they are dispatched.
func (h *Hub) Dispatch(c *Client, msg Message) {
	select {
	case h.inbound <- inboundEvent{client: c, msg: msg}:
	case <-h.done:
	}
}

// query runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.queries <- wrapped:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Rooms returns a snapshot of every active room ordered by id.
func (h *Hub) Rooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := h.query(ctx, func() {
		rooms = h.registry.Rooms()
	})
	return rooms, err
}

// Room returns a snapshot of one active room.
func (h *Hub) Room(ctx context.Context, roomID string) (models.Room, bool, error) {
	var (
		room  models.Room
		found bool
	)
	err := h.query(ctx, func() {
		room, found = h.registry.Room(roomID)
	})
	return room, found, err
}

// Stats reports room and connection counts.
func (h *Hub) Stats(ctx context.Context) (models.RelayStats, error) {
	var stats models.RelayStats
	err := h.query(ctx, func() {
		stats = models.RelayStats{
			ActiveRooms:       h.registry.Len(),
			ActiveUsers:       len(h.identities),
			ActiveConnections: len(h.clients),
		}
	})
	return stats, err
}

// disconnect is the transport close path.
func (h *Hub) disconnect(c *Client) {
	if registered, ok := h.clients[c.id]; !ok || registered != c {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	if ident, ok := h.identities[c.id]; ok {
		if ident.RoomID != "" {
			h.leaveRoom(c.id, ident.RoomID, *ident)
		}
		delete(h.identities, c.id)
	}
	slog.Debug("client unregistered", "conn", c.id)
}

// leaveRoom removes connID from roomID and tells whoever is left.
func (h *Hub) leaveRoom(connID, roomID string, who models.Participant) {
	room := h.registry.RemoveMember(roomID, connID)
	h.broadcast(roomID, connID, EventUserLeft, userLeftEvent{
		UserID:         connID,
		UserName:       who.UserName,
		UserType:       who.UserType,
		RemainingUsers: room.Users,
	})
	slog.Info("participant left room", "conn", connID, "room", roomID, "remaining", len(room.Users))
}

// sender returns what is known about connID. Connections that never joined
// get an identity with only the id set.
func (h *Hub) sender(connID string) models.Participant {
	if ident, ok := h.identities[connID]; ok {
		return *ident
	}
	return models.Participant{ID: connID, SocketID: connID}
}

// broadcast sends an event to every member of roomID except exceptID.
// An empty exceptID includes everyone.
func (h *Hub) broadcast(roomID, exceptID, eventType string, payload any) {
	ids := h.registry.memberIDs(roomID)
	if len(ids) == 0 {
		return
	}
	frame, err := encode(eventType, payload)
	if err != nil {
		slog.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	for _, id := range ids {
		if id == exceptID {
			continue
		}
		h.deliver(id, frame)
	}
}

// unicast sends an event to a single connection.
func (h *Hub) unicast(connID, eventType string, payload any) {
	frame, err := encode(eventType, payload)
	if err != nil {
		slog.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	h.deliver(connID, frame)
}

// deliver never blocks: a full send buffer drops the frame for that
// connection only.
func (h *Hub) deliver(connID string, frame []byte) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		slog.Warn("send buffer full, dropping frame", "conn", connID)
	}
}
