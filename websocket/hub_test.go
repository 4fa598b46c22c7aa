package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CUknot/teleconsult_relay/models"
)

type recordingArchiver struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

func (a *recordingArchiver) Archive(msg models.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
}

func (a *recordingArchiver) archived() []models.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ChatMessage(nil), a.messages...)
}

func startHub(t *testing.T, maxMessages int, archiver Archiver) *Hub {
	t.Helper()
	hub := NewHub(maxMessages, archiver)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

// connect registers a client with no network connection behind it. The hub
// only ever touches the send channel.
func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	c := &Client{hub: hub, id: id, send: make(chan []byte, 64)}
	require.True(t, hub.Register(c))
	return c
}

func send(t *testing.T, hub *Hub, c *Client, eventType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	hub.Dispatch(c, Message{Type: eventType, Payload: raw})
}

// settle waits until the hub has handled everything dispatched so far.
func settle(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := hub.Stats(ctx)
	require.NoError(t, err)
}

func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(frame, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func ofType(msgs []Message, eventType string) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Type == eventType {
			out = append(out, m)
		}
	}
	return out
}

func payloadOf[T any](t *testing.T, m Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(m.Payload, &v))
	return v
}

type wireUser struct {
	ID       string `json:"id"`
	UserType string `json:"userType"`
	UserName string `json:"userName"`
	SocketID string `json:"socketId"`
}

type wireRoomState struct {
	RoomID   string                   `json:"roomId"`
	Users    []wireUser               `json:"users"`
	Messages []map[string]interface{} `json:"messages"`
}

type wireUserJoined struct {
	UserID    string     `json:"userId"`
	UserType  string     `json:"userType"`
	UserName  string     `json:"userName"`
	RoomUsers []wireUser `json:"roomUsers"`
}

type wireUserLeft struct {
	UserID         string     `json:"userId"`
	UserName       string     `json:"userName"`
	UserType       string     `json:"userType"`
	RemainingUsers []wireUser `json:"remainingUsers"`
}

func join(t *testing.T, hub *Hub, c *Client, roomID, userType string) {
	t.Helper()
	send(t, hub, c, EventJoinRoom, map[string]any{"roomId": roomID, "userType": userType})
}

func TestHub_JoinNotifiesMembersAndSendsSnapshot(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	send(t, hub, a, EventJoinRoom, map[string]any{"roomId": "apt-1", "userType": "doctor", "doctorId": 7})
	settle(t, hub)

	frames := drain(t, a)
	require.Len(t, frames, 1)
	require.Equal(t, EventRoomState, frames[0].Type)
	state := payloadOf[wireRoomState](t, frames[0])
	assert.Equal(t, "apt-1", state.RoomID)
	require.Len(t, state.Users, 1)
	assert.Equal(t, wireUser{ID: "a", UserType: "doctor", UserName: "Dr. 7", SocketID: "a"}, state.Users[0])
	assert.NotNil(t, state.Messages)
	assert.Empty(t, state.Messages)

	send(t, hub, b, EventJoinRoom, map[string]any{"roomId": "apt-1", "userType": "patient", "userName": "Bob"})
	settle(t, hub)

	frames = drain(t, a)
	require.Len(t, frames, 1)
	require.Equal(t, EventUserJoined, frames[0].Type)
	joined := payloadOf[wireUserJoined](t, frames[0])
	assert.Equal(t, "b", joined.UserID)
	assert.Equal(t, "patient", joined.UserType)
	assert.Equal(t, "Bob", joined.UserName)
	assert.Len(t, joined.RoomUsers, 2)

	frames = drain(t, b)
	require.Len(t, frames, 1, "the joiner gets only its snapshot")
	require.Equal(t, EventRoomState, frames[0].Type)
	assert.Len(t, payloadOf[wireRoomState](t, frames[0]).Users, 2)
}

func TestHub_RejoinSameRoomUpdatesIdentity(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")

	join(t, hub, a, "apt-1", "patient")
	send(t, hub, a, EventJoinRoom, map[string]any{"roomId": "apt-1", "userType": "patient", "userName": "Alice"})
	settle(t, hub)

	room, ok, err := hub.Room(context.Background(), "apt-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, room.Users, 1)
	assert.Equal(t, "Alice", room.Users[0].UserName)
}

func TestHub_JoinSnapshotContainsPriorMessagesInOrder(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	q := connect(t, hub, "q")

	join(t, hub, a, "apt-1", "doctor")
	send(t, hub, a, EventMessage, map[string]any{"roomId": "apt-1", "message": map[string]string{"text": "m1"}})
	send(t, hub, a, EventMessage, map[string]any{"roomId": "apt-1", "message": map[string]string{"text": "m2"}})
	join(t, hub, q, "apt-1", "patient")
	settle(t, hub)

	frames := drain(t, q)
	require.Len(t, frames, 1)
	state := payloadOf[wireRoomState](t, frames[0])
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "m1", state.Messages[0]["text"])
	assert.Equal(t, "m2", state.Messages[1]["text"])
	assert.Equal(t, "a", state.Messages[0]["fromUser"])
}

func TestHub_ChatRoundTripAddsEnvelope(t *testing.T) {
	archiver := &recordingArchiver{}
	hub := startHub(t, 0, archiver)
	p := connect(t, hub, "p")
	q := connect(t, hub, "q")

	send(t, hub, p, EventJoinRoom, map[string]any{"roomId": "apt-1", "userType": "doctor", "doctorId": "42"})
	join(t, hub, q, "apt-1", "patient")
	settle(t, hub)
	drain(t, p)
	drain(t, q)

	send(t, hub, p, EventMessage, map[string]any{
		"roomId":  "apt-1",
		"message": map[string]any{"text": "take two a day", "fromUser": "spoofed"},
	})
	settle(t, hub)

	for _, c := range []*Client{p, q} {
		frames := ofType(drain(t, c), EventMessage)
		require.Len(t, frames, 1, "client %s", c.id)
		got := payloadOf[map[string]any](t, frames[0])
		assert.Equal(t, "take two a day", got["text"])
		assert.Equal(t, "p", got["fromUser"])
		assert.Equal(t, "Dr. 42", got["fromUserName"])
		assert.Equal(t, "doctor", got["fromUserType"])

		ts, ok := got["timestamp"].(string)
		require.True(t, ok)
		_, err := time.Parse(models.TimestampLayout, ts)
		assert.NoError(t, err)
	}

	archived := archiver.archived()
	require.Len(t, archived, 1)
	assert.Equal(t, "apt-1", archived[0].RoomID)
	assert.Equal(t, "p", archived[0].FromUser)
}

func TestHub_TargetedSignalReachesOnlyTarget(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")
	c := connect(t, hub, "c")

	join(t, hub, a, "apt-1", "doctor")
	join(t, hub, b, "apt-1", "patient")
	join(t, hub, c, "apt-1", "patient")
	settle(t, hub)
	drain(t, a)
	drain(t, b)
	drain(t, c)

	send(t, hub, a, EventSignal, map[string]any{
		"roomId":     "apt-1",
		"targetUser": "b",
		"signal":     map[string]string{"type": "offer", "sdp": "v=0"},
	})
	settle(t, hub)

	frames := drain(t, b)
	require.Len(t, frames, 1)
	assert.Equal(t, EventSignal, frames[0].Type)
	got := payloadOf[map[string]any](t, frames[0])
	assert.Equal(t, "a", got["fromUser"])
	assert.Equal(t, "doctor", got["fromUserType"])
	assert.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, got["signal"])

	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, c))
}

func TestHub_SignalToUnknownTargetIsDropped(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	join(t, hub, a, "apt-1", "doctor")
	join(t, hub, b, "apt-1", "patient")
	settle(t, hub)
	drain(t, a)
	drain(t, b)

	send(t, hub, a, EventSignal, map[string]any{"roomId": "apt-1", "targetUser": "nobody", "signal": "x"})
	settle(t, hub)

	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))
}

func TestHub_RoomEventsExcludeSender(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	join(t, hub, a, "apt-1", "doctor")
	join(t, hub, b, "apt-1", "patient")
	settle(t, hub)
	drain(t, a)
	drain(t, b)

	room := map[string]any{"roomId": "apt-1"}
	send(t, hub, a, EventSignal, map[string]any{"roomId": "apt-1", "signal": map[string]string{"candidate": "c1"}})
	send(t, hub, a, EventTyping, room)
	send(t, hub, a, EventStopTyping, room)
	send(t, hub, a, EventCallQuality, map[string]any{"roomId": "apt-1", "quality": "good", "stats": map[string]int{"rtt": 40}})
	send(t, hub, a, EventScreenShareStart, room)
	send(t, hub, a, EventScreenShareStop, room)
	send(t, hub, a, EventEndCall, room)
	settle(t, hub)

	assert.Empty(t, drain(t, a))

	frames := drain(t, b)
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	assert.Equal(t, []string{
		EventSignal,
		EventTyping,
		EventStopTyping,
		EventCallQualityUpdate,
		EventScreenShareStarted,
		EventScreenShareStopped,
		EventCallEnded,
	}, types)

	quality := payloadOf[map[string]any](t, frames[3])
	assert.Equal(t, "a", quality["fromUser"])
	assert.Equal(t, "good", quality["quality"])
	assert.Equal(t, map[string]any{"rtt": float64(40)}, quality["stats"])

	ended := payloadOf[map[string]any](t, frames[6])
	assert.Equal(t, "a", ended["endedBy"])
	assert.Equal(t, "Doctor", ended["endedByName"])
	assert.Equal(t, "doctor", ended["endedByType"])

	// end-call does not change membership.
	room2, ok, err := hub.Room(context.Background(), "apt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, room2.Users, 2)
}

func TestHub_RejoinLeavesPreviousRoom(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	join(t, hub, a, "room-a", "patient")
	join(t, hub, b, "room-a", "doctor")
	join(t, hub, a, "room-b", "patient")
	settle(t, hub)

	roomA, ok, err := hub.Room(context.Background(), "room-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, roomA.Users, 1)
	assert.Equal(t, "b", roomA.Users[0].ID)

	roomB, ok, err := hub.Room(context.Background(), "room-b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, roomB.Users, 1)
	assert.Equal(t, "a", roomB.Users[0].ID)

	left := ofType(drain(t, b), EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "a", payloadOf[wireUserLeft](t, left[0]).UserID)
}

func TestHub_DisconnectIsIdempotent(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	join(t, hub, a, "apt-1", "doctor")
	join(t, hub, b, "apt-1", "patient")
	settle(t, hub)
	drain(t, b)

	hub.Unregister(a)
	settle(t, hub)
	first, err := hub.Rooms(context.Background())
	require.NoError(t, err)
	firstStats, err := hub.Stats(context.Background())
	require.NoError(t, err)

	hub.Unregister(a)
	settle(t, hub)
	second, err := hub.Rooms(context.Background())
	require.NoError(t, err)
	secondStats, err := hub.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
	assert.Equal(t, models.RelayStats{ActiveRooms: 1, ActiveUsers: 1, ActiveConnections: 1}, secondStats)

	left := ofType(drain(t, b), EventUserLeft)
	require.Len(t, left, 1, "remaining members are told once")
	got := payloadOf[wireUserLeft](t, left[0])
	assert.Equal(t, "a", got.UserID)
	assert.Equal(t, "doctor", got.UserType)
	require.Len(t, got.RemainingUsers, 1)
	assert.Equal(t, "b", got.RemainingUsers[0].ID)

	_, open := <-a.send
	assert.False(t, open, "send channel is closed on disconnect")
}

func TestHub_StaleClientWithReusedIDIsNotDisconnected(t *testing.T) {
	hub := startHub(t, 0, nil)
	live := connect(t, hub, "a")
	join(t, hub, live, "apt-1", "doctor")
	settle(t, hub)

	stale := &Client{hub: hub, id: "a", send: make(chan []byte, 1)}
	hub.Unregister(stale)
	settle(t, hub)

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.Equal(t, 1, stats.ActiveRooms)
}

func TestHub_LastLeaveDeletesRoom(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")

	join(t, hub, a, "apt-1", "doctor")
	send(t, hub, a, EventLeaveRoom, map[string]any{"roomId": "apt-1"})
	settle(t, hub)

	rooms, err := hub.Rooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)

	// Still connected but no longer in a room, so chat goes nowhere.
	send(t, hub, a, EventMessage, map[string]any{"roomId": "apt-1", "message": "hello"})
	settle(t, hub)

	_, ok, err := hub.Room(context.Background(), "apt-1")
	require.NoError(t, err)
	assert.False(t, ok, "chat must not resurrect an empty room")

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RelayStats{ActiveRooms: 0, ActiveUsers: 1, ActiveConnections: 1}, stats)
}

func TestHub_LeaveForOtherRoomIsIgnored(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")
	b := connect(t, hub, "b")

	join(t, hub, a, "apt-1", "doctor")
	join(t, hub, b, "apt-2", "patient")
	settle(t, hub)
	drain(t, b)

	send(t, hub, a, EventLeaveRoom, map[string]any{"roomId": "apt-2"})
	settle(t, hub)

	assert.Empty(t, drain(t, b))
	rooms, err := hub.Rooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestHub_MalformedEventsAreNoOps(t *testing.T) {
	hub := startHub(t, 0, nil)
	a := connect(t, hub, "a")

	hub.Dispatch(a, Message{Type: EventJoinRoom})
	hub.Dispatch(a, Message{Type: EventJoinRoom, Payload: json.RawMessage(`"apt-1"`)})
	hub.Dispatch(a, Message{Type: EventJoinRoom, Payload: json.RawMessage(`{"roomId":""}`)})
	hub.Dispatch(a, Message{Type: EventJoinRoom, Payload: json.RawMessage(`{"roomId":"apt-1","doctorId":true}`)})
	hub.Dispatch(a, Message{Type: EventMessage, Payload: json.RawMessage(`{"message":"no room"}`)})
	hub.Dispatch(a, Message{Type: EventSignal, Payload: json.RawMessage(`{"signal":{}}`)})
	hub.Dispatch(a, Message{Type: EventLeaveRoom, Payload: json.RawMessage(`{}`)})
	hub.Dispatch(a, Message{Type: "self-destruct", Payload: json.RawMessage(`{"roomId":"apt-1"}`)})
	settle(t, hub)

	assert.Empty(t, drain(t, a))
	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RelayStats{ActiveConnections: 1}, stats)

	// The connection is still usable afterwards.
	join(t, hub, a, "apt-1", "patient")
	settle(t, hub)
	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, EventRoomState, frames[0].Type)
}

func TestHub_FullSendBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := startHub(t, 0, nil)
	slow := &Client{hub: hub, id: "slow", send: make(chan []byte, 1)}
	require.True(t, hub.Register(slow))
	fast := connect(t, hub, "fast")

	join(t, hub, slow, "apt-1", "patient")
	join(t, hub, fast, "apt-1", "doctor")
	for i := 0; i < 10; i++ {
		send(t, hub, fast, EventTyping, map[string]any{"roomId": "apt-1"})
	}
	settle(t, hub)

	// Only the room-state fitted; everything after it was dropped.
	frames := drain(t, slow)
	require.Len(t, frames, 1)
	assert.Equal(t, EventRoomState, frames[0].Type)
}

func TestHub_MessageLogIsCapped(t *testing.T) {
	hub := startHub(t, 2, nil)
	a := connect(t, hub, "a")

	join(t, hub, a, "apt-1", "doctor")
	for _, text := range []string{"m1", "m2", "m3"} {
		send(t, hub, a, EventMessage, map[string]any{"roomId": "apt-1", "message": map[string]string{"text": text}})
	}
	settle(t, hub)

	room, ok, err := hub.Room(context.Background(), "apt-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, room.Messages, 2)
	assert.Contains(t, string(room.Messages[0].Raw), `"m2"`)
	assert.Contains(t, string(room.Messages[1].Raw), `"m3"`)
}

func TestHub_StopClosesConnectionsAndRejectsQueries(t *testing.T) {
	hub := NewHub(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	a := connect(t, hub, "a")
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, hub.Wait(waitCtx))

	_, open := <-a.send
	assert.False(t, open)

	_, err := hub.Stats(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
	assert.False(t, hub.Register(&Client{hub: hub, id: "late", send: make(chan []byte, 1)}))

	// Late unregister and dispatch return instead of blocking.
	hub.Unregister(a)
	hub.Dispatch(a, Message{Type: EventTyping})
}
