// internal/game/registry_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadugame/fadu/internal/models"
)

// recordingBroadcaster captures routed events per room and per player.
type recordingBroadcaster struct {
	mu           sync.Mutex
	roomEvents   map[uuid.UUID][]GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		roomEvents:   make(map[uuid.UUID][]GameEvent),
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (rb *recordingBroadcaster) ToGame(gameID uuid.UUID, ev GameEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.roomEvents[gameID] = append(rb.roomEvents[gameID], ev)
}

func (rb *recordingBroadcaster) ToPlayer(gameID, userID uuid.UUID, ev GameEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.playerEvents[userID] = append(rb.playerEvents[userID], ev)
}

func (rb *recordingBroadcaster) findRoomEvent(gameID uuid.UUID, eventType GameEventType) *GameEvent {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	events := rb.roomEvents[gameID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

func (rb *recordingBroadcaster) findPlayerEvent(userID uuid.UUID, eventType GameEventType) *GameEvent {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	events := rb.playerEvents[userID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

func setupRegistry(t *testing.T) (*Registry, *memStore, *recordingBroadcaster) {
	t.Helper()
	store := newMemStore()
	rb := newRecordingBroadcaster()
	r := NewRegistry(store, nil, rb)
	r.RoundDelay = 20 * time.Millisecond
	return r, store, rb
}

func TestCreateGameClampsSettingsAndPersists(t *testing.T) {
	r, store, rb := setupRegistry(t)
	host := uuid.New()

	rec, err := r.CreateGame(context.Background(), uuid.New(), host, "Host",
		models.GameSettings{NumberOfRounds: 99, MaxPlayers: 99})
	require.NoError(t, err)

	assert.Equal(t, models.MaxRounds, rec.Settings.NumberOfRounds)
	assert.Equal(t, models.MaxPlayers, rec.Settings.MaxPlayers)
	assert.Equal(t, models.StatusWaiting, rec.Status)
	assert.Equal(t, models.MaxRounds, rec.TotalRounds)

	saved := store.record(rec.ID)
	require.NotNil(t, saved)
	require.Len(t, saved.Players, 1)
	assert.Equal(t, host, saved.Players[0].UserID)

	created := rb.findPlayerEvent(host, EventGameCreated)
	require.NotNil(t, created)
	assert.Equal(t, rec.ID.String(), created.Payload["gameId"])
}

func TestCreateGameDefaultsSettings(t *testing.T) {
	r, _, _ := setupRegistry(t)

	rec, err := r.CreateGame(context.Background(), uuid.New(), uuid.New(), "Host", models.GameSettings{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRounds, rec.Settings.NumberOfRounds)
	assert.Equal(t, models.DefaultMaxPlayers, rec.Settings.MaxPlayers)
}

func TestJoinUnknownGameReportsNotFound(t *testing.T) {
	r, _, rb := setupRegistry(t)
	user := uuid.New()

	err := r.JoinGame(context.Background(), uuid.New(), uuid.New(), user, "Guest")
	assert.ErrorIs(t, err, ErrGameNotFound)

	ev := rb.findPlayerEvent(user, EventGameError)
	require.NotNil(t, ev)
	assert.Equal(t, ErrGameNotFound.Error(), ev.Payload["message"])
}

func TestJoinAutoStartsAtCapacity(t *testing.T) {
	r, store, rb := setupRegistry(t)
	ctx := context.Background()
	host := uuid.New()
	guest := uuid.New()

	rec, err := r.CreateGame(ctx, uuid.New(), host, "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { r.Teardown(rec.ID) })

	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, guest, "Guest"))

	assert.NotNil(t, rb.findRoomEvent(rec.ID, EventPlayerJoined))
	assert.NotNil(t, rb.findRoomEvent(rec.ID, EventGameStarted))
	assert.NotNil(t, rb.findRoomEvent(rec.ID, EventGameStateUpdate))

	engine, ok := r.Lookup(rec.ID)
	require.True(t, ok)
	engine.Mu.Lock()
	assert.True(t, engine.roundActive)
	assert.Equal(t, 1, engine.CurrentRound)
	engine.Mu.Unlock()

	saved := store.record(rec.ID)
	assert.Equal(t, models.StatusPlaying, saved.Status)
	assert.Len(t, saved.Players, 2)
}

func TestJoinStartedGameByStrangerRejected(t *testing.T) {
	r, _, rb := setupRegistry(t)
	ctx := context.Background()

	rec, err := r.CreateGame(ctx, uuid.New(), uuid.New(), "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { r.Teardown(rec.ID) })
	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, uuid.New(), "Guest"))

	stranger := uuid.New()
	err = r.JoinGame(ctx, uuid.New(), rec.ID, stranger, "Stranger")
	assert.ErrorIs(t, err, ErrGameStarted)
	assert.NotNil(t, rb.findPlayerEvent(stranger, EventGameError))
}

func TestStartGameHostOnlyAndMinimumPlayers(t *testing.T) {
	r, _, _ := setupRegistry(t)
	ctx := context.Background()
	host := uuid.New()
	guest := uuid.New()

	rec, err := r.CreateGame(ctx, uuid.New(), host, "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { r.Teardown(rec.ID) })

	// Alone, even the host cannot start.
	err = r.StartGame(ctx, rec.ID, host)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, guest, "Guest"))

	err = r.StartGame(ctx, rec.ID, guest)
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, r.StartGame(ctx, rec.ID, host))
	_, ok := r.Lookup(rec.ID)
	assert.True(t, ok)

	// Starting twice is rejected.
	err = r.StartGame(ctx, rec.ID, host)
	assert.ErrorIs(t, err, ErrGameStarted)
}

func TestActionOnUnknownGameReportsNotFound(t *testing.T) {
	r, _, rb := setupRegistry(t)
	user := uuid.New()

	err := r.PlayCard(uuid.New(), user, 0)
	assert.ErrorIs(t, err, ErrGameNotFound)
	err = r.DrawCard(uuid.New(), user)
	assert.ErrorIs(t, err, ErrGameNotFound)
	err = r.MakeCall(uuid.New(), user)
	assert.ErrorIs(t, err, ErrGameNotFound)

	assert.NotNil(t, rb.findPlayerEvent(user, EventGameError))
}

func TestRejoinReactivatesSeat(t *testing.T) {
	r, store, _ := setupRegistry(t)
	ctx := context.Background()
	host := uuid.New()
	guest := uuid.New()
	hostConn := uuid.New()

	rec, err := r.CreateGame(ctx, hostConn, host, "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { r.Teardown(rec.ID) })
	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, guest, "Guest"))

	r.HandleDisconnect(hostConn)
	saved := store.record(rec.ID)
	assert.False(t, saved.Players[saved.FindPlayer(host)].Connected)

	// Rejoining a started game works because the seat already exists.
	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, host, "Host"))
	engine, ok := r.Lookup(rec.ID)
	require.True(t, ok)
	engine.Mu.Lock()
	assert.True(t, engine.playerByID(host).Connected)
	engine.Mu.Unlock()
}

func TestStaleDisconnectAfterReconnectIgnored(t *testing.T) {
	r, store, _ := setupRegistry(t)
	ctx := context.Background()
	host := uuid.New()
	guest := uuid.New()
	oldConn := uuid.New()

	rec, err := r.CreateGame(ctx, oldConn, host, "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { r.Teardown(rec.ID) })
	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, guest, "Guest"))

	// Host reconnects on a fresh connection; the old socket has not
	// finished closing yet.
	require.NoError(t, r.JoinGame(ctx, uuid.New(), rec.ID, host, "Host"))
	r.HandleDisconnect(oldConn)

	// The late disconnect of the displaced connection must not undo the
	// reactivated seat.
	engine, ok := r.Lookup(rec.ID)
	require.True(t, ok)
	engine.Mu.Lock()
	assert.True(t, engine.playerByID(host).Connected)
	engine.Mu.Unlock()

	saved := store.record(rec.ID)
	assert.True(t, saved.Players[saved.FindPlayer(host)].Connected)
}

func TestDisconnectOfLastPlayerTearsDown(t *testing.T) {
	r, _, rb := setupRegistry(t)
	ctx := context.Background()
	host := uuid.New()
	guest := uuid.New()
	hostConn := uuid.New()
	guestConn := uuid.New()

	rec, err := r.CreateGame(ctx, hostConn, host, "Host",
		models.GameSettings{NumberOfRounds: 2, MaxPlayers: 2})
	require.NoError(t, err)
	require.NoError(t, r.JoinGame(ctx, guestConn, rec.ID, guest, "Guest"))
	_, ok := r.Lookup(rec.ID)
	require.True(t, ok)

	r.HandleDisconnect(hostConn)
	assert.NotNil(t, rb.findRoomEvent(rec.ID, EventPlayerDisconnected))
	_, ok = r.Lookup(rec.ID)
	assert.True(t, ok, "game lives while a player remains")

	r.HandleDisconnect(guestConn)
	_, ok = r.Lookup(rec.ID)
	assert.False(t, ok, "empty game is torn down")

	// Stale connection ids are ignored.
	r.HandleDisconnect(guestConn)
}
