// internal/game/registry.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/models"
)

// Broadcaster delivers engine events to live sessions. The websocket
// hub implements it; tests substitute a recorder.
type Broadcaster interface {
	// ToGame fans an event out to every session in the game's room.
	ToGame(gameID uuid.UUID, ev GameEvent)
	// ToPlayer addresses a single player's session within a room.
	ToPlayer(gameID, userID uuid.UUID, ev GameEvent)
}

// connEntry associates a live connection with its player and game.
type connEntry struct {
	userID uuid.UUID
	gameID uuid.UUID
}

// Registry owns every live engine instance and routes inbound player
// actions to the right one. Engines are created exactly once, when a
// game transitions into the playing state, and removed on completion
// or teardown. The registry's own maps are guarded by mu; each engine
// serializes its own state with its per-game mutex.
type Registry struct {
	store       Store
	history     ActionSink
	broadcaster Broadcaster

	// RoundDelay is propagated to new engines.
	RoundDelay time.Duration

	mu    sync.Mutex
	games map[uuid.UUID]*Game
	conns map[uuid.UUID]connEntry

	log *logrus.Entry
}

// NewRegistry builds an empty registry bound to its collaborators.
func NewRegistry(store Store, history ActionSink, broadcaster Broadcaster) *Registry {
	return &Registry{
		store:       store,
		history:     history,
		broadcaster: broadcaster,
		RoundDelay:  DefaultRoundDelay,
		games:       make(map[uuid.UUID]*Game),
		conns:       make(map[uuid.UUID]connEntry),
	}
}

// CreateGame persists a new waiting game hosted by userID and binds the
// creating connection to it.
func (r *Registry) CreateGame(ctx context.Context, connID, userID uuid.UUID, username string, settings models.GameSettings) (*models.GameRecord, error) {
	settings = settings.Clamped()
	rec := &models.GameRecord{
		ID:     uuid.New(),
		HostID: userID,
		Status: models.StatusWaiting,
		Players: []models.RosterEntry{
			{UserID: userID, Username: username, Connected: true},
		},
		Settings:     settings,
		CurrentRound: 0,
		TotalRounds:  settings.NumberOfRounds,
		Scores:       make(map[uuid.UUID]int),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := r.store.CreateGame(ctx, rec); err != nil {
		r.logger().WithError(err).Error("failed to create game")
		r.broadcaster.ToPlayer(rec.ID, userID, errorEvent(userID, "Failed to create game"))
		return nil, err
	}

	r.mu.Lock()
	r.conns[connID] = connEntry{userID: userID, gameID: rec.ID}
	r.mu.Unlock()

	r.broadcaster.ToPlayer(rec.ID, userID, GameEvent{
		Type: EventGameCreated,
		Payload: map[string]interface{}{
			"gameId": rec.ID.String(),
			"game":   rec,
		},
	})
	r.logger().WithFields(logrus.Fields{"game": rec.ID, "host": userID}).Info("game created")
	return rec, nil
}

// JoinGame adds userID to a waiting game, or reactivates their seat in
// a game they already belong to. When the roster reaches capacity the
// game starts automatically.
func (r *Registry) JoinGame(ctx context.Context, connID, gameID, userID uuid.UUID, username string) error {
	rec, err := r.store.FetchGame(ctx, gameID)
	if err != nil {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameNotFound.Error()))
		return ErrGameNotFound
	}

	idx := rec.FindPlayer(userID)
	switch {
	case idx >= 0:
		// Known player; reactivate the seat (reconnection).
		rec.Players[idx].Connected = true
		rec.Players[idx].Username = username
	case rec.Status != models.StatusWaiting:
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameStarted.Error()))
		return ErrGameStarted
	case len(rec.Players) >= rec.Settings.MaxPlayers:
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameFull.Error()))
		return ErrGameFull
	default:
		rec.Players = append(rec.Players, models.RosterEntry{
			UserID: userID, Username: username, Connected: true,
		})
	}
	rec.UpdatedAt = time.Now()
	if err := r.store.SaveGame(ctx, rec); err != nil {
		r.logger().WithError(err).WithField("game", gameID).Error("failed to save join")
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, "Failed to join game"))
		return err
	}

	r.mu.Lock()
	r.conns[connID] = connEntry{userID: userID, gameID: gameID}
	engine := r.games[gameID]
	r.mu.Unlock()

	r.broadcaster.ToGame(gameID, GameEvent{
		Type: EventPlayerJoined,
		Payload: map[string]interface{}{
			"player": map[string]interface{}{"userId": userID.String(), "username": username},
			"game":   rec,
		},
	})

	if engine != nil {
		// Live game: resync the returning player.
		engine.HandleReconnect(userID)
		return nil
	}

	if rec.Status == models.StatusWaiting && len(rec.Players) == rec.Settings.MaxPlayers {
		return r.startGame(ctx, rec)
	}
	return nil
}

// StartGame is the host's explicit start. At least two players must
// have joined.
func (r *Registry) StartGame(ctx context.Context, gameID, userID uuid.UUID) error {
	rec, err := r.store.FetchGame(ctx, gameID)
	if err != nil {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameNotFound.Error()))
		return ErrGameNotFound
	}
	if rec.Status != models.StatusWaiting {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameStarted.Error()))
		return ErrGameStarted
	}
	if rec.HostID != userID {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrNotHost.Error()))
		return ErrNotHost
	}
	if len(rec.Players) < models.MinPlayers {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrNotEnoughPlayers.Error()))
		return ErrNotEnoughPlayers
	}
	return r.startGame(ctx, rec)
}

// startGame flips the aggregate into the playing state, builds the
// engine (exactly once per game), and deals the first round.
func (r *Registry) startGame(ctx context.Context, rec *models.GameRecord) error {
	rec.Status = models.StatusPlaying
	rec.CurrentRound = 1
	rec.UpdatedAt = time.Now()
	if err := r.store.SaveGame(ctx, rec); err != nil {
		r.logger().WithError(err).WithField("game", rec.ID).Error("failed to save game start")
		r.broadcaster.ToGame(rec.ID, errorEvent(uuid.Nil, "Failed to start game"))
		return err
	}

	gameID := rec.ID
	engine := NewGame(rec, r.store, r.history)
	engine.RoundDelay = r.RoundDelay
	engine.BroadcastFn = func(ev GameEvent) { r.broadcaster.ToGame(gameID, ev) }
	engine.BroadcastToPlayerFn = func(playerID uuid.UUID, ev GameEvent) {
		r.broadcaster.ToPlayer(gameID, playerID, ev)
	}

	r.mu.Lock()
	if _, exists := r.games[gameID]; exists {
		r.mu.Unlock()
		return nil
	}
	r.games[gameID] = engine
	r.mu.Unlock()

	r.broadcaster.ToGame(gameID, GameEvent{
		Type:    EventGameStarted,
		Payload: map[string]interface{}{"game": rec},
	})
	r.logger().WithField("game", gameID).Info("game started")

	engine.StartRound()
	return nil
}

// PlayCard routes a play action to the game's engine.
func (r *Registry) PlayCard(gameID, userID uuid.UUID, cardIndex int) error {
	engine, err := r.lookup(gameID, userID)
	if err != nil {
		return err
	}
	return engine.PlayCard(userID, cardIndex)
}

// DrawCard routes a draw action to the game's engine.
func (r *Registry) DrawCard(gameID, userID uuid.UUID) error {
	engine, err := r.lookup(gameID, userID)
	if err != nil {
		return err
	}
	return engine.DrawCard(userID)
}

// MakeCall routes a call action to the game's engine.
func (r *Registry) MakeCall(gameID, userID uuid.UUID) error {
	engine, err := r.lookup(gameID, userID)
	if err != nil {
		return err
	}
	return engine.MakeCall(userID)
}

// HandleDisconnect processes a connection loss: marks the player
// disconnected in the aggregate, lets the engine skip their turn if it
// was theirs, and tears the game down once nobody is left.
func (r *Registry) HandleDisconnect(connID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)
	// A reconnect registers a fresh connection before the displaced
	// socket's read loop exits. When a newer connection for the same
	// seat is live, this disconnect is stale and must not undo the
	// reactivation.
	superseded := false
	for _, e := range r.conns {
		if e.userID == entry.userID && e.gameID == entry.gameID {
			superseded = true
			break
		}
	}
	engine := r.games[entry.gameID]
	r.mu.Unlock()

	if superseded {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if rec, err := r.store.FetchGame(ctx, entry.gameID); err == nil {
		if idx := rec.FindPlayer(entry.userID); idx >= 0 {
			rec.Players[idx].Connected = false
			rec.UpdatedAt = time.Now()
			if err := r.store.SaveGame(ctx, rec); err != nil {
				r.logger().WithError(err).WithField("game", entry.gameID).Error("failed to save disconnect")
			}
		}
	}

	r.broadcaster.ToGame(entry.gameID, GameEvent{
		Type:    EventPlayerDisconnected,
		Payload: map[string]interface{}{"userId": entry.userID.String()},
	})

	if engine == nil {
		return
	}
	engine.HandleDisconnect(entry.userID)

	engine.Mu.Lock()
	anyConnected := false
	for _, p := range engine.Players {
		if p.Connected {
			anyConnected = true
			break
		}
	}
	engine.Mu.Unlock()

	if !anyConnected {
		r.logger().WithField("game", entry.gameID).Info("all players left, tearing down game")
		r.Teardown(entry.gameID)
	}
}

// Teardown destroys a live engine: its deferred timers are cancelled
// and it is removed from the routing table.
func (r *Registry) Teardown(gameID uuid.UUID) {
	r.mu.Lock()
	engine, ok := r.games[gameID]
	delete(r.games, gameID)
	r.mu.Unlock()

	if ok {
		engine.Teardown()
	}
}

// Lookup returns the live engine for a game id, if any.
func (r *Registry) Lookup(gameID uuid.UUID) (*Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	engine, ok := r.games[gameID]
	return engine, ok
}

// lookup resolves the engine, reporting GameNotFound to the acting
// player when no engine is registered for the id.
func (r *Registry) lookup(gameID, userID uuid.UUID) (*Game, error) {
	r.mu.Lock()
	engine, ok := r.games[gameID]
	r.mu.Unlock()
	if !ok {
		r.broadcaster.ToPlayer(gameID, userID, errorEvent(userID, ErrGameNotFound.Error()))
		return nil, ErrGameNotFound
	}
	return engine, nil
}

func (r *Registry) logger() *logrus.Entry {
	if r.log == nil {
		r.log = logrus.WithField("component", "registry")
	}
	return r.log
}
