// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/game"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 32
)

// session is one live websocket connection with its outbound queue.
// Writes go through the send channel so a slow client never blocks the
// engine's broadcast path.
type session struct {
	connID uuid.UUID
	userID uuid.UUID
	conn   *websocket.Conn

	send chan game.GameEvent
	once sync.Once
	done chan struct{}
}

func newSession(connID, userID uuid.UUID, conn *websocket.Conn) *session {
	return &session{
		connID: connID,
		userID: userID,
		conn:   conn,
		send:   make(chan game.GameEvent, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// writePump drains the send queue onto the wire. It exits when the
// session closes.
func (s *session) writePump() {
	for {
		select {
		case ev := <-s.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, s.conn, ev)
			cancel()
			if err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "")
	})
}

// enqueue drops the event when the session's queue is full or closed.
func (s *session) enqueue(ev game.GameEvent) {
	select {
	case s.send <- ev:
	case <-s.done:
	default:
		logrus.WithFields(logrus.Fields{
			"user": s.userID, "event": ev.Type,
		}).Warn("session send queue full, dropping event")
	}
}

// Hub tracks live sessions and their room membership, and delivers
// engine events to them. It implements game.Broadcaster.
//
// Sessions are keyed by user id so targeted events reach a player even
// before their room membership is recorded; rooms group sessions per
// game for fan-out.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session               // by user id
	rooms    map[uuid.UUID]map[uuid.UUID]*session // game id -> user id
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]*session),
		rooms:    make(map[uuid.UUID]map[uuid.UUID]*session),
	}
}

// register adds the session, displacing any previous connection for the
// same user.
func (h *Hub) register(s *session) {
	h.mu.Lock()
	prev := h.sessions[s.userID]
	h.sessions[s.userID] = s
	h.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	go s.writePump()
}

// joinRoom records the session under the game's room.
func (h *Hub) joinRoom(gameID uuid.UUID, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[gameID]
	if room == nil {
		room = make(map[uuid.UUID]*session)
		h.rooms[gameID] = room
	}
	room[s.userID] = s
}

// remove drops the session and its room memberships. A session is only
// removed if it is still the user's current one, so a reconnect that
// displaced it is unaffected.
func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if h.sessions[s.userID] == s {
		delete(h.sessions, s.userID)
	}
	for gameID, room := range h.rooms {
		if room[s.userID] == s {
			delete(room, s.userID)
			if len(room) == 0 {
				delete(h.rooms, gameID)
			}
		}
	}
	h.mu.Unlock()
	s.close()
}

// ToGame fans an event out to every session in the game's room.
func (h *Hub) ToGame(gameID uuid.UUID, ev game.GameEvent) {
	h.mu.Lock()
	room := h.rooms[gameID]
	targets := make([]*session, 0, len(room))
	for _, s := range room {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.enqueue(ev)
	}
}

// ToPlayer delivers an event to one player's session. The lookup is by
// user id rather than room so creation acknowledgements arrive before
// room membership exists.
func (h *Hub) ToPlayer(gameID, userID uuid.UUID, ev game.GameEvent) {
	h.mu.Lock()
	s := h.sessions[userID]
	h.mu.Unlock()
	if s != nil {
		s.enqueue(ev)
	}
}
