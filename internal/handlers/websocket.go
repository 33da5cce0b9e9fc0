// internal/handlers/websocket.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/auth"
	"github.com/fadugame/fadu/internal/game"
	"github.com/fadugame/fadu/internal/models"
)

const actionTimeout = 10 * time.Second

// WSHandler upgrades connections, authenticates them, and pumps inbound
// action frames into the registry.
type WSHandler struct {
	hub      *Hub
	registry *game.Registry
	tokens   *auth.TokenIssuer
	log      *logrus.Entry
}

func NewWSHandler(hub *Hub, registry *game.Registry, tokens *auth.TokenIssuer) *WSHandler {
	return &WSHandler{
		hub:      hub,
		registry: registry,
		tokens:   tokens,
		log:      logrus.WithField("component", "ws"),
	}
}

// ServeHTTP handles GET /ws?token=<jwt>.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}

	connID := uuid.New()
	s := newSession(connID, claims.UserID, conn)
	h.hub.register(s)
	h.log.WithFields(logrus.Fields{
		"user": claims.UserID, "username": claims.Username,
	}).Info("websocket connected")

	h.readLoop(s, claims.Username)

	h.registry.HandleDisconnect(connID)
	h.hub.remove(s)
	h.log.WithField("user", claims.UserID).Info("websocket disconnected")
}

// readLoop decodes inbound frames until the connection drops.
func (h *WSHandler) readLoop(s *session, username string) {
	ctx := context.Background()
	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, s.conn, &action); err != nil {
			return
		}
		h.dispatch(s, username, action)
	}
}

// dispatch routes one action frame. The acting user always comes from
// the authenticated session, never from the frame.
func (h *WSHandler) dispatch(s *session, username string, action models.GameAction) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch action.Type {
	case models.ActionCreateGame:
		settings := models.GameSettings{}
		if action.Settings != nil {
			settings = *action.Settings
		}
		rec, err := h.registry.CreateGame(ctx, s.connID, s.userID, username, settings)
		if err == nil {
			h.hub.joinRoom(rec.ID, s)
		}
	case models.ActionJoinGame:
		h.hub.joinRoom(action.GameID, s)
		if err := h.registry.JoinGame(ctx, s.connID, action.GameID, s.userID, username); err != nil {
			h.leaveOnFailedJoin(action.GameID, s)
		}
	case models.ActionStartGame:
		h.registry.StartGame(ctx, action.GameID, s.userID)
	case models.ActionPlayCard:
		h.registry.PlayCard(action.GameID, s.userID, action.CardIndex)
	case models.ActionDrawCard:
		h.registry.DrawCard(action.GameID, s.userID)
	case models.ActionMakeCall:
		h.registry.MakeCall(action.GameID, s.userID)
	default:
		s.enqueue(game.GameEvent{
			Type:    game.EventGameError,
			Payload: map[string]interface{}{"message": "Unknown action type"},
		})
	}
}

// leaveOnFailedJoin undoes the optimistic room membership taken before
// the join was validated.
func (h *WSHandler) leaveOnFailedJoin(gameID uuid.UUID, s *session) {
	h.hub.mu.Lock()
	if room := h.hub.rooms[gameID]; room != nil && room[s.userID] == s {
		delete(room, s.userID)
		if len(room) == 0 {
			delete(h.hub.rooms, gameID)
		}
	}
	h.hub.mu.Unlock()
}
