// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/auth"
	"github.com/fadugame/fadu/internal/cache"
	"github.com/fadugame/fadu/internal/database"
	"github.com/fadugame/fadu/internal/models"
)

// API serves the HTTP surface: account registration, login, and game
// lookups. Gameplay itself happens over the websocket.
type API struct {
	store   *database.Store
	history *cache.Historian
	tokens  *auth.TokenIssuer
	log     *logrus.Entry
}

func NewAPI(store *database.Store, history *cache.Historian, tokens *auth.TokenIssuer) *API {
	return &API{
		store:   store,
		history: history,
		tokens:  tokens,
		log:     logrus.WithField("component", "api"),
	}
}

// Routes registers the API endpoints on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/game/{id}", a.handleGetGame)
	mux.HandleFunc("GET /api/game/{id}/actions", a.handleGetActions)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "username and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.log.WithError(err).Error("failed to hash password")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.log.WithError(err).WithField("username", req.Username).Warn("failed to create user")
		respondError(w, http.StatusConflict, "username is taken")
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		a.log.WithError(err).Error("failed to issue token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.store.FetchUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			a.log.WithError(err).Error("failed to fetch user")
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		a.log.WithError(err).Error("failed to issue token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (a *API) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	rec, err := a.store.FetchGame(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "game not found")
			return
		}
		a.log.WithError(err).WithField("game", id).Error("failed to fetch game")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (a *API) handleGetActions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	actions, err := a.history.FetchActions(r.Context(), id)
	if err != nil {
		a.log.WithError(err).WithField("game", id).Error("failed to fetch action history")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
