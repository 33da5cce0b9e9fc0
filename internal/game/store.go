// internal/game/store.go
package game

import (
	"context"

	"github.com/google/uuid"

	"github.com/fadugame/fadu/internal/models"
)

// Store is the persistence port the engine and registry depend on. The
// production implementation lives in internal/database; tests use an
// in-memory one.
//
// SaveGame must be durable before it returns: round-end broadcasts are
// only emitted after a successful save.
type Store interface {
	CreateGame(ctx context.Context, rec *models.GameRecord) error
	FetchGame(ctx context.Context, id uuid.UUID) (*models.GameRecord, error)
	SaveGame(ctx context.Context, rec *models.GameRecord) error

	// IncrementUserStats bumps the per-user lifetime aggregates when a
	// game completes.
	IncrementUserStats(ctx context.Context, userID uuid.UUID, won bool, points int) error
}

// ActionRecord is one entry of the game action history.
type ActionRecord struct {
	GameID      uuid.UUID              `json:"gameId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorUserID uuid.UUID              `json:"actorUserId"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}

// ActionSink receives action history records. Publishing is
// fire-and-forget; failures never affect game state.
type ActionSink interface {
	PublishAction(ctx context.Context, rec ActionRecord) error
}
