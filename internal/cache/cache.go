// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/game"
)

// actionKeyPrefix namespaces per-game action lists in Redis.
const actionKeyPrefix = "fadu:actions:"

// actionTTL caps how long a finished game's action log lingers.
const actionTTL = 7 * 24 * time.Hour

// Historian appends game actions to a per-game Redis list so a round
// can be reconstructed after the fact. It implements game.ActionSink.
type Historian struct {
	client *redis.Client
}

// Connect dials Redis and pings it.
func Connect(ctx context.Context, addr, password string) (*Historian, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	logrus.Info("connected to redis")
	return &Historian{client: client}, nil
}

// Close releases the Redis connection.
func (h *Historian) Close() error {
	return h.client.Close()
}

// PublishAction appends one action record to the game's list and
// refreshes its expiry.
func (h *Historian) PublishAction(ctx context.Context, rec game.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: encode action: %w", err)
	}
	key := actionKeyPrefix + rec.GameID.String()
	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, actionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: push action: %w", err)
	}
	return nil
}

// FetchActions returns the full recorded action history for a game, in
// append order.
func (h *Historian) FetchActions(ctx context.Context, gameID uuid.UUID) ([]game.ActionRecord, error) {
	key := actionKeyPrefix + gameID.String()
	raw, err := h.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: fetch actions: %w", err)
	}
	out := make([]game.ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec game.ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			logrus.WithError(err).WithField("game", gameID).Warn("skipping malformed action record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
