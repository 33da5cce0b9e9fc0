// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("database: not found")

// Store is the Postgres-backed persistence layer. It implements
// game.Store and the user lookups used by the auth handlers.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool against the given DSN and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}
	logrus.Info("connected to postgres")
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    games_played  INT NOT NULL DEFAULT 0,
    games_won     INT NOT NULL DEFAULT 0,
    total_points  INT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS games (
    id            UUID PRIMARY KEY,
    host_id       UUID NOT NULL,
    status        TEXT NOT NULL,
    players       JSONB NOT NULL DEFAULT '[]',
    settings      JSONB NOT NULL DEFAULT '{}',
    current_round INT NOT NULL DEFAULT 0,
    total_rounds  INT NOT NULL DEFAULT 3,
    scores        JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// CreateGame inserts a new game aggregate row.
func (s *Store) CreateGame(ctx context.Context, rec *models.GameRecord) error {
	players, settings, scores, err := marshalAggregate(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO games (id, host_id, status, players, settings, current_round, total_rounds, scores, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		rec.ID, rec.HostID, string(rec.Status), players, settings,
		rec.CurrentRound, rec.TotalRounds, scores)
	if err != nil {
		return fmt.Errorf("database: insert game: %w", err)
	}
	return nil
}

// FetchGame loads a game aggregate by id.
func (s *Store) FetchGame(ctx context.Context, id uuid.UUID) (*models.GameRecord, error) {
	rec := &models.GameRecord{ID: id}
	var status string
	var players, settings, scores []byte
	err := s.pool.QueryRow(ctx, `
SELECT host_id, status, players, settings, current_round, total_rounds, scores, created_at, updated_at
FROM games WHERE id = $1`, id).Scan(
		&rec.HostID, &status, &players, &settings,
		&rec.CurrentRound, &rec.TotalRounds, &scores,
		&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: fetch game: %w", err)
	}
	rec.Status = models.GameStatus(status)
	if err := json.Unmarshal(players, &rec.Players); err != nil {
		return nil, fmt.Errorf("database: decode players: %w", err)
	}
	if err := json.Unmarshal(settings, &rec.Settings); err != nil {
		return nil, fmt.Errorf("database: decode settings: %w", err)
	}
	if err := json.Unmarshal(scores, &rec.Scores); err != nil {
		return nil, fmt.Errorf("database: decode scores: %w", err)
	}
	return rec, nil
}

// SaveGame writes the mutable aggregate fields back. The write is a
// single statement so the round-score merge commits atomically.
func (s *Store) SaveGame(ctx context.Context, rec *models.GameRecord) error {
	players, settings, scores, err := marshalAggregate(rec)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE games
SET status = $2, players = $3, settings = $4, current_round = $5, total_rounds = $6, scores = $7, updated_at = now()
WHERE id = $1`,
		rec.ID, string(rec.Status), players, settings,
		rec.CurrentRound, rec.TotalRounds, scores)
	if err != nil {
		return fmt.Errorf("database: save game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUserStats bumps the lifetime aggregates for one user after
// game completion.
func (s *Store) IncrementUserStats(ctx context.Context, userID uuid.UUID, won bool, points int) error {
	wonInc := 0
	if won {
		wonInc = 1
	}
	_, err := s.pool.Exec(ctx, `
UPDATE users
SET games_played = games_played + 1,
    games_won    = games_won + $2,
    total_points = total_points + $3
WHERE id = $1`, userID, wonInc, points)
	if err != nil {
		return fmt.Errorf("database: increment user stats: %w", err)
	}
	return nil
}

// CreateUser inserts a new account row.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1, $2, $3, now())`,
		u.ID, u.Username, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("database: insert user: %w", err)
	}
	return nil
}

// FetchUserByUsername loads an account for login.
func (s *Store) FetchUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
SELECT id, username, password_hash, games_played, games_won, total_points, created_at
FROM users WHERE username = $1`, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash,
		&u.GamesPlayed, &u.GamesWon, &u.TotalPoints, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: fetch user: %w", err)
	}
	return u, nil
}

func marshalAggregate(rec *models.GameRecord) (players, settings, scores []byte, err error) {
	if players, err = json.Marshal(rec.Players); err != nil {
		return nil, nil, nil, fmt.Errorf("database: encode players: %w", err)
	}
	if settings, err = json.Marshal(rec.Settings); err != nil {
		return nil, nil, nil, fmt.Errorf("database: encode settings: %w", err)
	}
	if rec.Scores == nil {
		rec.Scores = map[uuid.UUID]int{}
	}
	if scores, err = json.Marshal(rec.Scores); err != nil {
		return nil, nil, nil, fmt.Errorf("database: encode scores: %w", err)
	}
	return players, settings, scores, nil
}
