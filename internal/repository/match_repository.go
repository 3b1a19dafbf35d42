package repository

import (
	"context"
	"fmt"
	"time"

	"ctchen222/Battleship/internal/game"

	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks ctchen222/Battleship/internal/repository MatchRepository,LeaderboardRepository,PresenceRepository,EventPublisher

// MatchRecord is one finished match as stored in the history table.
type MatchRecord struct {
	ID          string     `db:"id" json:"id"`
	Winner      string     `db:"winner" json:"winner"`
	Loser       string     `db:"loser" json:"loser"`
	Reason      string     `db:"reason" json:"reason"`
	WinnerShots int        `db:"winner_shots" json:"winner_shots"`
	LoserShots  int        `db:"loser_shots" json:"loser_shots"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt     time.Time  `db:"ended_at" json:"ended_at"`
}

// PlayerStats aggregates a player's finished matches.
type PlayerStats struct {
	Username string `db:"username" json:"username"`
	Played   int    `db:"played" json:"played"`
	Wins     int    `db:"wins" json:"wins"`
	Losses   int    `db:"losses" json:"losses"`
}

// MatchRepository defines the interface for match history operations.
type MatchRepository interface {
	Save(ctx context.Context, outcome game.Outcome) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
	PlayerStats(ctx context.Context, username string) (*PlayerStats, error)
}

type sqliteMatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new SQLite-based MatchRepository.
func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqliteMatchRepository{db: db}
}

// Save stores a finished match. Saving the same match twice is a no-op.
func (r *sqliteMatchRepository) Save(ctx context.Context, o game.Outcome) error {
	ctx, span := tracer.Start(ctx, "MatchRepository.Save")
	defer span.End()

	rec := MatchRecord{
		ID:          o.MatchID,
		Winner:      o.Winner,
		Loser:       o.Loser,
		Reason:      string(o.Reason),
		WinnerShots: o.WinnerShots,
		LoserShots:  o.LoserShots,
		CreatedAt:   o.CreatedAt.UTC(),
		EndedAt:     o.EndedAt.UTC(),
	}
	if !o.StartedAt.IsZero() {
		started := o.StartedAt.UTC()
		rec.StartedAt = &started
	}

	query := `INSERT OR IGNORE INTO matches
		(id, winner, loser, reason, winner_shots, loser_shots, created_at, started_at, ended_at)
		VALUES (:id, :winner, :loser, :reason, :winner_shots, :loser_shots, :created_at, :started_at, :ended_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to save match %s: %w", o.MatchID, err)
	}
	return nil
}

// Recent returns the latest finished matches, newest first.
func (r *sqliteMatchRepository) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "MatchRepository.Recent")
	defer span.End()

	records := []MatchRecord{}
	query := `SELECT id, winner, loser, reason, winner_shots, loser_shots, created_at, started_at, ended_at
		FROM matches ORDER BY ended_at DESC, id LIMIT ?`
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return records, nil
}

// PlayerStats counts wins and losses for username.
func (r *sqliteMatchRepository) PlayerStats(ctx context.Context, username string) (*PlayerStats, error) {
	ctx, span := tracer.Start(ctx, "MatchRepository.PlayerStats")
	defer span.End()

	stats := PlayerStats{Username: username}
	query := `SELECT
		COALESCE(SUM(CASE WHEN winner = ? THEN 1 ELSE 0 END), 0) AS wins,
		COALESCE(SUM(CASE WHEN loser = ? THEN 1 ELSE 0 END), 0) AS losses
		FROM matches WHERE winner = ? OR loser = ?`
	if err := r.db.QueryRowxContext(ctx, query, username, username, username, username).Scan(&stats.Wins, &stats.Losses); err != nil {
		return nil, fmt.Errorf("failed to get stats for %s: %w", username, err)
	}
	stats.Played = stats.Wins + stats.Losses
	return &stats, nil
}
