package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const leaderboardKey = "leaderboard:wins"

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Wins     int64  `json:"wins"`
}

// LeaderboardRepository defines the interface for the win ranking.
type LeaderboardRepository interface {
	RecordWin(ctx context.Context, username string) error
	Top(ctx context.Context, n int) ([]LeaderboardEntry, error)
	Wins(ctx context.Context, username string) (int64, error)
}

type redisLeaderboardRepository struct {
	rdb *redis.Client
}

// NewLeaderboardRepository creates a new Redis-based LeaderboardRepository.
func NewLeaderboardRepository(rdb *redis.Client) LeaderboardRepository {
	return &redisLeaderboardRepository{rdb: rdb}
}

// RecordWin adds one win to username's score.
func (r *redisLeaderboardRepository) RecordWin(ctx context.Context, username string) error {
	ctx, span := tracer.Start(ctx, "LeaderboardRepository.RecordWin")
	defer span.End()

	return r.rdb.ZIncrBy(ctx, leaderboardKey, 1, username).Err()
}

// Top returns the n best players, highest score first.
func (r *redisLeaderboardRepository) Top(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	ctx, span := tracer.Start(ctx, "LeaderboardRepository.Top")
	defer span.End()

	if n <= 0 {
		return []LeaderboardEntry{}, nil
	}
	scores, err := r.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		name, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{Rank: i + 1, Username: name, Wins: int64(z.Score)})
	}
	return entries, nil
}

// Wins returns username's score, zero when unranked.
func (r *redisLeaderboardRepository) Wins(ctx context.Context, username string) (int64, error) {
	ctx, span := tracer.Start(ctx, "LeaderboardRepository.Wins")
	defer span.End()

	score, err := r.rdb.ZScore(ctx, leaderboardKey, username).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read score for %s: %w", username, err)
	}
	return int64(score), nil
}
