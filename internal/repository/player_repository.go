package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

// PlayerStatus is a player's presence as seen by other processes.
type PlayerStatus string

const (
	StatusWaiting PlayerStatus = "waiting"
	StatusInGame  PlayerStatus = "in_game"
	StatusOffline PlayerStatus = "offline"
)

// Presence is the stored presence record of one player.
type Presence struct {
	Status   PlayerStatus `json:"status"`
	ServerID string       `json:"server_id,omitempty"`
	MatchID  string       `json:"match_id,omitempty"`
}

// PresenceRepository defines the interface for player presence operations.
type PresenceRepository interface {
	SetOnline(ctx context.Context, username, serverID string) error
	SetInGame(ctx context.Context, username, matchID string) error
	SetOffline(ctx context.Context, username string) error
	Get(ctx context.Context, username string) (*Presence, error)
}

type redisPresenceRepository struct {
	rdb *redis.Client
}

// NewPresenceRepository creates a new Redis-based PresenceRepository.
func NewPresenceRepository(rdb *redis.Client) PresenceRepository {
	return &redisPresenceRepository{
		rdb: rdb,
	}
}

func playerKey(username string) string {
	return fmt.Sprintf("player:%s", username)
}

// SetOnline records a freshly logged in player as waiting for a match.
func (r *redisPresenceRepository) SetOnline(ctx context.Context, username, serverID string) error {
	ctx, span := tracer.Start(ctx, "PresenceRepository.SetOnline")
	defer span.End()

	key := playerKey(username)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, "server_id", serverID, "status", string(StatusWaiting))
	pipe.HDel(ctx, key, "match_id")
	_, err := pipe.Exec(ctx)
	return err
}

// SetInGame updates a player's state when they are put into a match.
func (r *redisPresenceRepository) SetInGame(ctx context.Context, username, matchID string) error {
	ctx, span := tracer.Start(ctx, "PresenceRepository.SetInGame")
	defer span.End()

	return r.rdb.HSet(ctx, playerKey(username), "match_id", matchID, "status", string(StatusInGame)).Err()
}

// SetOffline marks a player as offline, typically during cleanup.
func (r *redisPresenceRepository) SetOffline(ctx context.Context, username string) error {
	ctx, span := tracer.Start(ctx, "PresenceRepository.SetOffline")
	defer span.End()

	key := playerKey(username)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, "status", string(StatusOffline))
	pipe.HDel(ctx, key, "match_id")
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the stored presence, or nil when the player was never seen.
func (r *redisPresenceRepository) Get(ctx context.Context, username string) (*Presence, error) {
	ctx, span := tracer.Start(ctx, "PresenceRepository.Get")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, playerKey(username)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &Presence{
		Status:   PlayerStatus(data["status"]),
		ServerID: data["server_id"],
		MatchID:  data["match_id"],
	}, nil
}
