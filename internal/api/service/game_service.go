package service

import (
	"context"
	"errors"

	"ctchen222/Battleship/internal/api/models"
	"ctchen222/Battleship/internal/hub"
	"ctchen222/Battleship/internal/repository"
	"ctchen222/Battleship/internal/validator"
)

const defaultListLimit = 10

// ErrUnavailable is returned when the store backing a query is not configured.
var ErrUnavailable = errors.New("store not configured")

// StatsSource reports live server counts.
type StatsSource interface {
	Stats() hub.Stats
}

// ActivitySource reports whether a username is connected to this server.
type ActivitySource interface {
	IsActive(username string) bool
}

// GameService answers read-only queries about players and matches.
type GameService interface {
	Stats() hub.Stats
	RecentMatches(ctx context.Context, limit int) ([]repository.MatchRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	Player(ctx context.Context, username string) (*models.PlayerProfile, error)
}

type gameService struct {
	stats       StatsSource
	active      ActivitySource
	matches     repository.MatchRepository
	leaderboard repository.LeaderboardRepository
	presence    repository.PresenceRepository
}

// NewGameService creates a GameService. The repositories may be nil.
func NewGameService(stats StatsSource, active ActivitySource, stores hub.Stores) GameService {
	return &gameService{
		stats:       stats,
		active:      active,
		matches:     stores.Matches,
		leaderboard: stores.Leaderboard,
		presence:    stores.Presence,
	}
}

func (s *gameService) Stats() hub.Stats { return s.stats.Stats() }

func (s *gameService) RecentMatches(ctx context.Context, limit int) ([]repository.MatchRecord, error) {
	if s.matches == nil {
		return nil, ErrUnavailable
	}
	return s.matches.Recent(ctx, orDefault(limit))
}

func (s *gameService) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	if s.leaderboard == nil {
		return nil, ErrUnavailable
	}
	return s.leaderboard.Top(ctx, orDefault(limit))
}

// Player merges whatever the configured stores know about username.
func (s *gameService) Player(ctx context.Context, username string) (*models.PlayerProfile, error) {
	if err := validator.GetValidator().Var(username, "username"); err != nil {
		return nil, ErrInvalidUsername
	}

	profile := &models.PlayerProfile{
		Username: username,
		Status:   string(repository.StatusOffline),
		Online:   s.active != nil && s.active.IsActive(username),
	}
	if s.matches != nil {
		st, err := s.matches.PlayerStats(ctx, username)
		if err != nil {
			return nil, err
		}
		profile.Played, profile.Wins, profile.Losses = st.Played, st.Wins, st.Losses
	}
	if s.leaderboard != nil {
		wins, err := s.leaderboard.Wins(ctx, username)
		if err != nil {
			return nil, err
		}
		profile.Ranked = wins
	}
	if s.presence != nil {
		p, err := s.presence.Get(ctx, username)
		if err != nil {
			return nil, err
		}
		if p != nil {
			profile.Status = string(p.Status)
			profile.MatchID = p.MatchID
		}
	}
	return profile, nil
}

func orDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
