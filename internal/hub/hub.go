// Package hub holds the process-wide state shared by every connection: the
// matchmaker, the player registry and the optional result stores.
package hub

import (
	"context"
	"sync"

	"ctchen222/Battleship/internal/game"
	"ctchen222/Battleship/internal/match"
	"ctchen222/Battleship/internal/player"
	"ctchen222/Battleship/internal/repository"
	"ctchen222/Battleship/internal/session"
	"ctchen222/Battleship/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// Stores are the optional persistence backends. Any of them may be nil.
type Stores struct {
	Matches     repository.MatchRepository
	Leaderboard repository.LeaderboardRepository
	Presence    repository.PresenceRepository
	Events      repository.EventPublisher
}

// Options configures a Hub.
type Options struct {
	ServerID string
	Session  session.Config
	Metrics  *telemetry.Metrics
	Verifier session.TokenVerifier
	Stores   Stores
}

// Stats is a point-in-time view of the server.
type Stats struct {
	ActivePlayers int `json:"active_players"`
	Waiting       int `json:"waiting"`
	LiveMatches   int `json:"live_matches"`
}

// Hub manages all the players and matches of one server process.
type Hub struct {
	serverID   string
	cfg        session.Config
	metrics    *telemetry.Metrics
	verifier   session.TokenVerifier
	stores     Stores
	matchmaker *match.Matchmaker
	registry   *player.Registry

	// background tracks goroutines recording results.
	background sync.WaitGroup
}

// NewHub creates a new hub.
func NewHub(opts Options) *Hub {
	if opts.ServerID == "" {
		opts.ServerID = uuid.New().String()
	}
	h := &Hub{
		serverID: opts.ServerID,
		cfg:      opts.Session,
		metrics:  opts.Metrics,
		verifier: opts.Verifier,
		stores:   opts.Stores,
		registry: player.NewRegistry(),
	}
	h.matchmaker = match.NewMatchmaker(h.newGame)
	return h
}

// Serve drives conn until the client leaves or ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, conn session.LineConn) session.Cause {
	deps := session.Deps{
		Matchmaker: h.matchmaker,
		Registry:   h.registry,
		Metrics:    h.metrics,
		Verifier:   h.verifier,
		Lifecycle:  h,
	}
	return session.New(conn, h.cfg, deps).Run(ctx)
}

// Stats reports current player and match counts.
func (h *Hub) Stats() Stats {
	return Stats{
		ActivePlayers: h.registry.Count(),
		Waiting:       h.matchmaker.Waiting(),
		LiveMatches:   h.matchmaker.Sessions(),
	}
}

// Matchmaker exposes the shared matchmaker.
func (h *Hub) Matchmaker() *match.Matchmaker { return h.matchmaker }

// Registry exposes the shared player registry.
func (h *Hub) Registry() *player.Registry { return h.registry }

// Wait blocks until every pending background recording has finished.
func (h *Hub) Wait() {
	h.background.Wait()
}

// newGame runs inside the matchmaker's critical section, so anything slow is
// pushed to a goroutine.
func (h *Hub) newGame(playerA, playerB string) *game.Session {
	g := game.NewSession(playerA, playerB,
		game.WithNotifier(h.registry),
		game.WithFinishHook(func(o game.Outcome) {
			h.goBackground(func() { h.recordOutcome(o) })
		}),
	)
	h.goBackground(func() { h.matchPaired(g) })
	return g
}

func (h *Hub) goBackground(fn func()) {
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		fn()
	}()
}
