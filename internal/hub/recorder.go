package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/Battleship/internal/events"
	"ctchen222/Battleship/internal/game"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// storeTimeout bounds every background call into a store.
const storeTimeout = 5 * time.Second

// matchPaired marks both players as in game and, once both fleets are placed,
// announces the start. A match that ends during placement is never announced.
func (h *Hub) matchPaired(g *game.Session) {
	a, b := g.Players()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	if h.stores.Presence != nil {
		for _, name := range []string{a, b} {
			if err := h.stores.Presence.SetInGame(ctx, name, g.ID); err != nil {
				slog.Warn("Failed to mark player in game", "player.name", name, "match.id", g.ID, "error", err)
			}
		}
	}
	cancel()

	select {
	case <-g.Started():
	case <-g.Done():
		select {
		case <-g.Started():
		default:
			return
		}
	}

	ctx, span := tracer.Start(context.Background(), "hub.matchStarted", trace.WithAttributes(
		attribute.String("match.id", g.ID),
		attribute.String("player.a", a),
		attribute.String("player.b", b),
	))
	defer span.End()
	ctx, cancel = context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	h.metrics.MatchStarted(ctx)
	slog.InfoContext(ctx, "Match started", "match.id", g.ID, "player.a", a, "player.b", b)
	if err := h.publish(ctx, events.TypeMatchStarted, events.MatchStartedPayload{
		MatchID:   g.ID,
		PlayerIDs: []string{a, b},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish match_started event")
	}
}

// recordOutcome stores a finished match. Failures are logged and otherwise
// ignored: play has already ended.
func (h *Hub) recordOutcome(o game.Outcome) {
	ctx, span := tracer.Start(context.Background(), "hub.recordOutcome", trace.WithAttributes(
		attribute.String("match.id", o.MatchID),
		attribute.String("match.winner", o.Winner),
		attribute.String("match.loser", o.Loser),
		attribute.String("match.reason", string(o.Reason)),
	))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	h.metrics.MatchFinished(ctx, string(o.Reason))
	log := slog.With("match.id", o.MatchID)
	log.InfoContext(ctx, "Match finished", "winner", o.Winner, "loser", o.Loser, "reason", o.Reason)

	if h.stores.Matches != nil {
		if err := h.stores.Matches.Save(ctx, o); err != nil {
			log.ErrorContext(ctx, "Failed to save match result", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to save match result")
		}
	}
	if h.stores.Leaderboard != nil {
		if err := h.stores.Leaderboard.RecordWin(ctx, o.Winner); err != nil {
			log.ErrorContext(ctx, "Failed to update leaderboard", "player.name", o.Winner, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to update leaderboard")
		}
	}
	if err := h.publish(ctx, events.TypeMatchFinished, events.MatchFinishedPayload{
		MatchID: o.MatchID,
		Winner:  o.Winner,
		Loser:   o.Loser,
		Reason:  string(o.Reason),
		EndedAt: o.EndedAt,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish match_finished event")
	}
}

// publish is a no-op without an event publisher.
func (h *Hub) publish(ctx context.Context, eventType string, payload any) error {
	if h.stores.Events == nil {
		return nil
	}
	ev, err := events.New(eventType, payload)
	if err != nil {
		return fmt.Errorf("building %s event: %w", eventType, err)
	}
	if err := h.stores.Events.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", "event", eventType, "error", err)
		return err
	}
	return nil
}
