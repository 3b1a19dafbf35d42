package hub

import (
	"context"
	"log/slog"

	"ctchen222/Battleship/internal/events"
	"ctchen222/Battleship/internal/session"
)

// LoggedIn mirrors a successful login into the presence store.
func (h *Hub) LoggedIn(ctx context.Context, username string) {
	if h.stores.Presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := h.stores.Presence.SetOnline(ctx, username, h.serverID); err != nil {
		slog.WarnContext(ctx, "Failed to record presence", "player.name", username, "error", err)
	}
}

// LoggedOut marks the player offline. Anything other than a clean exit or a
// finished game is announced as a disconnect.
func (h *Hub) LoggedOut(ctx context.Context, username string, cause session.Cause) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if h.stores.Presence != nil {
		if err := h.stores.Presence.SetOffline(ctx, username); err != nil {
			slog.WarnContext(ctx, "Failed to record presence", "player.name", username, "error", err)
		}
	}
	switch cause {
	case session.CauseExit, session.CauseGameOver:
		return
	}
	_ = h.publish(ctx, events.TypePlayerDisconnected, events.PlayerDisconnectedPayload{
		PlayerID: username,
		Cause:    string(cause),
	})
}
