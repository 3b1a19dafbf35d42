package player

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrNameTaken is returned when a username is already claimed.
var ErrNameTaken = errors.New("username already in use")

// Registry is the process-wide set of logged-in usernames and their outboxes.
// It starts empty and lives as long as the process.
type Registry struct {
	active   sync.Map // username -> *Outbox that owns the claim
	outboxes sync.Map // username -> *Outbox
	count    atomic.Int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Claim atomically reserves username for the connection owning out.
func (r *Registry) Claim(username string, out *Outbox) error {
	if _, loaded := r.active.LoadOrStore(username, out); loaded {
		return ErrNameTaken
	}
	r.outboxes.Store(username, out)
	r.count.Add(1)
	return nil
}

// Release frees username if out still owns it. Releasing twice, or releasing
// a name claimed by another connection, is a no-op.
func (r *Registry) Release(username string, out *Outbox) {
	if !r.active.CompareAndDelete(username, out) {
		return
	}
	r.outboxes.CompareAndDelete(username, out)
	r.count.Add(-1)
}

// IsActive reports whether username is currently claimed.
func (r *Registry) IsActive(username string) bool {
	_, ok := r.active.Load(username)
	return ok
}

// Outbox returns the outbox registered for username.
func (r *Registry) Outbox(username string) (*Outbox, bool) {
	v, ok := r.outboxes.Load(username)
	if !ok {
		return nil, false
	}
	return v.(*Outbox), true
}

// Count returns the number of claimed usernames.
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// Notify pushes line to username's outbox. A missing or closed outbox drops
// the line silently; a full one drops it with a warning. It never blocks.
// Delivery is best-effort for every line, including result lines such as
// "You won!" or a forfeit notice: a client that stops reading can miss them.
func (r *Registry) Notify(username, line string) {
	out, ok := r.Outbox(username)
	if !ok {
		return
	}
	if err := out.Send(line); errors.Is(err, ErrOutboxFull) {
		slog.Warn("Dropping line for slow player", "player.name", username, "line", line)
	}
}
