package match

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"ctchen222/Battleship/internal/game"
)

// ErrAlreadyQueued is returned when a username is already waiting or seated.
var ErrAlreadyQueued = errors.New("player already queued or seated")

// SessionFactory builds the session for a freshly paired couple. It runs
// inside the matchmaker's critical section and must not block.
type SessionFactory func(playerA, playerB string) *game.Session

// Matchmaker is the process-wide FIFO of waiting usernames plus the directory
// of seated usernames. Queue check and pairing happen in one critical section.
type Matchmaker struct {
	mu         sync.Mutex
	waiting    []string
	sessions   map[string]*game.Session
	newSession SessionFactory
}

// NewMatchmaker returns an empty matchmaker. A nil factory creates plain
// sessions with no notifier.
func NewMatchmaker(factory SessionFactory) *Matchmaker {
	if factory == nil {
		factory = func(a, b string) *game.Session { return game.NewSession(a, b) }
	}
	return &Matchmaker{
		waiting:    make([]string, 0),
		sessions:   make(map[string]*game.Session),
		newSession: factory,
	}
}

// Enqueue pairs username with the longest-waiting player, or queues it when
// nobody is waiting. A nil session means the caller is now waiting. The new
// arrival is the session's first mover.
func (m *Matchmaker) Enqueue(username string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seated := m.sessions[username]; seated || slices.Contains(m.waiting, username) {
		return nil, ErrAlreadyQueued
	}

	if len(m.waiting) == 0 {
		m.waiting = append(m.waiting, username)
		slog.Info("Matchmaker: player waiting for an opponent", "player.name", username)
		return nil, nil
	}

	opponent := m.waiting[0]
	m.waiting = m.waiting[1:]

	s := m.newSession(username, opponent)
	m.sessions[username] = s
	m.sessions[opponent] = s
	slog.Info("Matchmaker: matched players", "player.a", username, "player.b", opponent, "match.id", s.ID)
	return s, nil
}

// Withdraw removes username from the queue. It reports whether the player was
// still waiting; seated players are left alone.
func (m *Matchmaker) Withdraw(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.waiting, username)
	if i < 0 {
		return false
	}
	m.waiting = slices.Delete(m.waiting, i, i+1)
	slog.Info("Matchmaker: player removed from waiting list", "player.name", username)
	return true
}

// RemoveSession drops the directory entries of both members of username's
// session and returns the removed session, if any.
func (m *Matchmaker) RemoveSession(username string) *game.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[username]
	if !ok {
		return nil
	}
	a, b := s.Players()
	for _, p := range []string{a, b} {
		if m.sessions[p] == s {
			delete(m.sessions, p)
		}
	}
	return s
}

// GetSession returns the session username is seated in.
func (m *Matchmaker) GetSession(username string) (*game.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[username]
	return s, ok
}

// GetOpponent returns the player username is paired with.
func (m *Matchmaker) GetOpponent(username string) (string, bool) {
	s, ok := m.GetSession(username)
	if !ok {
		return "", false
	}
	return s.Opponent(username)
}

// IsWaiting reports whether username is still in the queue.
func (m *Matchmaker) IsWaiting(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.waiting, username)
}

// Waiting returns the number of queued players.
func (m *Matchmaker) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// Sessions returns the number of live sessions in the directory.
func (m *Matchmaker) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[*game.Session]struct{}, len(m.sessions)/2)
	for _, s := range m.sessions {
		seen[s] = struct{}{}
	}
	return len(seen)
}
