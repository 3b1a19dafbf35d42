package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage of a Session. It only ever moves forward.
type Phase int

const (
	PhaseWaitingForPlayers Phase = iota
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForPlayers:
		return "WAITING_FOR_PLAYERS"
	case PhaseInProgress:
		return "IN_PROGRESS"
	case PhaseFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// FinishReason explains how a session ended.
type FinishReason string

const (
	ReasonFleetSunk FinishReason = "fleet_sunk"
	ReasonForfeit   FinishReason = "forfeit"
)

// Outcome is the final result of a finished session.
type Outcome struct {
	MatchID     string
	Winner      string
	Loser       string
	Reason      FinishReason
	WinnerShots int
	LoserShots  int
	CreatedAt   time.Time
	StartedAt   time.Time // zero when the game never left placement
	EndedAt     time.Time
}

// ShotResult classifies an accepted shot.
type ShotResult int

const (
	ShotMiss ShotResult = iota
	ShotHit
	ShotSunk
)

func (r ShotResult) String() string {
	switch r {
	case ShotHit:
		return "hit"
	case ShotSunk:
		return "sunk"
	default:
		return "miss"
	}
}

// Shot describes the effect of an accepted Fire call.
type Shot struct {
	Target   Coord
	Result   ShotResult
	SunkType ShipType
	Sunk     []Coord
	GameOver bool
}

// Placement describes the effect of an accepted PlaceShip call.
type Placement struct {
	Type          ShipType
	Cells         []Coord
	Placed        int
	FleetComplete bool
	GameStarted   bool
}

// Notifier delivers a line to a player's connection. Implementations must not
// block: a Session calls it while holding its lock.
type Notifier interface {
	Notify(username, line string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(username, line string)

func (f NotifierFunc) Notify(username, line string) { f(username, line) }

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated match ID.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// WithNotifier sets where game events are pushed.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithFinishHook registers fn to receive the Outcome exactly once, after the
// session lock has been released.
func WithFinishHook(fn func(Outcome)) Option {
	return func(s *Session) { s.onFinish = fn }
}

func withClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the state machine of one match between two players. Every
// operation runs under a single mutex, so placement, shots and forfeits are
// atomic with respect to each other.
type Session struct {
	ID string

	mu       sync.Mutex
	players  [2]string
	boards   [2]*Board
	shots    [2]int
	turn     int
	phase    Phase
	outcome  Outcome
	notifier Notifier
	onFinish func(Outcome)
	started  chan struct{}
	done     chan struct{}
	now      func() time.Time
}

// NewSession creates a session in PhaseWaitingForPlayers. playerA moves first.
func NewSession(playerA, playerB string, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.New().String(),
		players:  [2]string{playerA, playerB},
		boards:   [2]*Board{NewBoard(), NewBoard()},
		phase:    PhaseWaitingForPlayers,
		notifier: nopNotifier{},
		started:  make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	s.outcome = Outcome{MatchID: s.ID, CreatedAt: s.now()}
	return s
}

// Players returns the two participants, first mover first.
func (s *Session) Players() (string, string) {
	return s.players[0], s.players[1]
}

// Opponent returns the other participant.
func (s *Session) Opponent(player string) (string, bool) {
	idx, ok := s.indexOf(player)
	if !ok {
		return "", false
	}
	return s.players[1-idx], true
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// IsSetupComplete reports whether both fleets are complete and play has begun
// (or already ended).
func (s *Session) IsSetupComplete() bool {
	return s.Phase() != PhaseWaitingForPlayers
}

// Turn returns whose move it is. It is empty unless the game is in progress.
func (s *Session) Turn() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return ""
	}
	return s.players[s.turn]
}

// FleetCount returns how many ships player has placed.
func (s *Session) FleetCount(player string) int {
	idx, ok := s.indexOf(player)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boards[idx].fleet)
}

// Started is closed when the game enters PhaseInProgress, after the start
// lines have been pushed.
func (s *Session) Started() <-chan struct{} { return s.started }

// Done is closed when the game reaches PhaseFinished, after the result lines
// have been pushed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Outcome returns the final result once the session is finished.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.phase == PhaseFinished
}

// Render returns the player's own board followed by their view of the
// opponent's board.
func (s *Session) Render(player string) (string, error) {
	idx, ok := s.indexOf(player)
	if !ok {
		return "", ErrUnknownPlayer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return "Your fleet:\n" + s.boards[idx].Render(true) +
		"Opponent waters:\n" + s.boards[1-idx].Render(false), nil
}

// PlaceShip validates and places one ship for player. When this placement
// completes both fleets the game starts and both players are notified.
func (s *Session) PlaceShip(player, shipType string, cells []Coord) (Placement, error) {
	idx, ok := s.indexOf(player)
	if !ok {
		return Placement{}, ErrUnknownPlayer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseFinished:
		return Placement{}, ErrGameOver
	case PhaseInProgress:
		return Placement{}, ErrPlacementClosed
	}

	board := s.boards[idx]
	for _, c := range cells {
		if !c.InBounds() {
			return Placement{}, ruleErr(ErrOutOfBounds, "%s is outside 0-%d", c, BorderMax)
		}
	}
	for _, c := range cells {
		if board.Cell(c) == CellShip {
			return Placement{}, ruleErr(ErrOverlap, "ship already at %s", c)
		}
	}
	if board.touches(cells) {
		return Placement{}, ruleErr(ErrAdjacencyViolation, "ships may not touch")
	}
	t := NormalizeShipType(shipType)
	if board.hasType(t) {
		return Placement{}, ruleErr(ErrDuplicateType, "you have already placed a %s", t)
	}
	size, known := t.Size()
	if !known {
		return Placement{}, ruleErr(ErrUnknownShipType, "%q is not part of the fleet", shipType)
	}
	if !straightLine(cells, size) {
		return Placement{}, ruleErr(ErrInvalidShape, "%s needs %d cells in a straight line", t, size)
	}

	ship := NewShip(t, cells)
	board.place(ship)

	p := Placement{
		Type:          t,
		Cells:         ship.Cells(),
		Placed:        len(board.fleet),
		FleetComplete: board.Complete(),
	}
	s.notifier.Notify(player, placedLine(t, p.Cells, p.Placed))

	if s.boards[0].Complete() && s.boards[1].Complete() {
		s.startLocked()
		p.GameStarted = true
	}
	return p, nil
}

func (s *Session) startLocked() {
	s.phase = PhaseInProgress
	s.turn = 0
	s.outcome.StartedAt = s.now()

	s.notifier.Notify(s.players[0], MsgGameStart)
	s.notifier.Notify(s.players[0], MsgYourTurn)
	s.notifier.Notify(s.players[1], MsgGameStart)
	s.notifier.Notify(s.players[1], MsgOpponentsTurn)
	close(s.started)
}

// Fire resolves player's shot at target. The turn passes to the opponent after
// every accepted shot, hit or miss, unless the shot ends the game.
func (s *Session) Fire(player string, target Coord) (Shot, error) {
	idx, ok := s.indexOf(player)
	if !ok {
		return Shot{}, ErrUnknownPlayer
	}

	s.mu.Lock()
	shot, ended, err := s.fireLocked(idx, target)
	if ended {
		close(s.done)
	}
	outcome := s.outcome
	s.mu.Unlock()

	if ended {
		s.finished(outcome)
	}
	return shot, err
}

func (s *Session) fireLocked(idx int, target Coord) (Shot, bool, error) {
	if s.phase == PhaseFinished {
		return Shot{}, false, ErrGameOver
	}
	// turn is only meaningful once both fleets are down.
	if s.phase != PhaseInProgress {
		return Shot{}, false, ErrSetupIncomplete
	}
	if idx != s.turn {
		return Shot{}, false, ErrNotYourTurn
	}
	if !target.InBounds() {
		return Shot{}, false, ruleErr(ErrOutOfBounds, "%s is outside 0-%d", target, BorderMax)
	}
	enemy := s.boards[1-idx]
	if st := enemy.Cell(target); st == CellHit || st == CellMiss {
		return Shot{}, false, ruleErr(ErrAlreadyShot, "%s was already targeted", target)
	}

	s.shots[idx]++
	me, them := s.players[idx], s.players[1-idx]
	shot := Shot{Target: target}

	ship := enemy.shoot(target)
	switch {
	case ship == nil:
		shot.Result = ShotMiss
		s.notifyBoth(missLine(target))
	case ship.IsSunk():
		shot.Result = ShotSunk
		shot.SunkType = ship.Type
		shot.Sunk = ship.Cells()
		s.notifyBoth(sunkLine(shot.Sunk))
	default:
		shot.Result = ShotHit
		s.notifyBoth(hitLine(target))
	}

	if shot.Result == ShotSunk && enemy.AllSunk() {
		shot.GameOver = true
		s.finishLocked(idx, ReasonFleetSunk)
		s.notifier.Notify(me, MsgYouWon)
		s.notifier.Notify(them, MsgYouLost)
		return shot, true, nil
	}

	s.turn = 1 - idx
	s.notifier.Notify(them, MsgYourTurn)
	s.notifier.Notify(me, MsgOpponentsTurn)
	return shot, false, nil
}

// Forfeit ends the game with player's opponent as the winner. It reports
// whether this call finished the game; once finished it is a no-op.
func (s *Session) Forfeit(player string) bool {
	idx, ok := s.indexOf(player)
	if !ok {
		return false
	}

	s.mu.Lock()
	if s.phase == PhaseFinished {
		s.mu.Unlock()
		return false
	}
	winner := 1 - idx
	s.finishLocked(winner, ReasonForfeit)
	s.notifier.Notify(s.players[winner], MsgOpponentForfeited)
	s.notifier.Notify(player, MsgYouForfeited)
	close(s.done)
	outcome := s.outcome
	s.mu.Unlock()

	s.finished(outcome)
	return true
}

func (s *Session) finishLocked(winner int, reason FinishReason) {
	s.phase = PhaseFinished
	s.outcome.Winner = s.players[winner]
	s.outcome.Loser = s.players[1-winner]
	s.outcome.Reason = reason
	s.outcome.WinnerShots = s.shots[winner]
	s.outcome.LoserShots = s.shots[1-winner]
	s.outcome.EndedAt = s.now()
}

func (s *Session) finished(o Outcome) {
	if s.onFinish != nil {
		s.onFinish(o)
	}
}

func (s *Session) notifyBoth(line string) {
	s.notifier.Notify(s.players[0], line)
	s.notifier.Notify(s.players[1], line)
}

// indexOf needs no lock: players never change after construction.
func (s *Session) indexOf(player string) (int, bool) {
	switch player {
	case s.players[0]:
		return 0, true
	case s.players[1]:
		return 1, true
	default:
		return 0, false
	}
}
