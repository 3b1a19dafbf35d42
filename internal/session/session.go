// Package session drives one client connection through login, matchmaking,
// ship placement and combat.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ctchen222/Battleship/internal/game"
	"ctchen222/Battleship/internal/liveness"
	"ctchen222/Battleship/internal/match"
	"ctchen222/Battleship/internal/player"
	"ctchen222/Battleship/internal/telemetry"
	"ctchen222/Battleship/pkg/proto"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

// drainTimeout bounds how long shutdown waits for queued lines to flush.
const drainTimeout = 5 * time.Second

var (
	errTokenRequired = errors.New("login token required")
	errTokenMismatch = errors.New("token was issued to another user")
)

// Cause records why a connection ended.
type Cause string

const (
	CauseExit       Cause = "exit"
	CauseGameOver   Cause = "game_over"
	CauseInactivity Cause = "inactivity"
	CauseKeepAlive  Cause = "keepalive"
	CauseTransport  Cause = "transport"
	CauseShutdown   Cause = "shutdown"
)

// Config holds per-connection timing.
type Config struct {
	InactivityTimeout time.Duration
	KeepAliveInterval time.Duration
	SeatPollInterval  time.Duration
	OutboxSize        int
	RequireAuth       bool
}

// TokenVerifier checks a login token and returns the username it was issued
// to.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Lifecycle observes players entering and leaving.
type Lifecycle interface {
	LoggedIn(ctx context.Context, username string)
	LoggedOut(ctx context.Context, username string, cause Cause)
}

// Deps are the process-wide collaborators shared by every connection.
// Metrics, Verifier and Lifecycle are optional.
type Deps struct {
	Matchmaker *match.Matchmaker
	Registry   *player.Registry
	Metrics    *telemetry.Metrics
	Verifier   TokenVerifier
	Lifecycle  Lifecycle
}

type stage int

const (
	stageLogin stage = iota
	stageQueued
	stagePlacing
	stageReady
	stageCombat
)

// Session is one connected client.
type Session struct {
	ID string

	cfg     Config
	deps    Deps
	conn    LineConn
	out     *player.Outbox
	monitor *liveness.Monitor
	connLog *slog.Logger // safe from any goroutine
	log     *slog.Logger // grows player and match fields; Run goroutine only

	lines      chan string
	writerDone chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	causeOnce sync.Once
	cause     Cause
	closeOnce sync.Once

	// Owned by the Run goroutine.
	stage    stage
	username string
	game     *game.Session
	started  <-chan struct{}
	done     <-chan struct{}
}

// New prepares a session for conn. Nothing happens until Run.
func New(conn LineConn, cfg Config, deps Deps) *Session {
	if cfg.SeatPollInterval <= 0 {
		cfg.SeatPollInterval = 500 * time.Millisecond
	}
	s := &Session{
		ID:         uuid.New().String(),
		cfg:        cfg,
		deps:       deps,
		conn:       conn,
		out:        player.NewOutbox(cfg.OutboxSize),
		lines:      make(chan string),
		writerDone: make(chan struct{}),
	}
	s.connLog = slog.Default().With("conn.id", s.ID, "remote.addr", conn.RemoteAddr())
	s.log = s.connLog
	s.monitor = liveness.New(liveness.Config{
		InactivityTimeout: cfg.InactivityTimeout,
		KeepAliveInterval: cfg.KeepAliveInterval,
	}, liveness.Hooks{
		OnInactive: func() {
			s.send(proto.LineInactive)
			s.terminate(CauseInactivity)
		},
		Probe: func() error { return s.out.Send(proto.LinePing) },
		OnProbeFailure: func(err error) {
			s.connLog.Warn("Keep-alive failed, dropping client", "error", err)
			s.terminate(CauseKeepAlive)
		},
	})
	return s
}

// Run serves the connection until it ends and returns why it ended. All exit
// paths share one cleanup.
func (s *Session) Run(ctx context.Context) Cause {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	s.deps.Metrics.ConnectionOpened(ctx)
	s.log.InfoContext(ctx, "Client connected")

	go s.writeLoop()
	go s.readLoop()
	s.monitor.Start()
	s.send(proto.LineWelcome)

	s.loop()
	s.shutdown()
	return s.cause
}

func (s *Session) loop() {
	poll := time.NewTicker(s.cfg.SeatPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.terminate(CauseShutdown)
			return

		case line, ok := <-s.lines:
			if !ok {
				s.terminate(CauseTransport)
				return
			}
			s.monitor.Touch()
			if !s.handle(line) {
				return
			}

		case <-poll.C:
			if s.stage == stageQueued && !s.checkSeat() {
				return
			}

		case <-s.started:
			s.started = nil
			if s.stage < stageCombat {
				s.stage = stageCombat
			}

		case <-s.done:
			s.send(proto.LineGoodbye)
			s.terminate(CauseGameOver)
			return
		}
	}
}

// handle processes one client line and reports whether the session goes on.
func (s *Session) handle(line string) bool {
	cmd, err := proto.Parse(line)
	if err != nil {
		s.send(proto.Error(err))
		return true
	}

	switch cmd.Kind {
	case proto.KindCheck:
		s.send(proto.LineOK)
	case proto.KindExit:
		s.log.InfoContext(s.ctx, "Client requested exit")
		s.terminate(CauseExit)
		return false
	case proto.KindLogin:
		s.login(cmd.Login)
	case proto.KindReady:
		if s.stage == stageLogin {
			s.send(proto.LineLoginFirst)
		} else {
			s.send(proto.LineReady)
		}
	case proto.KindPlace:
		s.place(cmd.Place)
	case proto.KindFire:
		s.fire(cmd.Fire)
	case proto.KindBoard:
		s.board()
	}
	return true
}

func (s *Session) login(cmd *proto.LoginCommand) {
	ctx, span := tracer.Start(s.ctx, "session.login", trace.WithAttributes(
		attribute.String("conn.id", s.ID),
		attribute.String("player.name", cmd.Username),
	))
	defer span.End()

	if s.stage != stageLogin {
		s.send(proto.Errorf("Already logged in as %s", s.username))
		return
	}

	if err := s.authenticate(cmd); err != nil {
		slog.WarnContext(ctx, "Login rejected", "player.name", cmd.Username, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Login rejected")
		s.send(proto.LineUnauthorized)
		return
	}

	if err := s.deps.Registry.Claim(cmd.Username, s.out); err != nil {
		slog.InfoContext(ctx, "Username already in use", "player.name", cmd.Username)
		span.SetStatus(codes.Error, "Username already in use")
		s.send(proto.Errorf("NameTaken: Username '%s' is already in use, choose another", cmd.Username))
		return
	}

	s.username = cmd.Username
	s.log = s.log.With("player.name", s.username)
	s.stage = stageQueued
	s.send(proto.LoginOK(s.username))
	s.log.InfoContext(ctx, "Player logged in")
	if s.deps.Lifecycle != nil {
		s.deps.Lifecycle.LoggedIn(ctx, s.username)
	}

	g, err := s.deps.Matchmaker.Enqueue(s.username)
	if err != nil {
		s.log.ErrorContext(ctx, "Could not enqueue player", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not enqueue player")
		s.send(proto.Error(err))
		return
	}
	if g != nil {
		s.seat(g)
	}
}

func (s *Session) authenticate(cmd *proto.LoginCommand) error {
	if cmd.Token == "" {
		if s.cfg.RequireAuth {
			return errTokenRequired
		}
		return nil
	}
	if s.deps.Verifier == nil {
		return nil
	}
	name, err := s.deps.Verifier.VerifyToken(cmd.Token)
	if err != nil {
		return err
	}
	if name != cmd.Username {
		return errTokenMismatch
	}
	return nil
}

// checkSeat looks for the session a newcomer paired us into. It reports false
// when the pairing was already dissolved before we saw it, which only happens
// when the opponent left straight away.
func (s *Session) checkSeat() bool {
	if g, ok := s.deps.Matchmaker.GetSession(s.username); ok {
		s.seat(g)
		return true
	}
	if s.deps.Matchmaker.IsWaiting(s.username) {
		return true
	}
	s.send(proto.LineGoodbye)
	s.terminate(CauseGameOver)
	return false
}

func (s *Session) seat(g *game.Session) {
	s.game = g
	s.stage = stagePlacing
	s.started = g.Started()
	s.done = g.Done()
	s.log = s.log.With("match.id", g.ID)

	opponent, _ := g.Opponent(s.username)
	s.send(proto.Opponent(opponent))
	s.send(proto.LinePlacePrompt)
	s.log.InfoContext(s.ctx, "Player seated", "opponent", opponent)
}

func (s *Session) place(cmd *proto.PlaceCommand) {
	if !s.requireSeat() {
		return
	}

	_, span := tracer.Start(s.ctx, "session.place", trace.WithAttributes(
		attribute.String("match.id", s.game.ID),
		attribute.String("player.name", s.username),
		attribute.String("ship.type", cmd.ShipType),
	))
	defer span.End()

	p, err := s.game.PlaceShip(s.username, cmd.ShipType, cmd.Cells)
	if err != nil {
		span.SetAttributes(attribute.Bool("place.valid", false))
		s.log.DebugContext(s.ctx, "Placement rejected", "error", err)
		s.send(proto.Error(err))
		return
	}
	span.SetAttributes(attribute.Bool("place.valid", true), attribute.Int("fleet.count", p.Placed))

	switch {
	case p.GameStarted:
		s.stage = stageCombat
	case p.FleetComplete:
		s.stage = stageReady
		s.send(proto.LineFleetReady)
	}
}

func (s *Session) fire(cmd *proto.FireCommand) {
	if !s.requireSeat() {
		return
	}

	ctx, span := tracer.Start(s.ctx, "session.fire", trace.WithAttributes(
		attribute.String("match.id", s.game.ID),
		attribute.String("player.name", s.username),
		attribute.String("target", cmd.Target.String()),
	))
	defer span.End()

	shot, err := s.game.Fire(s.username, cmd.Target)
	if err != nil {
		span.SetAttributes(attribute.Bool("fire.valid", false))
		s.send(proto.Error(err))
		return
	}
	span.SetAttributes(attribute.String("fire.result", shot.Result.String()), attribute.Bool("game.over", shot.GameOver))
	s.deps.Metrics.ShotFired(ctx, shot.Result.String())
}

func (s *Session) board() {
	if s.game == nil {
		s.send(proto.LineNotInGame)
		return
	}
	view, err := s.game.Render(s.username)
	if err != nil {
		s.send(proto.Error(err))
		return
	}
	for _, line := range strings.Split(strings.TrimRight(view, "\n"), "\n") {
		s.send(line)
	}
}

func (s *Session) requireSeat() bool {
	switch s.stage {
	case stageLogin:
		s.send(proto.LineLoginFirst)
		return false
	case stageQueued:
		s.send(proto.LineNotSeated)
		return false
	}
	return true
}

// terminate records the first cause and stops the session. It is safe from
// any goroutine and any number of times.
func (s *Session) terminate(cause Cause) {
	s.causeOnce.Do(func() { s.cause = cause })
	s.cancel()
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		ctx, span := tracer.Start(context.WithoutCancel(s.ctx), "session.shutdown", trace.WithAttributes(
			attribute.String("conn.id", s.ID),
			attribute.String("player.name", s.username),
			attribute.String("cause", string(s.cause)),
		))
		defer span.End()

		s.monitor.Stop()

		if s.username != "" {
			// A newcomer may have paired us since the last poll.
			if !s.deps.Matchmaker.Withdraw(s.username) && s.game == nil {
				s.game, _ = s.deps.Matchmaker.GetSession(s.username)
			}
			if s.game != nil && s.game.Forfeit(s.username) {
				s.deps.Metrics.Forfeited(ctx, string(s.cause))
				s.log.InfoContext(ctx, "Player forfeited", "cause", s.cause)
			}
			s.deps.Matchmaker.RemoveSession(s.username)
			s.deps.Registry.Release(s.username, s.out)
			if s.deps.Lifecycle != nil {
				s.deps.Lifecycle.LoggedOut(ctx, s.username, s.cause)
			}
		}

		s.out.Close()
		select {
		case <-s.writerDone:
		case <-time.After(drainTimeout):
			s.log.WarnContext(ctx, "Timed out flushing client output")
		}
		if err := s.conn.Close(); err != nil {
			s.log.DebugContext(ctx, "Closing connection", "error", err)
		}

		s.deps.Metrics.ConnectionClosed(ctx)
		s.log.InfoContext(ctx, "Client disconnected", "cause", s.cause)
	})
}

func (s *Session) send(line string) {
	if err := s.out.Send(line); errors.Is(err, player.ErrOutboxFull) {
		s.connLog.Warn("Dropping line for slow client", "line", line)
	}
}

func (s *Session) readLoop() {
	defer close(s.lines)
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			if s.ctx.Err() == nil {
				s.connLog.Debug("Read failed", "error", err)
			}
			return
		}
		select {
		case s.lines <- line:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case line := <-s.out.Lines():
			if !s.write(line) {
				return
			}
		case <-s.out.Done():
			for {
				select {
				case line := <-s.out.Lines():
					if !s.write(line) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) write(line string) bool {
	if err := s.conn.WriteLine(line); err != nil {
		s.connLog.Debug("Write failed", "error", err)
		s.terminate(CauseTransport)
		return false
	}
	return true
}
