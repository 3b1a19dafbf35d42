package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctchen222/Battleship/internal/game"
	"ctchen222/Battleship/internal/match"
	"ctchen222/Battleship/internal/player"
	"ctchen222/Battleship/pkg/proto"
)

const waitFor = 2 * time.Second

type harness struct {
	t    *testing.T
	ctx  context.Context
	cfg  Config
	deps Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := player.NewRegistry()
	mm := match.NewMatchmaker(func(a, b string) *game.Session {
		return game.NewSession(a, b, game.WithNotifier(reg))
	})
	return &harness{
		t:   t,
		ctx: ctx,
		cfg: Config{
			InactivityTimeout: time.Minute,
			SeatPollInterval:  10 * time.Millisecond,
			OutboxSize:        64,
		},
		deps: Deps{Matchmaker: mm, Registry: reg},
	}
}

type client struct {
	t     *testing.T
	conn  net.Conn
	lines chan string
	cause chan Cause
}

func (h *harness) connect() *client {
	h.t.Helper()
	srv, cl := net.Pipe()
	c := &client{t: h.t, conn: cl, lines: make(chan string, 256), cause: make(chan Cause, 1)}

	sess := New(NewTCPConn(srv, time.Second), h.cfg, h.deps)
	go func() { c.cause <- sess.Run(h.ctx) }()
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(cl)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
	}()
	h.t.Cleanup(func() { _ = cl.Close() })

	c.expect(proto.LineWelcome)
	return c
}

func (c *client) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(waitFor)))
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(c.t, err)
}

// expectFunc consumes lines until one satisfies ok. PINGs and unrelated lines
// are skipped.
func (c *client) expectFunc(desc string, ok func(string) bool) string {
	c.t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case line, open := <-c.lines:
			if !open {
				c.t.Fatalf("connection closed while waiting for %s", desc)
			}
			if ok(line) {
				return line
			}
		case <-timeout:
			c.t.Fatalf("timed out waiting for %s", desc)
		}
	}
}

func (c *client) expect(want string) {
	c.t.Helper()
	c.expectFunc(fmt.Sprintf("%q", want), func(l string) bool { return l == want })
}

func (c *client) expectPrefix(prefix string) string {
	c.t.Helper()
	return c.expectFunc(fmt.Sprintf("prefix %q", prefix), func(l string) bool { return strings.HasPrefix(l, prefix) })
}

// next returns the next non-PING line.
func (c *client) next() string {
	c.t.Helper()
	return c.expectFunc("any line", func(l string) bool { return l != proto.LinePing })
}

func (c *client) waitCause() Cause {
	c.t.Helper()
	select {
	case cause := <-c.cause:
		return cause
	case <-time.After(waitFor):
		c.t.Fatal("session did not end")
		return ""
	}
}

// drain collects every remaining line until the server closes the connection.
func (c *client) drain() []string {
	c.t.Helper()
	var got []string
	timeout := time.After(waitFor)
	for {
		select {
		case line, open := <-c.lines:
			if !open {
				return got
			}
			got = append(got, line)
		case <-timeout:
			c.t.Fatal("connection was not closed")
			return got
		}
	}
}

// keepAlive sends CHECK every interval until stop is closed. Write errors are
// ignored: the server may already have closed the connection.
func (c *client) keepAlive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(interval))
			if _, err := fmt.Fprintf(c.conn, "CHECK\n"); err != nil {
				return
			}
		}
	}
}

func (c *client) expectClosed() {
	c.t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case _, open := <-c.lines:
			if !open {
				return
			}
		case <-timeout:
			c.t.Fatal("connection was not closed")
		}
	}
}

type shipPlacement struct {
	name  string
	cells []string
}

// Ships stand in columns 0, 2, 4, 6 and 8 so none touch.
var fleet = []shipPlacement{
	{"Carrier", []string{"0,0", "0,1", "0,2", "0,3", "0,4"}},
	{"Battleship", []string{"2,0", "2,1", "2,2", "2,3"}},
	{"Cruiser", []string{"4,0", "4,1", "4,2"}},
	{"Submarine", []string{"6,0", "6,1", "6,2"}},
	{"Destroyer", []string{"8,0", "8,1"}},
}

func (c *client) login(name string) {
	c.t.Helper()
	c.send("LOGIN: " + name)
	c.expect(proto.LoginOK(name))
}

func (c *client) placeFleet() {
	c.t.Helper()
	for i, s := range fleet {
		c.send("PLACE " + s.name + " " + strings.Join(s.cells, " "))
		c.expect(fmt.Sprintf("SUCCESS: PLACED %s %s (%d/5)", s.name, strings.Join(s.cells, " "), i+1))
	}
}

func seatPair(t *testing.T, h *harness) (alice, bob *client) {
	t.Helper()
	alice = h.connect()
	alice.login("alice")
	bob = h.connect()
	bob.login("bob")

	bob.expect(proto.Opponent("alice"))
	bob.expect(proto.LinePlacePrompt)
	alice.expect(proto.Opponent("bob"))
	alice.expect(proto.LinePlacePrompt)
	return alice, bob
}

func TestFullGame(t *testing.T) {
	h := newHarness(t)
	alice, bob := seatPair(t, h)

	alice.placeFleet()
	alice.expect(proto.LineFleetReady)
	bob.placeFleet()

	// The newcomer moves first.
	bob.expect(game.MsgGameStart)
	bob.expect(game.MsgYourTurn)
	alice.expect(game.MsgGameStart)
	alice.expect(game.MsgOpponentsTurn)

	var targets []string
	for _, s := range fleet {
		targets = append(targets, s.cells...)
	}

	for i, target := range targets {
		bob.send("FIRE " + target)
		result := bob.next()
		require.True(t, strings.HasPrefix(result, "HIT:") || strings.HasPrefix(result, "SUNK:"), "got %q", result)
		assert.Equal(t, result, alice.next(), "both players see the same result")

		if i == len(targets)-1 {
			break
		}
		bob.expect(game.MsgOpponentsTurn)
		alice.expect(game.MsgYourTurn)

		miss := fmt.Sprintf("%d,%d", i%10, 6+i/10)
		alice.send("FIRE " + miss)
		alice.expect("MISS:" + miss)
		bob.expect("MISS:" + miss)
		alice.expect(game.MsgOpponentsTurn)
		bob.expect(game.MsgYourTurn)
	}

	bob.expect(game.MsgYouWon)
	bob.expect(proto.LineGoodbye)
	alice.expect(game.MsgYouLost)
	alice.expect(proto.LineGoodbye)

	assert.Equal(t, CauseGameOver, bob.waitCause())
	assert.Equal(t, CauseGameOver, alice.waitCause())
	bob.expectClosed()
	alice.expectClosed()

	assert.Zero(t, h.deps.Registry.Count())
	assert.Zero(t, h.deps.Matchmaker.Sessions())
}

func TestSunkLineListsWholeShip(t *testing.T) {
	h := newHarness(t)
	alice, bob := seatPair(t, h)
	alice.placeFleet()
	bob.placeFleet()
	bob.expect(game.MsgYourTurn)
	alice.expect(game.MsgOpponentsTurn)

	bob.send("FIRE 8,0")
	bob.expect("HIT:8,0")
	alice.expect(game.MsgYourTurn)
	alice.send("FIRE 9,9")
	bob.expect(game.MsgYourTurn)
	bob.send("FIRE 8,1")
	bob.expect("SUNK:8,0 8,1")
	alice.expect("SUNK:8,0 8,1")
}

func TestRuleViolationsKeepConnectionOpen(t *testing.T) {
	h := newHarness(t)
	alice, bob := seatPair(t, h)

	alice.send("PLACE Battleship 2,2 2,3 2,4 2,5")
	alice.expectPrefix("SUCCESS: PLACED Battleship")
	alice.send("PLACE Battleship 2,1 2,6")
	alice.expectPrefix("ERROR: AdjacencyViolation")
	alice.send("PLACE Cruiser 2,3 3,3 4,3")
	alice.expectPrefix("ERROR: Overlap")
	alice.send("PLACE Cruiser 10,0 11,0 12,0")
	alice.expectPrefix("ERROR: OutOfBounds")
	alice.send("FIRE 1,1")
	alice.expectPrefix("ERROR: SetupIncomplete")
	bob.send("FIRE 1,1")
	bob.expectPrefix("ERROR: SetupIncomplete")

	alice.send("CHECK")
	alice.expect(proto.LineOK)
}

func TestProtocolErrors(t *testing.T) {
	h := newHarness(t)
	c := h.connect()

	c.send("PLACE Carrier 0,0")
	c.expect(proto.LineLoginFirst)
	c.send("FIRE 1,1")
	c.expect(proto.LineLoginFirst)
	c.send("DANCE")
	c.expectPrefix("ERROR: Unknown command")
	c.send("LOGIN")
	c.expectPrefix("ERROR: Usage")
	c.send("READY")
	c.expect(proto.LineLoginFirst)

	c.login("carol")
	c.send("FIRE a,b")
	c.expectPrefix("ERROR: Invalid coordinate")
	c.send("FIRE 1,1")
	c.expect(proto.LineNotSeated)
	c.send("READY")
	c.expect(proto.LineReady)
	c.send("LOGIN: dave")
	c.expect("ERROR: Already logged in as carol")
	c.send("BOARD")
	c.expect(proto.LineNotInGame)
	c.send("check")
	c.expect(proto.LineOK)
}

func TestNameTaken(t *testing.T) {
	h := newHarness(t)
	first := h.connect()
	first.login("alice")

	second := h.connect()
	second.send("LOGIN: alice")
	second.expectPrefix("ERROR: NameTaken")
	second.login("bob")

	// The rejected attempt must not have touched the first owner.
	first.expect(proto.Opponent("bob"))
}

func TestExitWhileQueuedReleasesName(t *testing.T) {
	h := newHarness(t)
	c := h.connect()
	c.login("alice")
	c.send("EXIT")

	assert.Equal(t, CauseExit, c.waitCause())
	c.expectClosed()
	assert.Zero(t, h.deps.Matchmaker.Waiting())
	assert.False(t, h.deps.Registry.IsActive("alice"))

	again := h.connect()
	again.login("alice")
}

func TestDisconnectDuringPlacementForfeits(t *testing.T) {
	h := newHarness(t)
	alice, bob := seatPair(t, h)

	require.NoError(t, bob.conn.Close())

	alice.expect(game.MsgOpponentForfeited)
	alice.expect(proto.LineGoodbye)
	assert.Equal(t, CauseTransport, bob.waitCause())
	assert.Equal(t, CauseGameOver, alice.waitCause())

	assert.Zero(t, h.deps.Registry.Count())
	assert.Zero(t, h.deps.Matchmaker.Sessions())
}

func TestExitDuringCombatForfeits(t *testing.T) {
	h := newHarness(t)
	alice, bob := seatPair(t, h)
	alice.placeFleet()
	bob.placeFleet()
	alice.expect(game.MsgOpponentsTurn)

	alice.send("EXIT")
	alice.expect(game.MsgYouForfeited)
	bob.expect(game.MsgOpponentForfeited)
	bob.expect(proto.LineGoodbye)

	assert.Equal(t, CauseExit, alice.waitCause())
	assert.Equal(t, CauseGameOver, bob.waitCause())
}

func TestBoardCommand(t *testing.T) {
	h := newHarness(t)
	alice, _ := seatPair(t, h)
	alice.placeFleet()

	alice.send("BOARD")
	alice.expect("Your fleet:")
	alice.expect("Opponent waters:")
}

func TestInactivityTimeout(t *testing.T) {
	h := newHarness(t)
	h.cfg.InactivityTimeout = 50 * time.Millisecond
	c := h.connect()

	c.expect(proto.LineInactive)
	assert.Equal(t, CauseInactivity, c.waitCause())
	c.expectClosed()
}

func TestInactivityDuringCombatForfeitsOnce(t *testing.T) {
	const timeout = 300 * time.Millisecond
	tests := []struct {
		name string
		// closeAt, when positive, drops alice's connection that long after her
		// last command, racing the read loop against the watchdog.
		closeAt time.Duration
	}{
		{name: "silent player", closeAt: 0},
		{name: "disconnect at watchdog expiry", closeAt: timeout - 10*time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.cfg.InactivityTimeout = timeout
			alice, bob := seatPair(t, h)
			alice.placeFleet()
			bob.placeFleet()
			alice.expect(game.MsgOpponentsTurn)
			bob.expect(game.MsgYourTurn)

			stop := make(chan struct{})
			defer close(stop)
			go bob.keepAlive(timeout/4, stop)

			if tt.closeAt > 0 {
				time.Sleep(tt.closeAt)
				require.NoError(t, alice.conn.Close())
			}

			lines := bob.drain()
			forfeits := 0
			for _, l := range lines {
				if l == game.MsgOpponentForfeited {
					forfeits++
				}
			}
			assert.Equal(t, 1, forfeits, "bob's lines: %q", lines)
			assert.Contains(t, lines, proto.LineGoodbye)
			assert.Equal(t, CauseGameOver, bob.waitCause())

			aliceCause := alice.waitCause()
			if tt.closeAt > 0 {
				assert.Contains(t, []Cause{CauseTransport, CauseInactivity}, aliceCause)
			} else {
				assert.Equal(t, CauseInactivity, aliceCause)
			}
			assert.Zero(t, h.deps.Registry.Count())
			assert.Zero(t, h.deps.Matchmaker.Sessions())
		})
	}
}

func TestActivityKeepsConnectionAlive(t *testing.T) {
	h := newHarness(t)
	h.cfg.InactivityTimeout = 80 * time.Millisecond
	c := h.connect()

	for range 6 {
		time.Sleep(30 * time.Millisecond)
		c.send("CHECK")
		c.expect(proto.LineOK)
	}
	select {
	case cause := <-c.cause:
		t.Fatalf("session ended early: %s", cause)
	default:
	}
}

func TestKeepAlivePings(t *testing.T) {
	h := newHarness(t)
	h.cfg.KeepAliveInterval = 10 * time.Millisecond
	c := h.connect()

	c.expect(proto.LinePing)
	c.expect(proto.LinePing)
}

func TestServerShutdownEndsSession(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(h.ctx)
	h.ctx = ctx
	c := h.connect()
	c.login("alice")

	cancel()
	assert.Equal(t, CauseShutdown, c.waitCause())
	assert.False(t, h.deps.Registry.IsActive("alice"))
}

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyToken(token string) (string, error) {
	name, ok := f[token]
	if !ok {
		return "", errors.New("bad token")
	}
	return name, nil
}

func TestLoginRequiresValidToken(t *testing.T) {
	h := newHarness(t)
	h.cfg.RequireAuth = true
	h.deps.Verifier = fakeVerifier{"aaa.bbb.ccc": "alice"}
	c := h.connect()

	c.send("LOGIN: alice")
	c.expect(proto.LineUnauthorized)
	c.send("LOGIN: bob aaa.bbb.ccc")
	c.expect(proto.LineUnauthorized)
	c.send("LOGIN: alice aaa.bbb.ddd")
	c.expect(proto.LineUnauthorized)
	c.send("LOGIN: alice aaa.bbb.ccc")
	c.expect(proto.LoginOK("alice"))
}

type recordingLifecycle struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingLifecycle) LoggedIn(_ context.Context, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "in:"+username)
}

func (r *recordingLifecycle) LoggedOut(_ context.Context, username string, cause Cause) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "out:"+username+":"+string(cause))
}

func (r *recordingLifecycle) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestLifecycleHooks(t *testing.T) {
	h := newHarness(t)
	lc := &recordingLifecycle{}
	h.deps.Lifecycle = lc
	c := h.connect()
	c.login("alice")
	c.send("EXIT")
	c.waitCause()

	assert.Equal(t, []string{"in:alice", "out:alice:exit"}, lc.snapshot())
}

func TestTCPConnStripsCarriageReturn(t *testing.T) {
	srv, cl := net.Pipe()
	defer cl.Close()
	conn := NewTCPConn(srv, time.Second)
	defer conn.Close()

	go func() { _, _ = cl.Write([]byte("CHECK\r\n")) }()
	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CHECK", line)
}
