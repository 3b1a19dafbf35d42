package bot

import (
	"context"
	"net"
	"testing"
	"time"

	"ctchen222/Battleship/internal/hub"
	"ctchen222/Battleship/internal/session"
)

func newHub() *hub.Hub {
	return hub.NewHub(hub.Options{
		Session: session.Config{
			InactivityTimeout: time.Minute,
			SeatPollInterval:  10 * time.Millisecond,
			OutboxSize:        256,
		},
	})
}

// connect returns the client end of a connection served by h.
func connect(t *testing.T, ctx context.Context, h *hub.Hub) LineConn {
	t.Helper()
	srv, cl := net.Pipe()
	go h.Serve(ctx, session.NewTCPConn(srv, time.Second))
	t.Cleanup(func() { _ = cl.Close() })
	return session.NewTCPConn(cl, time.Second)
}

type outcome struct {
	res Result
	err error
}

func playMatch(t *testing.T, a, b *Bot) (Result, Result) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h := newHub()

	ra, rb := make(chan outcome, 1), make(chan outcome, 1)
	go func() {
		res, err := a.Play(ctx, connect(t, ctx, h))
		ra <- outcome{res, err}
	}()
	go func() {
		res, err := b.Play(ctx, connect(t, ctx, h))
		rb <- outcome{res, err}
	}()

	oa, ob := <-ra, <-rb
	if oa.err != nil {
		t.Fatalf("%s: %v", a.Name, oa.err)
	}
	if ob.err != nil {
		t.Fatalf("%s: %v", b.Name, ob.err)
	}
	h.Wait()
	return oa.res, ob.res
}

func TestBotsPlayFullGame(t *testing.T) {
	tests := []struct {
		name string
		a, b Difficulty
	}{
		{"hard vs hard", Hard, Hard},
		{"medium vs easy", Medium, Easy},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New("alice", tt.a, uint64(i+1))
			b := New("bob", tt.b, uint64(i+100))
			ra, rb := playMatch(t, a, b)

			if ra.Opponent != "bob" || rb.Opponent != "alice" {
				t.Errorf("opponents = %q, %q", ra.Opponent, rb.Opponent)
			}
			if ra.Won == rb.Won {
				t.Fatalf("exactly one bot should win: alice=%v bob=%v", ra.Won, rb.Won)
			}
			if ra.Forfeit || rb.Forfeit {
				t.Error("game should end by sinking a fleet")
			}
			winner := ra
			if rb.Won {
				winner = rb
			}
			if winner.Hits != 17 {
				t.Errorf("winner hit %d squares, want 17", winner.Hits)
			}
			if winner.Shots < 17 || winner.Shots > 100 {
				t.Errorf("winner fired %d shots", winner.Shots)
			}
		})
	}
}

func TestBotWithFixedFleet(t *testing.T) {
	a := New("alice", Hard, 7)
	a.Fleet = ColumnFleet()
	b := New("bob", Hard, 8)
	ra, rb := playMatch(t, a, b)
	if ra.Won == rb.Won {
		t.Fatalf("exactly one bot should win: alice=%v bob=%v", ra.Won, rb.Won)
	}
}

func TestPlayReportsLostConnection(t *testing.T) {
	srv, cl := net.Pipe()
	go func() {
		server := session.NewTCPConn(srv, time.Second)
		_, _ = server.ReadLine()
		_ = server.Close()
	}()

	_, err := New("alice", Easy, 1).Play(context.Background(), session.NewTCPConn(cl, time.Second))
	if err == nil {
		t.Fatal("expected an error when the server hangs up mid-game")
	}
}

func TestPlayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHub()
	done := make(chan error, 1)
	go func() {
		_, err := New("alice", Easy, 1).Play(ctx, connect(t, context.Background(), h))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Play() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after cancel")
	}
}
