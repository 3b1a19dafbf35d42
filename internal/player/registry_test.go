package player

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClaimIsExclusive(t *testing.T) {
	r := NewRegistry()
	first, second := NewOutbox(4), NewOutbox(4)

	require.NoError(t, r.Claim("alice", first))
	assert.ErrorIs(t, r.Claim("alice", second), ErrNameTaken)
	assert.True(t, r.IsActive("alice"))
	assert.Equal(t, 1, r.Count())

	// A connection that lost the claim must not free the winner's name.
	r.Release("alice", second)
	assert.True(t, r.IsActive("alice"))

	r.Release("alice", first)
	r.Release("alice", first)
	assert.False(t, r.IsActive("alice"))
	assert.Equal(t, 0, r.Count())

	require.NoError(t, r.Claim("alice", second))
}

func TestRegistryConcurrentClaims(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Claim("bob", NewOutbox(1)) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRegistryNotify(t *testing.T) {
	r := NewRegistry()
	out := NewOutbox(1)
	require.NoError(t, r.Claim("alice", out))

	r.Notify("alice", "HIT:1,1")
	r.Notify("alice", "dropped: outbox is full")
	r.Notify("nobody", "dropped: no such player")

	assert.Equal(t, "HIT:1,1", <-out.Lines())
	select {
	case l := <-out.Lines():
		t.Fatalf("unexpected line %q", l)
	default:
	}

	r.Release("alice", out)
	r.Notify("alice", "after release")
	select {
	case l := <-out.Lines():
		t.Fatalf("unexpected line %q", l)
	default:
	}
}

func TestOutboxSendAfterClose(t *testing.T) {
	out := NewOutbox(2)
	require.NoError(t, out.Send("a"))
	out.Close()
	out.Close()
	assert.ErrorIs(t, out.Send("b"), ErrOutboxClosed)
	assert.Equal(t, "a", <-out.Lines())
}

func TestRegistryNotifyResultToStalledReader(t *testing.T) {
	r := NewRegistry()
	out := NewOutbox(1)
	require.NoError(t, r.Claim("alice", out))
	r.Notify("alice", "PING")

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Notify("alice", "You won!")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full outbox")
	}

	assert.Equal(t, "PING", <-out.Lines())
	select {
	case l := <-out.Lines():
		t.Fatalf("result line should have been dropped, got %q", l)
	default:
	}
}
