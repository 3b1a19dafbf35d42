package liveness

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestWatchdogFiresAfterInactivity(t *testing.T) {
	var fired atomic.Int32
	m := New(Config{InactivityTimeout: 30 * time.Millisecond}, Hooks{
		OnInactive: func() { fired.Add(1) },
	})
	m.Start()

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	waitDone(t, m)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTouchPostponesWatchdog(t *testing.T) {
	var fired atomic.Int32
	m := New(Config{InactivityTimeout: 60 * time.Millisecond}, Hooks{
		OnInactive: func() { fired.Add(1) },
	})
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		m.Touch()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, fired.Load(), "watchdog fired despite activity")

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestKeepAliveProbesUntilStopped(t *testing.T) {
	var probes atomic.Int32
	m := New(Config{KeepAliveInterval: 10 * time.Millisecond}, Hooks{
		Probe: func() error { probes.Add(1); return nil },
	})
	m.Start()

	require.Eventually(t, func() bool { return probes.Load() >= 3 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
	waitDone(t, m)

	after := probes.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, probes.Load(), "no probes after Stop")
}

func TestProbeFailureStopsBothTasks(t *testing.T) {
	var inactive, failures atomic.Int32
	probeErr := errors.New("outbox closed")
	m := New(Config{InactivityTimeout: time.Hour, KeepAliveInterval: 10 * time.Millisecond}, Hooks{
		OnInactive:     func() { inactive.Add(1) },
		Probe:          func() error { return probeErr },
		OnProbeFailure: func(err error) { assert.ErrorIs(t, err, probeErr); failures.Add(1) },
	})
	m.Start()

	waitDone(t, m)
	assert.Equal(t, int32(1), failures.Load())
	assert.Zero(t, inactive.Load())
}

func TestStopBeforeExpiryPreventsHook(t *testing.T) {
	var fired atomic.Int32
	m := New(Config{InactivityTimeout: 30 * time.Millisecond}, Hooks{
		OnInactive: func() { fired.Add(1) },
	})
	m.Start()
	m.Stop()
	waitDone(t, m)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestStopFromInsideHookDoesNotDeadlock(t *testing.T) {
	var m *Monitor
	m = New(Config{InactivityTimeout: 10 * time.Millisecond, KeepAliveInterval: 5 * time.Millisecond}, Hooks{
		OnInactive: func() { m.Stop() },
		Probe:      func() error { return nil },
	})
	m.Start()
	waitDone(t, m)
}
