// Package liveness runs the per-connection inactivity watchdog and keep-alive
// probe. Both tasks share one lifetime and stop together.
package liveness

import (
	"context"
	"sync"
	"time"
)

// Config holds the timer settings. A zero duration disables that task.
type Config struct {
	InactivityTimeout time.Duration
	KeepAliveInterval time.Duration
}

// Hooks are the callbacks a Monitor drives. OnInactive and OnProbeFailure run
// at most once each, on the monitor's own goroutines.
type Hooks struct {
	OnInactive     func()
	Probe          func() error
	OnProbeFailure func(error)
}

// Monitor owns the two timers of one connection.
type Monitor struct {
	cfg      Config
	hooks    Hooks
	activity chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	done      chan struct{}
}

// New creates a stopped monitor.
func New(cfg Config, hooks Hooks) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		cfg:      cfg,
		hooks:    hooks,
		activity: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the watchdog and keep-alive goroutines. Calling it again has
// no effect.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		if m.cfg.InactivityTimeout > 0 && m.hooks.OnInactive != nil {
			m.wg.Add(1)
			go m.watchdog()
		}
		if m.cfg.KeepAliveInterval > 0 && m.hooks.Probe != nil {
			m.wg.Add(1)
			go m.keepAlive()
		}
		go func() {
			m.wg.Wait()
			close(m.done)
		}()
	})
}

// Touch resets the inactivity deadline. It never blocks.
func (m *Monitor) Touch() {
	select {
	case m.activity <- struct{}{}:
	default:
	}
}

// Stop cancels both tasks. It is idempotent and does not wait, so it is safe
// to call from inside a hook.
func (m *Monitor) Stop() {
	m.stopOnce.Do(m.cancel)
}

// Done is closed once both tasks have exited. It only closes after Start.
func (m *Monitor) Done() <-chan struct{} { return m.done }

func (m *Monitor) watchdog() {
	defer m.wg.Done()

	timer := time.NewTimer(m.cfg.InactivityTimeout)
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.cfg.InactivityTimeout)
		case <-timer.C:
			if m.ctx.Err() != nil {
				return
			}
			m.Stop()
			m.hooks.OnInactive()
			return
		}
	}
}

func (m *Monitor) keepAlive() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if m.ctx.Err() != nil {
				return
			}
			if err := m.hooks.Probe(); err != nil {
				m.Stop()
				if m.hooks.OnProbeFailure != nil {
					m.hooks.OnProbeFailure(err)
				}
				return
			}
		}
	}
}
