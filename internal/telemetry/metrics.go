package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the server's instruments. A nil *Metrics records nothing.
type Metrics struct {
	connections metric.Int64UpDownCounter
	started     metric.Int64Counter
	finished    metric.Int64Counter
	shots       metric.Int64Counter
	forfeits    metric.Int64Counter
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.connections, err = meter.Int64UpDownCounter("battleship.connections.active",
		metric.WithDescription("Open client connections")); err != nil {
		return nil, fmt.Errorf("connections counter: %w", err)
	}
	if m.started, err = meter.Int64Counter("battleship.matches.started",
		metric.WithDescription("Players paired into a match")); err != nil {
		return nil, fmt.Errorf("matches started counter: %w", err)
	}
	if m.finished, err = meter.Int64Counter("battleship.matches.finished",
		metric.WithDescription("Matches that reached a result")); err != nil {
		return nil, fmt.Errorf("matches finished counter: %w", err)
	}
	if m.shots, err = meter.Int64Counter("battleship.shots",
		metric.WithDescription("Accepted shots by result")); err != nil {
		return nil, fmt.Errorf("shots counter: %w", err)
	}
	if m.forfeits, err = meter.Int64Counter("battleship.forfeits",
		metric.WithDescription("Forfeits by cause")); err != nil {
		return nil, fmt.Errorf("forfeits counter: %w", err)
	}
	return &m, nil
}

func (m *Metrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, 1)
}

func (m *Metrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, -1)
}

func (m *Metrics) MatchStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.started.Add(ctx, 1)
}

func (m *Metrics) MatchFinished(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) ShotFired(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.shots.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) Forfeited(ctx context.Context, cause string) {
	if m == nil {
		return
	}
	m.forfeits.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", cause)))
}
