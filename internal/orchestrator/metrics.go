package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/telemetry"
)

const instrumentationName = "gauntlet/orchestrator"

var tracer trace.Tracer = otel.Tracer(instrumentationName)

type metrics struct {
	ticks        metric.Int64Counter
	claims       metric.Int64Counter
	turns        metric.Int64Counter
	turnDuration metric.Float64Histogram
}

func newMetrics() *metrics {
	meter := telemetry.Meter(instrumentationName)
	m := &metrics{}
	// Instrument creation only fails on invalid names; the no-op fallbacks are fine.
	m.ticks, _ = meter.Int64Counter("gauntlet.scheduler.ticks",
		metric.WithDescription("Scheduler ticks by outcome"))
	m.claims, _ = meter.Int64Counter("gauntlet.scheduler.claims",
		metric.WithDescription("Claim attempts by result (won, lost)"))
	m.turns, _ = meter.Int64Counter("gauntlet.driver.turns",
		metric.WithDescription("Conversation turns by outcome event"))
	m.turnDuration, _ = meter.Float64Histogram("gauntlet.driver.turn_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock duration of one conversation turn"))
	return m
}

func (m *metrics) tick(ctx context.Context, outcome TickOutcome) {
	m.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

func (m *metrics) claim(ctx context.Context, won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	m.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) turn(ctx context.Context, event string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.turns.Add(ctx, 1, attrs)
	m.turnDuration.Record(ctx, seconds, attrs)
}

// registerRunGauge observes the number of runs in each state.
func registerRunGauge(store Store) {
	meter := telemetry.Meter(instrumentationName)
	_, _ = meter.Int64ObservableGauge("gauntlet.runs",
		metric.WithDescription("Runs by state"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			counts, err := store.CountRunsByState(ctx)
			if err != nil {
				return nil // Skip this observation.
			}
			for _, s := range model.AllRunStates {
				o.Observe(int64(counts[s]), metric.WithAttributes(attribute.String("state", string(s))))
			}
			return nil
		}),
	)
}
