package storage

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/gauntlet/internal/telemetry"
)

// RegisterPoolMetrics registers observable gauges for connection pool health.
func (db *DB) RegisterPoolMetrics() {
	meter := telemetry.Meter("gauntlet/storage")

	_, _ = meter.Int64ObservableGauge("gauntlet.db.pool.connections",
		metric.WithDescription("Postgres pool connections by status"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			s := db.pool.Stat()
			o.Observe(int64(s.AcquiredConns()), metric.WithAttributes(attribute.String("status", "acquired")))
			o.Observe(int64(s.IdleConns()), metric.WithAttributes(attribute.String("status", "idle")))
			o.Observe(int64(s.TotalConns()), metric.WithAttributes(attribute.String("status", "total")))
			return nil
		}),
	)
	_, _ = meter.Int64ObservableGauge("gauntlet.db.pool.max_connections",
		metric.WithDescription("Configured maximum pool size"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(db.pool.Stat().MaxConns()))
			return nil
		}),
	)
}
