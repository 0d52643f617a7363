package handlers

import (
	"context"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/intake"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

// EventEmitter runs an event synchronously.
type EventEmitter interface {
	EmitEvent(ctx context.Context, eventName string, actor domain.Actor, payload any) int
}

// EventPublisher queues an event for asynchronous intake.
type EventPublisher interface {
	Publish(ctx context.Context, event *intake.Event) error
}

// Repository defines the database operations the API exposes.
// This allows handlers to be tested without a real database.
type Repository interface {
	GetDeliveryLog(ctx context.Context, id string) (*domain.DeliveryLogEntry, error)
	ListDeliveryLogs(ctx context.Context, filter database.DeliveryLogFilter) (*database.DeliveryLogListResult, error)
	GetDeliveryStats(ctx context.Context) (*database.DeliveryStats, error)
	AddConsumableValue(ctx context.Context, code, key, value string) (string, error)
}

// MetricsReader reads process metrics snapshots.
type MetricsReader interface {
	Get(ctx context.Context, serviceName string) (*metrics.Snapshot, error)
	All(ctx context.Context) map[string]*metrics.Snapshot
}

var (
	_ Repository     = (*database.DB)(nil)
	_ EventPublisher = (*intake.Publisher)(nil)
	_ MetricsReader  = (*metrics.Reader)(nil)
)
