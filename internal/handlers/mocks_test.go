package handlers

import (
	"context"
	"errors"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/intake"
	"github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

type mockEmitter struct {
	name    string
	actor   domain.Actor
	payload any
	result  int
}

func (m *mockEmitter) EmitEvent(_ context.Context, name string, actor domain.Actor, payload any) int {
	m.name, m.actor, m.payload = name, actor, payload
	return m.result
}

type mockPublisher struct {
	events []*intake.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e *intake.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type mockRepository struct {
	logs       map[string]*domain.DeliveryLogEntry
	lastFilter database.DeliveryLogFilter
	listErr    error
	stats      *database.DeliveryStats
	nextID     string
	addErr     error
}

func (m *mockRepository) GetDeliveryLog(_ context.Context, id string) (*domain.DeliveryLogEntry, error) {
	if e, ok := m.logs[id]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockRepository) ListDeliveryLogs(_ context.Context, f database.DeliveryLogFilter) (*database.DeliveryLogListResult, error) {
	m.lastFilter = f
	if m.listErr != nil {
		return nil, m.listErr
	}
	res := &database.DeliveryLogListResult{Limit: f.Limit, Offset: f.Offset}
	for _, e := range m.logs {
		res.Logs = append(res.Logs, e)
	}
	res.Total = int64(len(res.Logs))
	return res, nil
}

func (m *mockRepository) GetDeliveryStats(context.Context) (*database.DeliveryStats, error) {
	if m.stats == nil {
		return nil, errors.New("stats unavailable")
	}
	return m.stats, nil
}

func (m *mockRepository) AddConsumableValue(_ context.Context, _, _, _ string) (string, error) {
	return m.nextID, m.addErr
}

type mockMetricsReader struct {
	snaps map[string]*metrics.Snapshot
}

func (m *mockMetricsReader) Get(_ context.Context, name string) (*metrics.Snapshot, error) {
	if s, ok := m.snaps[name]; ok {
		return s, nil
	}
	return nil, metrics.ErrNoSnapshot
}

func (m *mockMetricsReader) All(context.Context) map[string]*metrics.Snapshot {
	return m.snaps
}
