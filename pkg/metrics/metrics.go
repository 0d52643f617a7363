// Package metrics collects dispatcher counters and publishes periodic
// snapshots to Redis, where the API and dashboards read them back.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for process snapshots.
	KeyPrefix = "metrics:"
	// SnapshotTTL is how long a snapshot stays in Redis if not refreshed.
	SnapshotTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval between snapshot writes.
	DefaultReportInterval = 30 * time.Second
)

// Process names the dispatcher reports under.
const (
	ServiceAPI    = "trigger-dispatcher-api"
	ServiceWorker = "trigger-dispatcher-worker"
)

// ServiceNames lists the processes the API reports on.
var ServiceNames = []string{ServiceAPI, ServiceWorker}

// ErrNoSnapshot is returned when a process has never reported or its
// snapshot expired.
var ErrNoSnapshot = errors.New("no metrics snapshot")

// Snapshot is the point-in-time view of one process.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`

	EventsReceived   uint64 `json:"events_received"`
	EventsProcessed  uint64 `json:"events_processed"`
	JobsPublished    uint64 `json:"jobs_published"`
	ProcessingErrors uint64 `json:"processing_errors"`

	EventsPerSecond        float64 `json:"events_per_second"`
	AvgProcessingLatencyNs float64 `json:"avg_processing_latency_ns"`

	Counters map[string]uint64 `json:"counters,omitempty"`
}

// Collector accumulates counters for one process. All Record methods are
// safe for concurrent use.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	received  atomic.Uint64
	processed atomic.Uint64
	published atomic.Uint64
	errors    atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	rateMu        sync.Mutex
	lastReport    time.Time
	lastProcessed uint64

	countersMu sync.RWMutex
	counters   map[string]*atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a collector. A nil client keeps counters in memory only.
func NewCollector(serviceName string, client *redis.Client) *Collector {
	now := time.Now().UTC()
	return &Collector{
		serviceName:    serviceName,
		redis:          client,
		startedAt:      now,
		reportInterval: DefaultReportInterval,
		lastReport:     now,
		counters:       make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval changes the snapshot interval. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	if interval > 0 {
		c.reportInterval = interval
	}
}

// Start writes a snapshot every report interval until ctx ends or Stop is
// called; a final snapshot is written on the way out.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background())
				return
			case <-c.stopCh:
				c.write(context.Background())
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop ends reporting and waits for the final write.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// RecordReceived counts an inbound event.
func (c *Collector) RecordReceived() { c.received.Add(1) }

// RecordProcessed counts a fully handled event and its latency.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.processed.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordPublished counts a job handed to the queue.
func (c *Collector) RecordPublished() { c.published.Add(1) }

// RecordError counts a processing error.
func (c *Collector) RecordError() { c.errors.Add(1) }

// IncrementCustom increments a named counter.
func (c *Collector) IncrementCustom(name string) { c.AddCustom(name, 1) }

// AddCustom adds value to a named counter, creating it on first use.
func (c *Collector) AddCustom(name string, value uint64) {
	c.countersMu.RLock()
	counter, ok := c.counters[name]
	c.countersMu.RUnlock()

	if !ok {
		c.countersMu.Lock()
		if counter, ok = c.counters[name]; !ok {
			counter = &atomic.Uint64{}
			c.counters[name] = counter
		}
		c.countersMu.Unlock()
	}
	counter.Add(value)
}

// Custom returns the current value of a named counter.
func (c *Collector) Custom(name string) uint64 {
	c.countersMu.RLock()
	defer c.countersMu.RUnlock()
	if counter, ok := c.counters[name]; ok {
		return counter.Load()
	}
	return 0
}

// Snapshot returns the current counters without writing them anywhere.
// The rate covers the time since the last written snapshot.
func (c *Collector) Snapshot() *Snapshot {
	now := time.Now().UTC()
	processed := c.processed.Load()

	c.rateMu.Lock()
	elapsed := now.Sub(c.lastReport).Seconds()
	sinceLast := processed - c.lastProcessed
	c.rateMu.Unlock()

	var rate float64
	if elapsed > 0 {
		rate = float64(sinceLast) / elapsed
	}

	var avgLatency float64
	if n := c.latencyCount.Load(); n > 0 {
		avgLatency = float64(c.totalLatencyNs.Load()) / float64(n)
	}

	c.countersMu.RLock()
	counters := make(map[string]uint64, len(c.counters))
	for name, counter := range c.counters {
		counters[name] = counter.Load()
	}
	c.countersMu.RUnlock()

	return &Snapshot{
		ServiceName:            c.serviceName,
		StartedAt:              c.startedAt,
		LastUpdated:            now,
		Status:                 "healthy",
		EventsReceived:         c.received.Load(),
		EventsProcessed:        processed,
		JobsPublished:          c.published.Load(),
		ProcessingErrors:       c.errors.Load(),
		EventsPerSecond:        rate,
		AvgProcessingLatencyNs: avgLatency,
		Counters:               counters,
	}
}

func (c *Collector) write(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snap := c.Snapshot()

	c.rateMu.Lock()
	c.lastReport = snap.LastUpdated
	c.lastProcessed = snap.EventsProcessed
	c.rateMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := KeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, SnapshotTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}

// Reader reads snapshots back from Redis.
type Reader struct {
	redis *redis.Client
}

// NewReader creates a snapshot reader.
func NewReader(client *redis.Client) *Reader {
	return &Reader{redis: client}
}

// Get returns the latest snapshot of a process. Snapshots older than
// SnapshotTTL are reported as unhealthy.
func (r *Reader) Get(ctx context.Context, serviceName string) (*Snapshot, error) {
	data, err := r.redis.Get(ctx, KeyPrefix+serviceName).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w for service %s", ErrNoSnapshot, serviceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if time.Since(snap.LastUpdated) > SnapshotTTL {
		snap.Status = "unhealthy"
	}
	return &snap, nil
}

// All returns the snapshots of every known process that has reported.
func (r *Reader) All(ctx context.Context) map[string]*Snapshot {
	out := make(map[string]*Snapshot, len(ServiceNames))
	for _, name := range ServiceNames {
		snap, err := r.Get(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrNoSnapshot) {
				slog.Warn("Failed to read metrics for service", "service", name, "error", err)
			}
			continue
		}
		out[name] = snap
	}
	return out
}
