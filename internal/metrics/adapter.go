package metrics

import (
	"time"

	pkgmetrics "github.com/tienchinh21/BKASIM-TEST-sub006/pkg/metrics"
)

// Custom counter names written into the Redis snapshot.
const (
	CounterRulesMatched      = "rules_matched"
	CounterRulesSkipped      = "rules_skipped"
	CounterJobsEnqueued      = "jobs_enqueued"
	CounterDeliveriesSent    = "deliveries_sent"
	CounterDeliveriesFailed  = "deliveries_failed"
	CounterDeliveriesSkipped = "deliveries_skipped"
)

// CollectorAdapter adapts pkg/metrics.Collector to the Recorder interface.
type CollectorAdapter struct {
	collector *pkgmetrics.Collector
}

// NewCollectorAdapter wraps a collector to implement Recorder.
func NewCollectorAdapter(collector *pkgmetrics.Collector) *CollectorAdapter {
	return &CollectorAdapter{collector: collector}
}

func (a *CollectorAdapter) RecordReceived() {
	a.collector.RecordReceived()
}

func (a *CollectorAdapter) RecordProcessed(latency time.Duration) {
	a.collector.RecordProcessed(latency)
}

func (a *CollectorAdapter) RecordError() {
	a.collector.RecordError()
}

func (a *CollectorAdapter) RecordRuleMatched() {
	a.collector.IncrementCustom(CounterRulesMatched)
}

func (a *CollectorAdapter) RecordRuleSkipped() {
	a.collector.IncrementCustom(CounterRulesSkipped)
}

func (a *CollectorAdapter) RecordJobEnqueued() {
	a.collector.RecordPublished()
	a.collector.IncrementCustom(CounterJobsEnqueued)
}

func (a *CollectorAdapter) RecordDeliverySent() {
	a.collector.IncrementCustom(CounterDeliveriesSent)
}

func (a *CollectorAdapter) RecordDeliveryFailed() {
	a.collector.IncrementCustom(CounterDeliveriesFailed)
}

func (a *CollectorAdapter) RecordDeliverySkipped() {
	a.collector.IncrementCustom(CounterDeliveriesSkipped)
}

var _ Recorder = (*CollectorAdapter)(nil)
