// Package metrics provides the dispatcher's metrics recording interface.
// It uses the null object pattern to avoid nil checks throughout the codebase.
package metrics

import "time"

// Recorder records dispatcher metrics.
type Recorder interface {
	// RecordReceived counts an emitted event.
	RecordReceived()

	// RecordProcessed records a fully evaluated event and its latency.
	RecordProcessed(latency time.Duration)

	// RecordError counts an event that could not be evaluated.
	RecordError()

	// RecordRuleMatched counts a rule that reached dispatch.
	RecordRuleMatched()

	// RecordRuleSkipped counts a rule skipped by its condition or a missing template.
	RecordRuleSkipped()

	// RecordJobEnqueued counts a per-recipient job handed to the queue.
	RecordJobEnqueued()

	RecordDeliverySent()
	RecordDeliveryFailed()

	// RecordDeliverySkipped counts a job dropped before any network call.
	RecordDeliverySkipped()
}

// NoOp discards all metrics. Use it when metrics collection is not configured.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordReceived()                 {}
func (n *NoOp) RecordProcessed(_ time.Duration) {}
func (n *NoOp) RecordError()                    {}
func (n *NoOp) RecordRuleMatched()              {}
func (n *NoOp) RecordRuleSkipped()              {}
func (n *NoOp) RecordJobEnqueued()              {}
func (n *NoOp) RecordDeliverySent()             {}
func (n *NoOp) RecordDeliveryFailed()           {}
func (n *NoOp) RecordDeliverySkipped()          {}

var _ Recorder = (*NoOp)(nil)
