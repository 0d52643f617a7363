// Package jobs carries per-recipient dispatch work from the orchestrator to
// the channel senders, either through an in-process worker pool or a Kafka
// topic consumed by worker processes.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// Template is the channel-specific content a job renders. Fields a channel
// does not use stay empty.
type Template struct {
	// SMS aggregator template code.
	Code        string `json:"code,omitempty"`
	RoutingHint string `json:"routing_hint,omitempty"`
	Method      string `json:"method,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	// Headers is a JSON object text, as stored.
	Headers string `json:"headers,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Job is one delivery to one recipient. Claims lists the pool records whose
// values were resolved into Params; the job owns them until it finishes.
type Job struct {
	ID          string             `json:"id"`
	RuleID      string             `json:"rule_id"`
	EventName   string             `json:"event_name"`
	ChannelType domain.ChannelType `json:"channel_type"`
	Recipient   string             `json:"recipient"`
	Params      map[string]string  `json:"params"`
	Claims      []string           `json:"claims,omitempty"`
	Template    Template           `json:"template"`
	CreatedAt   time.Time          `json:"created_at"`
}

// New creates a job with a fresh id.
func New(rule domain.TriggerRule, recipient string, params map[string]string, claims []string, tmpl Template) *Job {
	return &Job{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		EventName:   rule.EventName,
		ChannelType: rule.ChannelType,
		Recipient:   recipient,
		Params:      params,
		Claims:      claims,
		Template:    tmpl,
		CreatedAt:   time.Now().UTC(),
	}
}

// Encode serializes a job for the wire.
func Encode(job *Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return data, nil
}

// Decode parses a job from the wire.
func Decode(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("job has no id")
	}
	return &job, nil
}

// Queue accepts jobs for asynchronous execution. Enqueue returning nil
// transfers ownership of the job's claims to the queue.
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
}

// Handler executes one job.
type Handler interface {
	Dispatch(ctx context.Context, job *Job)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *Job)

// Dispatch calls f.
func (f HandlerFunc) Dispatch(ctx context.Context, job *Job) { f(ctx, job) }
