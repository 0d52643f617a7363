// Package sender executes dispatch jobs: it routes each job to its channel,
// finalizes the pool values the job claimed and writes the delivery log.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/metrics"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/pool"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/strategy"
)

// LogWriter appends delivery log entries.
type LogWriter interface {
	InsertDeliveryLog(ctx context.Context, entry *domain.DeliveryLogEntry) error
}

// Sender coordinates job execution across channels.
type Sender struct {
	registry *strategy.Registry
	pool     pool.Store
	logs     LogWriter
	metrics  metrics.Recorder
}

// NewSender creates a sender. A nil recorder discards metrics.
func NewSender(registry *strategy.Registry, p pool.Store, logs LogWriter, m metrics.Recorder) *Sender {
	if m == nil {
		m = metrics.NewNoOp()
	}
	return &Sender{
		registry: registry,
		pool:     p,
		logs:     logs,
		metrics:  m,
	}
}

// Dispatch sends one job. It never returns an error: the outcome is recorded
// in the delivery log. Claims are marked used on success and rolled back
// otherwise. A channel that is not registered or has no credentials makes no
// call and writes no log entry.
func (s *Sender) Dispatch(ctx context.Context, job *jobs.Job) {
	// Finalization must survive cancellation of the job's context.
	finalCtx := context.WithoutCancel(ctx)

	ch, ok := s.registry.Get(job.ChannelType)
	if !ok {
		slog.Warn("No channel registered for job, skipping",
			"job_id", job.ID,
			"rule_id", job.RuleID,
			"channel_type", job.ChannelType.String(),
		)
		s.release(finalCtx, job, false)
		s.metrics.RecordDeliverySkipped()
		return
	}

	res, err := send(ctx, ch, job)
	if errors.Is(err, strategy.ErrMissingCredentials) {
		slog.Warn("Channel credentials missing, skipping send",
			"job_id", job.ID,
			"rule_id", job.RuleID,
			"channel_type", job.ChannelType.String(),
			"error", err,
		)
		s.release(finalCtx, job, false)
		s.metrics.RecordDeliverySkipped()
		return
	}

	if res == nil {
		res = &strategy.Result{}
	}
	success := err == nil && res.Success
	s.release(finalCtx, job, success)

	entry := &domain.DeliveryLogEntry{
		ID:           uuid.NewString(),
		ChannelType:  job.ChannelType,
		Type:         job.ChannelType.String(),
		RuleID:       job.RuleID,
		EventName:    job.EventName,
		Recipient:    job.Recipient,
		RequestBody:  res.RequestBody,
		ResponseBody: res.ResponseBody,
		ResultCode:   res.ResultCode,
		Success:      success,
		Metadata:     metadata(job, res, err),
		CreatedAt:    time.Now().UTC(),
	}
	if err != nil && entry.ResponseBody == "" {
		entry.ResponseBody = err.Error()
	}

	if s.logs != nil {
		if logErr := s.logs.InsertDeliveryLog(finalCtx, entry); logErr != nil {
			slog.Error("Failed to write delivery log",
				"job_id", job.ID,
				"rule_id", job.RuleID,
				"error", logErr,
			)
		}
	}

	if success {
		s.metrics.RecordDeliverySent()
		return
	}
	s.metrics.RecordDeliveryFailed()
	slog.Warn("Delivery failed",
		"job_id", job.ID,
		"rule_id", job.RuleID,
		"channel_type", job.ChannelType.String(),
		"recipient", job.Recipient,
		"result_code", res.ResultCode,
		"error", err,
	)
}

// send calls the channel, turning a panic into a failed attempt so the job's
// claims are rolled back and the attempt is logged.
func send(ctx context.Context, ch strategy.Channel, job *jobs.Job) (res *strategy.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Channel panicked during send",
				"job_id", job.ID,
				"channel_type", job.ChannelType.String(),
				"panic", r,
			)
			res, err = nil, fmt.Errorf("%s channel panicked: %v", job.ChannelType, r)
		}
	}()
	return ch.Send(ctx, job)
}

func (s *Sender) release(ctx context.Context, job *jobs.Job, used bool) {
	if len(job.Claims) == 0 || s.pool == nil {
		return
	}
	if err := s.pool.Release(ctx, job.Claims, used); err != nil {
		slog.Error("Failed to finalize pool values",
			"job_id", job.ID,
			"rule_id", job.RuleID,
			"claims", job.Claims,
			"used", used,
			"error", err,
		)
	}
}

func metadata(job *jobs.Job, res *strategy.Result, sendErr error) string {
	m := map[string]string{"job_id": job.ID}
	for k, v := range res.Metadata {
		m[k] = v
	}
	if sendErr != nil {
		m["error"] = sendErr.Error()
	}
	data, _ := json.Marshal(m)
	return string(data)
}

var _ jobs.Handler = (*Sender)(nil)
