// Package orchestrator turns an emitted event into dispatch jobs: it loads
// the event's rules, checks their conditions, maps parameters, resolves
// recipients and enqueues one job per recipient.
package orchestrator

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/condition"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/metrics"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/payload"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/pipeline"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/pool"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/recipients"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/resolver"
	sendpayload "github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/payload"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/trigger"
)

// Orchestrator emits events.
type Orchestrator struct {
	rules      *trigger.Resolver
	params     *resolver.Resolver
	recipients *recipients.Resolver
	queue      jobs.Queue
	pool       pool.Store
	metrics    metrics.Recorder
}

// New creates an orchestrator. The pool is used to roll back the claims of
// jobs that could not be enqueued. A nil recorder discards metrics.
func New(
	rules *trigger.Resolver,
	params *resolver.Resolver,
	recips *recipients.Resolver,
	queue jobs.Queue,
	p pool.Store,
	m metrics.Recorder,
) *Orchestrator {
	if m == nil {
		m = metrics.NewNoOp()
	}
	return &Orchestrator{
		rules:      rules,
		params:     params,
		recipients: recips,
		queue:      queue,
		pool:       p,
		metrics:    m,
	}
}

// EmitEvent dispatches eventName to every active rule whose condition holds
// for the payload and returns how many rules were dispatched. Jobs are
// enqueued, not delivered, by the time it returns. It never fails: problems
// are logged and the affected rule is skipped.
func (o *Orchestrator) EmitEvent(ctx context.Context, eventName string, actor domain.Actor, data any) int {
	start := time.Now()
	o.metrics.RecordReceived()

	tree := payload.Normalize(data)
	flattened := payload.Flatten(tree)

	rules, err := o.rules.Resolve(ctx, eventName)
	if err != nil {
		slog.Error("Failed to load trigger rules",
			"event_name", eventName,
			"error", err,
		)
		o.metrics.RecordError()
		return 0
	}
	if len(rules) == 0 {
		slog.Debug("No trigger rules for event", "event_name", eventName)
	}

	dispatched := 0
	for _, rr := range rules {
		if o.processRule(ctx, rr, tree, flattened, actor) {
			dispatched++
		}
	}

	o.metrics.RecordProcessed(time.Since(start))
	slog.Info("Event emitted",
		"event_name", eventName,
		"rules", len(rules),
		"dispatched", dispatched,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return dispatched
}

// processRule runs one rule and reports whether it reached dispatch.
func (o *Orchestrator) processRule(ctx context.Context, rr trigger.ResolvedRule, tree any, flattened map[string]string, actor domain.Actor) bool {
	rule := rr.Rule
	if !condition.Evaluate(rule.Condition, tree) {
		slog.Debug("Rule condition not met",
			"rule_id", rule.ID,
			"condition", rule.Condition,
		)
		o.metrics.RecordRuleSkipped()
		return false
	}
	if !rr.HasTemplate() {
		slog.Warn("Skipping matched rule without template",
			"rule_id", rule.ID,
			"channel_type", rule.ChannelType.String(),
			"template_ref_id", rule.TemplateRefID,
		)
		o.metrics.RecordRuleSkipped()
		return false
	}
	o.metrics.RecordRuleMatched()

	specs := rr.ParamMapping()
	tmpl := jobTemplate(rr)

	if rule.ChannelType == domain.ChannelGenericHTTP {
		res := o.params.Resolve(ctx, specs, flattened)
		values := maps.Clone(flattened)
		maps.Copy(values, res.Values)
		values = pipeline.Apply(rule.ProcessingSteps, values)

		endpoint := sendpayload.Fill(tmpl.Endpoint, values)
		o.enqueue(ctx, jobs.New(rule, endpoint, values, res.Claims, tmpl))
		return true
	}

	addrs := o.recipients.Resolve(ctx, rule.ChannelType, rule.RecipientSpec, flattened, actor)
	if len(addrs) == 0 {
		slog.Info("Rule matched but has no recipients",
			"rule_id", rule.ID,
			"recipient_spec", rule.RecipientSpec,
		)
		return true
	}

	var (
		values map[string]string
		claims []string
	)
	for i, addr := range addrs {
		// Pool values are single-use, so every recipient after the first
		// claims its own when the mapping draws from the pool.
		if i == 0 || len(claims) > 0 {
			res := o.params.Resolve(ctx, specs, flattened)
			values = pipeline.Apply(rule.ProcessingSteps, res.Values)
			claims = res.Claims
		}
		o.enqueue(ctx, jobs.New(rule, addr, maps.Clone(values), claims, tmpl))
	}

	slog.Debug("Rule dispatched",
		"rule_id", rule.ID,
		"channel_type", rule.ChannelType.String(),
		"recipients", len(addrs),
	)
	return true
}

func (o *Orchestrator) enqueue(ctx context.Context, job *jobs.Job) {
	if err := o.queue.Enqueue(ctx, job); err != nil {
		slog.Error("Failed to enqueue dispatch job",
			"job_id", job.ID,
			"rule_id", job.RuleID,
			"recipient", job.Recipient,
			"error", err,
		)
		o.metrics.RecordError()
		if len(job.Claims) > 0 && o.pool != nil {
			if err := o.pool.Release(context.WithoutCancel(ctx), job.Claims, false); err != nil {
				slog.Error("Failed to roll back pool values",
					"job_id", job.ID,
					"claims", job.Claims,
					"error", err,
				)
			}
		}
		return
	}
	o.metrics.RecordJobEnqueued()
}

// jobTemplate copies the channel content a job needs from the resolved rule.
func jobTemplate(rr trigger.ResolvedRule) jobs.Template {
	switch rr.Rule.ChannelType {
	case domain.ChannelChatTemplate:
		return jobs.Template{Body: rr.Content.Body}
	case domain.ChannelAggregatorSMS:
		return jobs.Template{
			Code:        rr.SMS.TemplateCode,
			RoutingHint: rr.SMS.RoutingHint,
			Body:        rr.SMS.Body,
		}
	case domain.ChannelGenericHTTP:
		return jobs.Template{
			Method:   rr.HTTP.Method,
			Endpoint: rr.HTTP.Endpoint,
			Headers:  rr.HTTP.Headers,
			Body:     rr.HTTP.Body,
		}
	default:
		return jobs.Template{}
	}
}
