// Package trigger loads the active rules for an event together with the
// channel templates they reference.
package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// Store is the persistence the resolver reads from. Bulk loaders return a
// map keyed by template id; ids that do not exist are simply absent.
type Store interface {
	GetActiveRulesByEvent(ctx context.Context, eventName string) ([]domain.TriggerRule, error)
	GetChatTemplates(ctx context.Context, ids []string) (map[string]domain.ChatTemplate, error)
	GetContentTemplates(ctx context.Context, ids []string) (map[string]domain.ContentTemplate, error)
	GetSMSTemplates(ctx context.Context, ids []string) (map[string]domain.SMSTemplate, error)
	GetHTTPTemplates(ctx context.Context, ids []string) (map[string]domain.HTTPTemplate, error)
}

// ResolvedRule is a rule with its template attached. Exactly one of the
// template pointers is set for a resolvable rule; all are nil otherwise.
type ResolvedRule struct {
	Rule    domain.TriggerRule
	Chat    *domain.ChatTemplate
	Content *domain.ContentTemplate
	SMS     *domain.SMSTemplate
	HTTP    *domain.HTTPTemplate
}

// HasTemplate reports whether the rule's template chain resolved completely.
func (r ResolvedRule) HasTemplate() bool {
	switch r.Rule.ChannelType {
	case domain.ChannelChatTemplate:
		return r.Chat != nil && r.Content != nil
	case domain.ChannelAggregatorSMS:
		return r.SMS != nil
	case domain.ChannelGenericHTTP:
		return r.HTTP != nil
	default:
		return false
	}
}

// ParamMapping returns the decoded parameter mapping of the attached template.
func (r ResolvedRule) ParamMapping() []domain.ParamSpec {
	switch {
	case r.Chat != nil:
		return domain.ParseParamMapping(r.Chat.ParamMapping)
	case r.SMS != nil:
		return domain.ParseParamMapping(r.SMS.ParamMapping)
	case r.HTTP != nil:
		return domain.ParseParamMapping(r.HTTP.ParamMapping)
	default:
		return nil
	}
}

// Resolver joins rules to templates.
type Resolver struct {
	store Store
}

// NewResolver creates a trigger resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the active rules for eventName, in store order, and attaches
// their templates. Each template kind is loaded with one bulk query. A failed
// template load leaves the affected rules without templates; only a failed
// rule load is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, eventName string) ([]ResolvedRule, error) {
	rules, err := r.store.GetActiveRulesByEvent(ctx, eventName)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for event %s: %w", eventName, err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	refs := make(map[domain.ChannelType][]string)
	for _, rule := range rules {
		if rule.TemplateRefID == "" {
			continue
		}
		refs[rule.ChannelType] = appendUnique(refs[rule.ChannelType], rule.TemplateRefID)
	}

	var (
		chats    map[string]domain.ChatTemplate
		contents map[string]domain.ContentTemplate
		smss     map[string]domain.SMSTemplate
		https    map[string]domain.HTTPTemplate
	)

	if ids := refs[domain.ChannelChatTemplate]; len(ids) > 0 {
		chats = loadOrWarn(ctx, "chat", ids, r.store.GetChatTemplates)

		var contentIDs []string
		for _, c := range chats {
			if c.TemplateID != "" {
				contentIDs = appendUnique(contentIDs, c.TemplateID)
			}
		}
		if len(contentIDs) > 0 {
			contents = loadOrWarn(ctx, "content", contentIDs, r.store.GetContentTemplates)
		}
	}
	if ids := refs[domain.ChannelAggregatorSMS]; len(ids) > 0 {
		smss = loadOrWarn(ctx, "sms", ids, r.store.GetSMSTemplates)
	}
	if ids := refs[domain.ChannelGenericHTTP]; len(ids) > 0 {
		https = loadOrWarn(ctx, "http", ids, r.store.GetHTTPTemplates)
	}

	resolved := make([]ResolvedRule, 0, len(rules))
	for _, rule := range rules {
		rr := ResolvedRule{Rule: rule}

		switch rule.ChannelType {
		case domain.ChannelChatTemplate:
			if c, ok := chats[rule.TemplateRefID]; ok {
				rr.Chat = &c
				if body, ok := contents[c.TemplateID]; ok {
					rr.Content = &body
				}
			}
		case domain.ChannelAggregatorSMS:
			if s, ok := smss[rule.TemplateRefID]; ok {
				rr.SMS = &s
			}
		case domain.ChannelGenericHTTP:
			if h, ok := https[rule.TemplateRefID]; ok {
				rr.HTTP = &h
			}
		}

		if !rr.HasTemplate() {
			slog.Warn("Trigger rule template not found",
				"rule_id", rule.ID,
				"event_name", eventName,
				"channel_type", rule.ChannelType.String(),
				"template_ref_id", rule.TemplateRefID,
			)
		}
		resolved = append(resolved, rr)
	}

	return resolved, nil
}

func loadOrWarn[T any](ctx context.Context, kind string, ids []string, load func(context.Context, []string) (map[string]T, error)) map[string]T {
	out, err := load(ctx, ids)
	if err != nil {
		slog.Warn("Failed to load templates", "kind", kind, "count", len(ids), "error", err)
		return nil
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
