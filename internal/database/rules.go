package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// GetActiveRulesByEvent returns the active rules for an event in creation order.
func (db *DB) GetActiveRulesByEvent(ctx context.Context, eventName string) ([]domain.TriggerRule, error) {
	query := `
		SELECT id, event_name, channel_type, template_ref_id, condition, recipient_spec, processing_steps, is_active
		FROM trigger_rules
		WHERE event_name = $1 AND is_active = TRUE
		ORDER BY created_at, id
	`
	rows, err := db.conn.QueryContext(ctx, query, eventName)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.TriggerRule
	for rows.Next() {
		var r domain.TriggerRule
		if err := rows.Scan(
			&r.ID,
			&r.EventName,
			&r.ChannelType,
			&r.TemplateRefID,
			&r.Condition,
			&r.RecipientSpec,
			&r.ProcessingSteps,
			&r.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trigger rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trigger rules: %w", err)
	}
	return rules, nil
}

// GetChatTemplates bulk-loads chat templates by id.
func (db *DB) GetChatTemplates(ctx context.Context, ids []string) (map[string]domain.ChatTemplate, error) {
	query := `SELECT id, template_id, param_mapping FROM chat_templates WHERE id = ANY($1)`
	out := make(map[string]domain.ChatTemplate, len(ids))
	err := db.queryByIDs(ctx, query, ids, "chat templates", func(scan func(...any) error) error {
		var t domain.ChatTemplate
		if err := scan(&t.ID, &t.TemplateID, &t.ParamMapping); err != nil {
			return err
		}
		out[t.ID] = t
		return nil
	})
	return out, err
}

// GetContentTemplates bulk-loads message content templates by id.
func (db *DB) GetContentTemplates(ctx context.Context, ids []string) (map[string]domain.ContentTemplate, error) {
	query := `SELECT id, body FROM content_templates WHERE id = ANY($1)`
	out := make(map[string]domain.ContentTemplate, len(ids))
	err := db.queryByIDs(ctx, query, ids, "content templates", func(scan func(...any) error) error {
		var t domain.ContentTemplate
		if err := scan(&t.ID, &t.Body); err != nil {
			return err
		}
		out[t.ID] = t
		return nil
	})
	return out, err
}

// GetSMSTemplates bulk-loads SMS templates by id.
func (db *DB) GetSMSTemplates(ctx context.Context, ids []string) (map[string]domain.SMSTemplate, error) {
	query := `SELECT id, template_code, routing_hint, body, param_mapping FROM sms_templates WHERE id = ANY($1)`
	out := make(map[string]domain.SMSTemplate, len(ids))
	err := db.queryByIDs(ctx, query, ids, "sms templates", func(scan func(...any) error) error {
		var t domain.SMSTemplate
		if err := scan(&t.ID, &t.TemplateCode, &t.RoutingHint, &t.Body, &t.ParamMapping); err != nil {
			return err
		}
		out[t.ID] = t
		return nil
	})
	return out, err
}

// GetHTTPTemplates bulk-loads generic HTTP templates by id.
func (db *DB) GetHTTPTemplates(ctx context.Context, ids []string) (map[string]domain.HTTPTemplate, error) {
	query := `SELECT id, method, endpoint, headers, body, param_mapping FROM http_templates WHERE id = ANY($1)`
	out := make(map[string]domain.HTTPTemplate, len(ids))
	err := db.queryByIDs(ctx, query, ids, "http templates", func(scan func(...any) error) error {
		var t domain.HTTPTemplate
		if err := scan(&t.ID, &t.Method, &t.Endpoint, &t.Headers, &t.Body, &t.ParamMapping); err != nil {
			return err
		}
		out[t.ID] = t
		return nil
	})
	return out, err
}

// queryByIDs runs an "id = ANY($1)" query and hands each row to fn.
func (db *DB) queryByIDs(ctx context.Context, query string, ids []string, what string, fn func(scan func(...any) error) error) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows.Scan); err != nil {
			return fmt.Errorf("failed to scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate %s: %w", what, err)
	}
	return nil
}
