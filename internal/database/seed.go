package database

import (
	"context"
	"fmt"
	"log/slog"
)

// SeedResult counts the rows SeedDemo inserted. Rows that already existed are
// not counted.
type SeedResult struct {
	Rules      int64
	Templates  int64
	Members    int64
	PoolValues int64
}

type seedRow struct {
	kind  string
	query string
	args  []any
}

// demoRows is a small club setup: an SMS receipt for large paid orders, a chat
// welcome for approved members and a webhook for every paid order.
var demoRows = []seedRow{
	{"template", `INSERT INTO content_templates (id, body) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		[]any{"content-welcome", `{"text":"Welcome {name}! Your voucher: {voucher}"}`}},
	{"template", `INSERT INTO chat_templates (id, template_id, param_mapping) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		[]any{"chat-welcome", "content-welcome", `[{"paramName":"name","sourceKey":"member.name","defaultValue":"member"},{"paramName":"voucher","sourceKey":"VOUCHER.WELCOME","defaultValue":"none"}]`}},
	{"template", `INSERT INTO sms_templates (id, template_code, routing_hint, body, param_mapping) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		[]any{"sms-order-paid", "ORDER_PAID", "CLUB", "Order {orderId} paid: {amount} VND", `[{"paramName":"orderId","sourceKey":"orderId","defaultValue":""},{"paramName":"amount","sourceKey":"amount","defaultValue":0}]`}},
	{"template", `INSERT INTO http_templates (id, method, endpoint, headers, body, param_mapping) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		[]any{"http-order-paid", "POST", "http://localhost:9000/hooks/orders/{orderId}", `{"Content-Type":"application/json"}`, `{"order":"{orderId}","amount":"{amount}"}`, `[{"paramName":"orderId","sourceKey":"orderId","defaultValue":""}]`}},
	{"rule", `INSERT INTO trigger_rules (id, event_name, channel_type, template_ref_id, condition, recipient_spec, processing_steps) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		[]any{"rule-order-paid-sms", "OrderPaid", 2, "sms-order-paid", "amount >= 100000", "phone", `[{"function":"formatNumeric","args":["amount"],"output":"amount"}]`}},
	{"rule", `INSERT INTO trigger_rules (id, event_name, channel_type, template_ref_id, condition, recipient_spec, processing_steps) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		[]any{"rule-member-welcome", "MemberApproved", 1, "chat-welcome", "", "trigger,group:admins", ""}},
	{"rule", `INSERT INTO trigger_rules (id, event_name, channel_type, template_ref_id, condition, recipient_spec, processing_steps) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		[]any{"rule-order-paid-hook", "OrderPaid", 3, "http-order-paid", "", "", `[{"function":"formatNumeric","args":["amount"],"output":"amount"}]`}},
	{"member", `INSERT INTO members (id, chat_id, phone) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		[]any{"admin-1", "chat-admin-1", "0901000001"}},
	{"member", `INSERT INTO group_members (group_id, member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		[]any{"admins", "admin-1"}},
}

// SeedDemo inserts the demo rules, templates and members plus vouchers unused
// WELCOME vouchers, all in one transaction.
func (db *DB) SeedDemo(ctx context.Context, vouchers int) (*SeedResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	res := &SeedResult{}
	for _, row := range demoRows {
		r, err := tx.ExecContext(ctx, row.query, row.args...)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s %v: %w", row.kind, row.args[0], err)
		}
		n, _ := r.RowsAffected()
		switch row.kind {
		case "rule":
			res.Rules += n
		case "template":
			res.Templates += n
		case "member":
			res.Members += n
		}
	}

	for i := 1; i <= vouchers; i++ {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO consumable_values (code, key, value) VALUES ($1, $2, $3)`,
			"VOUCHER", "WELCOME", fmt.Sprintf("WELCOME-%04d", i),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to seed voucher %d: %w", i, err)
		}
		res.PoolValues++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	slog.Info("Seeded demo data",
		"rules", res.Rules,
		"templates", res.Templates,
		"members", res.Members,
		"pool_values", res.PoolValues,
	)
	return res, nil
}
