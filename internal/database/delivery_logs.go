package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

const (
	// DefaultListLimit is used when a list request gives no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page.
	MaxListLimit = 500
)

// DeliveryLogFilter narrows a delivery log listing. Zero values match all.
type DeliveryLogFilter struct {
	Type      string
	RuleID    string
	Recipient string
	Success   *bool
	Limit     int
	Offset    int
}

// DeliveryLogListResult contains paginated delivery log results.
type DeliveryLogListResult struct {
	Logs   []*domain.DeliveryLogEntry `json:"logs"`
	Total  int64                      `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

// DeliveryStats aggregates the delivery log.
type DeliveryStats struct {
	Total       int64            `json:"total"`
	Succeeded   int64            `json:"succeeded"`
	Failed      int64            `json:"failed"`
	ByType      map[string]int64 `json:"by_type"`
	LastHour    int64            `json:"last_hour"`
	Last24h     int64            `json:"last_24h"`
	CollectedAt time.Time        `json:"collected_at"`
}

// InsertDeliveryLog appends one delivery attempt.
func (db *DB) InsertDeliveryLog(ctx context.Context, entry *domain.DeliveryLogEntry) error {
	query := `
		INSERT INTO delivery_logs (
			id, channel_type, type, rule_id, event_name, recipient,
			request_body, response_body, result_code, success, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::jsonb, $12)
	`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, query,
		entry.ID,
		int(entry.ChannelType),
		entry.Type,
		entry.RuleID,
		entry.EventName,
		entry.Recipient,
		entry.RequestBody,
		entry.ResponseBody,
		entry.ResultCode,
		entry.Success,
		entry.Metadata,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

const deliveryLogColumns = `id, channel_type, type, rule_id, event_name, recipient,
	request_body, response_body, result_code, success, COALESCE(metadata::text, ''), created_at`

func scanDeliveryLog(scan func(...any) error) (*domain.DeliveryLogEntry, error) {
	var (
		e       domain.DeliveryLogEntry
		channel int
	)
	if err := scan(
		&e.ID,
		&channel,
		&e.Type,
		&e.RuleID,
		&e.EventName,
		&e.Recipient,
		&e.RequestBody,
		&e.ResponseBody,
		&e.ResultCode,
		&e.Success,
		&e.Metadata,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.ChannelType = domain.ChannelType(channel)
	return &e, nil
}

// GetDeliveryLog retrieves one delivery log entry.
func (db *DB) GetDeliveryLog(ctx context.Context, id string) (*domain.DeliveryLogEntry, error) {
	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs WHERE id = $1`

	e, err := scanDeliveryLog(db.conn.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery log %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery log: %w", err)
	}
	return e, nil
}

// ListDeliveryLogs returns the newest entries matching filter.
func (db *DB) ListDeliveryLogs(ctx context.Context, filter DeliveryLogFilter) (*DeliveryLogListResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.RuleID != "" {
		add("rule_id = $%d", filter.RuleID)
	}
	if filter.Recipient != "" {
		add("recipient = $%d", filter.Recipient)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM delivery_logs` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count delivery logs: %w", err)
	}

	query := `SELECT ` + deliveryLogColumns + ` FROM delivery_logs` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.DeliveryLogEntry, 0)
	for rows.Next() {
		e, err := scanDeliveryLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}

	return &DeliveryLogListResult{
		Logs:   logs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetDeliveryStats aggregates delivery outcomes.
func (db *DB) GetDeliveryStats(ctx context.Context) (*DeliveryStats, error) {
	stats := &DeliveryStats{
		ByType:      make(map[string]int64),
		CollectedAt: time.Now().UTC(),
	}

	typeQuery := `
		SELECT type, success, COUNT(*)
		FROM delivery_logs
		GROUP BY type, success
	`
	rows, err := db.conn.QueryContext(ctx, typeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ     string
			success bool
			count   int64
		)
		if err := rows.Scan(&typ, &success, &count); err != nil {
			return nil, fmt.Errorf("failed to scan delivery count: %w", err)
		}
		stats.ByType[typ] += count
		stats.Total += count
		if success {
			stats.Succeeded += count
		} else {
			stats.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery counts: %w", err)
	}

	recentQuery := `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '1 hour'),
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '24 hours')
		FROM delivery_logs
	`
	if err := db.conn.QueryRowContext(ctx, recentQuery).Scan(&stats.LastHour, &stats.Last24h); err != nil {
		return nil, fmt.Errorf("failed to query recent deliveries: %w", err)
	}

	return stats, nil
}
