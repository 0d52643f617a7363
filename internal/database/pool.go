package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// Claim atomically flips the lowest unused (code, key) record to used.
// Concurrent claimers skip rows another transaction is holding, so no two
// callers receive the same record.
func (db *DB) Claim(ctx context.Context, code, key string) (domain.ConsumableValue, bool, error) {
	query := `
		UPDATE consumable_values
		SET is_used = TRUE, updated_at = NOW()
		WHERE id = (
			SELECT id FROM consumable_values
			WHERE code = $1 AND key = $2 AND is_used = FALSE
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND is_used = FALSE
		RETURNING id, code, key, value, is_used, updated_at
	`
	var (
		v  domain.ConsumableValue
		id int64
	)
	err := db.conn.QueryRowContext(ctx, query, code, key).Scan(
		&id,
		&v.Code,
		&v.Key,
		&v.Value,
		&v.IsUsed,
		&v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ConsumableValue{}, false, nil
	}
	if err != nil {
		return domain.ConsumableValue{}, false, fmt.Errorf("failed to claim consumable value: %w", err)
	}
	v.ID = strconv.FormatInt(id, 10)
	return v, true, nil
}

// Release sets the used flag on the listed records.
func (db *DB) Release(ctx context.Context, ids []string, used bool) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid consumable value id %q: %w", id, err)
		}
		keys = append(keys, n)
	}

	query := `
		UPDATE consumable_values
		SET is_used = $1, updated_at = NOW()
		WHERE id = ANY($2)
	`
	if _, err := db.conn.ExecContext(ctx, query, used, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to release consumable values: %w", err)
	}
	return nil
}

// AddConsumableValue inserts an unused pool value and returns its id.
func (db *DB) AddConsumableValue(ctx context.Context, code, key, value string) (string, error) {
	query := `
		INSERT INTO consumable_values (code, key, value)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := db.conn.QueryRowContext(ctx, query, code, key, value).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert consumable value: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
