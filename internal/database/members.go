package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// ChatIDs maps member ids to their chat user ids. Members without a chat id
// are left out.
func (db *DB) ChatIDs(ctx context.Context, memberIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT id, chat_id
		FROM members
		WHERE id = ANY($1) AND chat_id IS NOT NULL AND chat_id <> ''
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(memberIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query member chat ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, chatID string
		if err := rows.Scan(&id, &chatID); err != nil {
			return nil, fmt.Errorf("failed to scan member chat id: %w", err)
		}
		out[id] = chatID
	}
	return out, rows.Err()
}

// GroupMembers returns every member of a group.
func (db *DB) GroupMembers(ctx context.Context, groupID string) ([]domain.Member, error) {
	query := `
		SELECT m.id, m.chat_id, m.phone
		FROM group_members gm
		JOIN members m ON m.id = gm.member_id
		WHERE gm.group_id = $1
		ORDER BY m.id
	`
	rows, err := db.conn.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var (
			m             domain.Member
			chatID, phone sql.NullString
		)
		if err := rows.Scan(&m.ID, &chatID, &phone); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		m.ChatID = chatID.String
		m.Phone = phone.String
		members = append(members, m)
	}
	return members, rows.Err()
}
