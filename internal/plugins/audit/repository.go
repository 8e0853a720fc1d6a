package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// AuditRepository defines persistence operations for audit entries.
type AuditRepository interface {
	// Log inserts a new audit entry.
	Log(ctx context.Context, entry *AuditEntry) error

	// ListRecent returns the newest entries up to limit, newest first.
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates an audit repository backed by MariaDB.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *AuditEntry) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, username, action, target_type, target_id, target_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Username, entry.Action, entry.TargetType, entry.TargetID, entry.TargetName,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, username, action, target_type, target_id, target_name, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action,
			&e.TargetType, &e.TargetID, &e.TargetName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, nil
}
