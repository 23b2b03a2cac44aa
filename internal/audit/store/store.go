package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bmoreira/tesouraria/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListEntries(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	query := `
		SELECT id, action, reason, transaction_id, before_json, after_json, created_by, created_at
		FROM audit_logs
		WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", argIdx)

		args = append(args, *filter.Action)
		argIdx++
	}

	if filter.TransactionID != nil {
		query += fmt.Sprintf(" AND transaction_id = $%d", argIdx)

		args = append(args, *filter.TransactionID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry

	for rows.Next() {
		var e audit.Entry

		var actionStr string

		if err := rows.Scan(
			&e.ID, &actionStr, &e.Reason, &e.TransactionID,
			&e.Before, &e.After, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Action = audit.Action(actionStr)

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
