package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/audit"
	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.transaction_date, t.amount, t.type, t.module, t.status, t.review,
	t.account_id, t.source_account_id, t.destination_account_id, t.merchant_id,
	t.description, t.notes, t.created_by, t.parent_transaction_id,
	t.created_at, t.updated_at
`

func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var typeStr, moduleStr, statusStr, reviewStr string

	var notes sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.Date, &tx.Amount, &typeStr, &moduleStr, &statusStr, &reviewStr,
		&tx.AccountID, &tx.SourceAccountID, &tx.DestinationAccountID, &tx.MerchantID,
		&tx.Description, &notes, &tx.CreatedBy, &tx.ParentID,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = ledger.Type(typeStr)
	tx.Module = ledger.Module(moduleStr)
	tx.Status = ledger.Status(statusStr)
	tx.Review = ledger.Review(reviewStr)
	tx.Notes = notes.String

	return &tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *ledger.Transaction, deltas []ledger.BalanceDelta, log *audit.Entry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO transactions (
			transaction_date, amount, type, module, status, review,
			account_id, source_account_id, destination_account_id, merchant_id,
			description, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		tx.Date, tx.Amount, tx.Type, tx.Module, tx.Status, tx.Review,
		tx.AccountID, tx.SourceAccountID, tx.DestinationAccountID, tx.MerchantID,
		tx.Description, tx.Notes, tx.CreatedBy,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	if err := applyDeltas(ctx, dbTx, deltas, true); err != nil {
		return err
	}

	log.TransactionID = &tx.ID
	if err := insertAudit(ctx, dbTx, log); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE t.id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Review != nil {
		query += fmt.Sprintf(" AND t.review = $%d", argIdx)

		args = append(args, *filter.Review)
		argIdx++
	}

	if filter.Module != nil {
		query += fmt.Sprintf(" AND t.module = $%d", argIdx)

		args = append(args, *filter.Module)
		argIdx++
	}

	if filter.AccountID != nil {
		query += fmt.Sprintf(
			" AND (t.account_id = $%d OR t.source_account_id = $%d OR t.destination_account_id = $%d)",
			argIdx, argIdx, argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.transaction_date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.transaction_date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	// Most recent first, matching the ledger display order.
	query += " ORDER BY t.transaction_date DESC, t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

func (s *Store) VoidTransaction(ctx context.Context, id uuid.UUID, deltas []ledger.BalanceDelta, log *audit.Entry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	// The status predicate makes the flip race-safe: a concurrent void loses
	// here and reports the conflict instead of double-reversing balances.
	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, ledger.StatusVoided, id, ledger.StatusPosted)
	if err != nil {
		return fmt.Errorf("voiding transaction: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrAlreadyVoided
	}

	if err := applyDeltas(ctx, dbTx, deltas, false); err != nil {
		return err
	}

	if err := insertAudit(ctx, dbTx, log); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing void: %w", err)
	}

	return nil
}

func (s *Store) UpdateReview(ctx context.Context, id uuid.UUID, review ledger.Review) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET review = $1, updated_at = NOW()
		WHERE id = $2
	`, review, id)
	if err != nil {
		return fmt.Errorf("updating review: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (s *Store) UpdateDetails(ctx context.Context, tx *ledger.Transaction, log *audit.Entry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET description = $1, notes = $2, updated_at = NOW()
		WHERE id = $3
	`, tx.Description, tx.Notes, tx.ID)
	if err != nil {
		return fmt.Errorf("updating transaction details: %w", err)
	}

	if err := insertAudit(ctx, dbTx, log); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}

	return nil
}

// applyDeltas issues one relative UPDATE per delta. Relative updates keep
// concurrent writers on the same account from losing increments.
func applyDeltas(ctx context.Context, dbTx *sql.Tx, deltas []ledger.BalanceDelta, requireActive bool) error {
	// Postings demand an active target; reversals skip the predicate so a
	// transaction stays voidable after its account is deactivated. The target
	// row itself exists, the foreign keys on transactions guarantee that.
	predicate := ""
	if requireActive {
		predicate = " AND active"
	}

	for _, d := range deltas {
		switch {
		case d.AccountID != nil:
			res, err := dbTx.ExecContext(ctx,
				`UPDATE accounts SET balance = balance + $1 WHERE id = $2`+predicate,
				d.Amount, *d.AccountID)
			if err != nil {
				return fmt.Errorf("updating account balance: %w", err)
			}

			if n, _ := res.RowsAffected(); requireActive && n == 0 {
				return directory.ErrInactive
			}
		case d.MerchantID != nil:
			res, err := dbTx.ExecContext(ctx,
				`UPDATE merchants SET balance = balance + $1 WHERE id = $2`+predicate,
				d.Amount, *d.MerchantID)
			if err != nil {
				return fmt.Errorf("updating merchant balance: %w", err)
			}

			if n, _ := res.RowsAffected(); requireActive && n == 0 {
				return directory.ErrInactive
			}
		}
	}

	return nil
}

func insertAudit(ctx context.Context, dbTx *sql.Tx, log *audit.Entry) error {
	query := `
		INSERT INTO audit_logs (action, reason, transaction_id, before_json, after_json, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := dbTx.QueryRowContext(ctx, query,
		log.Action, log.Reason, log.TransactionID, log.Before, log.After, log.CreatedBy,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}

	return nil
}
