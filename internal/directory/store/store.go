package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/directory"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateEntity(ctx context.Context, e *directory.Entity) error {
	query := `
		INSERT INTO entities (name, type, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, e.Name, e.Type).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating entity: %w", err)
	}

	return nil
}

func (s *Store) ListEntities(ctx context.Context) ([]*directory.Entity, error) {
	query := `SELECT id, name, type, created_at FROM entities ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var entities []*directory.Entity

	for rows.Next() {
		var e directory.Entity

		var typeStr string

		if err := rows.Scan(&e.ID, &e.Name, &typeStr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}

		e.Type = directory.EntityType(typeStr)

		entities = append(entities, &e)
	}

	return entities, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a *directory.Account) error {
	query := `
		INSERT INTO accounts (entity_id, name, kind, account_number, balance, active, created_at)
		VALUES ($1, $2, $3, $4, 0, TRUE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, a.EntityID, a.Name, a.Kind, a.Number).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*directory.Account, error) {
	query := `
		SELECT id, entity_id, name, kind, account_number, balance, active, created_at
		FROM accounts
		WHERE id = $1
	`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, directory.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, entityID *uuid.UUID) ([]*directory.Account, error) {
	query := `
		SELECT id, entity_id, name, kind, account_number, balance, active, created_at
		FROM accounts
	`

	var args []any

	if entityID != nil {
		query += " WHERE entity_id = $1"

		args = append(args, *entityID)
	}

	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*directory.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func (s *Store) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}

	return nil
}

func (s *Store) CreateMerchant(ctx context.Context, m *directory.Merchant) error {
	query := `
		INSERT INTO merchants (entity_id, name, balance, active, created_at)
		VALUES ($1, $2, 0, TRUE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, m.EntityID, m.Name).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating merchant: %w", err)
	}

	return nil
}

func (s *Store) GetMerchant(ctx context.Context, id uuid.UUID) (*directory.Merchant, error) {
	query := `
		SELECT id, entity_id, name, balance, active, created_at
		FROM merchants
		WHERE id = $1
	`

	var m directory.Merchant

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&m.ID, &m.EntityID, &m.Name, &m.Balance, &m.Active, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, directory.ErrNotFound
		}

		return nil, fmt.Errorf("getting merchant: %w", err)
	}

	return &m, nil
}

func (s *Store) ListMerchants(ctx context.Context, entityID *uuid.UUID) ([]*directory.Merchant, error) {
	query := `SELECT id, entity_id, name, balance, active, created_at FROM merchants`

	var args []any

	if entityID != nil {
		query += " WHERE entity_id = $1"

		args = append(args, *entityID)
	}

	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}
	defer rows.Close()

	var merchants []*directory.Merchant

	for rows.Next() {
		var m directory.Merchant

		if err := rows.Scan(&m.ID, &m.EntityID, &m.Name, &m.Balance, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning merchant: %w", err)
		}

		merchants = append(merchants, &m)
	}

	return merchants, rows.Err()
}

func (s *Store) DeactivateMerchant(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE merchants SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating merchant: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrNotFound
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*directory.Account, error) {
	var a directory.Account

	var kindStr string

	var number sql.NullString

	if err := s.Scan(&a.ID, &a.EntityID, &a.Name, &kindStr, &number, &a.Balance, &a.Active, &a.CreatedAt); err != nil {
		return nil, err
	}

	a.Kind = directory.AccountKind(kindStr)
	a.Number = number.String

	return &a, nil
}
