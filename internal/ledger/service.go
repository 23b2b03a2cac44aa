package ledger

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/audit"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// CreateTransaction persists the transaction, applies every delta as a
	// relative balance update and appends the audit entry, all in one
	// database transaction.
	CreateTransaction(ctx context.Context, tx *Transaction, deltas []BalanceDelta, log *audit.Entry) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// VoidTransaction flips status to voided, applies the reversing deltas
	// and appends the audit entry atomically. It must fail with
	// ErrAlreadyVoided when the row is no longer posted.
	VoidTransaction(ctx context.Context, id uuid.UUID, deltas []BalanceDelta, log *audit.Entry) error
	UpdateReview(ctx context.Context, id uuid.UUID, review Review) error
	UpdateDetails(ctx context.Context, tx *Transaction, log *audit.Entry) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Date                 time.Time
	Amount               int64
	Type                 Type
	Module               Module
	AccountID            *uuid.UUID
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	MerchantID           *uuid.UUID
	Description          string
	Notes                string
	Review               Review
	CreatedBy            string
}

func (p CreateParams) validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidTransaction, p.Amount)
	}

	if !p.Module.Valid() {
		return fmt.Errorf("%w: unknown module %q", ErrInvalidTransaction, p.Module)
	}

	hasTransferPair := p.SourceAccountID != nil || p.DestinationAccountID != nil

	switch {
	case hasTransferPair:
		if p.SourceAccountID == nil || p.DestinationAccountID == nil {
			return fmt.Errorf("%w: transfer requires both source and destination accounts", ErrInvalidTransaction)
		}

		if *p.SourceAccountID == *p.DestinationAccountID {
			return fmt.Errorf("%w: transfer source and destination must differ", ErrInvalidTransaction)
		}

		if p.AccountID != nil {
			return ErrAmbiguousAddressing
		}

		if p.MerchantID != nil {
			return fmt.Errorf("%w: transfer cannot reference a merchant", ErrInvalidTransaction)
		}
	case p.AccountID != nil:
		if !p.Type.Valid() {
			return fmt.Errorf("%w: bad type %q", ErrInvalidTransaction, p.Type)
		}
	default:
		return fmt.Errorf("%w: must reference an account or a source/destination pair", ErrInvalidTransaction)
	}

	if p.Module.RequiresMerchant() && p.MerchantID == nil {
		return fmt.Errorf("%w: module %s requires a merchant", ErrInvalidTransaction, p.Module)
	}

	return nil
}

// Create validates the payload, derives the balance deltas and persists
// everything atomically. Validation failures leave no partial state behind.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	review := params.Review
	if review == "" {
		review = ReviewValidated
	}

	txType := params.Type
	if params.SourceAccountID != nil {
		txType = TypeTransfer
	}

	tx := &Transaction{
		Date:                 params.Date,
		Amount:               params.Amount,
		Type:                 txType,
		Module:               params.Module,
		Status:               StatusPosted,
		Review:               review,
		AccountID:            params.AccountID,
		SourceAccountID:      params.SourceAccountID,
		DestinationAccountID: params.DestinationAccountID,
		MerchantID:           params.MerchantID,
		Description:          params.Description,
		Notes:                params.Notes,
		CreatedBy:            params.CreatedBy,
	}

	log := &audit.Entry{
		Action:    audit.ActionChange,
		After:     audit.Snapshot(tx),
		CreatedBy: params.CreatedBy,
	}

	if err := s.repo.CreateTransaction(ctx, tx, tx.Deltas(), log); err != nil {
		return nil, err
	}

	return tx, nil
}

// Void marks the transaction voided, reverses its balance impact and records
// the mandatory reason. Voiding a voided transaction is rejected.
func (s *Service) Void(ctx context.Context, id uuid.UUID, reason, voidedBy string) error {
	if utf8.RuneCountInString(reason) < 3 {
		return ErrReasonTooShort
	}

	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if tx.Status == StatusVoided {
		return ErrAlreadyVoided
	}

	log := &audit.Entry{
		Action:        audit.ActionVoid,
		Reason:        reason,
		TransactionID: &tx.ID,
		Before:        audit.Snapshot(tx),
		CreatedBy:     voidedBy,
	}

	return s.repo.VoidTransaction(ctx, tx.ID, tx.ReversalDeltas(), log)
}

// Approve attests a pending entry. No balance movement happens here.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if tx.Review == ReviewValidated {
		return nil
	}

	return s.repo.UpdateReview(ctx, tx.ID, ReviewValidated)
}

type UpdateParams struct {
	Description *string
	Notes       *string
	UpdatedBy   string
}

// Update edits the non-financial fields only. Amount, addressing and module
// are immutable once posted; fixing those means voiding and re-entering.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	before := audit.Snapshot(tx)

	if params.Description != nil {
		tx.Description = *params.Description
	}

	if params.Notes != nil {
		tx.Notes = *params.Notes
	}

	log := &audit.Entry{
		Action:        audit.ActionEdit,
		TransactionID: &tx.ID,
		Before:        before,
		After:         audit.Snapshot(tx),
		CreatedBy:     params.UpdatedBy,
	}

	if err := s.repo.UpdateDetails(ctx, tx, log); err != nil {
		return nil, err
	}

	return tx, nil
}

type ListFilter struct {
	Status    *Status
	Review    *Review
	Module    *Module
	AccountID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}
