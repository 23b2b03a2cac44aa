package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=directory
type Repository interface {
	CreateEntity(ctx context.Context, e *Entity) error
	ListEntities(ctx context.Context) ([]*Entity, error)

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, entityID *uuid.UUID) ([]*Account, error)
	DeactivateAccount(ctx context.Context, id uuid.UUID) error

	CreateMerchant(ctx context.Context, m *Merchant) error
	GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error)
	ListMerchants(ctx context.Context, entityID *uuid.UUID) ([]*Merchant, error)
	DeactivateMerchant(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateEntityParams struct {
	Name string
	Type EntityType
}

func (s *Service) CreateEntity(ctx context.Context, params CreateEntityParams) (*Entity, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	if !params.Type.Valid() {
		return nil, fmt.Errorf("invalid entity type: %s", params.Type)
	}

	e := &Entity{Name: params.Name, Type: params.Type}
	if err := s.repo.CreateEntity(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) ListEntities(ctx context.Context) ([]*Entity, error) {
	return s.repo.ListEntities(ctx)
}

type CreateAccountParams struct {
	EntityID uuid.UUID
	Name     string
	Kind     AccountKind
	Number   string
}

func (s *Service) CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("account name is required")
	}

	if !params.Kind.Valid() {
		return nil, fmt.Errorf("invalid account kind: %s", params.Kind)
	}

	a := &Account{
		EntityID: params.EntityID,
		Name:     params.Name,
		Kind:     params.Kind,
		Number:   params.Number,
		Active:   true,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, entityID *uuid.UUID) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, entityID)
}

func (s *Service) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateAccount(ctx, id)
}

type CreateMerchantParams struct {
	EntityID uuid.UUID
	Name     string
}

func (s *Service) CreateMerchant(ctx context.Context, params CreateMerchantParams) (*Merchant, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("merchant name is required")
	}

	m := &Merchant{
		EntityID: params.EntityID,
		Name:     params.Name,
		Active:   true,
	}
	if err := s.repo.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) GetMerchant(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	return s.repo.GetMerchant(ctx, id)
}

func (s *Service) ListMerchants(ctx context.Context, entityID *uuid.UUID) ([]*Merchant, error) {
	return s.repo.ListMerchants(ctx, entityID)
}

func (s *Service) DeactivateMerchant(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivateMerchant(ctx, id)
}
