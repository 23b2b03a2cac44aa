package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action classifies what a log entry records.
type Action string

const (
	ActionVoid   Action = "void"
	ActionEdit   Action = "edit"
	ActionChange Action = "change"
)

// Entry is one append-only audit record. Entries are written in the same
// database transaction as the mutation they describe and are never updated.
type Entry struct {
	ID            uuid.UUID
	Action        Action
	Reason        string
	TransactionID *uuid.UUID
	Before        json.RawMessage
	After         json.RawMessage
	CreatedBy     string
	CreatedAt     time.Time
}

// Snapshot serializes v for use as a before/after snapshot. Marshal failures
// degrade to a null snapshot rather than blocking the mutation being logged.
func Snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}

	return b
}

type ListFilter struct {
	Action        *Action
	TransactionID *uuid.UUID
	Limit         int
}

//go:generate mockgen -source=audit.go -destination=repository_mock.go -package=audit
type Repository interface {
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}
