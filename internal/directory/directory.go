package directory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInactive = errors.New("counterparty is inactive")
)

// EntityType identifies which legal unit an account belongs to.
type EntityType string

const (
	EntityAssociacao EntityType = "associacao"
	EntityUE         EntityType = "ue"
	EntityCX         EntityType = "cx"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityAssociacao, EntityUE, EntityCX:
		return true
	}

	return false
}

// Entity is a legal/organizational unit. Immutable after creation.
type Entity struct {
	ID        uuid.UUID
	Name      string
	Type      EntityType
	CreatedAt time.Time
}

// AccountKind is the payment rail an account represents.
type AccountKind string

const (
	KindCash    AccountKind = "cash"
	KindPix     AccountKind = "pix"
	KindDigital AccountKind = "digital"
	KindSafe    AccountKind = "safe"
)

func (k AccountKind) Valid() bool {
	switch k {
	case KindCash, KindPix, KindDigital, KindSafe:
		return true
	}

	return false
}

// Account holds a stored balance in cents. Accounts are never hard-deleted:
// historical transactions keep referencing them, so deactivation only clears
// the active flag.
type Account struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	Name      string
	Kind      AccountKind
	Number    string
	Balance   int64 // cents
	Active    bool
	CreatedAt time.Time
}

// Merchant is a running-tab counterparty. Its balance is the credit the
// association holds at the establishment ("saldo em estabelecimento").
// Same soft-delete lifecycle as Account.
type Merchant struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	Name      string
	Balance   int64 // cents
	Active    bool
	CreatedAt time.Time
}
