package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("transaction not found")
	ErrAlreadyVoided       = errors.New("transaction already voided")
	ErrReasonTooShort      = errors.New("void reason must be at least 3 characters")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrAmbiguousAddressing = fmt.Errorf("%w: cannot carry both an account and a source/destination pair", ErrInvalidTransaction)
)

// Type represents the financial direction of a movement. TypeTransfer is
// assigned by the service on source/destination movements, where the
// direction is implicit; callers never send it.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Status represents the lifecycle state of a transaction. A transaction is
// never physically deleted: posted -> voided is the only legal transition and
// voided is terminal.
type Status string

const (
	StatusPosted Status = "posted"
	StatusVoided Status = "voided"
)

// Review tracks secretary-submitted entries awaiting admin confirmation.
// Approval is an attestation, not a financial event: balances are applied at
// creation time regardless of review state.
type Review string

const (
	ReviewPending   Review = "pending"
	ReviewValidated Review = "validated"
)

// Module is the closed set of bookkeeping movement tags. Sign and merchant
// side effects are selected by exhaustive switch, so adding a module is a
// compile-visible change.
type Module string

const (
	ModuleMensalidade           Module = "mensalidade"
	ModuleGasto                 Module = "gasto"
	ModuleTransferencia         Module = "transferencia"
	ModuleConsumoSaldo          Module = "consumo_saldo"
	ModuleAporteSaldo           Module = "aporte_saldo"
	ModuleAporteEstabelecimento Module = "aporte_estabelecimento_recurso"
	ModulePixDiretoUECX         Module = "pix_direto_uecx"
	ModuleAjuste                Module = "ajuste"
)

func (m Module) Valid() bool {
	switch m {
	case ModuleMensalidade, ModuleGasto, ModuleTransferencia,
		ModuleConsumoSaldo, ModuleAporteSaldo, ModuleAporteEstabelecimento,
		ModulePixDiretoUECX, ModuleAjuste:
		return true
	}

	return false
}

// merchantSign returns the sign a module applies to a merchant running-tab
// balance: consumption draws the tab down, top-ups feed it, everything else
// leaves it alone.
func (m Module) merchantSign() int64 {
	switch m {
	case ModuleConsumoSaldo:
		return -1
	case ModuleAporteSaldo, ModuleAporteEstabelecimento:
		return +1
	case ModuleMensalidade, ModuleGasto, ModuleTransferencia,
		ModulePixDiretoUECX, ModuleAjuste:
		return 0
	}

	return 0
}

// RequiresMerchant reports whether the module is meaningless without a
// merchant tab to apply to.
func (m Module) RequiresMerchant() bool {
	return m.merchantSign() != 0
}

// Transaction is the atomic ledger entry. Amount is positive cents; the sign
// applied to balances comes from Type, the addressing mode and the Module.
type Transaction struct {
	ID                   uuid.UUID
	Date                 time.Time
	Amount               int64 // cents, always > 0
	Type                 Type
	Module               Module
	Status               Status
	Review               Review
	AccountID            *uuid.UUID
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	MerchantID           *uuid.UUID
	Description          string
	Notes                string
	CreatedBy            string
	ParentID             *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// BalanceDelta is one signed cent adjustment against either an account or a
// merchant. Stores must apply it as a relative update inside the same
// database transaction as the ledger write.
type BalanceDelta struct {
	AccountID  *uuid.UUID
	MerchantID *uuid.UUID
	Amount     int64 // signed cents
}

// Deltas computes the balance impact of posting t.
//
// Dispatch: a source/destination pair makes the movement a transfer (debit
// source, credit destination); a bare account is moved by Type; a merchant
// reference adds a second delta with the module's merchant sign.
func (t *Transaction) Deltas() []BalanceDelta {
	var deltas []BalanceDelta

	switch {
	case t.SourceAccountID != nil && t.DestinationAccountID != nil:
		deltas = append(deltas,
			BalanceDelta{AccountID: t.SourceAccountID, Amount: -t.Amount},
			BalanceDelta{AccountID: t.DestinationAccountID, Amount: t.Amount},
		)
	case t.AccountID != nil:
		amount := t.Amount
		if t.Type == TypeExpense {
			amount = -amount
		}

		deltas = append(deltas, BalanceDelta{AccountID: t.AccountID, Amount: amount})
	}

	if t.MerchantID != nil {
		if sign := t.Module.merchantSign(); sign != 0 {
			deltas = append(deltas, BalanceDelta{MerchantID: t.MerchantID, Amount: sign * t.Amount})
		}
	}

	return deltas
}

// ReversalDeltas negates the posting impact of t, for voids.
func (t *Transaction) ReversalDeltas() []BalanceDelta {
	deltas := t.Deltas()
	for i := range deltas {
		deltas[i].Amount = -deltas[i].Amount
	}

	return deltas
}
