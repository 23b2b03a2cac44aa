package graduation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNoConfig  = errors.New("graduation has no current carnet config")
	ErrBadConfig = errors.New("invalid carnet config")
)

// Graduation is a cohort event (e.g. "Formatura 2026").
type Graduation struct {
	ID        uuid.UUID
	Name      string
	Year      int
	Slug      string
	Active    bool
	CreatedAt time.Time
}

// Class is a turma within a graduation.
type Class struct {
	ID           uuid.UUID
	GraduationID uuid.UUID
	Name         string
	Active       bool
	CreatedAt    time.Time
}

type Student struct {
	ID        uuid.UUID
	ClassID   uuid.UUID
	Name      string
	Guardian  string
	Active    bool
	CreatedAt time.Time
}

// CarnetConfig is a versioned installment plan. Saving a new version flips
// the previous one to non-current; old versions are kept for history.
type CarnetConfig struct {
	ID                uuid.UUID
	GraduationID      uuid.UUID
	InstallmentValue  int64 // cents
	InstallmentsCount int
	DueDay            int
	StartMonth        int // 1..12
	Version           int
	IsCurrent         bool
	CreatedAt         time.Time
}

func (c CarnetConfig) Validate() error {
	if c.InstallmentValue <= 0 {
		return fmt.Errorf("%w: installment value must be positive", ErrBadConfig)
	}

	if c.InstallmentsCount < 1 {
		return fmt.Errorf("%w: installments count must be at least 1", ErrBadConfig)
	}

	if c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("%w: due day must be 1..31", ErrBadConfig)
	}

	if c.StartMonth < 1 || c.StartMonth > 12 {
		return fmt.Errorf("%w: start month must be 1..12", ErrBadConfig)
	}

	return nil
}

// ObligationKind separates the monthly carnet rows from ad-hoc charges.
type ObligationKind string

const KindMensalidade ObligationKind = "MENSALIDADE"

type ObligationStatus string

const (
	StatusEmAberto  ObligationStatus = "EM_ABERTO"
	StatusPago      ObligationStatus = "PAGO"
	StatusIsento    ObligationStatus = "ISENTO"
	StatusCancelado ObligationStatus = "CANCELADO"
)

// Obligation is one charge against one student. Monthly rows are unique on
// (student, kind, installment_number); ad-hoc rows on (student, kind, label).
type Obligation struct {
	ID                uuid.UUID
	StudentID         uuid.UUID
	Kind              ObligationKind
	InstallmentNumber *int
	ReferenceLabel    string
	Amount            int64 // cents
	DueDate           time.Time
	Status            ObligationStatus
	PaidAt            *time.Time
	ReceivedBy        string
	CreatedAt         time.Time
}

// Installments projects the config into concrete obligation rows for one
// student. Month overflow past December rolls into the next year through
// standard calendar normalization.
func (c CarnetConfig) Installments(studentID uuid.UUID, year int) []*Obligation {
	obligations := make([]*Obligation, 0, c.InstallmentsCount)

	for i := 1; i <= c.InstallmentsCount; i++ {
		n := i
		due := time.Date(year, time.Month(c.StartMonth+i-1), c.DueDay, 0, 0, 0, 0, time.UTC)

		obligations = append(obligations, &Obligation{
			StudentID:         studentID,
			Kind:              KindMensalidade,
			InstallmentNumber: &n,
			ReferenceLabel:    fmt.Sprintf("Parcela %02d/%d", i, c.InstallmentsCount),
			Amount:            c.InstallmentValue,
			DueDate:           due,
			Status:            StatusEmAberto,
		})
	}

	return obligations
}

// Rail is the payment method of a graduation ledger movement.
type Rail string

const (
	RailPix  Rail = "pix"
	RailCash Rail = "cash"
)

// EntryType tags graduation income entries; MENSALIDADE entries feed the
// treasurer reconciliation estimate.
type EntryType string

const (
	EntryMensalidade EntryType = "MENSALIDADE"
	EntryOutro       EntryType = "OUTRO"
)

// Entry is an income movement in the graduation's own ledger.
type Entry struct {
	ID           uuid.UUID
	GraduationID uuid.UUID
	ClassID      *uuid.UUID
	Type         EntryType
	Rail         Rail
	Amount       int64 // cents
	Date         time.Time
	Description  string
	CreatedAt    time.Time
}

type Expense struct {
	ID           uuid.UUID
	GraduationID uuid.UUID
	Rail         Rail
	Amount       int64 // cents
	Date         time.Time
	Description  string
	CreatedAt    time.Time
}

// Transfer moves funds between the graduation's rails (e.g. cash deposited
// to the PIX account).
type Transfer struct {
	ID           uuid.UUID
	GraduationID uuid.UUID
	FromRail     Rail
	ToRail       Rail
	Amount       int64 // cents
	Date         time.Time
	Description  string
	CreatedAt    time.Time
}

// Adjustment is a signed correction applied to one rail.
type Adjustment struct {
	ID           uuid.UUID
	GraduationID uuid.UUID
	Rail         Rail
	Amount       int64 // signed cents
	Date         time.Time
	Description  string
	CreatedAt    time.Time
}

// SummaryTotals are the raw sums a store produces for one graduation.
type SummaryTotals struct {
	PixIn              int64
	CashIn             int64
	PixOut             int64
	CashOut            int64
	TransfersPixToCash int64
	TransfersCashToPix int64
	AdjustmentsPix     int64
	AdjustmentsCash    int64
	MensalidadeEntries int64
	ObligationsPaid    int64
	ObligationsOpen    int64
}

// Summary is the reduced financial picture of a graduation.
type Summary struct {
	TotalPix           int64
	TotalCash          int64
	TotalIncome        int64
	TotalExpense       int64
	PendingReceivables int64

	// EstimatedWithTreasurer approximates cash collected by class treasurers
	// and not yet deposited centrally. It assumes each deposited MENSALIDADE
	// entry corresponds 1:1 to a paid obligation, so treat it as advisory,
	// not as a ledger balance.
	EstimatedWithTreasurer int64
}
