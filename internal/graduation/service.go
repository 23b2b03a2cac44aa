package graduation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=graduation
type Repository interface {
	CreateGraduation(ctx context.Context, g *Graduation) error
	GetGraduation(ctx context.Context, id uuid.UUID) (*Graduation, error)
	ListGraduations(ctx context.Context) ([]*Graduation, error)

	CreateClass(ctx context.Context, c *Class) error
	ListClasses(ctx context.Context, graduationID uuid.UUID) ([]*Class, error)

	CreateStudent(ctx context.Context, st *Student) error
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	ListActiveStudents(ctx context.Context, classID uuid.UUID) ([]*Student, error)
	ListActiveStudentsByGraduation(ctx context.Context, graduationID uuid.UUID) ([]*Student, error)

	// SaveConfig inserts the new version and flips the previous current one
	// in the same database transaction.
	SaveConfig(ctx context.Context, cfg *CarnetConfig) error
	GetCurrentConfig(ctx context.Context, graduationID uuid.UUID) (*CarnetConfig, error)

	// UpsertObligations inserts with ignore-duplicates semantics on the
	// (student, kind, number/label) conflict targets.
	UpsertObligations(ctx context.Context, obligations []*Obligation) (int, error)
	// ReplaceMensalidadeObligations wipes every MENSALIDADE obligation of the
	// graduation and inserts the fresh set in one database transaction, so a
	// failed rebuild never leaves partial state behind.
	ReplaceMensalidadeObligations(ctx context.Context, graduationID uuid.UUID, fresh []*Obligation) error
	ListObligations(ctx context.Context, filter ObligationFilter) ([]*Obligation, error)
	MarkObligationsPaid(ctx context.Context, classID uuid.UUID, label string, studentIDs []uuid.UUID, paidAt time.Time, receivedBy string) (int64, error)

	AddEntry(ctx context.Context, e *Entry) error
	AddExpense(ctx context.Context, e *Expense) error
	AddTransfer(ctx context.Context, t *Transfer) error
	AddAdjustment(ctx context.Context, a *Adjustment) error
	SummaryTotals(ctx context.Context, graduationID uuid.UUID) (*SummaryTotals, error)
}

type ObligationFilter struct {
	StudentID      *uuid.UUID
	ClassID        *uuid.UUID
	Kind           *ObligationKind
	Status         *ObligationStatus
	ReferenceLabel *string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func slugify(name string, year int) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}

		return '-'
	}, s)

	return fmt.Sprintf("%s-%d", strings.Trim(s, "-"), year)
}

func (s *Service) CreateGraduation(ctx context.Context, name string, year int) (*Graduation, error) {
	if name == "" {
		return nil, fmt.Errorf("graduation name is required")
	}

	g := &Graduation{
		Name:   name,
		Year:   year,
		Slug:   slugify(name, year),
		Active: true,
	}
	if err := s.repo.CreateGraduation(ctx, g); err != nil {
		return nil, err
	}

	return g, nil
}

func (s *Service) ListGraduations(ctx context.Context) ([]*Graduation, error) {
	return s.repo.ListGraduations(ctx)
}

func (s *Service) CreateClass(ctx context.Context, graduationID uuid.UUID, name string) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("class name is required")
	}

	c := &Class{GraduationID: graduationID, Name: name, Active: true}
	if err := s.repo.CreateClass(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListClasses(ctx context.Context, graduationID uuid.UUID) ([]*Class, error) {
	return s.repo.ListClasses(ctx, graduationID)
}

// EnrollResult reports a roster enrollment batch: bad rows are collected and
// reported, they never abort the rows that did work.
type EnrollResult struct {
	Created int
	Errors  []EnrollError
}

type EnrollError struct {
	Line int    `json:"line"`
	Name string `json:"name,omitempty"`
	Err  string `json:"error"`
}

type EnrollRow struct {
	Line     int
	Name     string
	Guardian string
}

func (s *Service) EnrollStudents(ctx context.Context, classID uuid.UUID, rows []EnrollRow) (*EnrollResult, error) {
	result := &EnrollResult{}

	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			result.Errors = append(result.Errors, EnrollError{Line: row.Line, Err: "empty student name"})
			continue
		}

		st := &Student{
			ClassID:  classID,
			Name:     name,
			Guardian: strings.TrimSpace(row.Guardian),
			Active:   true,
		}
		if err := s.repo.CreateStudent(ctx, st); err != nil {
			result.Errors = append(result.Errors, EnrollError{Line: row.Line, Name: name, Err: err.Error()})
			continue
		}

		result.Created++
	}

	return result, nil
}

func (s *Service) ListStudents(ctx context.Context, classID uuid.UUID) ([]*Student, error) {
	return s.repo.ListActiveStudents(ctx, classID)
}

// SaveConfig stores a new carnet config version and makes it current.
func (s *Service) SaveConfig(ctx context.Context, cfg CarnetConfig) (*CarnetConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.IsCurrent = true
	if err := s.repo.SaveConfig(ctx, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (s *Service) CurrentConfig(ctx context.Context, graduationID uuid.UUID) (*CarnetConfig, error) {
	return s.repo.GetCurrentConfig(ctx, graduationID)
}

// GenerateInstallments materializes the current config for one student.
// Re-running is a no-op for rows that already exist.
func (s *Service) GenerateInstallments(ctx context.Context, graduationID, studentID uuid.UUID) (int, error) {
	g, err := s.repo.GetGraduation(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	cfg, err := s.repo.GetCurrentConfig(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	return s.repo.UpsertObligations(ctx, cfg.Installments(studentID, g.Year))
}

// RegenerateAll wipes every MENSALIDADE obligation of the graduation and
// rebuilds them from the current config for every active student. Destructive:
// paid status history is lost, which the caller must surface to the admin.
func (s *Service) RegenerateAll(ctx context.Context, graduationID uuid.UUID) (int, error) {
	g, err := s.repo.GetGraduation(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	cfg, err := s.repo.GetCurrentConfig(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	students, err := s.repo.ListActiveStudentsByGraduation(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	var fresh []*Obligation
	for _, st := range students {
		fresh = append(fresh, cfg.Installments(st.ID, g.Year)...)
	}

	if err := s.repo.ReplaceMensalidadeObligations(ctx, graduationID, fresh); err != nil {
		return 0, err
	}

	return len(fresh), nil
}

// MarkPaidBatch flips matching EM_ABERTO obligations to PAGO. Rows already
// settled (PAGO, ISENTO, CANCELADO) or carrying a different label are left
// untouched by the update predicate.
func (s *Service) MarkPaidBatch(ctx context.Context, classID uuid.UUID, label string, studentIDs []uuid.UUID, receivedBy string) (int64, error) {
	if label == "" {
		return 0, fmt.Errorf("reference label is required")
	}

	if len(studentIDs) == 0 {
		return 0, nil
	}

	return s.repo.MarkObligationsPaid(ctx, classID, label, studentIDs, time.Now().UTC(), receivedBy)
}

// GlobalCharge fans one ad-hoc obligation out to every active student across
// all classes of the graduation in a single upsert.
func (s *Service) GlobalCharge(ctx context.Context, graduationID uuid.UUID, kind ObligationKind, label string, amount int64, dueDate time.Time) (int, error) {
	if kind == "" || kind == KindMensalidade {
		return 0, fmt.Errorf("global charge kind must be a non-monthly kind")
	}

	if label == "" {
		return 0, fmt.Errorf("reference label is required")
	}

	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %d", amount)
	}

	students, err := s.repo.ListActiveStudentsByGraduation(ctx, graduationID)
	if err != nil {
		return 0, err
	}

	obligations := make([]*Obligation, 0, len(students))
	for _, st := range students {
		obligations = append(obligations, &Obligation{
			StudentID:      st.ID,
			Kind:           kind,
			ReferenceLabel: label,
			Amount:         amount,
			DueDate:        dueDate,
			Status:         StatusEmAberto,
		})
	}

	return s.repo.UpsertObligations(ctx, obligations)
}

func (s *Service) ListObligations(ctx context.Context, filter ObligationFilter) ([]*Obligation, error) {
	return s.repo.ListObligations(ctx, filter)
}

func (s *Service) AddEntry(ctx context.Context, e *Entry) error {
	if e.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", e.Amount)
	}

	return s.repo.AddEntry(ctx, e)
}

func (s *Service) AddExpense(ctx context.Context, e *Expense) error {
	if e.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", e.Amount)
	}

	return s.repo.AddExpense(ctx, e)
}

func (s *Service) AddTransfer(ctx context.Context, t *Transfer) error {
	if t.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", t.Amount)
	}

	if t.FromRail == t.ToRail {
		return fmt.Errorf("transfer rails must differ")
	}

	return s.repo.AddTransfer(ctx, t)
}

func (s *Service) AddAdjustment(ctx context.Context, a *Adjustment) error {
	if a.Amount == 0 {
		return fmt.Errorf("adjustment amount cannot be zero")
	}

	return s.repo.AddAdjustment(ctx, a)
}

// Summary reduces the four side ledgers plus the obligations table into one
// record per graduation.
func (s *Service) Summary(ctx context.Context, graduationID uuid.UUID) (*Summary, error) {
	t, err := s.repo.SummaryTotals(ctx, graduationID)
	if err != nil {
		return nil, err
	}

	withTreasurer := t.ObligationsPaid - t.MensalidadeEntries
	if withTreasurer < 0 {
		withTreasurer = 0
	}

	return &Summary{
		TotalPix:               t.PixIn - t.PixOut + t.TransfersCashToPix - t.TransfersPixToCash + t.AdjustmentsPix,
		TotalCash:              t.CashIn - t.CashOut + t.TransfersPixToCash - t.TransfersCashToPix + t.AdjustmentsCash,
		TotalIncome:            t.PixIn + t.CashIn,
		TotalExpense:           t.PixOut + t.CashOut,
		PendingReceivables:     t.ObligationsOpen,
		EstimatedWithTreasurer: withTreasurer,
	}, nil
}
