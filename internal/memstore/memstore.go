// Package memstore is the demo-mode backend: one in-memory store implementing
// every repository interface behind an explicit constructor and Reset, so
// tests and demos get isolated instances instead of shared package state.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/audit"
	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/graduation"
	"github.com/bmoreira/tesouraria/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	entities  map[uuid.UUID]*directory.Entity
	accounts  map[uuid.UUID]*directory.Account
	merchants map[uuid.UUID]*directory.Merchant

	transactions map[uuid.UUID]*ledger.Transaction
	txOrder      []uuid.UUID
	auditLog     []*audit.Entry

	graduations map[uuid.UUID]*graduation.Graduation
	classes     map[uuid.UUID]*graduation.Class
	students    map[uuid.UUID]*graduation.Student
	configs     map[uuid.UUID][]*graduation.CarnetConfig
	obligations map[uuid.UUID]*graduation.Obligation
	entries     []*graduation.Entry
	expenses    []*graduation.Expense
	transfers   []*graduation.Transfer
	adjustments []*graduation.Adjustment
}

func New() *Store {
	s := &Store{}
	s.reset()

	return s
}

// Reset drops all state, returning the store to a clean slate.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) reset() {
	s.entities = make(map[uuid.UUID]*directory.Entity)
	s.accounts = make(map[uuid.UUID]*directory.Account)
	s.merchants = make(map[uuid.UUID]*directory.Merchant)
	s.transactions = make(map[uuid.UUID]*ledger.Transaction)
	s.txOrder = nil
	s.auditLog = nil
	s.graduations = make(map[uuid.UUID]*graduation.Graduation)
	s.classes = make(map[uuid.UUID]*graduation.Class)
	s.students = make(map[uuid.UUID]*graduation.Student)
	s.configs = make(map[uuid.UUID][]*graduation.CarnetConfig)
	s.obligations = make(map[uuid.UUID]*graduation.Obligation)
	s.entries = nil
	s.expenses = nil
	s.transfers = nil
	s.adjustments = nil
}

// --- directory.Repository ---

func (s *Store) CreateEntity(_ context.Context, e *directory.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	s.entities[e.ID] = e

	return nil
}

func (s *Store) ListEntities(_ context.Context) ([]*directory.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*directory.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a *directory.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	s.accounts[a.ID] = a

	return nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*directory.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, directory.ErrNotFound
	}

	cp := *a

	return &cp, nil
}

func (s *Store) ListAccounts(_ context.Context, entityID *uuid.UUID) ([]*directory.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*directory.Account

	for _, a := range s.accounts {
		if entityID != nil && a.EntityID != *entityID {
			continue
		}

		cp := *a
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (s *Store) DeactivateAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return directory.ErrNotFound
	}

	a.Active = false

	return nil
}

func (s *Store) CreateMerchant(_ context.Context, m *directory.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()
	s.merchants[m.ID] = m

	return nil
}

func (s *Store) GetMerchant(_ context.Context, id uuid.UUID) (*directory.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return nil, directory.ErrNotFound
	}

	cp := *m

	return &cp, nil
}

func (s *Store) ListMerchants(_ context.Context, entityID *uuid.UUID) ([]*directory.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*directory.Merchant

	for _, m := range s.merchants {
		if entityID != nil && m.EntityID != *entityID {
			continue
		}

		cp := *m
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *Store) DeactivateMerchant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return directory.ErrNotFound
	}

	m.Active = false

	return nil
}

// --- ledger.Repository ---

// applyDeltas mutates balances under the store lock, which is the demo-mode
// stand-in for the single-row UPDATE inside a database transaction.
func (s *Store) applyDeltas(deltas []ledger.BalanceDelta, requireActive bool) error {
	// Validate all targets before touching any balance, so a bad delta set
	// leaves no partial update behind. Postings require active targets;
	// reversals apply regardless so old transactions stay voidable.
	for _, d := range deltas {
		switch {
		case d.AccountID != nil:
			a, ok := s.accounts[*d.AccountID]
			if !ok {
				return directory.ErrNotFound
			}

			if requireActive && !a.Active {
				return directory.ErrInactive
			}
		case d.MerchantID != nil:
			m, ok := s.merchants[*d.MerchantID]
			if !ok {
				return directory.ErrNotFound
			}

			if requireActive && !m.Active {
				return directory.ErrInactive
			}
		}
	}

	for _, d := range deltas {
		switch {
		case d.AccountID != nil:
			s.accounts[*d.AccountID].Balance += d.Amount
		case d.MerchantID != nil:
			s.merchants[*d.MerchantID].Balance += d.Amount
		}
	}

	return nil
}

func (s *Store) appendAudit(log *audit.Entry) {
	log.ID = uuid.New()
	log.CreatedAt = time.Now().UTC()
	s.auditLog = append(s.auditLog, log)
}

func (s *Store) CreateTransaction(_ context.Context, tx *ledger.Transaction, deltas []ledger.BalanceDelta, log *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyDeltas(deltas, true); err != nil {
		return err
	}

	tx.ID = uuid.New()
	tx.CreatedAt = time.Now().UTC()
	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)

	log.TransactionID = &tx.ID
	s.appendAudit(log)

	return nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	cp := *tx

	return &cp, nil
}

func (s *Store) ListTransactions(_ context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Transaction

	// Walk insertion order backwards: most recent first.
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.transactions[s.txOrder[i]]
		if !matches(tx, filter) {
			continue
		}

		cp := *tx
		out = append(out, &cp)
	}

	return out, nil
}

func matches(tx *ledger.Transaction, f ledger.ListFilter) bool {
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}

	if f.Review != nil && tx.Review != *f.Review {
		return false
	}

	if f.Module != nil && tx.Module != *f.Module {
		return false
	}

	if f.AccountID != nil {
		id := *f.AccountID
		touches := (tx.AccountID != nil && *tx.AccountID == id) ||
			(tx.SourceAccountID != nil && *tx.SourceAccountID == id) ||
			(tx.DestinationAccountID != nil && *tx.DestinationAccountID == id)

		if !touches {
			return false
		}
	}

	if f.StartDate != nil && tx.Date.Before(*f.StartDate) {
		return false
	}

	if f.EndDate != nil && tx.Date.After(*f.EndDate) {
		return false
	}

	return true
}

func (s *Store) VoidTransaction(_ context.Context, id uuid.UUID, deltas []ledger.BalanceDelta, log *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}

	if tx.Status != ledger.StatusPosted {
		return ledger.ErrAlreadyVoided
	}

	if err := s.applyDeltas(deltas, false); err != nil {
		return err
	}

	now := time.Now().UTC()
	tx.Status = ledger.StatusVoided
	tx.UpdatedAt = &now

	s.appendAudit(log)

	return nil
}

func (s *Store) UpdateReview(_ context.Context, id uuid.UUID, review ledger.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}

	now := time.Now().UTC()
	tx.Review = review
	tx.UpdatedAt = &now

	return nil
}

func (s *Store) UpdateDetails(_ context.Context, in *ledger.Transaction, log *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[in.ID]
	if !ok {
		return ledger.ErrNotFound
	}

	now := time.Now().UTC()
	tx.Description = in.Description
	tx.Notes = in.Notes
	tx.UpdatedAt = &now

	s.appendAudit(log)

	return nil
}

// --- audit.Repository ---

func (s *Store) ListEntries(_ context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*audit.Entry

	for i := len(s.auditLog) - 1; i >= 0; i-- {
		e := s.auditLog[i]

		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}

		if filter.TransactionID != nil {
			if e.TransactionID == nil || *e.TransactionID != *filter.TransactionID {
				continue
			}
		}

		cp := *e
		out = append(out, &cp)

		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}

// --- graduation.Repository ---

func (s *Store) CreateGraduation(_ context.Context, g *graduation.Graduation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = uuid.New()
	g.CreatedAt = time.Now().UTC()
	s.graduations[g.ID] = g

	return nil
}

func (s *Store) GetGraduation(_ context.Context, id uuid.UUID) (*graduation.Graduation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.graduations[id]
	if !ok {
		return nil, graduation.ErrNotFound
	}

	cp := *g

	return &cp, nil
}

func (s *Store) ListGraduations(_ context.Context) ([]*graduation.Graduation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*graduation.Graduation, 0, len(s.graduations))
	for _, g := range s.graduations {
		cp := *g
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}

		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (s *Store) CreateClass(_ context.Context, c *graduation.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	s.classes[c.ID] = c

	return nil
}

func (s *Store) ListClasses(_ context.Context, graduationID uuid.UUID) ([]*graduation.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*graduation.Class

	for _, c := range s.classes {
		if c.GraduationID != graduationID {
			continue
		}

		cp := *c
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *Store) CreateStudent(_ context.Context, st *graduation.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = uuid.New()
	st.CreatedAt = time.Now().UTC()
	s.students[st.ID] = st

	return nil
}

func (s *Store) GetStudent(_ context.Context, id uuid.UUID) (*graduation.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[id]
	if !ok {
		return nil, graduation.ErrNotFound
	}

	cp := *st

	return &cp, nil
}

func (s *Store) ListActiveStudents(_ context.Context, classID uuid.UUID) ([]*graduation.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*graduation.Student

	for _, st := range s.students {
		if st.ClassID != classID || !st.Active {
			continue
		}

		cp := *st
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *Store) ListActiveStudentsByGraduation(_ context.Context, graduationID uuid.UUID) ([]*graduation.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*graduation.Student

	for _, st := range s.students {
		if !st.Active {
			continue
		}

		c, ok := s.classes[st.ClassID]
		if !ok || c.GraduationID != graduationID || !c.Active {
			continue
		}

		cp := *st
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *Store) SaveConfig(_ context.Context, cfg *graduation.CarnetConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.configs[cfg.GraduationID]
	for _, prev := range versions {
		prev.IsCurrent = false
	}

	cfg.ID = uuid.New()
	cfg.Version = len(versions) + 1
	cfg.IsCurrent = true
	cfg.CreatedAt = time.Now().UTC()
	s.configs[cfg.GraduationID] = append(versions, cfg)

	return nil
}

func (s *Store) GetCurrentConfig(_ context.Context, graduationID uuid.UUID) (*graduation.CarnetConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cfg := range s.configs[graduationID] {
		if cfg.IsCurrent {
			cp := *cfg
			return &cp, nil
		}
	}

	return nil, graduation.ErrNoConfig
}

// obligationKey mirrors the unique constraints on the obligations table.
func obligationKey(o *graduation.Obligation) string {
	if o.InstallmentNumber != nil {
		return fmt.Sprintf("%s|%s|#%d", o.StudentID, o.Kind, *o.InstallmentNumber)
	}

	return fmt.Sprintf("%s|%s|%s", o.StudentID, o.Kind, o.ReferenceLabel)
}

func (s *Store) obligationExists(o *graduation.Obligation) bool {
	key := obligationKey(o)

	for _, existing := range s.obligations {
		if obligationKey(existing) == key {
			return true
		}
	}

	return false
}

func (s *Store) UpsertObligations(_ context.Context, obligations []*graduation.Obligation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0

	for _, o := range obligations {
		if s.obligationExists(o) {
			continue
		}

		o.ID = uuid.New()
		o.CreatedAt = time.Now().UTC()
		s.obligations[o.ID] = o
		created++
	}

	return created, nil
}

func (s *Store) ReplaceMensalidadeObligations(_ context.Context, graduationID uuid.UUID, fresh []*graduation.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.obligations {
		if o.Kind != graduation.KindMensalidade {
			continue
		}

		st, ok := s.students[o.StudentID]
		if !ok {
			continue
		}

		c, ok := s.classes[st.ClassID]
		if !ok || c.GraduationID != graduationID {
			continue
		}

		delete(s.obligations, id)
	}

	for _, o := range fresh {
		o.ID = uuid.New()
		o.CreatedAt = time.Now().UTC()
		s.obligations[o.ID] = o
	}

	return nil
}

func (s *Store) ListObligations(_ context.Context, filter graduation.ObligationFilter) ([]*graduation.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*graduation.Obligation

	for _, o := range s.obligations {
		if filter.StudentID != nil && o.StudentID != *filter.StudentID {
			continue
		}

		if filter.ClassID != nil {
			st, ok := s.students[o.StudentID]
			if !ok || st.ClassID != *filter.ClassID {
				continue
			}
		}

		if filter.Kind != nil && o.Kind != *filter.Kind {
			continue
		}

		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}

		if filter.ReferenceLabel != nil && o.ReferenceLabel != *filter.ReferenceLabel {
			continue
		}

		cp := *o
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}

		return out[i].ReferenceLabel < out[j].ReferenceLabel
	})

	return out, nil
}

func (s *Store) MarkObligationsPaid(_ context.Context, classID uuid.UUID, label string, studentIDs []uuid.UUID, paidAt time.Time, receivedBy string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	var flipped int64

	for _, o := range s.obligations {
		if o.Status != graduation.StatusEmAberto || o.ReferenceLabel != label {
			continue
		}

		if _, ok := wanted[o.StudentID]; !ok {
			continue
		}

		st, ok := s.students[o.StudentID]
		if !ok || st.ClassID != classID {
			continue
		}

		at := paidAt
		o.Status = graduation.StatusPago
		o.PaidAt = &at
		o.ReceivedBy = receivedBy
		flipped++
	}

	return flipped, nil
}

func (s *Store) AddEntry(_ context.Context, e *graduation.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, e)

	return nil
}

func (s *Store) AddExpense(_ context.Context, e *graduation.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	s.expenses = append(s.expenses, e)

	return nil
}

func (s *Store) AddTransfer(_ context.Context, t *graduation.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	s.transfers = append(s.transfers, t)

	return nil
}

func (s *Store) AddAdjustment(_ context.Context, a *graduation.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	s.adjustments = append(s.adjustments, a)

	return nil
}

func (s *Store) SummaryTotals(_ context.Context, graduationID uuid.UUID) (*graduation.SummaryTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t graduation.SummaryTotals

	for _, e := range s.entries {
		if e.GraduationID != graduationID {
			continue
		}

		switch e.Rail {
		case graduation.RailPix:
			t.PixIn += e.Amount
		case graduation.RailCash:
			t.CashIn += e.Amount
		}

		if e.Type == graduation.EntryMensalidade {
			t.MensalidadeEntries += e.Amount
		}
	}

	for _, e := range s.expenses {
		if e.GraduationID != graduationID {
			continue
		}

		switch e.Rail {
		case graduation.RailPix:
			t.PixOut += e.Amount
		case graduation.RailCash:
			t.CashOut += e.Amount
		}
	}

	for _, tr := range s.transfers {
		if tr.GraduationID != graduationID {
			continue
		}

		switch tr.FromRail {
		case graduation.RailPix:
			t.TransfersPixToCash += tr.Amount
		case graduation.RailCash:
			t.TransfersCashToPix += tr.Amount
		}
	}

	for _, a := range s.adjustments {
		if a.GraduationID != graduationID {
			continue
		}

		switch a.Rail {
		case graduation.RailPix:
			t.AdjustmentsPix += a.Amount
		case graduation.RailCash:
			t.AdjustmentsCash += a.Amount
		}
	}

	for _, o := range s.obligations {
		st, ok := s.students[o.StudentID]
		if !ok {
			continue
		}

		c, ok := s.classes[st.ClassID]
		if !ok || c.GraduationID != graduationID {
			continue
		}

		switch o.Status {
		case graduation.StatusPago:
			t.ObligationsPaid += o.Amount
		case graduation.StatusEmAberto:
			t.ObligationsOpen += o.Amount
		}
	}

	return &t, nil
}
