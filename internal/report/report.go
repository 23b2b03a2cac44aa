package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/ledger"
)

// Summary is the fixed-shape aggregate over one date window. All figures are
// cents and are derived purely from the transaction set: the summary can be
// recomputed at any time and must agree with the stored balances.
type Summary struct {
	Start time.Time
	End   time.Time

	CashIn     int64
	CashOut    int64
	PixIn      int64
	PixOut     int64
	DigitalIn  int64
	DigitalOut int64
	SafeIn     int64
	SafeOut    int64

	MerchantConsumption int64
	MerchantTopUp       int64

	TotalIn  int64
	TotalOut int64

	ByModule map[ledger.Module]ModuleTotals
}

type ModuleTotals struct {
	In  int64
	Out int64
}

type Service struct {
	transactions *ledger.Service
	accounts     *directory.Service
}

func NewService(txService *ledger.Service, dirService *directory.Service) *Service {
	return &Service{transactions: txService, accounts: dirService}
}

// EndOfDay pins the window's upper bound to the last instant of the calendar
// day, so a query for [start, end] includes everything dated on end
// regardless of time of day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}

// Build aggregates the non-voided transactions inside [start, end].
func (s *Service) Build(ctx context.Context, start, end time.Time, entityID *uuid.UUID) (*Summary, error) {
	end = EndOfDay(end)

	posted := ledger.StatusPosted
	filter := ledger.ListFilter{
		Status:    &posted,
		StartDate: &start,
		EndDate:   &end,
	}

	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	accounts, err := s.accounts.ListAccounts(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	kinds := make(map[uuid.UUID]directory.AccountKind, len(accounts))
	inScope := make(map[uuid.UUID]bool, len(accounts))

	for _, a := range accounts {
		kinds[a.ID] = a.Kind
		inScope[a.ID] = true
	}

	summary := &Summary{
		Start:    start,
		End:      end,
		ByModule: make(map[ledger.Module]ModuleTotals),
	}

	for _, tx := range txs {
		for _, d := range tx.Deltas() {
			switch {
			case d.AccountID != nil:
				if entityID != nil && !inScope[*d.AccountID] {
					continue
				}

				summary.addAccountDelta(kinds[*d.AccountID], d.Amount)
				summary.addModuleDelta(tx.Module, d.Amount)
			case d.MerchantID != nil:
				if d.Amount < 0 {
					summary.MerchantConsumption += -d.Amount
				} else {
					summary.MerchantTopUp += d.Amount
				}
			}
		}
	}

	return summary, nil
}

func (s *Summary) addAccountDelta(kind directory.AccountKind, amount int64) {
	in, out := splitSigned(amount)

	switch kind {
	case directory.KindCash:
		s.CashIn += in
		s.CashOut += out
	case directory.KindPix:
		s.PixIn += in
		s.PixOut += out
	case directory.KindDigital:
		s.DigitalIn += in
		s.DigitalOut += out
	case directory.KindSafe:
		s.SafeIn += in
		s.SafeOut += out
	}

	s.TotalIn += in
	s.TotalOut += out
}

func (s *Summary) addModuleDelta(module ledger.Module, amount int64) {
	in, out := splitSigned(amount)

	totals := s.ByModule[module]
	totals.In += in
	totals.Out += out
	s.ByModule[module] = totals
}

func splitSigned(amount int64) (in, out int64) {
	if amount >= 0 {
		return amount, 0
	}

	return 0, -amount
}
