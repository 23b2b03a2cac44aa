package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/ledger"
	"github.com/bmoreira/tesouraria/internal/memstore"
	"github.com/bmoreira/tesouraria/internal/report"
)

type fixture struct {
	svc    *report.Service
	ledger *ledger.Service
	cash   *directory.Account
	pix    *directory.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	dir := directory.NewService(store)
	ledgerSvc := ledger.NewService(store)

	entity, err := dir.CreateEntity(ctx, directory.CreateEntityParams{
		Name: "APM Vila Nova",
		Type: directory.EntityAssociacao,
	})
	require.NoError(t, err)

	cash, err := dir.CreateAccount(ctx, directory.CreateAccountParams{
		EntityID: entity.ID, Name: "Caixa", Kind: directory.KindCash,
	})
	require.NoError(t, err)

	pix, err := dir.CreateAccount(ctx, directory.CreateAccountParams{
		EntityID: entity.ID, Name: "Pix", Kind: directory.KindPix,
	})
	require.NoError(t, err)

	return &fixture{
		svc:    report.NewService(ledgerSvc, dir),
		ledger: ledgerSvc,
		cash:   cash,
		pix:    pix,
	}
}

func (f *fixture) post(t *testing.T, date time.Time, cents int64, txType ledger.Type, module ledger.Module, accountID *directory.Account) *ledger.Transaction {
	t.Helper()

	tx, err := f.ledger.Create(context.Background(), ledger.CreateParams{
		Date:        date,
		Amount:      cents,
		Type:        txType,
		Module:      module,
		AccountID:   &accountID.ID,
		Description: "movimento",
		CreatedBy:   "admin@apm.org",
	})
	require.NoError(t, err)

	return tx
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	got := report.EndOfDay(in)

	assert.Equal(t, time.Date(2026, 3, 15, 23, 59, 59, 999999999, time.UTC), got)
}

func TestService_Build_WindowIsInclusiveOfEndDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 23:59:58 on the last day of the window is in; the next morning is out.
	f.post(t, time.Date(2026, 3, 31, 23, 59, 58, 0, time.UTC), 1000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)
	f.post(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), 2000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	summary, err := f.svc.Build(ctx, start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), summary.CashIn)
	assert.Equal(t, int64(1000), summary.TotalIn)
}

func TestService_Build_BucketsByAccountKindAndModule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	date := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	f.post(t, date, 10000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)
	f.post(t, date, 2500, ledger.TypeExpense, ledger.ModuleGasto, f.cash)
	f.post(t, date, 4000, ledger.TypeIncome, ledger.ModulePixDiretoUECX, f.pix)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	summary, err := f.svc.Build(ctx, start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), summary.CashIn)
	assert.Equal(t, int64(2500), summary.CashOut)
	assert.Equal(t, int64(4000), summary.PixIn)
	assert.Equal(t, int64(14000), summary.TotalIn)
	assert.Equal(t, int64(2500), summary.TotalOut)

	assert.Equal(t, int64(10000), summary.ByModule[ledger.ModuleMensalidade].In)
	assert.Equal(t, int64(2500), summary.ByModule[ledger.ModuleGasto].Out)
	assert.Equal(t, int64(4000), summary.ByModule[ledger.ModulePixDiretoUECX].In)
}

func TestService_Build_ExcludesVoided(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	date := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	f.post(t, date, 1000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)
	voided := f.post(t, date, 9000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)

	require.NoError(t, f.ledger.Void(ctx, voided.ID, "Lançamento errado", "admin@apm.org"))

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	summary, err := f.svc.Build(ctx, start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), summary.CashIn)
}

func TestService_Build_TransferShowsOnBothSides(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	date := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	f.post(t, date, 10000, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)

	_, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:                 date,
		Amount:               3000,
		Module:               ledger.ModuleTransferencia,
		SourceAccountID:      &f.cash.ID,
		DestinationAccountID: &f.pix.ID,
		Description:          "depósito",
		CreatedBy:            "admin@apm.org",
	})
	require.NoError(t, err)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	summary, err := f.svc.Build(ctx, start, end, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3000), summary.CashOut)
	assert.Equal(t, int64(3000), summary.PixIn)
	assert.Equal(t, int64(13000), summary.TotalIn)
	assert.Equal(t, int64(3000), summary.TotalOut)
}

func TestService_WriteExcel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	date := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	f.post(t, date, 12345, ledger.TypeIncome, ledger.ModuleMensalidade, f.cash)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, f.svc.WriteExcel(ctx, &buf, start, end, nil))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Contains(t, wb.GetSheetList(), "Movimentações")
	assert.Contains(t, wb.GetSheetList(), "Resumo")

	rows, err := wb.GetRows("Movimentações")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2, "header plus one data row")
}
