package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmoreira/tesouraria/internal/audit"
	"github.com/bmoreira/tesouraria/internal/directory"
	"github.com/bmoreira/tesouraria/internal/ledger"
	"github.com/bmoreira/tesouraria/internal/memstore"
)

// fixture seeds one entity with a cash account and a merchant tab and wires
// the full service stack over a fresh in-memory store.
type fixture struct {
	store    *memstore.Store
	ledger   *ledger.Service
	dir      *directory.Service
	auditSvc *audit.Service
	account  *directory.Account
	merchant *directory.Merchant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	dir := directory.NewService(store)

	entity, err := dir.CreateEntity(ctx, directory.CreateEntityParams{
		Name: "APM Vila Nova",
		Type: directory.EntityAssociacao,
	})
	require.NoError(t, err)

	account, err := dir.CreateAccount(ctx, directory.CreateAccountParams{
		EntityID: entity.ID,
		Name:     "Caixa",
		Kind:     directory.KindCash,
	})
	require.NoError(t, err)

	merchant, err := dir.CreateMerchant(ctx, directory.CreateMerchantParams{
		EntityID: entity.ID,
		Name:     "Cantina da Dona Maria",
	})
	require.NoError(t, err)

	return &fixture{
		store:    store,
		ledger:   ledger.NewService(store),
		dir:      dir,
		auditSvc: audit.NewService(store),
		account:  account,
		merchant: merchant,
	}
}

func (f *fixture) accountBalance(t *testing.T) int64 {
	t.Helper()

	a, err := f.dir.GetAccount(context.Background(), f.account.ID)
	require.NoError(t, err)

	return a.Balance
}

func (f *fixture) merchantBalance(t *testing.T) int64 {
	t.Helper()

	m, err := f.dir.GetMerchant(context.Background(), f.merchant.ID)
	require.NoError(t, err)

	return m.Balance
}

func (f *fixture) topUp(t *testing.T, cents int64) {
	t.Helper()

	_, err := f.ledger.Create(context.Background(), ledger.CreateParams{
		Date:        time.Now(),
		Amount:      cents,
		Type:        ledger.TypeIncome,
		Module:      ledger.ModuleMensalidade,
		AccountID:   &f.account.ID,
		Description: "saldo inicial",
		CreatedBy:   "admin@apm.org",
	})
	require.NoError(t, err)
}

func TestConsumptionAndVoidRestoreBalances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 12500)
	require.Equal(t, int64(12500), f.accountBalance(t))

	tx, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      500,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleConsumoSaldo,
		AccountID:   &f.account.ID,
		MerchantID:  &f.merchant.ID,
		Description: "lanche reunião",
		CreatedBy:   "admin@apm.org",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12000), f.accountBalance(t))
	assert.Equal(t, int64(-500), f.merchantBalance(t))

	require.NoError(t, f.ledger.Void(ctx, tx.ID, "Valor errado", "admin@apm.org"))

	assert.Equal(t, int64(12500), f.accountBalance(t))
	assert.Equal(t, int64(0), f.merchantBalance(t))

	got, err := f.ledger.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoided, got.Status)
}

func TestDoubleVoidIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 1000)

	tx, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      300,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleGasto,
		AccountID:   &f.account.ID,
		Description: "papelaria",
		CreatedBy:   "admin@apm.org",
	})
	require.NoError(t, err)

	require.NoError(t, f.ledger.Void(ctx, tx.ID, "Duplicado", "admin@apm.org"))
	assert.ErrorIs(t, f.ledger.Void(ctx, tx.ID, "De novo", "admin@apm.org"), ledger.ErrAlreadyVoided)

	// The single reversal left the balance exactly where one void would.
	assert.Equal(t, int64(1000), f.accountBalance(t))
}

func TestPostingToDeactivatedAccountIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 5000)

	tx, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      1000,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleGasto,
		AccountID:   &f.account.ID,
		Description: "papelaria",
		CreatedBy:   "admin@apm.org",
	})
	require.NoError(t, err)

	require.NoError(t, f.dir.DeactivateAccount(ctx, f.account.ID))

	_, err = f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      500,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleGasto,
		AccountID:   &f.account.ID,
		Description: "papelaria",
		CreatedBy:   "admin@apm.org",
	})
	assert.ErrorIs(t, err, directory.ErrInactive)

	// Old transactions stay voidable after deactivation.
	require.NoError(t, f.ledger.Void(ctx, tx.ID, "Lançamento duplicado", "admin@apm.org"))
	assert.Equal(t, int64(5000), f.accountBalance(t))
}

func TestConsumptionAgainstDeactivatedMerchantIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 5000)

	require.NoError(t, f.dir.DeactivateMerchant(ctx, f.merchant.ID))

	_, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      500,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleConsumoSaldo,
		AccountID:   &f.account.ID,
		MerchantID:  &f.merchant.ID,
		Description: "lanche",
		CreatedBy:   "admin@apm.org",
	})
	assert.ErrorIs(t, err, directory.ErrInactive)

	// The failed posting must not touch the account either.
	assert.Equal(t, int64(5000), f.accountBalance(t))
}

func TestTransferKeepsTotalConstant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 10000)

	pix, err := f.dir.CreateAccount(ctx, directory.CreateAccountParams{
		EntityID: f.account.EntityID,
		Name:     "Pix",
		Kind:     directory.KindPix,
	})
	require.NoError(t, err)

	_, err = f.ledger.Create(ctx, ledger.CreateParams{
		Date:                 time.Now(),
		Amount:               4000,
		Module:               ledger.ModuleTransferencia,
		SourceAccountID:      &f.account.ID,
		DestinationAccountID: &pix.ID,
		Description:          "depósito de caixa",
		CreatedBy:            "admin@apm.org",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6000), f.accountBalance(t))

	pixAfter, err := f.dir.GetAccount(ctx, pix.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), pixAfter.Balance)
}

// The stored balance must always equal the replay of all posted transactions,
// whatever interleaving of creates and voids produced it.
func TestStoredBalanceMatchesLedgerReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	amounts := []int64{12500, 700, 1300, 250, 4000}
	var created []ledger.Transaction

	for i, cents := range amounts {
		txType := ledger.TypeIncome
		module := ledger.ModuleMensalidade

		if i%2 == 1 {
			txType = ledger.TypeExpense
			module = ledger.ModuleGasto
		}

		tx, err := f.ledger.Create(ctx, ledger.CreateParams{
			Date:        time.Now(),
			Amount:      cents,
			Type:        txType,
			Module:      module,
			AccountID:   &f.account.ID,
			Description: "movimento",
			CreatedBy:   "admin@apm.org",
		})
		require.NoError(t, err)
		created = append(created, *tx)
	}

	require.NoError(t, f.ledger.Void(ctx, created[1].ID, "Lançamento duplicado", "admin@apm.org"))

	posted := ledger.StatusPosted
	txs, err := f.ledger.List(ctx, ledger.ListFilter{Status: &posted, AccountID: &f.account.ID})
	require.NoError(t, err)

	var replayed int64

	for _, tx := range txs {
		for _, d := range tx.Deltas() {
			if d.AccountID != nil && *d.AccountID == f.account.ID {
				replayed += d.Amount
			}
		}
	}

	assert.Equal(t, replayed, f.accountBalance(t))
}

func TestAuditTrailRecordsEveryMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 2000)

	tx, err := f.ledger.Create(ctx, ledger.CreateParams{
		Date:        time.Now(),
		Amount:      800,
		Type:        ledger.TypeExpense,
		Module:      ledger.ModuleGasto,
		AccountID:   &f.account.ID,
		Description: "fantasias",
		CreatedBy:   "secretaria@apm.org",
	})
	require.NoError(t, err)

	desc := "fantasias da festa junina"
	_, err = f.ledger.Update(ctx, tx.ID, ledger.UpdateParams{Description: &desc, UpdatedBy: "admin@apm.org"})
	require.NoError(t, err)

	require.NoError(t, f.ledger.Void(ctx, tx.ID, "Nota cancelada", "admin@apm.org"))

	entries, err := f.auditSvc.List(ctx, audit.ListFilter{TransactionID: &tx.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, audit.ActionVoid, entries[0].Action)
	assert.Equal(t, "Nota cancelada", entries[0].Reason)
	assert.Equal(t, audit.ActionEdit, entries[1].Action)
	assert.Equal(t, audit.ActionChange, entries[2].Action)
}

func TestResetDropsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.topUp(t, 1000)
	f.store.Reset()

	_, err := f.dir.GetAccount(ctx, f.account.ID)
	assert.ErrorIs(t, err, directory.ErrNotFound)

	txs, err := f.ledger.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}
