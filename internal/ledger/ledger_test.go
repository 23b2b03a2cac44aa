package ledger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmoreira/tesouraria/internal/ledger"
)

func TestTransaction_Deltas(t *testing.T) {
	account := uuid.New()
	source := uuid.New()
	destination := uuid.New()
	merchant := uuid.New()

	type testCase struct {
		name string
		tx   ledger.Transaction
		want []ledger.BalanceDelta
	}

	tests := []testCase{
		{
			name: "IncomeCreditsAccount",
			tx: ledger.Transaction{
				Amount:    1000,
				Type:      ledger.TypeIncome,
				Module:    ledger.ModuleMensalidade,
				AccountID: &account,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &account, Amount: 1000},
			},
		},
		{
			name: "ExpenseDebitsAccount",
			tx: ledger.Transaction{
				Amount:    750,
				Type:      ledger.TypeExpense,
				Module:    ledger.ModuleGasto,
				AccountID: &account,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &account, Amount: -750},
			},
		},
		{
			name: "TransferMovesBetweenAccounts",
			tx: ledger.Transaction{
				Amount:               2000,
				Module:               ledger.ModuleTransferencia,
				SourceAccountID:      &source,
				DestinationAccountID: &destination,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &source, Amount: -2000},
				{AccountID: &destination, Amount: 2000},
			},
		},
		{
			name: "ConsumptionDrawsMerchantTabDown",
			tx: ledger.Transaction{
				Amount:     500,
				Type:       ledger.TypeExpense,
				Module:     ledger.ModuleConsumoSaldo,
				AccountID:  &account,
				MerchantID: &merchant,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &account, Amount: -500},
				{MerchantID: &merchant, Amount: -500},
			},
		},
		{
			name: "TopUpFeedsMerchantTab",
			tx: ledger.Transaction{
				Amount:     3000,
				Type:       ledger.TypeExpense,
				Module:     ledger.ModuleAporteSaldo,
				AccountID:  &account,
				MerchantID: &merchant,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &account, Amount: -3000},
				{MerchantID: &merchant, Amount: 3000},
			},
		},
		{
			name: "NeutralModuleIgnoresMerchant",
			tx: ledger.Transaction{
				Amount:     100,
				Type:       ledger.TypeIncome,
				Module:     ledger.ModulePixDiretoUECX,
				AccountID:  &account,
				MerchantID: &merchant,
			},
			want: []ledger.BalanceDelta{
				{AccountID: &account, Amount: 100},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.Deltas())
		})
	}
}

func TestTransaction_ReversalDeltas(t *testing.T) {
	account := uuid.New()
	merchant := uuid.New()

	tx := ledger.Transaction{
		Amount:     500,
		Type:       ledger.TypeExpense,
		Module:     ledger.ModuleConsumoSaldo,
		AccountID:  &account,
		MerchantID: &merchant,
	}

	forward := tx.Deltas()
	reversal := tx.ReversalDeltas()

	require.Len(t, reversal, len(forward))

	for i := range forward {
		assert.Equal(t, forward[i].AccountID, reversal[i].AccountID)
		assert.Equal(t, forward[i].MerchantID, reversal[i].MerchantID)
		assert.Equal(t, -forward[i].Amount, reversal[i].Amount)
	}
}

func TestModule_Valid(t *testing.T) {
	assert.True(t, ledger.ModuleMensalidade.Valid())
	assert.True(t, ledger.ModuleAjuste.Valid())
	assert.False(t, ledger.Module("cheque").Valid())
	assert.False(t, ledger.Module("").Valid())
}

func TestModule_RequiresMerchant(t *testing.T) {
	assert.True(t, ledger.ModuleConsumoSaldo.RequiresMerchant())
	assert.True(t, ledger.ModuleAporteSaldo.RequiresMerchant())
	assert.True(t, ledger.ModuleAporteEstabelecimento.RequiresMerchant())
	assert.False(t, ledger.ModuleMensalidade.RequiresMerchant())
	assert.False(t, ledger.ModuleTransferencia.RequiresMerchant())
}
