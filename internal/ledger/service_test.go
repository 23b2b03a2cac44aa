package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bmoreira/tesouraria/internal/audit"
	"github.com/bmoreira/tesouraria/internal/ledger"
)

func TestService_Create(t *testing.T) {
	account := uuid.New()
	source := uuid.New()
	destination := uuid.New()
	merchant := uuid.New()

	type testCase struct {
		name      string
		params    ledger.CreateParams
		setupMock func(m *ledger.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: ledger.CreateParams{
				Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
				Amount:      1000,
				Type:        ledger.TypeIncome,
				Module:      ledger.ModuleMensalidade,
				AccountID:   &account,
				Description: "Mensalidade março",
				CreatedBy:   "admin@apm.org",
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *ledger.Transaction, deltas []ledger.BalanceDelta, log *audit.Entry) error {
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()

						require.Len(t, deltas, 1)
						assert.Equal(t, int64(1000), deltas[0].Amount)
						assert.Equal(t, audit.ActionChange, log.Action)
						assert.NotNil(t, log.After)

						return nil
					})
			},
		},
		{
			name: "DefaultsReviewToValidated",
			params: ledger.CreateParams{
				Amount:      500,
				Type:        ledger.TypeExpense,
				Module:      ledger.ModuleGasto,
				AccountID:   &account,
				Description: "Material de limpeza",
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *ledger.Transaction, _ []ledger.BalanceDelta, _ *audit.Entry) error {
						assert.Equal(t, ledger.ReviewValidated, tx.Review)
						return nil
					})
			},
		},
		{
			name: "TransferWithoutTypeIsNormalized",
			params: ledger.CreateParams{
				Date:                 time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
				Amount:               4000,
				Module:               ledger.ModuleTransferencia,
				SourceAccountID:      &source,
				DestinationAccountID: &destination,
				Description:          "Depósito do caixa",
				CreatedBy:            "admin@apm.org",
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *ledger.Transaction, deltas []ledger.BalanceDelta, _ *audit.Entry) error {
						assert.Equal(t, ledger.TypeTransfer, tx.Type)

						require.Len(t, deltas, 2)
						assert.Equal(t, int64(-4000), deltas[0].Amount)
						assert.Equal(t, int64(4000), deltas[1].Amount)

						return nil
					})
			},
		},
		{
			name: "NonPositiveAmount",
			params: ledger.CreateParams{
				Amount:    0,
				Type:      ledger.TypeIncome,
				Module:    ledger.ModuleMensalidade,
				AccountID: &account,
			},
			wantErr: errors.New("amount must be positive"),
		},
		{
			name: "UnknownModule",
			params: ledger.CreateParams{
				Amount:    100,
				Type:      ledger.TypeIncome,
				Module:    "cheque",
				AccountID: &account,
			},
			wantErr: errors.New("unknown module"),
		},
		{
			name: "NoAddressing",
			params: ledger.CreateParams{
				Amount: 100,
				Type:   ledger.TypeIncome,
				Module: ledger.ModuleMensalidade,
			},
			wantErr: errors.New("must reference an account"),
		},
		{
			name: "AccountAndTransferPairIsAmbiguous",
			params: ledger.CreateParams{
				Amount:               100,
				Module:               ledger.ModuleTransferencia,
				AccountID:            &account,
				SourceAccountID:      &source,
				DestinationAccountID: &destination,
			},
			wantErr: ledger.ErrAmbiguousAddressing,
		},
		{
			name: "TransferMissingDestination",
			params: ledger.CreateParams{
				Amount:          100,
				Module:          ledger.ModuleTransferencia,
				SourceAccountID: &source,
			},
			wantErr: errors.New("both source and destination"),
		},
		{
			name: "TransferToSameAccount",
			params: ledger.CreateParams{
				Amount:               100,
				Module:               ledger.ModuleTransferencia,
				SourceAccountID:      &source,
				DestinationAccountID: &source,
			},
			wantErr: errors.New("must differ"),
		},
		{
			name: "TransferWithMerchant",
			params: ledger.CreateParams{
				Amount:               100,
				Module:               ledger.ModuleTransferencia,
				SourceAccountID:      &source,
				DestinationAccountID: &destination,
				MerchantID:           &merchant,
			},
			wantErr: errors.New("cannot reference a merchant"),
		},
		{
			name: "ConsumptionWithoutMerchant",
			params: ledger.CreateParams{
				Amount:    100,
				Type:      ledger.TypeExpense,
				Module:    ledger.ModuleConsumoSaldo,
				AccountID: &account,
			},
			wantErr: errors.New("requires a merchant"),
		},
		{
			name: "RepoError",
			params: ledger.CreateParams{
				Amount:    100,
				Type:      ledger.TypeIncome,
				Module:    ledger.ModuleMensalidade,
				AccountID: &account,
			},
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := ledger.NewService(repo)
			got, err := svc.Create(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr.Error())
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, ledger.StatusPosted, got.Status)
		})
	}
}

// Validation failures are marked with ErrInvalidTransaction so the HTTP layer
// can answer 400 for caller mistakes and 500 for everything else without
// echoing repository error text.
func TestService_Create_MarksValidationErrors(t *testing.T) {
	account := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	svc := ledger.NewService(repo)

	_, err := svc.Create(context.Background(), ledger.CreateParams{
		Amount:    -100,
		Type:      ledger.TypeIncome,
		Module:    ledger.ModuleMensalidade,
		AccountID: &account,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransaction)

	repo.EXPECT().
		CreateTransaction(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("connection refused"))

	_, err = svc.Create(context.Background(), ledger.CreateParams{
		Amount:    100,
		Type:      ledger.TypeIncome,
		Module:    ledger.ModuleMensalidade,
		AccountID: &account,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrInvalidTransaction)
}

func TestService_Void(t *testing.T) {
	account := uuid.New()
	txID := uuid.New()

	posted := func() *ledger.Transaction {
		return &ledger.Transaction{
			ID:        txID,
			Amount:    500,
			Type:      ledger.TypeExpense,
			Module:    ledger.ModuleGasto,
			Status:    ledger.StatusPosted,
			AccountID: &account,
		}
	}

	type testCase struct {
		name      string
		reason    string
		setupMock func(m *ledger.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			reason: "Valor errado",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), txID).Return(posted(), nil)
				m.EXPECT().
					VoidTransaction(gomock.Any(), txID, gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, deltas []ledger.BalanceDelta, log *audit.Entry) error {
						require.Len(t, deltas, 1)
						assert.Equal(t, int64(500), deltas[0].Amount)
						assert.Equal(t, audit.ActionVoid, log.Action)
						assert.Equal(t, "Valor errado", log.Reason)
						assert.NotNil(t, log.Before)

						return nil
					})
			},
		},
		{
			name:    "ReasonTooShort",
			reason:  "ok",
			wantErr: ledger.ErrReasonTooShort,
		},
		{
			name:   "ThreeRuneReasonAccepted",
			reason: "não",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), txID).Return(posted(), nil)
				m.EXPECT().
					VoidTransaction(gomock.Any(), txID, gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name:   "AlreadyVoided",
			reason: "Duplicado",
			setupMock: func(m *ledger.MockRepository) {
				tx := posted()
				tx.Status = ledger.StatusVoided
				m.EXPECT().GetTransaction(gomock.Any(), txID).Return(tx, nil)
			},
			wantErr: ledger.ErrAlreadyVoided,
		},
		{
			name:   "NotFound",
			reason: "Duplicado",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), txID).Return(nil, ledger.ErrNotFound)
			},
			wantErr: ledger.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := ledger.NewService(repo)
			err := svc.Void(context.Background(), txID, tt.reason, "admin@apm.org")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Approve(t *testing.T) {
	txID := uuid.New()

	t.Run("FlipsPendingToValidated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := ledger.NewMockRepository(ctrl)
		repo.EXPECT().
			GetTransaction(gomock.Any(), txID).
			Return(&ledger.Transaction{ID: txID, Review: ledger.ReviewPending}, nil)
		repo.EXPECT().
			UpdateReview(gomock.Any(), txID, ledger.ReviewValidated).
			Return(nil)

		svc := ledger.NewService(repo)
		assert.NoError(t, svc.Approve(context.Background(), txID))
	})

	t.Run("AlreadyValidatedIsANoOp", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := ledger.NewMockRepository(ctrl)
		repo.EXPECT().
			GetTransaction(gomock.Any(), txID).
			Return(&ledger.Transaction{ID: txID, Review: ledger.ReviewValidated}, nil)

		svc := ledger.NewService(repo)
		assert.NoError(t, svc.Approve(context.Background(), txID))
	})
}

func TestService_Update(t *testing.T) {
	txID := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().
		GetTransaction(gomock.Any(), txID).
		Return(&ledger.Transaction{ID: txID, Description: "old", Amount: 100}, nil)
	repo.EXPECT().
		UpdateDetails(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *ledger.Transaction, log *audit.Entry) error {
			assert.Equal(t, "new description", tx.Description)
			assert.Equal(t, int64(100), tx.Amount)
			assert.Equal(t, audit.ActionEdit, log.Action)
			assert.NotNil(t, log.Before)
			assert.NotNil(t, log.After)

			return nil
		})

	svc := ledger.NewService(repo)

	desc := "new description"
	got, err := svc.Update(context.Background(), txID, ledger.UpdateParams{
		Description: &desc,
		UpdatedBy:   "admin@apm.org",
	})

	require.NoError(t, err)
	assert.Equal(t, "new description", got.Description)
}
