package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/ledger"
)

type transactionResponse struct {
	ID                   uuid.UUID     `json:"id"`
	Date                 time.Time     `json:"date"`
	Amount               int64         `json:"amount"`
	Type                 ledger.Type   `json:"type"`
	Module               ledger.Module `json:"module"`
	Status               ledger.Status `json:"status"`
	Review               ledger.Review `json:"review"`
	AccountID            *uuid.UUID    `json:"account_id,omitempty"`
	SourceAccountID      *uuid.UUID    `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID    `json:"destination_account_id,omitempty"`
	MerchantID           *uuid.UUID    `json:"merchant_id,omitempty"`
	Description          string        `json:"description"`
	Notes                string        `json:"notes,omitempty"`
	CreatedBy            string        `json:"created_by"`
	ParentID             *uuid.UUID    `json:"parent_transaction_id,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            *time.Time    `json:"updated_at,omitempty"`
}

func toResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   tx.ID,
		Date:                 tx.Date,
		Amount:               tx.Amount,
		Type:                 tx.Type,
		Module:               tx.Module,
		Status:               tx.Status,
		Review:               tx.Review,
		AccountID:            tx.AccountID,
		SourceAccountID:      tx.SourceAccountID,
		DestinationAccountID: tx.DestinationAccountID,
		MerchantID:           tx.MerchantID,
		Description:          tx.Description,
		Notes:                tx.Notes,
		CreatedBy:            tx.CreatedBy,
		ParentID:             tx.ParentID,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
	}
}

func toResponseList(txs []*ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
