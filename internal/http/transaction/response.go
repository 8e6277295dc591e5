package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/transaction"
)

// Response is the wire shape of a transaction, shared with the
// websocket push handler.
type Response struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Type        transaction.Type `json:"type"`
	Amount      int64            `json:"amount"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Category    string           `json:"category,omitempty"`
	ReceiptURL  string           `json:"receipt_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// SummaryResponse is the wire shape of a financial summary.
type SummaryResponse struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	Balance      int64 `json:"balance"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		Date:        tx.Date,
		Description: tx.Description,
		Category:    tx.Category,
		ReceiptURL:  tx.ReceiptURL,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}

func ToSummaryResponse(s transaction.Summary) SummaryResponse {
	return SummaryResponse{
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Balance:      s.Balance,
	}
}
