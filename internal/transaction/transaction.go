package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type represents the kind of financial transaction.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
	TypePayment    Type = "payment"
	TypeInvestment Type = "investment"
)

// Types lists every valid transaction type. Deposit is the only
// income-contributing type; the rest count as outflow.
var Types = []Type{TypeDeposit, TypeWithdrawal, TypeTransfer, TypePayment, TypeInvestment}

// Valid reports whether t is one of the known transaction types.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypePayment, TypeInvestment:
		return true
	}

	return false
}

// Income reports whether the type contributes to income rather than expense.
func (t Type) Income() bool {
	return t == TypeDeposit
}

var ErrNotFound = errors.New("transaction not found")

// Transaction represents a single financial movement owned by one user.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        Type
	Amount      int64 // Amount in cents, always positive
	Date        time.Time
	Description string
	Category    string
	ReceiptURL  string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Summary aggregates a transaction list into income, expense and balance,
// all in cents.
type Summary struct {
	TotalIncome  int64
	TotalExpense int64
	Balance      int64
}

// Summarize computes the financial summary of txs. Deposits count as income,
// every other type as expense; balance is income minus expense.
func Summarize(txs []*Transaction) Summary {
	var s Summary

	for _, tx := range txs {
		if tx.Type.Income() {
			s.TotalIncome += tx.Amount
		} else {
			s.TotalExpense += tx.Amount
		}
	}

	s.Balance = s.TotalIncome - s.TotalExpense

	return s
}
