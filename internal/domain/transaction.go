package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer      TransactionType = "transfer"
	TransactionTypeCreditPayment TransactionType = "credit_payment"
	TransactionTypeLoanPayment   TransactionType = "loan_payment"
)

// ValidTransactionType reports whether t is a member of the closed type enum.
// A nil type (regular transaction) is handled by callers before this check.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeCreditPayment, TransactionTypeLoanPayment:
		return true
	}
	return false
}

// LineItemTolerance is the allowed rounding gap between a split transaction's
// amount and the sum of its line items.
var LineItemTolerance = decimal.RequireFromString("0.01")

// Transaction is a synced bank transaction. Immutable except for budget
// assignment, split state and type marking. Amount is signed, positive is an
// inflow. If IsSplit is true the amount must not be counted in aggregations,
// only its line items count.
type Transaction struct {
	ID                int32            `json:"id"`
	ExternalID        string           `json:"externalId"`
	AccountID         string           `json:"accountId"`
	Amount            decimal.Decimal  `json:"amount"`
	Description       string           `json:"description"`
	Payee             *string          `json:"payee,omitempty"`
	Memo              *string          `json:"memo,omitempty"`
	Posted            *time.Time       `json:"posted,omitempty"`
	TransactedAt      time.Time        `json:"transactedAt"`
	Pending           bool             `json:"pending"`
	IsSplit           bool             `json:"isSplit"`
	Type              *TransactionType `json:"type,omitempty"`
	ExcludeFromBudget bool             `json:"excludeFromBudget"`
	BudgetID          *int32           `json:"budgetId,omitempty"`
}

// LineItem is a sub-allocation of a split transaction. Each line item may
// target a different budget than its siblings.
type LineItem struct {
	ID            int32            `json:"id"`
	TransactionID int32            `json:"transactionId"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unitPrice,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	BudgetID      *int32           `json:"budgetId,omitempty"`
}

type TransactionFilters struct {
	StartDate       *time.Time
	EndDate         *time.Time
	Types           []TransactionType
	IncludeExcluded bool
	SortAsc         bool
	Page            int32
	PageSize        int32
}

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
}

type TransactionRepository interface {
	// UpsertBatch inserts or refreshes transactions for an account by their
	// external id, returning the number of rows written.
	UpsertBatch(ctx context.Context, accountID string, transactions []*Transaction) (int, error)
	GetByID(ctx context.Context, userID, id int32) (*Transaction, error)
	GetForUser(ctx context.Context, userID int32, start, end time.Time, filters *TransactionFilters) (*PaginatedTransactions, error)
	AssignBudget(ctx context.Context, userID, id int32, budgetID *int32) error
	MarkType(ctx context.Context, userID, id int32, transactionType *TransactionType, excludeFromBudget bool) (*Transaction, error)

	// CreateLineItems persists the items and marks the parent as split in the
	// same operation.
	CreateLineItems(ctx context.Context, transactionID int32, items []*LineItem) ([]*LineItem, error)
	GetLineItems(ctx context.Context, transactionID int32) ([]*LineItem, error)
	GetLineItem(ctx context.Context, id int32) (*LineItem, error)
	UpdateLineItem(ctx context.Context, item *LineItem) (*LineItem, error)
	DeleteLineItem(ctx context.Context, id int32) error

	// SumForBudget returns the lifetime transaction-derived sum for a budget:
	// unsplit transaction amounts plus line item amounts assigned to it.
	SumForBudget(ctx context.Context, budgetID int32) (decimal.Decimal, error)
	// SumForBudgetInRange is SumForBudget restricted to transactions whose
	// transacted_at falls in [start, end).
	SumForBudgetInRange(ctx context.Context, budgetID int32, start, end time.Time) (decimal.Decimal, error)
	// MonthSums returns the per-budget transaction-derived sums for every
	// budget with activity in [start, end), in one pass.
	MonthSums(ctx context.Context, start, end time.Time) (map[int32]decimal.Decimal, error)
}
