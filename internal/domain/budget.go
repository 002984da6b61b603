package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a named category owned by a user and scoped to exactly one
// (month, year). The name is the stable identity key across months for
// carryover and month-copy purposes.
type Budget struct {
	ID        int32     `json:"id"`
	UserID    int32     `json:"userId"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Deleted   bool      `json:"deleted"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"createdAt"`
}

// Income is the income variant of a budget. BudgetID doubles as the row id.
type Income struct {
	BudgetID       int32            `json:"budgetId"`
	Fixed          bool             `json:"fixed"`
	ExpectedAmount decimal.Decimal  `json:"expectedAmount"`
	Min            *decimal.Decimal `json:"min,omitempty"`
	Max            *decimal.Decimal `json:"max,omitempty"`
}

// Expense is the expense variant. Flexible distinguishes the variable
// spending bucket from fixed recurring expenses.
type Expense struct {
	BudgetID       int32            `json:"budgetId"`
	Fixed          bool             `json:"fixed"`
	Flexible       bool             `json:"flexible"`
	ExpectedAmount decimal.Decimal  `json:"expectedAmount"`
	Min            *decimal.Decimal `json:"min,omitempty"`
	Max            *decimal.Decimal `json:"max,omitempty"`
}

// Fund is the savings-envelope variant. MonthAmount is this month's
// allocation only, never cumulative; the cumulative balance lives on the
// master and is always recomputed.
type Fund struct {
	BudgetID     int32            `json:"budgetId"`
	Priority     int32            `json:"priority"`
	Increment    decimal.Decimal  `json:"increment"`
	MonthAmount  decimal.Decimal  `json:"monthAmount"`
	Max          *decimal.Decimal `json:"max,omitempty"`
	MasterFundID int32            `json:"masterFundId"`
}

// FundMaster is the persistent identity of a fund family. It carries no
// balance: the authoritative balance is always recomputed as the sum of
// (month_amount + transaction sum) over its member fund rows.
type FundMaster struct {
	ID        int32     `json:"id"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// BudgetRow joins a budget with its variant extension. Exactly one of
// Income, Expense or Fund is non-nil; the variant is resolved by which
// extension row exists. MasterName is populated for fund rows.
type BudgetRow struct {
	Budget
	Income     *Income  `json:"income,omitempty"`
	Expense    *Expense `json:"expense,omitempty"`
	Fund       *Fund    `json:"fund,omitempty"`
	MasterName *string  `json:"masterName,omitempty"`
}

// BudgetName is the lightweight listing shape for assignment pickers.
type BudgetName struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	MasterFundID *int32 `json:"masterId,omitempty"`
}

type BudgetRepository interface {
	// Create inserts the budget row and returns it with the generated id.
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	CreateIncome(ctx context.Context, income *Income) error
	CreateExpense(ctx context.Context, expense *Expense) error
	CreateFund(ctx context.Context, fund *Fund) error

	GetByID(ctx context.Context, userID, id int32) (*Budget, error)
	// GetMonthRows returns the month's budgets joined with their variant rows.
	GetMonthRows(ctx context.Context, userID int32, month, year int) ([]*BudgetRow, error)
	GetNames(ctx context.Context, userID int32, month, year int) ([]*BudgetName, error)
	// GetEarlierByName returns every budget row owned by the user whose name
	// is in names and whose (year, month) is strictly before the given one.
	GetEarlierByName(ctx context.Context, userID int32, names []string, month, year int) ([]*BudgetRow, error)
	HasBudgets(ctx context.Context, userID int32, month, year int) (bool, error)

	Delete(ctx context.Context, userID, id int32) error
	// DeleteMonth removes every budget for the month and returns the count.
	DeleteMonth(ctx context.Context, userID int32, month, year int) (int, error)
}

type FundMasterRepository interface {
	CreateMaster(ctx context.Context, name *string) (*FundMaster, error)
	GetMaster(ctx context.Context, id int32) (*FundMaster, error)
	DeleteMaster(ctx context.Context, id int32) error

	// GetFundRow returns the fund's budget row with fund and master joined.
	GetFundRow(ctx context.Context, budgetID int32) (*BudgetRow, error)
	// GetFundsByMaster returns member fund rows ordered by (year, month) asc.
	GetFundsByMaster(ctx context.Context, masterID int32) ([]*BudgetRow, error)
	// GetMastersForUser returns every master referenced by a fund the user owns.
	GetMastersForUser(ctx context.Context, userID int32) ([]*FundMaster, error)
	HasFundForMonth(ctx context.Context, masterID int32, month, year int) (bool, error)
	// LastFund returns the most recent member fund row by (year, month).
	LastFund(ctx context.Context, masterID int32) (*BudgetRow, error)

	// Repoint moves every fund on fromMasterID to toMasterID, returning the
	// number of funds moved.
	Repoint(ctx context.Context, fromMasterID, toMasterID int32) (int, error)
	SetMaster(ctx context.Context, budgetID, masterID int32) error
	AddToMonthAmount(ctx context.Context, budgetID int32, delta decimal.Decimal) error

	// EnabledFundsForMonth returns the user's enabled fund rows for the month
	// ordered by (priority asc, id asc), locking them for the duration of the
	// surrounding transaction so concurrent allocator runs serialize.
	EnabledFundsForMonth(ctx context.Context, userID int32, month, year int) ([]*BudgetRow, error)
}
