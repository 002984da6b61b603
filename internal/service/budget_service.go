package service

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/util"
	"github.com/shopspring/decimal"
)

// BudgetService handles monthly budget composition, carryover and lifecycle
type BudgetService struct {
	budgetRepo      domain.BudgetRepository
	transactionRepo domain.TransactionRepository
	fundService     *FundService
	txm             domain.TxManager
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(budgetRepo domain.BudgetRepository, transactionRepo domain.TransactionRepository, fundService *FundService, txm domain.TxManager) *BudgetService {
	return &BudgetService{
		budgetRepo:      budgetRepo,
		transactionRepo: transactionRepo,
		fundService:     fundService,
		txm:             txm,
	}
}

// CategoryView is the computed month view of an income or expense budget
type CategoryView struct {
	ID                      int32
	Name                    string
	Enabled                 bool
	Fixed                   bool
	Flexible                bool
	ExpectedAmount          decimal.Decimal
	Min                     *decimal.Decimal
	Max                     *decimal.Decimal
	TransactionSum          decimal.Decimal
	AmountAfterTransactions decimal.Decimal
	Carryover               decimal.Decimal
}

// FundView is the computed month view of a fund budget
type FundView struct {
	ID                      int32
	Name                    string
	Enabled                 bool
	Priority                int32
	Increment               decimal.Decimal
	MonthAmount             decimal.Decimal
	Max                     *decimal.Decimal
	TransactionSum          decimal.Decimal
	AmountAfterTransactions decimal.Decimal
	Carryover               decimal.Decimal
	MasterFundID            int32
	MasterFundName          *string
	MasterBalance           decimal.Decimal
}

// BudgetsResult buckets a month's budgets by variant
type BudgetsResult struct {
	Month     int
	Year      int
	Incomes   []*CategoryView
	Expenses  []*CategoryView
	Flexibles []*CategoryView
	Funds     []*FundView
}

// carryovers computes the carryover per budget name at (month, year): the
// accumulated effect of every same-named budget in strictly earlier months.
// Earlier fund rows contribute the negated month amount (money committed to
// the fund left the month's pool); earlier income and expense rows contribute
// their own month's transaction sum. Names with no history carry zero.
func (s *BudgetService) carryovers(ctx context.Context, userID int32, names []string, month, year int) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		result[name] = decimal.Zero
	}

	earlier, err := s.budgetRepo.GetEarlierByName(ctx, userID, names, month, year)
	if err != nil {
		return nil, err
	}
	for _, row := range earlier {
		if row.Fund != nil {
			result[row.Name] = result[row.Name].Sub(row.Fund.MonthAmount)
			continue
		}
		start, end := util.MonthBounds(row.Year, row.Month)
		sum, err := s.transactionRepo.SumForBudgetInRange(ctx, row.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("summing carryover for budget %d: %w", row.ID, err)
		}
		result[row.Name] = result[row.Name].Add(sum)
	}
	return result, nil
}

// GetBudgets composes the full month view: every budget with its transaction
// sum, carryover and, for funds, the recomputed master balance. Zero month
// or year default to the current month.
func (s *BudgetService) GetBudgets(ctx context.Context, userID int32, month, year int) (*BudgetsResult, error) {
	month, year = util.ResolveMonth(month, year)
	if !util.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}

	rows, err := s.budgetRepo.GetMonthRows(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}

	start, end := util.MonthBounds(year, month)
	sums, err := s.transactionRepo.MonthSums(ctx, start, end)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	carryovers, err := s.carryovers(ctx, userID, names, month, year)
	if err != nil {
		return nil, err
	}

	result := &BudgetsResult{Month: month, Year: year}
	masterBalances := make(map[int32]decimal.Decimal)

	for _, row := range rows {
		txSum := sums[row.ID]
		carryover := carryovers[row.Name]

		switch {
		case row.Income != nil:
			result.Incomes = append(result.Incomes, &CategoryView{
				ID:                      row.ID,
				Name:                    row.Name,
				Enabled:                 row.Enabled,
				Fixed:                   row.Income.Fixed,
				ExpectedAmount:          row.Income.ExpectedAmount,
				Min:                     row.Income.Min,
				Max:                     row.Income.Max,
				TransactionSum:          txSum,
				AmountAfterTransactions: row.Income.ExpectedAmount.Add(txSum),
				Carryover:               carryover,
			})
		case row.Expense != nil:
			view := &CategoryView{
				ID:                      row.ID,
				Name:                    row.Name,
				Enabled:                 row.Enabled,
				Fixed:                   row.Expense.Fixed,
				Flexible:                row.Expense.Flexible,
				ExpectedAmount:          row.Expense.ExpectedAmount,
				Min:                     row.Expense.Min,
				Max:                     row.Expense.Max,
				TransactionSum:          txSum,
				AmountAfterTransactions: row.Expense.ExpectedAmount.Add(txSum),
				Carryover:               carryover,
			}
			if row.Expense.Flexible {
				result.Flexibles = append(result.Flexibles, view)
			} else {
				result.Expenses = append(result.Expenses, view)
			}
		case row.Fund != nil:
			masterID := row.Fund.MasterFundID
			balance, ok := masterBalances[masterID]
			if !ok {
				balance, err = s.fundService.MasterBalance(ctx, masterID)
				if err != nil {
					return nil, err
				}
				masterBalances[masterID] = balance
			}
			result.Funds = append(result.Funds, &FundView{
				ID:                      row.ID,
				Name:                    row.Name,
				Enabled:                 row.Enabled,
				Priority:                row.Fund.Priority,
				Increment:               row.Fund.Increment,
				MonthAmount:             row.Fund.MonthAmount,
				Max:                     row.Fund.Max,
				TransactionSum:          txSum,
				AmountAfterTransactions: row.Fund.MonthAmount.Add(txSum),
				Carryover:               carryover,
				MasterFundID:            masterID,
				MasterFundName:          row.MasterName,
				MasterBalance:           balance,
			})
		}
	}
	return result, nil
}

// CreateIncomeParams are the inputs for a new income budget
type CreateIncomeParams struct {
	Name           string
	Month          int
	Year           int
	Fixed          bool
	ExpectedAmount decimal.Decimal
	Min            *decimal.Decimal
	Max            *decimal.Decimal
}

// CreateExpenseParams are the inputs for a new expense budget
type CreateExpenseParams struct {
	Name           string
	Month          int
	Year           int
	Fixed          bool
	Flexible       bool
	ExpectedAmount decimal.Decimal
	Min            *decimal.Decimal
	Max            *decimal.Decimal
}

// CreateFundParams are the inputs for a new fund budget. A nil MasterFundID
// starts a fresh master named after the budget.
type CreateFundParams struct {
	Name         string
	Month        int
	Year         int
	Priority     int32
	Increment    decimal.Decimal
	Max          *decimal.Decimal
	MasterFundID *int32
}

func validateBudgetParams(name string, month, year int) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !util.ValidMonth(month) {
		return fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}
	if year < 1 {
		return fmt.Errorf("%w: year is required", domain.ErrInvalidInput)
	}
	return nil
}

// CreateIncome creates an income budget for the month
func (s *BudgetService) CreateIncome(ctx context.Context, userID int32, params CreateIncomeParams) (*domain.BudgetRow, error) {
	if err := validateBudgetParams(params.Name, params.Month, params.Year); err != nil {
		return nil, err
	}

	var row *domain.BudgetRow
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
			UserID:  userID,
			Name:    params.Name,
			Enabled: true,
			Month:   params.Month,
			Year:    params.Year,
		})
		if err != nil {
			return err
		}
		income := &domain.Income{
			BudgetID:       budget.ID,
			Fixed:          params.Fixed,
			ExpectedAmount: params.ExpectedAmount,
			Min:            params.Min,
			Max:            params.Max,
		}
		if err := s.budgetRepo.CreateIncome(ctx, income); err != nil {
			return err
		}
		row = &domain.BudgetRow{Budget: *budget, Income: income}
		return nil
	})
	return row, err
}

// CreateExpense creates an expense budget for the month
func (s *BudgetService) CreateExpense(ctx context.Context, userID int32, params CreateExpenseParams) (*domain.BudgetRow, error) {
	if err := validateBudgetParams(params.Name, params.Month, params.Year); err != nil {
		return nil, err
	}

	var row *domain.BudgetRow
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
			UserID:  userID,
			Name:    params.Name,
			Enabled: true,
			Month:   params.Month,
			Year:    params.Year,
		})
		if err != nil {
			return err
		}
		expense := &domain.Expense{
			BudgetID:       budget.ID,
			Fixed:          params.Fixed,
			Flexible:       params.Flexible,
			ExpectedAmount: params.ExpectedAmount,
			Min:            params.Min,
			Max:            params.Max,
		}
		if err := s.budgetRepo.CreateExpense(ctx, expense); err != nil {
			return err
		}
		row = &domain.BudgetRow{Budget: *budget, Expense: expense}
		return nil
	})
	return row, err
}

// CreateFund creates a fund budget for the month, starting a new master fund
// family when none is given.
func (s *BudgetService) CreateFund(ctx context.Context, userID int32, params CreateFundParams) (*domain.BudgetRow, error) {
	if err := validateBudgetParams(params.Name, params.Month, params.Year); err != nil {
		return nil, err
	}
	if params.Increment.IsNegative() {
		return nil, fmt.Errorf("%w: increment cannot be negative", domain.ErrInvalidInput)
	}

	var row *domain.BudgetRow
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		masterID, err := s.resolveMaster(ctx, userID, params)
		if err != nil {
			return err
		}

		budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
			UserID:  userID,
			Name:    params.Name,
			Enabled: true,
			Month:   params.Month,
			Year:    params.Year,
		})
		if err != nil {
			return err
		}
		fund := &domain.Fund{
			BudgetID:     budget.ID,
			Priority:     params.Priority,
			Increment:    params.Increment,
			MonthAmount:  decimal.Zero,
			Max:          params.Max,
			MasterFundID: masterID,
		}
		if err := s.budgetRepo.CreateFund(ctx, fund); err != nil {
			return err
		}
		row = &domain.BudgetRow{Budget: *budget, Fund: fund}
		return nil
	})
	return row, err
}

// resolveMaster returns the master to attach a new fund to, creating one when
// the params carry no master id.
func (s *BudgetService) resolveMaster(ctx context.Context, userID int32, params CreateFundParams) (int32, error) {
	if params.MasterFundID == nil {
		name := params.Name
		master, err := s.fundService.fundRepo.CreateMaster(ctx, &name)
		if err != nil {
			return 0, err
		}
		return master.ID, nil
	}

	masterID := *params.MasterFundID
	if _, err := s.fundService.fundRepo.GetMaster(ctx, masterID); err != nil {
		return 0, err
	}
	members, err := s.fundService.fundRepo.GetFundsByMaster(ctx, masterID)
	if err != nil {
		return 0, err
	}
	if len(members) > 0 {
		if err := memberOwnership(members, userID); err != nil {
			return 0, err
		}
	}
	hasFund, err := s.fundService.fundRepo.HasFundForMonth(ctx, masterID, params.Month, params.Year)
	if err != nil {
		return 0, err
	}
	if hasFund {
		return 0, domain.ErrFundExistsForMonth
	}
	return masterID, nil
}

// GetBudgetNames lists a month's budget names for assignment pickers
func (s *BudgetService) GetBudgetNames(ctx context.Context, userID int32, month, year int) ([]*domain.BudgetName, error) {
	month, year = util.ResolveMonth(month, year)
	if !util.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}
	return s.budgetRepo.GetNames(ctx, userID, month, year)
}

// DeleteBudget removes a budget the user owns. Variant rows cascade and
// assigned transactions fall back to unassigned.
func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id int32) error {
	return s.budgetRepo.Delete(ctx, userID, id)
}

// DeleteMonth removes every budget in the month and returns how many went
func (s *BudgetService) DeleteMonth(ctx context.Context, userID int32, month, year int) (int, error) {
	if !util.ValidMonth(month) {
		return 0, fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}
	count, err := s.budgetRepo.DeleteMonth(ctx, userID, month, year)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, domain.ErrBudgetNotFound
	}
	return count, nil
}
