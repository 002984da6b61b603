package service

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/util"
	"github.com/shopspring/decimal"
)

// MonthCopyService seeds a month's budgets from an earlier month
type MonthCopyService struct {
	budgetRepo domain.BudgetRepository
	txm        domain.TxManager
}

// NewMonthCopyService creates a new MonthCopyService
func NewMonthCopyService(budgetRepo domain.BudgetRepository, txm domain.TxManager) *MonthCopyService {
	return &MonthCopyService{budgetRepo: budgetRepo, txm: txm}
}

// MonthCopyResult reports what a copy created, counted per variant
type MonthCopyResult struct {
	Month       int
	Year        int
	SourceMonth int
	SourceYear  int
	Counts      map[string]int
	Total       int
}

// Copy clones the source month's budgets into the target month. The source
// defaults to the month before the target. Income and expense rows are copied
// verbatim; fund rows keep their master, priority, increment and maximum but
// start the new month with a zero allocation. The target month must be empty.
func (s *MonthCopyService) Copy(ctx context.Context, userID int32, month, year, sourceMonth, sourceYear int) (*MonthCopyResult, error) {
	if !util.ValidMonth(month) || year < 1 {
		return nil, fmt.Errorf("%w: target month and year are required", domain.ErrInvalidInput)
	}
	if sourceMonth == 0 || sourceYear == 0 {
		sourceYear, sourceMonth = util.PreviousMonth(year, month)
	}
	if !util.ValidMonth(sourceMonth) {
		return nil, fmt.Errorf("%w: source month must be 1-12", domain.ErrInvalidInput)
	}

	var result *MonthCopyResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		hasTarget, err := s.budgetRepo.HasBudgets(ctx, userID, month, year)
		if err != nil {
			return err
		}
		if hasTarget {
			return domain.ErrTargetMonthHasBudgets
		}

		rows, err := s.budgetRepo.GetMonthRows(ctx, userID, sourceMonth, sourceYear)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return domain.ErrSourceMonthEmpty
		}

		counts := map[string]int{"income": 0, "expense": 0, "flexible": 0, "fund": 0}
		for _, row := range rows {
			budget, err := s.budgetRepo.Create(ctx, &domain.Budget{
				UserID:  userID,
				Name:    row.Name,
				Enabled: row.Enabled,
				Deleted: row.Deleted,
				Month:   month,
				Year:    year,
			})
			if err != nil {
				return err
			}

			switch {
			case row.Income != nil:
				err = s.budgetRepo.CreateIncome(ctx, &domain.Income{
					BudgetID:       budget.ID,
					Fixed:          row.Income.Fixed,
					ExpectedAmount: row.Income.ExpectedAmount,
					Min:            row.Income.Min,
					Max:            row.Income.Max,
				})
				counts["income"]++
			case row.Expense != nil:
				err = s.budgetRepo.CreateExpense(ctx, &domain.Expense{
					BudgetID:       budget.ID,
					Fixed:          row.Expense.Fixed,
					Flexible:       row.Expense.Flexible,
					ExpectedAmount: row.Expense.ExpectedAmount,
					Min:            row.Expense.Min,
					Max:            row.Expense.Max,
				})
				if row.Expense.Flexible {
					counts["flexible"]++
				} else {
					counts["expense"]++
				}
			case row.Fund != nil:
				err = s.budgetRepo.CreateFund(ctx, &domain.Fund{
					BudgetID:     budget.ID,
					Priority:     row.Fund.Priority,
					Increment:    row.Fund.Increment,
					MonthAmount:  decimal.Zero,
					Max:          row.Fund.Max,
					MasterFundID: row.Fund.MasterFundID,
				})
				counts["fund"]++
			}
			if err != nil {
				return err
			}
		}

		result = &MonthCopyResult{
			Month:       month,
			Year:        year,
			SourceMonth: sourceMonth,
			SourceYear:  sourceYear,
			Counts:      counts,
			Total:       len(rows),
		}
		return nil
	})
	return result, err
}
