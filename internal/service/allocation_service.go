package service

import (
	"context"
	"fmt"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/util"
	"github.com/shopspring/decimal"
)

// Skip reasons reported per fund the allocator passed over
const (
	SkipReasonZeroIncrement       = "Increment is 0"
	SkipReasonMaxReached          = "Fund has reached maximum"
	SkipReasonInsufficientBalance = "Insufficient balance (safe mode)"
)

// AllocationService applies fund increments to a month in priority order
type AllocationService struct {
	budgetRepo      domain.BudgetRepository
	fundRepo        domain.FundMasterRepository
	transactionRepo domain.TransactionRepository
	budgetService   *BudgetService
	fundService     *FundService
	txm             domain.TxManager
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(budgetRepo domain.BudgetRepository, fundRepo domain.FundMasterRepository, transactionRepo domain.TransactionRepository, budgetService *BudgetService, fundService *FundService, txm domain.TxManager) *AllocationService {
	return &AllocationService{
		budgetRepo:      budgetRepo,
		fundRepo:        fundRepo,
		transactionRepo: transactionRepo,
		budgetService:   budgetService,
		fundService:     fundService,
		txm:             txm,
	}
}

// AppliedFund is one increment the allocator applied
type AppliedFund struct {
	FundID           int32
	FundName         string
	AmountAdded      decimal.Decimal
	NewMasterBalance decimal.Decimal
}

// SkippedFund is one fund the allocator passed over, with the reason
type SkippedFund struct {
	FundID   int32
	FundName string
	Reason   string
}

// AllocationResult reports a full allocator run
type AllocationResult struct {
	Month           int
	Year            int
	Applied         []AppliedFund
	Skipped         []SkippedFund
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	TotalApplied    decimal.Decimal
	WouldGoNegative bool
}

// Apply runs the allocator for the month: the distributable balance is
// computed, then each enabled fund in (priority, id) order receives its
// increment, clamped to its maximum. In safe mode increments shrink rather
// than drive the balance negative; otherwise they apply in full and
// WouldGoNegative flags the overdraw. The whole run is one transaction and
// the fund rows are locked, so concurrent runs for the same month serialize.
func (s *AllocationService) Apply(ctx context.Context, userID int32, month, year int, safeMode bool) (*AllocationResult, error) {
	month, year = util.ResolveMonth(month, year)
	if !util.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}

	var result *AllocationResult
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		funds, err := s.fundRepo.EnabledFundsForMonth(ctx, userID, month, year)
		if err != nil {
			return err
		}

		balanceBefore, err := s.distributableBalance(ctx, userID, month, year)
		if err != nil {
			return err
		}

		result = &AllocationResult{
			Month:         month,
			Year:          year,
			Applied:       []AppliedFund{},
			Skipped:       []SkippedFund{},
			BalanceBefore: balanceBefore,
			TotalApplied:  decimal.Zero,
		}

		remaining := balanceBefore
		masterBalances := make(map[int32]decimal.Decimal)

		for _, fund := range funds {
			if fund.Fund.Increment.IsZero() {
				result.Skipped = append(result.Skipped, SkippedFund{
					FundID: fund.ID, FundName: fund.Name, Reason: SkipReasonZeroIncrement,
				})
				continue
			}

			masterID := fund.Fund.MasterFundID
			masterBalance, ok := masterBalances[masterID]
			if !ok {
				masterBalance, err = s.fundService.MasterBalance(ctx, masterID)
				if err != nil {
					return err
				}
				masterBalances[masterID] = masterBalance
			}

			amount := fund.Fund.Increment
			if fund.Fund.Max != nil {
				room := fund.Fund.Max.Sub(masterBalance)
				if !room.IsPositive() {
					result.Skipped = append(result.Skipped, SkippedFund{
						FundID: fund.ID, FundName: fund.Name, Reason: SkipReasonMaxReached,
					})
					continue
				}
				if amount.GreaterThan(room) {
					amount = room
				}
			}

			if safeMode && remaining.Sub(amount).IsNegative() {
				amount = remaining
				if amount.IsNegative() {
					amount = decimal.Zero
				}
				if amount.IsZero() {
					result.Skipped = append(result.Skipped, SkippedFund{
						FundID: fund.ID, FundName: fund.Name, Reason: SkipReasonInsufficientBalance,
					})
					continue
				}
			}

			if err := s.fundRepo.AddToMonthAmount(ctx, fund.ID, amount); err != nil {
				return err
			}
			masterBalances[masterID] = masterBalances[masterID].Add(amount)

			result.Applied = append(result.Applied, AppliedFund{
				FundID:           fund.ID,
				FundName:         fund.Name,
				AmountAdded:      amount,
				NewMasterBalance: masterBalances[masterID],
			})
			result.TotalApplied = result.TotalApplied.Add(amount)
			remaining = remaining.Sub(amount)
		}

		result.BalanceAfter = remaining
		result.WouldGoNegative = remaining.IsNegative()
		return nil
	})
	return result, err
}

// distributableBalance is the pool the allocator may hand out: the month's
// income, expense and flexible transaction sums, plus every budget's
// carryover, minus what the month's funds already hold.
func (s *AllocationService) distributableBalance(ctx context.Context, userID int32, month, year int) (decimal.Decimal, error) {
	rows, err := s.budgetRepo.GetMonthRows(ctx, userID, month, year)
	if err != nil {
		return decimal.Zero, err
	}

	start, end := util.MonthBounds(year, month)
	sums, err := s.transactionRepo.MonthSums(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	carryovers, err := s.budgetService.carryovers(ctx, userID, names, month, year)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, row := range rows {
		balance = balance.Add(carryovers[row.Name])
		if row.Fund != nil {
			balance = balance.Sub(row.Fund.MonthAmount)
			continue
		}
		balance = balance.Add(sums[row.ID])
	}
	return balance, nil
}
