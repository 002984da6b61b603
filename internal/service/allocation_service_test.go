package service

import (
	"context"
	"testing"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

type allocationFixture struct {
	budgetRepo      *testutil.MockBudgetRepository
	fundRepo        *testutil.MockFundMasterRepository
	transactionRepo *testutil.MockTransactionRepository
	service         *AllocationService
}

func newAllocationFixture() *allocationFixture {
	budgetRepo := testutil.NewMockBudgetRepository()
	fundRepo := testutil.NewMockFundMasterRepository(budgetRepo)
	transactionRepo := testutil.NewMockTransactionRepository()
	txm := testutil.NewMockTxManager()
	fundService := NewFundService(fundRepo, budgetRepo, transactionRepo, txm)
	budgetService := NewBudgetService(budgetRepo, transactionRepo, fundService, txm)
	return &allocationFixture{
		budgetRepo:      budgetRepo,
		fundRepo:        fundRepo,
		transactionRepo: transactionRepo,
		service: NewAllocationService(budgetRepo, fundRepo, transactionRepo,
			budgetService, fundService, txm),
	}
}

// addIncomeWithSum gives the month a distributable balance via an income
// budget with one posted transaction.
func (f *allocationFixture) addIncomeWithSum(userID int32, month, year int, amount decimal.Decimal) {
	income := f.budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: month, Year: year},
		Income: &domain.Income{ExpectedAmount: amount},
	})
	id := income.ID
	f.transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: amount, BudgetID: &id, TransactedAt: midMonth(year, month),
	})
}

func (f *allocationFixture) addFund(userID int32, name string, month, year int, priority int32, increment decimal.Decimal, max *decimal.Decimal) *domain.BudgetRow {
	master := f.fundRepo.AddMaster(&domain.FundMaster{})
	return f.budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: name, Enabled: true, Month: month, Year: year},
		Fund: &domain.Fund{
			Priority:     priority,
			Increment:    increment,
			MonthAmount:  decimal.Zero,
			Max:          max,
			MasterFundID: master.ID,
		},
	})
}

func TestApply_PriorityOrder(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(500))
	second := f.addFund(userID, "Second", 2, 2026, 20, decimal.NewFromInt(100), nil)
	first := f.addFund(userID, "First", 2, 2026, 10, decimal.NewFromInt(200), nil)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.BalanceBefore.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected balance before 500, got %s", result.BalanceBefore.String())
	}
	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied, got %d", len(result.Applied))
	}
	if result.Applied[0].FundID != first.ID || result.Applied[1].FundID != second.ID {
		t.Errorf("funds applied out of priority order: %+v", result.Applied)
	}
	if !result.TotalApplied.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected total applied 300, got %s", result.TotalApplied.String())
	}
	if !result.BalanceAfter.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected balance after 200, got %s", result.BalanceAfter.String())
	}
	if result.WouldGoNegative {
		t.Errorf("balance stayed positive, WouldGoNegative should be false")
	}
	if !first.Fund.MonthAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected first fund month amount 200, got %s", first.Fund.MonthAmount.String())
	}
}

func TestApply_MaxClamp(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(500))
	max := decimal.NewFromInt(100)
	fund := f.addFund(userID, "Capped", 2, 2026, 10, decimal.NewFromInt(20), &max)
	// The family already holds 95, so only 5 of the 20 fits.
	f.budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Capped", Enabled: true, Month: 1, Year: 2026},
		Fund: &domain.Fund{
			MonthAmount:  decimal.NewFromInt(95),
			MasterFundID: fund.Fund.MasterFundID,
		},
	})

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(result.Applied) != 1 {
		t.Fatalf("expected 1 applied, got %d", len(result.Applied))
	}
	if !result.Applied[0].AmountAdded.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected clamped amount 5, got %s", result.Applied[0].AmountAdded.String())
	}
	if !result.Applied[0].NewMasterBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected new master balance 100, got %s", result.Applied[0].NewMasterBalance.String())
	}
}

func TestApply_MaxReached(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(500))
	max := decimal.NewFromInt(100)
	fund := f.addFund(userID, "Full", 2, 2026, 10, decimal.NewFromInt(20), &max)
	fund.Fund.MonthAmount = decimal.NewFromInt(100)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped, got %d", len(result.Skipped))
	}
	if result.Skipped[0].Reason != SkipReasonMaxReached {
		t.Errorf("expected reason %q, got %q", SkipReasonMaxReached, result.Skipped[0].Reason)
	}
	// The committed 100 reduces the distributable pool.
	if !result.BalanceBefore.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected balance before 400, got %s", result.BalanceBefore.String())
	}
}

func TestApply_ZeroIncrement(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(500))
	f.addFund(userID, "Paused", 2, 2026, 10, decimal.Zero, nil)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipReasonZeroIncrement {
		t.Errorf("expected one zero-increment skip, got %+v", result.Skipped)
	}
}

func TestApply_SafeMode(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(10))
	a := f.addFund(userID, "A", 2, 2026, 10, decimal.NewFromInt(8), nil)
	b := f.addFund(userID, "B", 2, 2026, 20, decimal.NewFromInt(8), nil)
	f.addFund(userID, "C", 2, 2026, 30, decimal.NewFromInt(8), nil)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, true)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(result.Applied) != 2 {
		t.Fatalf("expected 2 applied, got %d", len(result.Applied))
	}
	if result.Applied[0].FundID != a.ID || !result.Applied[0].AmountAdded.Equal(decimal.NewFromInt(8)) {
		t.Errorf("first fund should get its full increment: %+v", result.Applied[0])
	}
	// Only 2 left for the second fund.
	if result.Applied[1].FundID != b.ID || !result.Applied[1].AmountAdded.Equal(decimal.NewFromInt(2)) {
		t.Errorf("second fund should get the remainder: %+v", result.Applied[1])
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipReasonInsufficientBalance {
		t.Errorf("third fund should be skipped for balance, got %+v", result.Skipped)
	}
	if !result.BalanceAfter.IsZero() {
		t.Errorf("expected balance after 0, got %s", result.BalanceAfter.String())
	}
	if result.WouldGoNegative {
		t.Errorf("safe mode never overdraws")
	}
}

func TestApply_WouldGoNegative(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(10))
	f.addFund(userID, "A", 2, 2026, 10, decimal.NewFromInt(8), nil)
	f.addFund(userID, "B", 2, 2026, 20, decimal.NewFromInt(8), nil)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.TotalApplied.Equal(decimal.NewFromInt(16)) {
		t.Errorf("expected total applied 16, got %s", result.TotalApplied.String())
	}
	if !result.BalanceAfter.Equal(decimal.NewFromInt(-6)) {
		t.Errorf("expected balance after -6, got %s", result.BalanceAfter.String())
	}
	if !result.WouldGoNegative {
		t.Errorf("expected WouldGoNegative")
	}
}

func TestApply_CarryoverInBalance(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	// January salary earned 100, no February transactions yet: the pool is
	// carryover only.
	f.addIncomeWithSum(userID, 1, 2026, decimal.NewFromInt(100))
	f.budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: 2, Year: 2026},
		Income: &domain.Income{ExpectedAmount: decimal.NewFromInt(100)},
	})
	f.addFund(userID, "Savings", 2, 2026, 10, decimal.NewFromInt(30), nil)

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.BalanceBefore.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance before 100 from carryover, got %s", result.BalanceBefore.String())
	}
	if !result.TotalApplied.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected total applied 30, got %s", result.TotalApplied.String())
	}
}

func TestApply_DisabledFundIgnored(t *testing.T) {
	f := newAllocationFixture()
	userID := int32(1)

	f.addIncomeWithSum(userID, 2, 2026, decimal.NewFromInt(500))
	fund := f.addFund(userID, "Disabled", 2, 2026, 10, decimal.NewFromInt(50), nil)
	fund.Enabled = false

	result, err := f.service.Apply(context.Background(), userID, 2, 2026, false)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(result.Applied) != 0 || len(result.Skipped) != 0 {
		t.Errorf("disabled fund should not appear at all: %+v %+v", result.Applied, result.Skipped)
	}
}
