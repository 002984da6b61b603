package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func newBudgetFixture() (*testutil.MockBudgetRepository, *testutil.MockFundMasterRepository, *testutil.MockTransactionRepository, *BudgetService) {
	budgetRepo := testutil.NewMockBudgetRepository()
	fundRepo := testutil.NewMockFundMasterRepository(budgetRepo)
	transactionRepo := testutil.NewMockTransactionRepository()
	txm := testutil.NewMockTxManager()
	fundService := NewFundService(fundRepo, budgetRepo, transactionRepo, txm)
	budgetService := NewBudgetService(budgetRepo, transactionRepo, fundService, txm)
	return budgetRepo, fundRepo, transactionRepo, budgetService
}

func midMonth(year, month int) time.Time {
	return time.Date(year, time.Month(month), 15, 12, 0, 0, 0, time.UTC)
}

func TestGetBudgets(t *testing.T) {
	budgetRepo, fundRepo, transactionRepo, service := newBudgetFixture()
	userID := int32(1)

	salary := budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: 2, Year: 2026},
		Income: &domain.Income{Fixed: true, ExpectedAmount: decimal.NewFromInt(3000)},
	})
	rent := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Rent", Enabled: true, Month: 2, Year: 2026},
		Expense: &domain.Expense{Fixed: true, ExpectedAmount: decimal.NewFromInt(-1200)},
	})
	groceries := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Groceries", Enabled: true, Month: 2, Year: 2026},
		Expense: &domain.Expense{Flexible: true, ExpectedAmount: decimal.NewFromInt(-400)},
	})
	master := fundRepo.AddMaster(&domain.FundMaster{})
	vacation := addFundRow(budgetRepo, userID, "Vacation", 2, 2026, master.ID, decimal.NewFromInt(150))

	salaryID, groceriesID := salary.ID, groceries.ID
	transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(2900), BudgetID: &salaryID, TransactedAt: midMonth(2026, 2),
	})
	transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-120), BudgetID: &groceriesID, TransactedAt: midMonth(2026, 2),
	})

	result, err := service.GetBudgets(context.Background(), userID, 2, 2026)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(result.Incomes) != 1 || len(result.Expenses) != 1 || len(result.Flexibles) != 1 || len(result.Funds) != 1 {
		t.Fatalf("wrong bucket sizes: %d/%d/%d/%d",
			len(result.Incomes), len(result.Expenses), len(result.Flexibles), len(result.Funds))
	}

	income := result.Incomes[0]
	if !income.TransactionSum.Equal(decimal.NewFromInt(2900)) {
		t.Errorf("expected salary sum 2900, got %s", income.TransactionSum.String())
	}
	if !income.AmountAfterTransactions.Equal(decimal.NewFromInt(5900)) {
		t.Errorf("expected salary after 5900, got %s", income.AmountAfterTransactions.String())
	}

	if result.Expenses[0].ID != rent.ID {
		t.Errorf("rent should land in the fixed expense bucket")
	}
	flexible := result.Flexibles[0]
	if !flexible.AmountAfterTransactions.Equal(decimal.NewFromInt(-520)) {
		t.Errorf("expected groceries after -520, got %s", flexible.AmountAfterTransactions.String())
	}

	fund := result.Funds[0]
	if fund.ID != vacation.ID {
		t.Errorf("expected vacation fund, got %d", fund.ID)
	}
	if !fund.MasterBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected master balance 150, got %s", fund.MasterBalance.String())
	}
	if !fund.AmountAfterTransactions.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected fund after 150, got %s", fund.AmountAfterTransactions.String())
	}
}

func TestGetBudgets_Carryover(t *testing.T) {
	budgetRepo, fundRepo, transactionRepo, service := newBudgetFixture()
	userID := int32(1)

	// January history: salary earned 2900, vacation fund held 100.
	prevSalary := budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: 1, Year: 2026},
		Income: &domain.Income{ExpectedAmount: decimal.NewFromInt(3000)},
	})
	master := fundRepo.AddMaster(&domain.FundMaster{})
	addFundRow(budgetRepo, userID, "Vacation", 1, 2026, master.ID, decimal.NewFromInt(100))

	prevID := prevSalary.ID
	transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(2900), BudgetID: &prevID, TransactedAt: midMonth(2026, 1),
	})

	// February rows under the same names.
	budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: 2, Year: 2026},
		Income: &domain.Income{ExpectedAmount: decimal.NewFromInt(3000)},
	})
	addFundRow(budgetRepo, userID, "Vacation", 2, 2026, master.ID, decimal.Zero)

	result, err := service.GetBudgets(context.Background(), userID, 2, 2026)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Incomes[0].Carryover.Equal(decimal.NewFromInt(2900)) {
		t.Errorf("expected salary carryover 2900, got %s", result.Incomes[0].Carryover.String())
	}
	// Fund history carries the negated allocation: the 100 committed in
	// January is no longer distributable.
	if !result.Funds[0].Carryover.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("expected fund carryover -100, got %s", result.Funds[0].Carryover.String())
	}
}

func TestGetBudgets_NoHistory(t *testing.T) {
	budgetRepo, _, _, service := newBudgetFixture()
	userID := int32(1)

	budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Enabled: true, Month: 1, Year: 2026},
		Income: &domain.Income{ExpectedAmount: decimal.NewFromInt(3000)},
	})

	result, err := service.GetBudgets(context.Background(), userID, 1, 2026)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Incomes[0].Carryover.IsZero() {
		t.Errorf("expected zero carryover with no history, got %s", result.Incomes[0].Carryover.String())
	}
}

func TestCreateFund_NewMaster(t *testing.T) {
	_, fundRepo, _, service := newBudgetFixture()
	userID := int32(1)

	row, err := service.CreateFund(context.Background(), userID, CreateFundParams{
		Name:      "Vacation",
		Month:     3,
		Year:      2026,
		Priority:  10,
		Increment: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if row.Fund == nil {
		t.Fatalf("expected a fund row")
	}
	if !row.Fund.MonthAmount.IsZero() {
		t.Errorf("new fund should start at zero, got %s", row.Fund.MonthAmount.String())
	}
	master := fundRepo.Masters[row.Fund.MasterFundID]
	if master == nil {
		t.Fatalf("expected a master to be created")
	}
	if master.Name == nil || *master.Name != "Vacation" {
		t.Errorf("master should be named after the budget")
	}
}

func TestCreateFund_ExistingMaster(t *testing.T) {
	budgetRepo, fundRepo, _, service := newBudgetFixture()
	userID := int32(1)

	master := fundRepo.AddMaster(&domain.FundMaster{})
	addFundRow(budgetRepo, userID, "Vacation", 2, 2026, master.ID, decimal.NewFromInt(100))

	row, err := service.CreateFund(context.Background(), userID, CreateFundParams{
		Name:         "Vacation",
		Month:        3,
		Year:         2026,
		Increment:    decimal.NewFromInt(50),
		MasterFundID: &master.ID,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if row.Fund.MasterFundID != master.ID {
		t.Errorf("fund should join the existing master")
	}
}

func TestCreateFund_MasterConflict(t *testing.T) {
	budgetRepo, fundRepo, _, service := newBudgetFixture()
	userID := int32(1)

	master := fundRepo.AddMaster(&domain.FundMaster{})
	addFundRow(budgetRepo, userID, "Vacation", 3, 2026, master.ID, decimal.Zero)

	_, err := service.CreateFund(context.Background(), userID, CreateFundParams{
		Name:         "Vacation",
		Month:        3,
		Year:         2026,
		Increment:    decimal.NewFromInt(50),
		MasterFundID: &master.ID,
	})
	if !errors.Is(err, domain.ErrFundExistsForMonth) {
		t.Errorf("expected ErrFundExistsForMonth, got: %v", err)
	}
}

func TestCreateIncome_Validation(t *testing.T) {
	_, _, _, service := newBudgetFixture()

	_, err := service.CreateIncome(context.Background(), 1, CreateIncomeParams{
		Name: "", Month: 1, Year: 2026,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty name, got: %v", err)
	}

	_, err = service.CreateIncome(context.Background(), 1, CreateIncomeParams{
		Name: "Salary", Month: 13, Year: 2026,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for month 13, got: %v", err)
	}
}

func TestDeleteMonth(t *testing.T) {
	budgetRepo, _, _, service := newBudgetFixture()
	userID := int32(1)

	budgetRepo.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: "Salary", Month: 4, Year: 2026},
		Income: &domain.Income{ExpectedAmount: decimal.NewFromInt(3000)},
	})
	budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Rent", Month: 4, Year: 2026},
		Expense: &domain.Expense{ExpectedAmount: decimal.NewFromInt(-1200)},
	})

	count, err := service.DeleteMonth(context.Background(), userID, 4, 2026)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 deleted, got %d", count)
	}
}

func TestDeleteMonth_Empty(t *testing.T) {
	_, _, _, service := newBudgetFixture()

	_, err := service.DeleteMonth(context.Background(), 1, 4, 2026)
	if !errors.Is(err, domain.ErrBudgetNotFound) {
		t.Errorf("expected ErrBudgetNotFound, got: %v", err)
	}
}
