package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func newTransactionFixture() (*testutil.MockTransactionRepository, *testutil.MockBudgetRepository, *TransactionService) {
	transactionRepo := testutil.NewMockTransactionRepository()
	budgetRepo := testutil.NewMockBudgetRepository()
	service := NewTransactionService(transactionRepo, budgetRepo, testutil.NewMockTxManager())
	return transactionRepo, budgetRepo, service
}

func TestList(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	userID := int32(1)

	transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-20), TransactedAt: midMonth(2026, 2),
	})
	transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-30), TransactedAt: midMonth(2026, 1),
	})
	excluded := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-40), TransactedAt: midMonth(2026, 2), ExcludeFromBudget: true,
	})

	result, err := service.List(context.Background(), userID, 2, 2026, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.TotalItems != 1 {
		t.Fatalf("expected 1 transaction in February, got %d", result.TotalItems)
	}
	if result.Data[0].ID == excluded.ID {
		t.Errorf("excluded transaction should not be listed by default")
	}

	result, err = service.List(context.Background(), userID, 2, 2026, &domain.TransactionFilters{IncludeExcluded: true})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.TotalItems != 2 {
		t.Errorf("expected 2 with excluded included, got %d", result.TotalItems)
	}
}

func TestList_InvalidType(t *testing.T) {
	_, _, service := newTransactionFixture()

	_, err := service.List(context.Background(), 1, 2, 2026, &domain.TransactionFilters{
		Types: []domain.TransactionType{"refund"},
	})
	if !errors.Is(err, domain.ErrInvalidTransactionType) {
		t.Errorf("expected ErrInvalidTransactionType, got: %v", err)
	}
}

func TestAssignBudget(t *testing.T) {
	transactionRepo, budgetRepo, service := newTransactionFixture()
	userID := int32(1)

	budget := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Groceries", Month: 2, Year: 2026},
		Expense: &domain.Expense{Flexible: true, ExpectedAmount: decimal.NewFromInt(-400)},
	})
	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-25), TransactedAt: midMonth(2026, 2),
	})

	updated, err := service.AssignBudget(context.Background(), userID, transaction.ID, &budget.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if updated.BudgetID == nil || *updated.BudgetID != budget.ID {
		t.Errorf("expected budget %d assigned, got %v", budget.ID, updated.BudgetID)
	}

	cleared, err := service.AssignBudget(context.Background(), userID, transaction.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cleared.BudgetID != nil {
		t.Errorf("expected assignment cleared")
	}
}

func TestAssignBudget_ForeignBudget(t *testing.T) {
	transactionRepo, budgetRepo, service := newTransactionFixture()

	budget := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: 2, Name: "Groceries", Month: 2, Year: 2026},
		Expense: &domain.Expense{ExpectedAmount: decimal.NewFromInt(-400)},
	})
	transaction := transactionRepo.AddTransaction(1, &domain.Transaction{
		Amount: decimal.NewFromInt(-25), TransactedAt: midMonth(2026, 2),
	})

	_, err := service.AssignBudget(context.Background(), 1, transaction.ID, &budget.ID)
	if !errors.Is(err, domain.ErrBudgetNotFound) {
		t.Errorf("expected ErrBudgetNotFound for another user's budget, got: %v", err)
	}
}

func TestMarkType(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	userID := int32(1)

	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-500), TransactedAt: midMonth(2026, 2),
	})

	transferType := domain.TransactionTypeTransfer
	marked, err := service.MarkType(context.Background(), userID, transaction.ID, &transferType)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if marked.Type == nil || *marked.Type != domain.TransactionTypeTransfer {
		t.Errorf("expected transfer type, got %v", marked.Type)
	}
	if !marked.ExcludeFromBudget {
		t.Errorf("marked transaction should be excluded from the budget")
	}

	cleared, err := service.MarkType(context.Background(), userID, transaction.ID, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cleared.Type != nil || cleared.ExcludeFromBudget {
		t.Errorf("clearing the mark should bring the transaction back")
	}
}

func TestMarkType_Invalid(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	transaction := transactionRepo.AddTransaction(1, &domain.Transaction{
		Amount: decimal.NewFromInt(-500), TransactedAt: midMonth(2026, 2),
	})

	bad := domain.TransactionType("refund")
	_, err := service.MarkType(context.Background(), 1, transaction.ID, &bad)
	if !errors.Is(err, domain.ErrInvalidTransactionType) {
		t.Errorf("expected ErrInvalidTransactionType, got: %v", err)
	}
}

func TestBreakdown(t *testing.T) {
	transactionRepo, budgetRepo, service := newTransactionFixture()
	userID := int32(1)

	groceries := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Groceries", Month: 2, Year: 2026},
		Expense: &domain.Expense{Flexible: true, ExpectedAmount: decimal.NewFromInt(-400)},
	})
	household := budgetRepo.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: "Household", Month: 2, Year: 2026},
		Expense: &domain.Expense{ExpectedAmount: decimal.NewFromInt(-100)},
	})
	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.RequireFromString("-54.37"), TransactedAt: midMonth(2026, 2),
	})

	items, err := service.Breakdown(context.Background(), userID, transaction.ID, []*domain.LineItem{
		{Description: "food", Amount: decimal.RequireFromString("-40.00"), BudgetID: &groceries.ID},
		{Description: "cleaning", Amount: decimal.RequireFromString("-14.37"), BudgetID: &household.ID},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !transaction.IsSplit {
		t.Errorf("parent should be marked split")
	}

	// Split parents drop out of sums; the line items take over.
	sum, _ := transactionRepo.SumForBudget(context.Background(), groceries.ID)
	if !sum.Equal(decimal.RequireFromString("-40.00")) {
		t.Errorf("expected groceries sum -40.00, got %s", sum.String())
	}
}

func TestBreakdown_SumMismatch(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	userID := int32(1)

	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-50), TransactedAt: midMonth(2026, 2),
	})

	_, err := service.Breakdown(context.Background(), userID, transaction.ID, []*domain.LineItem{
		{Description: "food", Amount: decimal.NewFromInt(-40)},
		{Description: "misc", Amount: decimal.NewFromInt(-8)},
	})
	if !errors.Is(err, domain.ErrLineItemSumMismatch) {
		t.Errorf("expected ErrLineItemSumMismatch, got: %v", err)
	}
	if transaction.IsSplit {
		t.Errorf("failed breakdown must not mark the parent split")
	}
	if len(transactionRepo.LineItems) != 0 {
		t.Errorf("failed breakdown must not leave items behind")
	}
}

func TestBreakdown_WithinTolerance(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	userID := int32(1)

	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.RequireFromString("-50.00"), TransactedAt: midMonth(2026, 2),
	})

	// One cent off is inside the rounding tolerance.
	_, err := service.Breakdown(context.Background(), userID, transaction.ID, []*domain.LineItem{
		{Description: "food", Amount: decimal.RequireFromString("-49.99")},
	})
	if err != nil {
		t.Fatalf("expected no error within tolerance, got: %v", err)
	}
}

func TestUpdateLineItem(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()
	userID := int32(1)

	transaction := transactionRepo.AddTransaction(userID, &domain.Transaction{
		Amount: decimal.NewFromInt(-50), TransactedAt: midMonth(2026, 2),
	})
	items, _ := transactionRepo.CreateLineItems(context.Background(), transaction.ID, []*domain.LineItem{
		{Description: "food", Amount: decimal.NewFromInt(-50)},
	})

	items[0].Description = "groceries"
	items[0].Amount = decimal.NewFromInt(-45)
	updated, err := service.UpdateLineItem(context.Background(), userID, items[0])
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if updated.Description != "groceries" || !updated.Amount.Equal(decimal.NewFromInt(-45)) {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestDeleteLineItem_NotOwner(t *testing.T) {
	transactionRepo, _, service := newTransactionFixture()

	transaction := transactionRepo.AddTransaction(1, &domain.Transaction{
		Amount: decimal.NewFromInt(-50), TransactedAt: midMonth(2026, 2),
	})
	items, _ := transactionRepo.CreateLineItems(context.Background(), transaction.ID, []*domain.LineItem{
		{Description: "food", Amount: decimal.NewFromInt(-50)},
	})

	err := service.DeleteLineItem(context.Background(), 2, items[0].ID)
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound for another user, got: %v", err)
	}
}
