package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransaction(f *handlerFixture, userID int32, amount string, day int) *domain.Transaction {
	return f.transactions.AddTransaction(userID, &domain.Transaction{
		Amount:       decimal.RequireFromString(amount),
		Description:  "seeded",
		TransactedAt: time.Date(2026, 1, day, 12, 0, 0, 0, time.UTC),
	})
}

func TestListTransactions(t *testing.T) {
	f := newHandlerFixture()
	seedTransaction(f, 1, "-42.50", 5)
	transfer := seedTransaction(f, 1, "-100.00", 10)
	transferType := domain.TransactionTypeTransfer
	transfer.Type = &transferType
	transfer.ExcludeFromBudget = true
	seedTransaction(f, 1, "250.00", 20)

	c, rec := request(t, http.MethodGet, "/api/v1/transactions?month=1&year=2026", nil, 1)
	require.NoError(t, f.transaction.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.PaginatedTransactions
	decodeJSON(t, rec, &resp)
	assert.Len(t, resp.Data, 2)
	assert.EqualValues(t, 2, resp.TotalItems)

	// Marked transactions come back when asked for.
	c, rec = request(t, http.MethodGet, "/api/v1/transactions?month=1&year=2026&includeExcluded=true", nil, 1)
	require.NoError(t, f.transaction.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &resp)
	assert.Len(t, resp.Data, 3)
}

func TestListTransactions_InvalidType(t *testing.T) {
	f := newHandlerFixture()

	c, rec := request(t, http.MethodGet, "/api/v1/transactions?month=1&year=2026&types=bogus", nil, 1)
	require.NoError(t, f.transaction.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignBudget(t *testing.T) {
	f := newHandlerFixture()
	budget := addExpenseRow(f, 1, "Groceries", 1, 2026, decimal.NewFromInt(-600))
	transaction := seedTransaction(f, 1, "-54.37", 8)

	body := AssignBudgetRequest{BudgetID: &budget.ID}
	c, rec := request(t, http.MethodPatch, "/api/v1/transactions/1/budget", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.AssignBudget(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.Transaction
	decodeJSON(t, rec, &resp)
	require.NotNil(t, resp.BudgetID)
	assert.Equal(t, budget.ID, *resp.BudgetID)
	assert.Equal(t, transaction.ID, resp.ID)
}

func TestAssignBudget_ForeignBudget(t *testing.T) {
	f := newHandlerFixture()
	budget := addExpenseRow(f, 2, "Groceries", 1, 2026, decimal.NewFromInt(-600))
	seedTransaction(f, 1, "-54.37", 8)

	body := AssignBudgetRequest{BudgetID: &budget.ID}
	c, rec := request(t, http.MethodPatch, "/api/v1/transactions/1/budget", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.AssignBudget(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkType(t *testing.T) {
	f := newHandlerFixture()
	seedTransaction(f, 1, "-100.00", 10)

	transferType := domain.TransactionTypeTransfer
	body := MarkTypeRequest{Type: &transferType}
	c, rec := request(t, http.MethodPatch, "/api/v1/transactions/1/type", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.MarkType(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.Transaction
	decodeJSON(t, rec, &resp)
	require.NotNil(t, resp.Type)
	assert.Equal(t, domain.TransactionTypeTransfer, *resp.Type)
	assert.True(t, resp.ExcludeFromBudget)
}

func TestMarkType_Invalid(t *testing.T) {
	f := newHandlerFixture()
	seedTransaction(f, 1, "-100.00", 10)

	bogus := domain.TransactionType("bogus")
	body := MarkTypeRequest{Type: &bogus}
	c, rec := request(t, http.MethodPatch, "/api/v1/transactions/1/type", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.MarkType(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBreakdown(t *testing.T) {
	f := newHandlerFixture()
	groceries := addExpenseRow(f, 1, "Groceries", 1, 2026, decimal.NewFromInt(-600))
	seedTransaction(f, 1, "-54.37", 8)

	body := BreakdownRequest{Items: []LineItemRequest{
		{Description: "Food", Amount: "-40.00", BudgetID: &groceries.ID},
		{Description: "Household", Amount: "-14.37"},
	}}
	c, rec := request(t, http.MethodPost, "/api/v1/transactions/1/breakdown", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.Breakdown(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp []*domain.LineItem
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.True(t, f.transactions.Transactions[1].IsSplit)
}

func TestBreakdown_SumMismatch(t *testing.T) {
	f := newHandlerFixture()
	seedTransaction(f, 1, "-54.37", 8)

	body := BreakdownRequest{Items: []LineItemRequest{
		{Description: "Food", Amount: "-40.00"},
	}}
	c, rec := request(t, http.MethodPost, "/api/v1/transactions/1/breakdown", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.Breakdown(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, f.transactions.Transactions[1].IsSplit)
}

func TestDeleteLineItem(t *testing.T) {
	f := newHandlerFixture()
	seedTransaction(f, 1, "-54.37", 8)

	body := BreakdownRequest{Items: []LineItemRequest{
		{Description: "Food", Amount: "-54.37"},
	}}
	c, _ := request(t, http.MethodPost, "/api/v1/transactions/1/breakdown", body, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.Breakdown(c))
	require.Len(t, f.transactions.LineItems, 1)

	c, rec := request(t, http.MethodDelete, "/api/v1/line-items/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.transaction.DeleteLineItem(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.transactions.LineItems)
}
