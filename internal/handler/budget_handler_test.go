package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/hearthfin/hearth-backend/internal/service"
	"github.com/hearthfin/hearth-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	budgets      *testutil.MockBudgetRepository
	funds        *testutil.MockFundMasterRepository
	transactions *testutil.MockTransactionRepository
	users        *testutil.MockUserRepository
	accounts     *testutil.MockAccountRepository
	bank         *testutil.MockBankDataClient

	budget      *BudgetHandler
	month       *MonthHandler
	fund        *FundHandler
	transaction *TransactionHandler
	user        *UserHandler
}

func newHandlerFixture() *handlerFixture {
	budgets := testutil.NewMockBudgetRepository()
	funds := testutil.NewMockFundMasterRepository(budgets)
	transactions := testutil.NewMockTransactionRepository()
	users := testutil.NewMockUserRepository()
	accounts := testutil.NewMockAccountRepository()
	bank := testutil.NewMockBankDataClient()
	txm := testutil.NewMockTxManager()

	fundService := service.NewFundService(funds, budgets, transactions, txm)
	budgetService := service.NewBudgetService(budgets, transactions, fundService, txm)
	allocationService := service.NewAllocationService(budgets, funds, transactions, budgetService, fundService, txm)
	monthCopyService := service.NewMonthCopyService(budgets, txm)
	transactionService := service.NewTransactionService(transactions, budgets, txm)
	userService := service.NewUserService(users, bank)
	syncService := service.NewSyncService(users, accounts, transactions, bank)

	return &handlerFixture{
		budgets:      budgets,
		funds:        funds,
		transactions: transactions,
		users:        users,
		accounts:     accounts,
		bank:         bank,
		budget:       NewBudgetHandler(budgetService),
		month:        NewMonthHandler(monthCopyService, allocationService),
		fund:         NewFundHandler(fundService),
		transaction:  NewTransactionHandler(transactionService),
		user:         NewUserHandler(userService, syncService),
	}
}

// request builds an echo context carrying the given user. A zero userID
// simulates an unauthenticated request.
func request(t *testing.T, method, target string, body any, userID int32) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
}

func addIncomeRow(f *handlerFixture, userID int32, name string, month, year int, expected decimal.Decimal) *domain.BudgetRow {
	return f.budgets.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: name, Enabled: true, Month: month, Year: year},
		Income: &domain.Income{ExpectedAmount: expected},
	})
}

func addExpenseRow(f *handlerFixture, userID int32, name string, month, year int, expected decimal.Decimal) *domain.BudgetRow {
	return f.budgets.AddRow(&domain.BudgetRow{
		Budget:  domain.Budget{UserID: userID, Name: name, Enabled: true, Month: month, Year: year},
		Expense: &domain.Expense{ExpectedAmount: expected},
	})
}

func addFundRow(f *handlerFixture, userID int32, name string, month, year int, masterID int32, monthAmount decimal.Decimal) *domain.BudgetRow {
	return f.budgets.AddRow(&domain.BudgetRow{
		Budget: domain.Budget{UserID: userID, Name: name, Enabled: true, Month: month, Year: year},
		Fund: &domain.Fund{
			Priority:     1,
			Increment:    decimal.NewFromInt(50),
			MonthAmount:  monthAmount,
			MasterFundID: masterID,
		},
	})
}

func TestGetBudgets(t *testing.T) {
	f := newHandlerFixture()
	salary := addIncomeRow(f, 1, "Salary", 1, 2026, decimal.NewFromInt(5000))
	addExpenseRow(f, 1, "Rent", 1, 2026, decimal.NewFromInt(-1800))
	f.transactions.AddTransaction(1, &domain.Transaction{
		Amount:       decimal.NewFromInt(3000),
		TransactedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		BudgetID:     &salary.ID,
	})

	c, rec := request(t, http.MethodGet, "/api/v1/budgets?month=1&year=2026", nil, 1)
	require.NoError(t, f.budget.GetBudgets(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BudgetsResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 1, resp.Month)
	assert.Equal(t, 2026, resp.Year)
	require.Len(t, resp.Incomes, 1)
	require.Len(t, resp.Expenses, 1)
	assert.Empty(t, resp.Funds)

	assert.Equal(t, "Salary", resp.Incomes[0].Name)
	assert.Equal(t, "3000.00", resp.Incomes[0].TransactionSum)
	assert.Equal(t, "8000.00", resp.Incomes[0].AmountAfterTransactions)
	assert.Equal(t, "Rent", resp.Expenses[0].Name)
	assert.Equal(t, "-1800.00", resp.Expenses[0].AmountAfterTransactions)
}

func TestGetBudgets_Unauthorized(t *testing.T) {
	f := newHandlerFixture()

	c, rec := request(t, http.MethodGet, "/api/v1/budgets", nil, 0)
	require.NoError(t, f.budget.GetBudgets(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var problem ProblemDetails
	decodeJSON(t, rec, &problem)
	assert.Equal(t, ErrorTypeUnauthorized, problem.Type)
}

func TestGetBudgets_InvalidMonth(t *testing.T) {
	f := newHandlerFixture()

	c, rec := request(t, http.MethodGet, "/api/v1/budgets?month=abc", nil, 1)
	require.Error(t, f.budget.GetBudgets(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFund_NewMaster(t *testing.T) {
	f := newHandlerFixture()

	body := CreateFundRequest{
		Name:      "Vacation",
		Month:     3,
		Year:      2026,
		Priority:  2,
		Increment: "75.00",
	}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/fund", body, 1)
	require.NoError(t, f.budget.CreateFund(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreatedBudgetResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "Vacation", resp.Name)
	require.NotNil(t, resp.MasterFundID)

	master := f.funds.Masters[*resp.MasterFundID]
	require.NotNil(t, master)
	require.NotNil(t, master.Name)
	assert.Equal(t, "Vacation", *master.Name)
}

func TestCreateFund_MasterConflict(t *testing.T) {
	f := newHandlerFixture()
	master := f.funds.AddMaster(&domain.FundMaster{})
	addFundRow(f, 1, "Vacation", 3, 2026, master.ID, decimal.Zero)

	body := CreateFundRequest{
		Name:         "Vacation",
		Month:        3,
		Year:         2026,
		Increment:    "75.00",
		MasterFundID: &master.ID,
	}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/fund", body, 1)
	require.NoError(t, f.budget.CreateFund(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var problem ProblemDetails
	decodeJSON(t, rec, &problem)
	assert.Equal(t, ErrorTypeConflict, problem.Type)
}

func TestCreateIncome_InvalidAmount(t *testing.T) {
	f := newHandlerFixture()

	body := CreateIncomeRequest{Name: "Salary", Month: 1, Year: 2026, ExpectedAmount: "not-a-number"}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/income", body, 1)
	require.Error(t, f.budget.CreateIncome(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMonth(t *testing.T) {
	f := newHandlerFixture()
	addIncomeRow(f, 1, "Salary", 1, 2026, decimal.NewFromInt(5000))
	addExpenseRow(f, 1, "Rent", 1, 2026, decimal.NewFromInt(-1800))

	c, rec := request(t, http.MethodDelete, "/api/v1/budgets/month/2026/1", nil, 1)
	c.SetParamNames("year", "month")
	c.SetParamValues("2026", "1")
	require.NoError(t, f.budget.DeleteMonth(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeleteMonthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 2, resp.Deleted)
	assert.Empty(t, f.budgets.Rows)
}

func TestDeleteMonth_Empty(t *testing.T) {
	f := newHandlerFixture()

	c, rec := request(t, http.MethodDelete, "/api/v1/budgets/month/2026/1", nil, 1)
	c.SetParamNames("year", "month")
	c.SetParamValues("2026", "1")
	require.NoError(t, f.budget.DeleteMonth(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCopyMonth(t *testing.T) {
	f := newHandlerFixture()
	addIncomeRow(f, 1, "Salary", 12, 2025, decimal.NewFromInt(5000))
	master := f.funds.AddMaster(&domain.FundMaster{})
	addFundRow(f, 1, "Vacation", 12, 2025, master.ID, decimal.NewFromInt(100))

	body := CopyMonthRequest{Month: 1, Year: 2026}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/copy", body, 1)
	require.NoError(t, f.month.CopyMonth(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CopyMonthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 12, resp.SourceMonth)
	assert.Equal(t, 2025, resp.SourceYear)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Counts["income"])
	assert.Equal(t, 1, resp.Counts["fund"])
}

func TestCopyMonth_TargetNotEmpty(t *testing.T) {
	f := newHandlerFixture()
	addIncomeRow(f, 1, "Salary", 12, 2025, decimal.NewFromInt(5000))
	addIncomeRow(f, 1, "Salary", 1, 2026, decimal.NewFromInt(5000))

	body := CopyMonthRequest{Month: 1, Year: 2026}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/copy", body, 1)
	require.NoError(t, f.month.CopyMonth(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAllocate(t *testing.T) {
	f := newHandlerFixture()
	salary := addIncomeRow(f, 1, "Salary", 1, 2026, decimal.NewFromInt(5000))
	f.transactions.AddTransaction(1, &domain.Transaction{
		Amount:       decimal.NewFromInt(100),
		TransactedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		BudgetID:     &salary.ID,
	})
	master := f.funds.AddMaster(&domain.FundMaster{})
	addFundRow(f, 1, "Vacation", 1, 2026, master.ID, decimal.Zero)

	body := AllocateRequest{Month: 1, Year: 2026}
	c, rec := request(t, http.MethodPost, "/api/v1/budgets/allocate", body, 1)
	require.NoError(t, f.month.Allocate(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AllocateResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, "Vacation", resp.Applied[0].FundName)
	assert.Equal(t, "50.00", resp.Applied[0].AmountAdded)
	assert.Equal(t, "100.00", resp.BalanceBefore)
	assert.Equal(t, "50.00", resp.BalanceAfter)
	assert.False(t, resp.WouldGoNegative)
}
