package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/hearthfin/hearth-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BudgetHandler handles budget HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CategoryResponse represents an income or expense budget in API responses
type CategoryResponse struct {
	ID                      int32   `json:"id"`
	Name                    string  `json:"name"`
	Enabled                 bool    `json:"enabled"`
	Fixed                   bool    `json:"fixed"`
	Flexible                bool    `json:"flexible,omitempty"`
	ExpectedAmount          string  `json:"expectedAmount"`
	Min                     *string `json:"min,omitempty"`
	Max                     *string `json:"max,omitempty"`
	TransactionSum          string  `json:"transactionSum"`
	AmountAfterTransactions string  `json:"amountAfterTransactions"`
	Carryover               string  `json:"carryover"`
}

// FundResponse represents a fund budget in API responses
type FundResponse struct {
	ID                      int32   `json:"id"`
	Name                    string  `json:"name"`
	Enabled                 bool    `json:"enabled"`
	Priority                int32   `json:"priority"`
	Increment               string  `json:"increment"`
	MonthAmount             string  `json:"monthAmount"`
	Max                     *string `json:"max,omitempty"`
	TransactionSum          string  `json:"transactionSum"`
	AmountAfterTransactions string  `json:"amountAfterTransactions"`
	Carryover               string  `json:"carryover"`
	MasterFundID            int32   `json:"masterFundId"`
	MasterFundName          *string `json:"masterFundName,omitempty"`
	MasterBalance           string  `json:"masterBalance"`
}

// BudgetsResponse represents the month view in API responses
type BudgetsResponse struct {
	Month     int                `json:"month"`
	Year      int                `json:"year"`
	Incomes   []CategoryResponse `json:"incomes"`
	Expenses  []CategoryResponse `json:"expenses"`
	Flexibles []CategoryResponse `json:"flexibles"`
	Funds     []FundResponse     `json:"funds"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

// parseMoney parses a decimal request field. On failure the 400 response is
// already written and the parse error is returned so the handler stops.
func parseMoney(s string, field string, c echo.Context) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		_ = NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: field, Message: "Must be a decimal number"},
		})
		return decimal.Zero, err
	}
	return d, nil
}

func parseMoneyPtr(s *string, field string, c echo.Context) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseMoney(*s, field, c)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// monthYearQuery reads optional month and year query parameters, zero when
// absent so services fall back to the current month.
func monthYearQuery(c echo.Context) (int, int, error) {
	month, year := 0, 0
	if raw := c.QueryParam("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = NewValidationError(c, "Invalid month", nil)
			return 0, 0, err
		}
		month = parsed
	}
	if raw := c.QueryParam("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = NewValidationError(c, "Invalid year", nil)
			return 0, 0, err
		}
		year = parsed
	}
	return month, year, nil
}

func toCategoryResponse(view *service.CategoryView) CategoryResponse {
	return CategoryResponse{
		ID:                      view.ID,
		Name:                    view.Name,
		Enabled:                 view.Enabled,
		Fixed:                   view.Fixed,
		Flexible:                view.Flexible,
		ExpectedAmount:          money(view.ExpectedAmount),
		Min:                     moneyPtr(view.Min),
		Max:                     moneyPtr(view.Max),
		TransactionSum:          money(view.TransactionSum),
		AmountAfterTransactions: money(view.AmountAfterTransactions),
		Carryover:               money(view.Carryover),
	}
}

func toFundResponse(view *service.FundView) FundResponse {
	return FundResponse{
		ID:                      view.ID,
		Name:                    view.Name,
		Enabled:                 view.Enabled,
		Priority:                view.Priority,
		Increment:               money(view.Increment),
		MonthAmount:             money(view.MonthAmount),
		Max:                     moneyPtr(view.Max),
		TransactionSum:          money(view.TransactionSum),
		AmountAfterTransactions: money(view.AmountAfterTransactions),
		Carryover:               money(view.Carryover),
		MasterFundID:            view.MasterFundID,
		MasterFundName:          view.MasterFundName,
		MasterBalance:           money(view.MasterBalance),
	}
}

// GetBudgets handles GET /api/v1/budgets
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	month, year, err := monthYearQuery(c)
	if err != nil {
		return err
	}

	result, err := h.budgetService.GetBudgets(c.Request().Context(), userID, month, year)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to get budgets")
		return NewInternalError(c, "Failed to get budgets")
	}

	response := BudgetsResponse{
		Month:     result.Month,
		Year:      result.Year,
		Incomes:   []CategoryResponse{},
		Expenses:  []CategoryResponse{},
		Flexibles: []CategoryResponse{},
		Funds:     []FundResponse{},
	}
	for _, view := range result.Incomes {
		response.Incomes = append(response.Incomes, toCategoryResponse(view))
	}
	for _, view := range result.Expenses {
		response.Expenses = append(response.Expenses, toCategoryResponse(view))
	}
	for _, view := range result.Flexibles {
		response.Flexibles = append(response.Flexibles, toCategoryResponse(view))
	}
	for _, view := range result.Funds {
		response.Funds = append(response.Funds, toFundResponse(view))
	}

	return c.JSON(http.StatusOK, response)
}

// BudgetNameResponse represents a budget name in API responses
type BudgetNameResponse struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	MasterFundID *int32 `json:"masterFundId,omitempty"`
}

// GetBudgetNames handles GET /api/v1/budgets/names
func (h *BudgetHandler) GetBudgetNames(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	month, year, err := monthYearQuery(c)
	if err != nil {
		return err
	}

	names, err := h.budgetService.GetBudgetNames(c.Request().Context(), userID, month, year)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to get budget names")
		return NewInternalError(c, "Failed to get budget names")
	}

	response := make([]BudgetNameResponse, len(names))
	for i, name := range names {
		response[i] = BudgetNameResponse{ID: name.ID, Name: name.Name, MasterFundID: name.MasterFundID}
	}
	return c.JSON(http.StatusOK, response)
}

// CreateIncomeRequest represents the create income request body
type CreateIncomeRequest struct {
	Name           string  `json:"name"`
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	Fixed          bool    `json:"fixed"`
	ExpectedAmount string  `json:"expectedAmount"`
	Min            *string `json:"min,omitempty"`
	Max            *string `json:"max,omitempty"`
}

// CreateExpenseRequest represents the create expense request body
type CreateExpenseRequest struct {
	Name           string  `json:"name"`
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	Fixed          bool    `json:"fixed"`
	Flexible       bool    `json:"flexible"`
	ExpectedAmount string  `json:"expectedAmount"`
	Min            *string `json:"min,omitempty"`
	Max            *string `json:"max,omitempty"`
}

// CreateFundRequest represents the create fund request body
type CreateFundRequest struct {
	Name         string  `json:"name"`
	Month        int     `json:"month"`
	Year         int     `json:"year"`
	Priority     int32   `json:"priority"`
	Increment    string  `json:"increment"`
	Max          *string `json:"max,omitempty"`
	MasterFundID *int32  `json:"masterFundId,omitempty"`
}

// CreatedBudgetResponse represents a freshly created budget
type CreatedBudgetResponse struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	Month        int    `json:"month"`
	Year         int    `json:"year"`
	MasterFundID *int32 `json:"masterFundId,omitempty"`
}

func toCreatedBudgetResponse(row *domain.BudgetRow) CreatedBudgetResponse {
	response := CreatedBudgetResponse{
		ID:    row.ID,
		Name:  row.Name,
		Month: row.Month,
		Year:  row.Year,
	}
	if row.Fund != nil {
		masterID := row.Fund.MasterFundID
		response.MasterFundID = &masterID
	}
	return response
}

// CreateIncome handles POST /api/v1/budgets/income
func (h *BudgetHandler) CreateIncome(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req CreateIncomeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	expected, err := parseMoney(req.ExpectedAmount, "expectedAmount", c)
	if err != nil {
		return err
	}
	minAmount, err := parseMoneyPtr(req.Min, "min", c)
	if err != nil {
		return err
	}
	maxAmount, err := parseMoneyPtr(req.Max, "max", c)
	if err != nil {
		return err
	}

	row, err := h.budgetService.CreateIncome(c.Request().Context(), userID, service.CreateIncomeParams{
		Name:           req.Name,
		Month:          req.Month,
		Year:           req.Year,
		Fixed:          req.Fixed,
		ExpectedAmount: expected,
		Min:            minAmount,
		Max:            maxAmount,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to create income budget")
		return NewInternalError(c, "Failed to create income budget")
	}

	log.Info().Int32("user_id", userID).Int32("budget_id", row.ID).Str("name", row.Name).Msg("Income budget created")
	return c.JSON(http.StatusCreated, toCreatedBudgetResponse(row))
}

// CreateExpense handles POST /api/v1/budgets/expense
func (h *BudgetHandler) CreateExpense(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	expected, err := parseMoney(req.ExpectedAmount, "expectedAmount", c)
	if err != nil {
		return err
	}
	minAmount, err := parseMoneyPtr(req.Min, "min", c)
	if err != nil {
		return err
	}
	maxAmount, err := parseMoneyPtr(req.Max, "max", c)
	if err != nil {
		return err
	}

	row, err := h.budgetService.CreateExpense(c.Request().Context(), userID, service.CreateExpenseParams{
		Name:           req.Name,
		Month:          req.Month,
		Year:           req.Year,
		Fixed:          req.Fixed,
		Flexible:       req.Flexible,
		ExpectedAmount: expected,
		Min:            minAmount,
		Max:            maxAmount,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to create expense budget")
		return NewInternalError(c, "Failed to create expense budget")
	}

	log.Info().Int32("user_id", userID).Int32("budget_id", row.ID).Str("name", row.Name).Msg("Expense budget created")
	return c.JSON(http.StatusCreated, toCreatedBudgetResponse(row))
}

// CreateFund handles POST /api/v1/budgets/fund
func (h *BudgetHandler) CreateFund(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req CreateFundRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	increment, err := parseMoney(req.Increment, "increment", c)
	if err != nil {
		return err
	}
	maxAmount, err := parseMoneyPtr(req.Max, "max", c)
	if err != nil {
		return err
	}

	row, err := h.budgetService.CreateFund(c.Request().Context(), userID, service.CreateFundParams{
		Name:         req.Name,
		Month:        req.Month,
		Year:         req.Year,
		Priority:     req.Priority,
		Increment:    increment,
		Max:          maxAmount,
		MasterFundID: req.MasterFundID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrMasterNotFound) {
			return NewNotFoundError(c, "Master fund not found")
		}
		if errors.Is(err, domain.ErrNotOwner) {
			return NewForbiddenError(c, "Master fund belongs to another user")
		}
		if errors.Is(err, domain.ErrFundExistsForMonth) {
			return NewConflictError(c, "A fund for this master already exists in the given month")
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to create fund budget")
		return NewInternalError(c, "Failed to create fund budget")
	}

	log.Info().Int32("user_id", userID).Int32("budget_id", row.ID).Str("name", row.Name).Msg("Fund budget created")
	return c.JSON(http.StatusCreated, toCreatedBudgetResponse(row))
}

// DeleteBudget handles DELETE /api/v1/budgets/:id
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	if err := h.budgetService.DeleteBudget(c.Request().Context(), userID, int32(id)); err != nil {
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("budget_id", id).Msg("Failed to delete budget")
		return NewInternalError(c, "Failed to delete budget")
	}

	log.Info().Int32("user_id", userID).Int("budget_id", id).Msg("Budget deleted")
	return c.NoContent(http.StatusNoContent)
}

// DeleteMonthResponse represents the delete month result
type DeleteMonthResponse struct {
	Deleted int `json:"deleted"`
}

// DeleteMonth handles DELETE /api/v1/budgets/month/:year/:month
func (h *BudgetHandler) DeleteMonth(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return NewValidationError(c, "Invalid year", nil)
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return NewValidationError(c, "Invalid month", nil)
	}

	count, err := h.budgetService.DeleteMonth(c.Request().Context(), userID, month, year)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "No budgets found for this month")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("month", month).Int("year", year).Msg("Failed to delete month")
		return NewInternalError(c, "Failed to delete month")
	}

	log.Info().Int32("user_id", userID).Int("month", month).Int("year", year).Int("deleted", count).Msg("Month deleted")
	return c.JSON(http.StatusOK, DeleteMonthResponse{Deleted: count})
}
