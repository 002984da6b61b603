package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/hearthfin/hearth-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TransactionHandler handles transaction HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		_ = NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be RFC 3339 or YYYY-MM-DD"},
		})
		return nil, err
	}
	return &t, nil
}

// List handles GET /api/v1/transactions
func (h *TransactionHandler) List(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	month, year, err := monthYearQuery(c)
	if err != nil {
		return err
	}

	filters := &domain.TransactionFilters{
		IncludeExcluded: c.QueryParam("includeExcluded") == "true",
		SortAsc:         c.QueryParam("sort") == "asc",
	}
	if filters.StartDate, err = parseDateParam(c, "startDate"); err != nil {
		return err
	}
	if filters.EndDate, err = parseDateParam(c, "endDate"); err != nil {
		return err
	}
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filters.Types = append(filters.Types, domain.TransactionType(strings.TrimSpace(t)))
		}
	}
	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return NewValidationError(c, "Invalid page", nil)
		}
		filters.Page = int32(page)
	}
	if raw := c.QueryParam("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return NewValidationError(c, "Invalid pageSize", nil)
		}
		filters.PageSize = int32(size)
	}

	result, err := h.transactionService.List(c.Request().Context(), userID, month, year, filters)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransactionType) || errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list transactions")
		return NewInternalError(c, "Failed to list transactions")
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetByID(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	transaction, err := h.transactionService.GetByID(c.Request().Context(), userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("transaction_id", id).Msg("Failed to get transaction")
		return NewInternalError(c, "Failed to get transaction")
	}

	return c.JSON(http.StatusOK, transaction)
}

// AssignBudgetRequest represents the assign budget request body. A null
// budgetId clears the assignment.
type AssignBudgetRequest struct {
	BudgetID *int32 `json:"budgetId"`
}

// AssignBudget handles PATCH /api/v1/transactions/:id/budget
func (h *TransactionHandler) AssignBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req AssignBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	transaction, err := h.transactionService.AssignBudget(c.Request().Context(), userID, int32(id), req.BudgetID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("transaction_id", id).Msg("Failed to assign budget")
		return NewInternalError(c, "Failed to assign budget")
	}

	return c.JSON(http.StatusOK, transaction)
}

// MarkTypeRequest represents the mark type request body. A null type clears
// the mark and brings the transaction back into the budget.
type MarkTypeRequest struct {
	Type *domain.TransactionType `json:"type"`
}

// MarkType handles PATCH /api/v1/transactions/:id/type
func (h *TransactionHandler) MarkType(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req MarkTypeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	transaction, err := h.transactionService.MarkType(c.Request().Context(), userID, int32(id), req.Type)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransactionType) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("transaction_id", id).Msg("Failed to mark transaction type")
		return NewInternalError(c, "Failed to mark transaction type")
	}

	return c.JSON(http.StatusOK, transaction)
}

// LineItemRequest represents one line item in breakdown and update requests
type LineItemRequest struct {
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Quantity    *string `json:"quantity,omitempty"`
	UnitPrice   *string `json:"unitPrice,omitempty"`
	Category    *string `json:"category,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	BudgetID    *int32  `json:"budgetId,omitempty"`
}

func (r *LineItemRequest) toDomain(c echo.Context) (*domain.LineItem, error) {
	amount, err := parseMoney(r.Amount, "amount", c)
	if err != nil {
		return nil, err
	}
	quantity, err := parseMoneyPtr(r.Quantity, "quantity", c)
	if err != nil {
		return nil, err
	}
	unitPrice, err := parseMoneyPtr(r.UnitPrice, "unitPrice", c)
	if err != nil {
		return nil, err
	}
	return &domain.LineItem{
		Description: r.Description,
		Amount:      amount,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Category:    r.Category,
		Notes:       r.Notes,
		BudgetID:    r.BudgetID,
	}, nil
}

// BreakdownRequest represents the breakdown request body
type BreakdownRequest struct {
	Items []LineItemRequest `json:"items"`
}

// Breakdown handles POST /api/v1/transactions/:id/breakdown
func (h *TransactionHandler) Breakdown(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req BreakdownRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	items := make([]*domain.LineItem, 0, len(req.Items))
	for i := range req.Items {
		item, err := req.Items[i].toDomain(c)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	created, err := h.transactionService.Breakdown(c.Request().Context(), userID, int32(id), items)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrLineItemSumMismatch) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("transaction_id", id).Msg("Failed to break down transaction")
		return NewInternalError(c, "Failed to break down transaction")
	}

	log.Info().Int32("user_id", userID).Int("transaction_id", id).Int("items", len(created)).Msg("Transaction broken down")
	return c.JSON(http.StatusCreated, created)
}

// GetLineItems handles GET /api/v1/transactions/:id/line-items
func (h *TransactionHandler) GetLineItems(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	items, err := h.transactionService.GetLineItems(c.Request().Context(), userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("transaction_id", id).Msg("Failed to get line items")
		return NewInternalError(c, "Failed to get line items")
	}

	if items == nil {
		items = []*domain.LineItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateLineItem handles PUT /api/v1/line-items/:id
func (h *TransactionHandler) UpdateLineItem(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid line item ID", nil)
	}

	var req LineItemRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	item, err := req.toDomain(c)
	if err != nil {
		return err
	}
	item.ID = int32(id)

	updated, err := h.transactionService.UpdateLineItem(c.Request().Context(), userID, item)
	if err != nil {
		if errors.Is(err, domain.ErrLineItemNotFound) {
			return NewNotFoundError(c, "Line item not found")
		}
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("line_item_id", id).Msg("Failed to update line item")
		return NewInternalError(c, "Failed to update line item")
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteLineItem handles DELETE /api/v1/line-items/:id
func (h *TransactionHandler) DeleteLineItem(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid line item ID", nil)
	}

	if err := h.transactionService.DeleteLineItem(c.Request().Context(), userID, int32(id)); err != nil {
		if errors.Is(err, domain.ErrLineItemNotFound) {
			return NewNotFoundError(c, "Line item not found")
		}
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("line_item_id", id).Msg("Failed to delete line item")
		return NewInternalError(c, "Failed to delete line item")
	}

	return c.NoContent(http.StatusNoContent)
}
