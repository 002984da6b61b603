package handler

import (
	"errors"
	"net/http"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/hearthfin/hearth-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// MonthHandler handles month copy and fund allocation HTTP requests
type MonthHandler struct {
	monthCopyService  *service.MonthCopyService
	allocationService *service.AllocationService
}

// NewMonthHandler creates a new MonthHandler
func NewMonthHandler(monthCopyService *service.MonthCopyService, allocationService *service.AllocationService) *MonthHandler {
	return &MonthHandler{
		monthCopyService:  monthCopyService,
		allocationService: allocationService,
	}
}

// CopyMonthRequest represents the copy month request body. Source defaults to
// the month before the target when omitted.
type CopyMonthRequest struct {
	Month       int `json:"month"`
	Year        int `json:"year"`
	SourceMonth int `json:"sourceMonth,omitempty"`
	SourceYear  int `json:"sourceYear,omitempty"`
}

// CopyMonthResponse represents a completed month copy
type CopyMonthResponse struct {
	Month       int            `json:"month"`
	Year        int            `json:"year"`
	SourceMonth int            `json:"sourceMonth"`
	SourceYear  int            `json:"sourceYear"`
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
}

// CopyMonth handles POST /api/v1/budgets/copy
func (h *MonthHandler) CopyMonth(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req CopyMonthRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.monthCopyService.Copy(c.Request().Context(), userID, req.Month, req.Year, req.SourceMonth, req.SourceYear)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrTargetMonthHasBudgets) {
			return NewConflictError(c, "Target month already has budgets")
		}
		if errors.Is(err, domain.ErrSourceMonthEmpty) {
			return NewNotFoundError(c, "Source month has no budgets to copy")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("month", req.Month).Int("year", req.Year).Msg("Failed to copy month")
		return NewInternalError(c, "Failed to copy month")
	}

	log.Info().
		Int32("user_id", userID).
		Int("month", result.Month).
		Int("year", result.Year).
		Int("total", result.Total).
		Msg("Month copied")
	return c.JSON(http.StatusCreated, CopyMonthResponse{
		Month:       result.Month,
		Year:        result.Year,
		SourceMonth: result.SourceMonth,
		SourceYear:  result.SourceYear,
		Counts:      result.Counts,
		Total:       result.Total,
	})
}

// AllocateRequest represents the allocate request body
type AllocateRequest struct {
	Month    int  `json:"month"`
	Year     int  `json:"year"`
	SafeMode bool `json:"safeMode"`
}

// AppliedFundResponse represents one fund credited by the allocator
type AppliedFundResponse struct {
	FundID           int32  `json:"fundId"`
	FundName         string `json:"fundName"`
	AmountAdded      string `json:"amountAdded"`
	NewMasterBalance string `json:"newMasterBalance"`
}

// SkippedFundResponse represents one fund the allocator passed over
type SkippedFundResponse struct {
	FundID   int32  `json:"fundId"`
	FundName string `json:"fundName"`
	Reason   string `json:"reason"`
}

// AllocateResponse represents an allocation run
type AllocateResponse struct {
	Month           int                   `json:"month"`
	Year            int                   `json:"year"`
	Applied         []AppliedFundResponse `json:"applied"`
	Skipped         []SkippedFundResponse `json:"skipped"`
	BalanceBefore   string                `json:"balanceBefore"`
	BalanceAfter    string                `json:"balanceAfter"`
	TotalApplied    string                `json:"totalApplied"`
	WouldGoNegative bool                  `json:"wouldGoNegative"`
}

// Allocate handles POST /api/v1/budgets/allocate
func (h *MonthHandler) Allocate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req AllocateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.allocationService.Apply(c.Request().Context(), userID, req.Month, req.Year, req.SafeMode)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Int("month", req.Month).Int("year", req.Year).Msg("Failed to allocate fund increments")
		return NewInternalError(c, "Failed to allocate fund increments")
	}

	response := AllocateResponse{
		Month:           result.Month,
		Year:            result.Year,
		Applied:         []AppliedFundResponse{},
		Skipped:         []SkippedFundResponse{},
		BalanceBefore:   money(result.BalanceBefore),
		BalanceAfter:    money(result.BalanceAfter),
		TotalApplied:    money(result.TotalApplied),
		WouldGoNegative: result.WouldGoNegative,
	}
	for _, applied := range result.Applied {
		response.Applied = append(response.Applied, AppliedFundResponse{
			FundID:           applied.FundID,
			FundName:         applied.FundName,
			AmountAdded:      money(applied.AmountAdded),
			NewMasterBalance: money(applied.NewMasterBalance),
		})
	}
	for _, skipped := range result.Skipped {
		response.Skipped = append(response.Skipped, SkippedFundResponse{
			FundID:   skipped.FundID,
			FundName: skipped.FundName,
			Reason:   skipped.Reason,
		})
	}

	log.Info().
		Int32("user_id", userID).
		Int("month", result.Month).
		Int("year", result.Year).
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Str("total_applied", result.TotalApplied.StringFixed(2)).
		Bool("safe_mode", req.SafeMode).
		Msg("Fund increments allocated")
	return c.JSON(http.StatusOK, response)
}
