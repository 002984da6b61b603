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
)

// FundHandler handles fund and master fund HTTP requests
type FundHandler struct {
	fundService *service.FundService
}

// NewFundHandler creates a new FundHandler
func NewFundHandler(fundService *service.FundService) *FundHandler {
	return &FundHandler{fundService: fundService}
}

// fundNotFoundResponse maps the shared lookup and ownership failures for fund
// routes. Returns false when the error is not one of them.
func fundNotFoundResponse(c echo.Context, err error) (bool, error) {
	switch {
	case errors.Is(err, domain.ErrFundNotFound):
		return true, NewNotFoundError(c, "Fund not found")
	case errors.Is(err, domain.ErrMasterNotFound):
		return true, NewNotFoundError(c, "Master fund not found")
	case errors.Is(err, domain.ErrNotOwner):
		return true, NewForbiddenError(c, "Fund belongs to another user")
	}
	return false, nil
}

// BreakdownEntryResponse represents one fund's share of a master balance
type BreakdownEntryResponse struct {
	FundID        int32   `json:"fundId"`
	FundName      string  `json:"fundName"`
	Month         int     `json:"month"`
	Year          int     `json:"year"`
	MasterID      int32   `json:"masterId"`
	MasterName    *string `json:"masterName,omitempty"`
	MasterBalance string  `json:"masterBalance"`
	Transactions  string  `json:"transactions"`
}

// FundBalanceResponse represents a fund balance lookup
type FundBalanceResponse struct {
	TotalBalance  string                   `json:"totalBalance"`
	MasterBalance string                   `json:"masterBalance"`
	Transactions  string                   `json:"transactions"`
	Breakdown     []BreakdownEntryResponse `json:"breakdown"`
}

// GetBalance handles GET /api/v1/funds/:id/balance
func (h *FundHandler) GetBalance(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	result, err := h.fundService.FundBalance(c.Request().Context(), userID, int32(id))
	if err != nil {
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Int("fund_id", id).Msg("Failed to get fund balance")
		return NewInternalError(c, "Failed to get fund balance")
	}

	response := FundBalanceResponse{
		TotalBalance:  money(result.TotalBalance),
		MasterBalance: money(result.MasterBalance),
		Transactions:  money(result.Transactions),
		Breakdown:     []BreakdownEntryResponse{},
	}
	for _, entry := range result.Breakdown {
		response.Breakdown = append(response.Breakdown, BreakdownEntryResponse{
			FundID:        entry.FundID,
			FundName:      entry.FundName,
			Month:         entry.Month,
			Year:          entry.Year,
			MasterID:      entry.MasterID,
			MasterName:    entry.MasterName,
			MasterBalance: money(entry.MasterBalance),
			Transactions:  money(entry.Transactions),
		})
	}
	return c.JSON(http.StatusOK, response)
}

// MasterFundMemberResponse represents one member fund of a master family
type MasterFundMemberResponse struct {
	FundID       int32  `json:"fundId"`
	Name         string `json:"name"`
	Month        int    `json:"month"`
	Year         int    `json:"year"`
	MonthAmount  string `json:"monthAmount"`
	Transactions string `json:"transactions"`
	Contribution string `json:"contribution"`
}

// MasterFundDetailsResponse represents a master fund family
type MasterFundDetailsResponse struct {
	MasterID int32                      `json:"masterId"`
	Name     *string                    `json:"name,omitempty"`
	Balance  string                     `json:"balance"`
	Members  []MasterFundMemberResponse `json:"members"`
}

// GetMasterDetails handles GET /api/v1/funds/masters/:id
func (h *FundHandler) GetMasterDetails(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid master fund ID", nil)
	}

	details, err := h.fundService.MasterDetails(c.Request().Context(), userID, int32(id))
	if err != nil {
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Int("master_id", id).Msg("Failed to get master fund details")
		return NewInternalError(c, "Failed to get master fund details")
	}

	response := MasterFundDetailsResponse{
		MasterID: details.MasterID,
		Name:     details.Name,
		Balance:  money(details.Balance),
		Members:  make([]MasterFundMemberResponse, 0, len(details.Members)),
	}
	for _, member := range details.Members {
		response.Members = append(response.Members, MasterFundMemberResponse{
			FundID:       member.FundID,
			Name:         member.Name,
			Month:        member.Month,
			Year:         member.Year,
			MonthAmount:  money(member.MonthAmount),
			Transactions: money(member.Transactions),
			Contribution: money(member.Contribution),
		})
	}
	return c.JSON(http.StatusOK, response)
}

// OrphanedMasterResponse represents a dormant master still holding money
type OrphanedMasterResponse struct {
	MasterID        int32  `json:"masterId"`
	Name            string `json:"name"`
	Balance         string `json:"balance"`
	LastActiveMonth int    `json:"lastActiveMonth"`
	LastActiveYear  int    `json:"lastActiveYear"`
	LastFundName    string `json:"lastFundName"`
}

// GetOrphans handles GET /api/v1/funds/orphans
func (h *FundHandler) GetOrphans(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	month, year, err := monthYearQuery(c)
	if err != nil {
		return err
	}

	orphans, err := h.fundService.OrphanedMasters(c.Request().Context(), userID, month, year)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list orphaned masters")
		return NewInternalError(c, "Failed to list orphaned masters")
	}

	response := make([]OrphanedMasterResponse, 0, len(orphans))
	for _, orphan := range orphans {
		response = append(response, OrphanedMasterResponse{
			MasterID:        orphan.MasterID,
			Name:            orphan.Name,
			Balance:         money(orphan.Balance),
			LastActiveMonth: orphan.LastActiveMonth,
			LastActiveYear:  orphan.LastActiveYear,
			LastFundName:    orphan.LastFundName,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// CombineRequest represents the combine funds request body
type CombineRequest struct {
	SourceFundID int32 `json:"sourceFundId"`
	TargetFundID int32 `json:"targetFundId"`
}

// CombineResponse represents a completed combine
type CombineResponse struct {
	TargetMasterID  int32  `json:"targetMasterId"`
	DeletedMasterID int32  `json:"deletedMasterId"`
	CombinedBalance string `json:"combinedBalance"`
	FundsCombined   int    `json:"fundsCombined"`
}

// Combine handles POST /api/v1/funds/combine
func (h *FundHandler) Combine(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req CombineRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.SourceFundID == 0 || req.TargetFundID == 0 {
		return NewValidationError(c, "Both sourceFundId and targetFundId are required", nil)
	}

	result, err := h.fundService.Combine(c.Request().Context(), userID, req.SourceFundID, req.TargetFundID)
	if err != nil {
		if errors.Is(err, domain.ErrSameMaster) {
			return NewConflictError(c, "Both funds already share the same master")
		}
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to combine funds")
		return NewInternalError(c, "Failed to combine funds")
	}

	log.Info().
		Int32("user_id", userID).
		Int32("target_master_id", result.TargetMasterID).
		Int32("deleted_master_id", result.DeletedMasterID).
		Int("funds_combined", result.FundsCombined).
		Msg("Funds combined")
	return c.JSON(http.StatusOK, CombineResponse{
		TargetMasterID:  result.TargetMasterID,
		DeletedMasterID: result.DeletedMasterID,
		CombinedBalance: money(result.CombinedBalance),
		FundsCombined:   result.FundsCombined,
	})
}

// UnlinkRequest represents the unlink fund request body
type UnlinkRequest struct {
	KeepAmount string `json:"keepAmount"`
}

// UnlinkResponse represents a completed unlink
type UnlinkResponse struct {
	FundID           int32  `json:"fundId"`
	NewMasterID      int32  `json:"newMasterId"`
	NewMasterBalance string `json:"newMasterBalance"`
	OldMasterID      int32  `json:"oldMasterId"`
	OldMasterBalance string `json:"oldMasterBalance"`
}

// Unlink handles POST /api/v1/funds/:id/unlink
func (h *FundHandler) Unlink(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid fund ID", nil)
	}

	var req UnlinkRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	keepAmount, err := parseMoney(req.KeepAmount, "keepAmount", c)
	if err != nil {
		return err
	}

	result, err := h.fundService.Unlink(c.Request().Context(), userID, int32(id), keepAmount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, domain.ErrKeepAmountExceedsBalance) {
			return NewConflictError(c, "Keep amount exceeds the master fund balance")
		}
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Int("fund_id", id).Msg("Failed to unlink fund")
		return NewInternalError(c, "Failed to unlink fund")
	}

	log.Info().
		Int32("user_id", userID).
		Int32("fund_id", result.FundID).
		Int32("new_master_id", result.NewMasterID).
		Msg("Fund unlinked")
	return c.JSON(http.StatusOK, UnlinkResponse{
		FundID:           result.FundID,
		NewMasterID:      result.NewMasterID,
		NewMasterBalance: money(result.NewMasterBalance),
		OldMasterID:      result.OldMasterID,
		OldMasterBalance: money(result.OldMasterBalance),
	})
}

// DiscontinueRequest represents the discontinue master request body
type DiscontinueRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// DiscontinueResponse represents a completed discontinue
type DiscontinueResponse struct {
	MasterID         int32  `json:"masterId"`
	BudgetID         int32  `json:"budgetId"`
	WithdrawalAmount string `json:"withdrawalAmount"`
	Month            int    `json:"month"`
	Year             int    `json:"year"`
}

// Discontinue handles POST /api/v1/funds/masters/:id/discontinue
func (h *FundHandler) Discontinue(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid master fund ID", nil)
	}

	var req DiscontinueRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.fundService.Discontinue(c.Request().Context(), userID, int32(id), req.Month, req.Year)
	if err != nil {
		if errors.Is(err, domain.ErrFundExistsForMonth) {
			return NewConflictError(c, "Master already has a fund in the given month")
		}
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Int("master_id", id).Msg("Failed to discontinue master fund")
		return NewInternalError(c, "Failed to discontinue master fund")
	}

	log.Info().
		Int32("user_id", userID).
		Int32("master_id", result.MasterID).
		Str("withdrawal", result.WithdrawalAmount.StringFixed(2)).
		Msg("Master fund discontinued")
	return c.JSON(http.StatusOK, DiscontinueResponse{
		MasterID:         result.MasterID,
		BudgetID:         result.BudgetID,
		WithdrawalAmount: money(result.WithdrawalAmount),
		Month:            result.Month,
		Year:             result.Year,
	})
}

// ReattachRequest represents the reattach master request body
type ReattachRequest struct {
	Month     int     `json:"month"`
	Year      int     `json:"year"`
	Priority  int32   `json:"priority"`
	Increment string  `json:"increment"`
	Max       *string `json:"max,omitempty"`
}

// ReattachResponse represents a completed reattach
type ReattachResponse struct {
	FundID        int32  `json:"fundId"`
	MasterID      int32  `json:"masterId"`
	MasterBalance string `json:"masterBalance"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
}

// Reattach handles POST /api/v1/funds/masters/:id/reattach
func (h *FundHandler) Reattach(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid master fund ID", nil)
	}

	var req ReattachRequest
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

	result, err := h.fundService.AddFundToOrphan(c.Request().Context(), userID, int32(id), req.Month, req.Year, req.Priority, increment, maxAmount)
	if err != nil {
		if errors.Is(err, domain.ErrFundExistsForMonth) {
			return NewConflictError(c, "Master already has a fund in the given month")
		}
		if handled, resp := fundNotFoundResponse(c, err); handled {
			return resp
		}
		log.Error().Err(err).Int32("user_id", userID).Int("master_id", id).Msg("Failed to reattach master fund")
		return NewInternalError(c, "Failed to reattach master fund")
	}

	log.Info().
		Int32("user_id", userID).
		Int32("master_id", result.MasterID).
		Int32("fund_id", result.FundID).
		Msg("Master fund reattached")
	return c.JSON(http.StatusCreated, ReattachResponse{
		FundID:        result.FundID,
		MasterID:      result.MasterID,
		MasterBalance: money(result.MasterBalance),
		Month:         result.Month,
		Year:          result.Year,
	})
}
