package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/hearthfin/hearth-backend/internal/domain"
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/hearthfin/hearth-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user profile and bank sync HTTP requests
type UserHandler struct {
	userService *service.UserService
	syncService *service.SyncService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *service.UserService, syncService *service.SyncService) *UserHandler {
	return &UserHandler{
		userService: userService,
		syncService: syncService,
	}
}

// MeResponse represents the current user
type MeResponse struct {
	ID            int32     `json:"id"`
	AuthID        string    `json:"authId"`
	BankConnected bool      `json:"bankConnected"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return NewNotFoundError(c, "User not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to get user")
		return NewInternalError(c, "Failed to get user")
	}

	return c.JSON(http.StatusOK, MeResponse{
		ID:            user.ID,
		AuthID:        user.AuthID,
		BankConnected: user.AccessURL != nil && *user.AccessURL != "",
		CreatedAt:     user.CreatedAt,
	})
}

// ClaimRequest represents the claim access URL request body
type ClaimRequest struct {
	SetupToken string `json:"setupToken"`
}

// Claim handles POST /api/v1/users/claim
func (h *UserHandler) Claim(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.SetupToken == "" {
		return NewValidationError(c, "setupToken is required", []ValidationError{
			{Field: "setupToken", Message: "Required"},
		})
	}

	user, err := h.userService.ClaimAccessURL(c.Request().Context(), userID, req.SetupToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSetupToken) {
			return NewValidationError(c, "Setup token is not valid base64", []ValidationError{
				{Field: "setupToken", Message: "Malformed token"},
			})
		}
		if errors.Is(err, domain.ErrClaimFailed) {
			return NewBadGatewayError(c, "The aggregator rejected the setup token")
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to claim access URL")
		return NewInternalError(c, "Failed to claim access URL")
	}

	log.Info().Int32("user_id", userID).Msg("Bank access URL claimed")
	return c.JSON(http.StatusOK, MeResponse{
		ID:            user.ID,
		AuthID:        user.AuthID,
		BankConnected: true,
		CreatedAt:     user.CreatedAt,
	})
}

// SyncRequest represents the sync request body. Dates bound the transaction
// window; zero values fall back to the aggregator's defaults.
type SyncRequest struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// SyncResponse represents one sync run
type SyncResponse struct {
	BatchID             string   `json:"batchId"`
	AccountsSynced      int      `json:"accountsSynced"`
	TransactionsWritten int      `json:"transactionsWritten"`
	Errors              []string `json:"errors"`
}

// Sync handles POST /api/v1/sync
func (h *UserHandler) Sync(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	var req SyncRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	var start, end time.Time
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}

	result, err := h.syncService.Sync(c.Request().Context(), userID, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrAccessURLNotSet) {
			return NewConflictError(c, "Bank sync is not configured; claim a setup token first")
		}
		if errors.Is(err, domain.ErrPaymentRequired) {
			return NewBadGatewayError(c, "The aggregator requires payment before serving data")
		}
		if errors.Is(err, domain.ErrBankAuthFailed) {
			return NewBadGatewayError(c, "The aggregator rejected the stored access URL")
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Bank sync failed")
		return NewInternalError(c, "Bank sync failed")
	}

	response := SyncResponse{
		BatchID:             result.BatchID,
		AccountsSynced:      result.AccountsSynced,
		TransactionsWritten: result.TransactionsWritten,
		Errors:              result.Errors,
	}
	if response.Errors == nil {
		response.Errors = []string{}
	}
	return c.JSON(http.StatusOK, response)
}

// Accounts handles GET /api/v1/accounts
func (h *UserHandler) Accounts(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "User required")
	}

	accounts, err := h.syncService.Accounts(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list accounts")
		return NewInternalError(c, "Failed to list accounts")
	}

	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return c.JSON(http.StatusOK, accounts)
}
