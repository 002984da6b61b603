package handler

import (
	"github.com/hearthfin/hearth-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all API routes. Every route under /api/v1 requires a
// valid token; the sync endpoint is additionally rate limited per user.
func RegisterRoutes(
	e *echo.Echo,
	auth *middleware.AuthMiddleware,
	syncLimiter *middleware.RateLimiter,
	budgetHandler *BudgetHandler,
	monthHandler *MonthHandler,
	fundHandler *FundHandler,
	transactionHandler *TransactionHandler,
	userHandler *UserHandler,
) {
	api := e.Group("/api/v1")
	api.Use(auth.Authenticate())

	budgets := api.Group("/budgets")
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/names", budgetHandler.GetBudgetNames)
	budgets.POST("/income", budgetHandler.CreateIncome)
	budgets.POST("/expense", budgetHandler.CreateExpense)
	budgets.POST("/fund", budgetHandler.CreateFund)
	budgets.POST("/copy", monthHandler.CopyMonth)
	budgets.POST("/allocate", monthHandler.Allocate)
	budgets.DELETE("/month/:year/:month", budgetHandler.DeleteMonth)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	funds := api.Group("/funds")
	funds.GET("/orphans", fundHandler.GetOrphans)
	funds.GET("/:id/balance", fundHandler.GetBalance)
	funds.POST("/combine", fundHandler.Combine)
	funds.POST("/:id/unlink", fundHandler.Unlink)
	funds.GET("/masters/:id", fundHandler.GetMasterDetails)
	funds.POST("/masters/:id/discontinue", fundHandler.Discontinue)
	funds.POST("/masters/:id/reattach", fundHandler.Reattach)

	transactions := api.Group("/transactions")
	transactions.GET("", transactionHandler.List)
	transactions.GET("/:id", transactionHandler.GetByID)
	transactions.PATCH("/:id/budget", transactionHandler.AssignBudget)
	transactions.PATCH("/:id/type", transactionHandler.MarkType)
	transactions.POST("/:id/breakdown", transactionHandler.Breakdown)
	transactions.GET("/:id/line-items", transactionHandler.GetLineItems)

	api.PUT("/line-items/:id", transactionHandler.UpdateLineItem)
	api.DELETE("/line-items/:id", transactionHandler.DeleteLineItem)

	api.GET("/users/me", userHandler.Me)
	api.POST("/users/claim", userHandler.Claim)
	api.GET("/accounts", userHandler.Accounts)
	api.POST("/sync", userHandler.Sync, middleware.RateLimitMiddleware(syncLimiter))
}
