package handler

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Handlers groups every API handler for route registration
type Handlers struct {
	Ledger     *LedgerHandler
	Goal       *GoalHandler
	Investment *InvestmentHandler
	Metrics    *MetricsHandler
	WebSocket  *WebSocketHandler
}

// RegisterRoutes sets up all API routes. writeLimit guards every route that changes state.
func RegisterRoutes(e *echo.Echo, h Handlers, writeLimit echo.MiddlewareFunc) {
	// API version 1
	api := e.Group("/api/v1")

	// Ledger routes
	ledger := api.Group("/ledger")
	ledger.GET("", h.Ledger.GetSummary)
	ledger.GET("/live", h.Ledger.GetLiveBalance)
	ledger.GET("/projections", h.Ledger.GetProjections)
	ledger.POST("/deposit", h.Ledger.Deposit, writeLimit)
	ledger.POST("/withdraw", h.Ledger.Withdraw, writeLimit)
	ledger.PUT("/rate", h.Ledger.SetRate, writeLimit)
	ledger.DELETE("/rate", h.Ledger.ResetRate, writeLimit)

	// Transaction log routes
	transactions := api.Group("/transactions")
	transactions.GET("", h.Ledger.GetTransactions)
	transactions.GET("/export", h.Ledger.ExportTransactions)

	// Goal routes
	goals := api.Group("/goals")
	goals.GET("", h.Goal.GetGoals)
	goals.GET("/completed", h.Goal.GetCompletedGoals)
	goals.GET("/:id", h.Goal.GetGoal)
	goals.POST("", h.Goal.CreateGoal, writeLimit)
	goals.PUT("/:id", h.Goal.UpdateGoal, writeLimit)
	goals.DELETE("/:id", h.Goal.DeleteGoal, writeLimit)
	goals.PATCH("/:id/toggle-status", h.Goal.ToggleGoalStatus, writeLimit)
	goals.POST("/:id/fund", h.Goal.FundGoal, writeLimit)
	goals.POST("/:id/withdraw", h.Goal.WithdrawFromGoal, writeLimit)
	goals.POST("/:id/liquidate", h.Goal.LiquidateGoal, writeLimit)
	goals.POST("/:id/pay-emi", h.Goal.PayEMI, writeLimit)
	goals.POST("/:id/close", h.Goal.CloseGoal, writeLimit)

	// Investment routes
	investments := api.Group("/investments")
	investments.GET("/wallet", h.Investment.GetWallet)
	investments.GET("/portfolio", h.Investment.GetPortfolio)
	investments.POST("/delta/buy", h.Investment.BuyDelta, writeLimit)
	investments.POST("/delta/sell", h.Investment.SellDelta, writeLimit)
	investments.POST("/assets/buy", h.Investment.BuyAsset, writeLimit)
	investments.POST("/assets/sell", h.Investment.SellAsset, writeLimit)

	// Metrics routes
	metrics := api.Group("/metrics")
	metrics.GET("/health", h.Metrics.GetHealth)
	metrics.GET("/achievements", h.Metrics.GetAchievements)

	api.POST("/automation/run", h.Metrics.RunAutomation, writeLimit)

	// Live updates
	e.GET("/ws", h.WebSocket.HandleWS)

	// API documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)
}
