package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// defaultProjectionYears is used when the caller names no horizons
var defaultProjectionYears = []float64{1, 5, 10}

// LedgerHandler handles main pool and transaction log requests
type LedgerHandler struct {
	ledgerService *service.LedgerService
	exportService *service.ExportService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *service.LedgerService, exportService *service.ExportService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		exportService: exportService,
	}
}

// MovementRequest is the body for deposits and withdrawals
type MovementRequest struct {
	Amount   string   `json:"amount"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Memo     string   `json:"memo,omitempty"`
}

// WithdrawResponse reports the settled balance after a withdrawal
type WithdrawResponse struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// SetRateRequest is the body for overriding the interest rate
type SetRateRequest struct {
	Rate string `json:"rate"`
}

// LiveBalanceResponse is the continuously compounded balance at a point in time
type LiveBalanceResponse struct {
	LiveBalance decimal.Decimal `json:"liveBalance"`
	AsOf        time.Time       `json:"asOf"`
}

func (r MovementRequest) meta() domain.TxMeta {
	return domain.TxMeta{Category: r.Category, Tags: r.Tags, Memo: r.Memo}
}

// GetSummary godoc
// @Summary Get ledger summary
// @Description Settled balance, pending interest, live balance and effective rate
// @Tags ledger
// @Produce json
// @Success 200 {object} service.LedgerSummary
// @Router /ledger [get]
func (h *LedgerHandler) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ledgerService.GetSummary())
}

// GetLiveBalance godoc
// @Summary Get live balance
// @Description Continuously compounded balance at the current instant; never mutates state
// @Tags ledger
// @Produce json
// @Success 200 {object} LiveBalanceResponse
// @Router /ledger/live [get]
func (h *LedgerHandler) GetLiveBalance(c echo.Context) error {
	return c.JSON(http.StatusOK, LiveBalanceResponse{
		LiveBalance: h.ledgerService.GetLiveBalance(),
		AsOf:        h.ledgerService.Now(),
	})
}

// Deposit godoc
// @Summary Deposit
// @Description Realizes gains then credits the main balance
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body MovementRequest true "Request body"
// @Success 201 {object} domain.Transaction
// @Failure 400 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /ledger/deposit [post]
func (h *LedgerHandler) Deposit(c echo.Context) error {
	var req MovementRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return NewValidationError(c, "Invalid amount", collect(verr))
	}

	tx, err := h.ledgerService.Deposit(amount, req.meta())
	if err != nil {
		return respondError(c, err, "deposit")
	}
	return c.JSON(http.StatusCreated, tx)
}

// Withdraw godoc
// @Summary Withdraw
// @Description Realizes gains then debits the settled balance
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body MovementRequest true "Request body"
// @Success 200 {object} WithdrawResponse
// @Failure 400 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /ledger/withdraw [post]
func (h *LedgerHandler) Withdraw(c echo.Context) error {
	var req MovementRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return NewValidationError(c, "Invalid amount", collect(verr))
	}

	balance, err := h.ledgerService.Withdraw(amount, req.meta())
	if err != nil {
		return respondError(c, err, "withdraw")
	}
	return c.JSON(http.StatusOK, WithdrawResponse{Amount: amount, Balance: balance})
}

// SetRate godoc
// @Summary Override interest rate
// @Description Sets a fixed annual rate between 0 and 1 instead of the tiered schedule
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body SetRateRequest true "Request body"
// @Success 200 {object} service.LedgerSummary
// @Failure 400 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /ledger/rate [put]
func (h *LedgerHandler) SetRate(c echo.Context) error {
	var req SetRateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	rate, verr := parseDecimal("rate", req.Rate)
	if verr != nil {
		return NewValidationError(c, "Invalid rate", collect(verr))
	}

	summary, err := h.ledgerService.SetRate(rate)
	if err != nil {
		return respondError(c, err, "set rate")
	}
	return c.JSON(http.StatusOK, summary)
}

// ResetRate godoc
// @Summary Reset interest rate
// @Description Clears the override so the tiered rate applies again
// @Tags ledger
// @Produce json
// @Success 200 {object} service.LedgerSummary
// @Failure 429 {object} ProblemDetails
// @Router /ledger/rate [delete]
func (h *LedgerHandler) ResetRate(c echo.Context) error {
	summary, err := h.ledgerService.ResetRate()
	if err != nil {
		return respondError(c, err, "reset rate")
	}
	return c.JSON(http.StatusOK, summary)
}

// GetProjections godoc
// @Summary Project balance
// @Description Projects the live balance at the current rate for each horizon
// @Tags ledger
// @Produce json
// @Param years query string false "Comma-separated horizons in years (default 1,5,10)"
// @Success 200 {array} domain.Projection
// @Failure 400 {object} ProblemDetails
// @Router /ledger/projections [get]
func (h *LedgerHandler) GetProjections(c echo.Context) error {
	years := defaultProjectionYears
	if raw := c.QueryParam("years"); raw != "" {
		years = nil
		for _, part := range strings.Split(raw, ",") {
			y, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return NewValidationError(c, "Invalid years", []ValidationError{
					{Field: "years", Message: "Must be a comma separated list of numbers"},
				})
			}
			years = append(years, y)
		}
	}

	projections, err := h.ledgerService.ProjectedBalances(years)
	if err != nil {
		return respondError(c, err, "project balances")
	}
	return c.JSON(http.StatusOK, projections)
}

// GetTransactions godoc
// @Summary List transactions
// @Description Newest first, paginated and filtered
// @Tags transactions
// @Produce json
// @Param page query integer false "Page number"
// @Param pageSize query integer false "Page size (max 100)"
// @Param op query string false "Operation filter"
// @Param category query string false "Category filter"
// @Success 200 {object} domain.PaginatedTransactions
// @Failure 400 {object} ProblemDetails
// @Router /transactions [get]
func (h *LedgerHandler) GetTransactions(c echo.Context) error {
	filters := &domain.TransactionFilters{}

	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || page < 1 {
			return NewValidationError(c, "Invalid page", []ValidationError{
				{Field: "page", Message: "Must be a positive integer"},
			})
		}
		filters.Page = int32(page)
	}
	if raw := c.QueryParam("pageSize"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || size < 1 {
			return NewValidationError(c, "Invalid pageSize", []ValidationError{
				{Field: "pageSize", Message: "Must be a positive integer"},
			})
		}
		filters.PageSize = int32(size)
	}
	if op := c.QueryParam("op"); op != "" {
		txOp := domain.TransactionOp(op)
		filters.Op = &txOp
	}
	if category := c.QueryParam("category"); category != "" {
		filters.Category = &category
	}

	return c.JSON(http.StatusOK, h.ledgerService.GetTransactions(filters))
}

// ExportTransactions godoc
// @Summary Export transactions
// @Description Downloads the whole log as CSV
// @Tags transactions
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Router /transactions/export [get]
func (h *LedgerHandler) ExportTransactions(c echo.Context) error {
	filename := service.ExportFilename(h.ledgerService.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(h.exportService.ExportTransactionsCSV()))
}
