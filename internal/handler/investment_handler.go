package handler

import (
	"net/http"
	"strings"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// InvestmentHandler handles Delta wallet and holding requests
type InvestmentHandler struct {
	investmentService *service.InvestmentService
}

// NewInvestmentHandler creates a new InvestmentHandler
func NewInvestmentHandler(investmentService *service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// DeltaRequest is the body for converting between the main pool and Delta
type DeltaRequest struct {
	Amount string `json:"amount"`
}

// BuyAssetRequest is the body for buying a holding with Delta
type BuyAssetRequest struct {
	AssetType   string `json:"assetType"`
	Symbol      string `json:"symbol"`
	DeltaAmount string `json:"deltaAmount"`
	Price       string `json:"price"`
}

// SellAssetRequest is the body for selling part or all of a holding
type SellAssetRequest struct {
	AssetType string `json:"assetType"`
	Symbol    string `json:"symbol"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
}

// GetWallet godoc
// @Summary Get investment wallet
// @Tags investments
// @Produce json
// @Success 200 {object} domain.InvestmentWallet
// @Router /investments/wallet [get]
func (h *InvestmentHandler) GetWallet(c echo.Context) error {
	return c.JSON(http.StatusOK, h.investmentService.GetInvestmentWallet())
}

// BuyDelta godoc
// @Summary Buy Delta
// @Description Converts main currency into Delta at 1:10000
// @Tags investments
// @Accept json
// @Produce json
// @Param request body DeltaRequest true "Request body"
// @Success 200 {object} domain.InvestmentWallet
// @Failure 400 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /investments/delta/buy [post]
func (h *InvestmentHandler) BuyDelta(c echo.Context) error {
	var req DeltaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return NewValidationError(c, "Invalid amount", collect(verr))
	}

	wallet, err := h.investmentService.BuyDeltaTokens(amount)
	if err != nil {
		return respondError(c, err, "buy delta")
	}
	return c.JSON(http.StatusOK, wallet)
}

// SellDelta godoc
// @Summary Sell Delta
// @Description Converts Delta back into main currency
// @Tags investments
// @Accept json
// @Produce json
// @Param request body DeltaRequest true "Request body"
// @Success 200 {object} domain.InvestmentWallet
// @Failure 400 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /investments/delta/sell [post]
func (h *InvestmentHandler) SellDelta(c echo.Context) error {
	var req DeltaRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return NewValidationError(c, "Invalid amount", collect(verr))
	}

	wallet, err := h.investmentService.SellDeltaTokens(amount)
	if err != nil {
		return respondError(c, err, "sell delta")
	}
	return c.JSON(http.StatusOK, wallet)
}

// BuyAsset godoc
// @Summary Buy an asset
// @Description Spends Delta and merges the purchase at weighted-average cost
// @Tags investments
// @Accept json
// @Produce json
// @Param request body BuyAssetRequest true "Request body"
// @Success 200 {object} domain.AssetHolding
// @Failure 400 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /investments/assets/buy [post]
func (h *InvestmentHandler) BuyAsset(c echo.Context) error {
	var req BuyAssetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	deltaAmount, amountErr := parseDecimal("deltaAmount", req.DeltaAmount)
	price, priceErr := parseDecimal("price", req.Price)
	if errs := collect(amountErr, priceErr); len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	holding, err := h.investmentService.BuyAsset(service.BuyAssetInput{
		AssetType:   domain.AssetType(strings.ToLower(req.AssetType)),
		Symbol:      req.Symbol,
		DeltaAmount: deltaAmount,
		Price:       price,
	})
	if err != nil {
		return respondError(c, err, "buy asset")
	}
	return c.JSON(http.StatusOK, holding)
}

// SellAsset godoc
// @Summary Sell an asset
// @Description Sells part or all of a holding into Delta
// @Tags investments
// @Accept json
// @Produce json
// @Param request body SellAssetRequest true "Request body"
// @Success 200 {object} service.SaleResult
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /investments/assets/sell [post]
func (h *InvestmentHandler) SellAsset(c echo.Context) error {
	var req SellAssetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	quantity, quantityErr := parseDecimal("quantity", req.Quantity)
	price, priceErr := parseDecimal("price", req.Price)
	if errs := collect(quantityErr, priceErr); len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	result, err := h.investmentService.SellAsset(service.SellAssetInput{
		AssetType: domain.AssetType(strings.ToLower(req.AssetType)),
		Symbol:    req.Symbol,
		Quantity:  quantity,
		Price:     price,
	})
	if err != nil {
		return respondError(c, err, "sell asset")
	}
	return c.JSON(http.StatusOK, result)
}

// GetPortfolio godoc
// @Summary Value the portfolio
// @Description Unquoted holdings are valued at average cost
// @Tags investments
// @Produce json
// @Param prices query string false "Current prices as SYMBOL:price pairs, comma-separated"
// @Success 200 {object} domain.PortfolioValue
// @Failure 400 {object} ProblemDetails
// @Router /investments/portfolio [get]
func (h *InvestmentHandler) GetPortfolio(c echo.Context) error {
	prices := make(map[string]decimal.Decimal)
	if raw := c.QueryParam("prices"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			symbol, value, found := strings.Cut(pair, ":")
			price, err := decimal.NewFromString(strings.TrimSpace(value))
			if !found || strings.TrimSpace(symbol) == "" || err != nil {
				return NewValidationError(c, "Invalid prices", []ValidationError{
					{Field: "prices", Message: "Must be a comma separated list of SYMBOL:price"},
				})
			}
			prices[strings.TrimSpace(symbol)] = price
		}
	}
	return c.JSON(http.StatusOK, h.investmentService.GetPortfolioValue(prices))
}
