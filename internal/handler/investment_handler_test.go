package handler

import (
	"net/http"
	"testing"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaBridge(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "100")

	rec := s.do(http.MethodPost, "/api/v1/investments/delta/buy", `{"amount": "10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet domain.InvestmentWallet
	decodeJSON(t, rec, &wallet)
	assert.Equal(t, "100000", wallet.DeltaBalance.String())

	rec = s.do(http.MethodPost, "/api/v1/investments/delta/sell", `{"amount": "25000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet = domain.InvestmentWallet{}
	decodeJSON(t, rec, &wallet)
	assert.Equal(t, "75000", wallet.DeltaBalance.String())
	assert.Equal(t, "92.5", s.ledger.GetSummary().Balance.String())

	rec = s.do(http.MethodPost, "/api/v1/investments/delta/sell", `{"amount": "75001"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/investments/delta/buy", `{"amount": "1000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAssetTrading(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "100")
	_, err := s.investments.BuyDeltaTokens(decimalOf("50"))
	require.NoError(t, err)

	rec := s.do(http.MethodPost, "/api/v1/investments/assets/buy", `{"assetType": "Stock", "symbol": "acme", "deltaAmount": "200000", "price": "5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var holding domain.AssetHolding
	decodeJSON(t, rec, &holding)
	assert.Equal(t, "ACME", holding.Symbol)
	assert.Equal(t, domain.AssetTypeStock, holding.AssetType)
	assert.Equal(t, "4", holding.Amount.String())
	assert.Equal(t, "5", holding.AvgPurchasePrice.String())

	rec = s.do(http.MethodPost, "/api/v1/investments/assets/sell", `{"assetType": "stock", "symbol": "ACME", "quantity": "1", "price": "8"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sale service.SaleResult
	decodeJSON(t, rec, &sale)
	assert.Equal(t, "8", sale.Proceeds.String())
	assert.Equal(t, "5", sale.CostRemoved.String())
	assert.Equal(t, "3", sale.RealizedGain.String())
	assert.Equal(t, "80000", sale.DeltaCredited.String())

	rec = s.do(http.MethodPost, "/api/v1/investments/assets/sell", `{"assetType": "stock", "symbol": "NOPE", "quantity": "1", "price": "8"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/investments/assets/buy", `{"assetType": "bond", "symbol": "T", "deltaAmount": "1", "price": "1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/investments/assets/buy", `{"assetType": "stock", "symbol": "ACME", "deltaAmount": "", "price": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeProblem(t, rec).Errors, 2)

	rec = s.do(http.MethodGet, "/api/v1/investments/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet domain.InvestmentWallet
	decodeJSON(t, rec, &wallet)
	require.Len(t, wallet.Holdings, 1)
	assert.Equal(t, "3", wallet.Holdings[0].Amount.String())
	assert.Equal(t, "380000", wallet.DeltaBalance.String())
}

func TestGetPortfolio(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "100")
	_, err := s.investments.BuyDeltaTokens(decimalOf("20"))
	require.NoError(t, err)
	_, err = s.investments.BuyAsset(service.BuyAssetInput{
		AssetType: domain.AssetTypeCrypto, Symbol: "BTC", DeltaAmount: decimalOf("100000"), Price: decimalOf("2"),
	})
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/v1/investments/portfolio?prices=btc:3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var portfolio domain.PortfolioValue
	decodeJSON(t, rec, &portfolio)
	require.Len(t, portfolio.Holdings, 1)
	assert.True(t, portfolio.Holdings[0].PriceQuoted)
	assert.Equal(t, "15", portfolio.Holdings[0].MarketValue.String())
	assert.Equal(t, "5", portfolio.Holdings[0].UnrealizedPL.String())
	assert.Equal(t, "25", portfolio.TotalValue.String())

	rec = s.do(http.MethodGet, "/api/v1/investments/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	portfolio = domain.PortfolioValue{}
	decodeJSON(t, rec, &portfolio)
	assert.False(t, portfolio.Holdings[0].PriceQuoted)
	assert.Equal(t, "20", portfolio.TotalValue.String())

	rec = s.do(http.MethodGet, "/api/v1/investments/portfolio?prices=BTC", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
