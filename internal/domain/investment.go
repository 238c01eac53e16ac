package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DeltaPerUnit is the fixed bridge rate: one unit of main currency buys this much Delta
var DeltaPerUnit = decimal.NewFromInt(10000)

type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeFund   AssetType = "fund"
	AssetTypeOther  AssetType = "other"
)

// AssetHolding is a position keyed by Symbol, valued at weighted-average cost
type AssetHolding struct {
	AssetType        AssetType       `json:"assetType"`
	Symbol           string          `json:"symbol"`
	Amount           decimal.Decimal `json:"amount"`
	AvgPurchasePrice decimal.Decimal `json:"avgPurchasePrice"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	PurchaseDate     time.Time       `json:"purchaseDate"`
}

type InvestmentWallet struct {
	DeltaBalance decimal.Decimal `json:"deltaBalance"`
	Holdings     []AssetHolding  `json:"holdings"`
}

// NormalizeSymbol returns the natural key form of a symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// DeltaToMain converts a Delta amount to main currency
func DeltaToMain(delta decimal.Decimal) decimal.Decimal {
	return delta.Div(DeltaPerUnit)
}

// MainToDelta converts a main currency amount to Delta
func MainToDelta(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(DeltaPerUnit)
}

// Find returns the index of the holding for symbol, or -1
func (w *InvestmentWallet) Find(symbol string) int {
	for i := range w.Holdings {
		if w.Holdings[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy
func (w *InvestmentWallet) Clone() InvestmentWallet {
	holdings := make([]AssetHolding, len(w.Holdings))
	copy(holdings, w.Holdings)
	return InvestmentWallet{DeltaBalance: w.DeltaBalance, Holdings: holdings}
}

// HoldingValuation is a holding priced at a caller-supplied market price
type HoldingValuation struct {
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPl"`
	PriceQuoted  bool            `json:"priceQuoted"`
}

type PortfolioValue struct {
	DeltaBalance decimal.Decimal    `json:"deltaBalance"`
	DeltaValue   decimal.Decimal    `json:"deltaValue"`
	Holdings     []HoldingValuation `json:"holdings"`
	TotalValue   decimal.Decimal    `json:"totalValue"`
}
