package service

import (
	"fmt"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/shopspring/decimal"
)

const investmentCategory = "Investment"

// InvestmentService handles the Delta bridge and asset holdings
type InvestmentService struct {
	ledger *LedgerService
}

// NewInvestmentService creates a new InvestmentService
func NewInvestmentService(ledger *LedgerService) *InvestmentService {
	return &InvestmentService{ledger: ledger}
}

// BuyAssetInput holds the input for buying an asset with Delta
type BuyAssetInput struct {
	AssetType   domain.AssetType
	Symbol      string
	DeltaAmount decimal.Decimal
	Price       decimal.Decimal
}

// SellAssetInput holds the input for selling part or all of a holding
type SellAssetInput struct {
	AssetType domain.AssetType
	Symbol    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

// SaleResult reports what a sale returned to the wallet
type SaleResult struct {
	Proceeds      decimal.Decimal `json:"proceeds"`
	DeltaCredited decimal.Decimal `json:"deltaCredited"`
	CostRemoved   decimal.Decimal `json:"costRemoved"`
	RealizedGain  decimal.Decimal `json:"realizedGain"`
}

func validAssetType(t domain.AssetType) bool {
	switch t {
	case domain.AssetTypeStock, domain.AssetTypeCrypto, domain.AssetTypeFund, domain.AssetTypeOther:
		return true
	}
	return false
}

// BuyDeltaTokens converts a main currency amount into Delta at the bridge rate
func (s *InvestmentService) BuyDeltaTokens(amount decimal.Decimal) (*domain.InvestmentWallet, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var wallet domain.InvestmentWallet
	err := s.ledger.apply("buy_delta", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		if amount.GreaterThan(st.Ledger.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		delta := domain.MainToDelta(amount)
		st.Ledger.Balance = st.Ledger.Balance.Sub(amount)
		st.Wallet.DeltaBalance = st.Wallet.DeltaBalance.Add(delta)
		tx := st.RecordTransaction(now, domain.OpDeltaBuy, amount, domain.TxMeta{Category: investmentCategory},
			fmt.Sprintf("delta:%s", delta.String()))

		wallet = st.Wallet.Clone()
		return []events.Event{
			events.TransactionCreated(tx),
			events.InvestmentUpdated(wallet),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SellDeltaTokens converts a Delta amount back into main currency
func (s *InvestmentService) SellDeltaTokens(deltaAmount decimal.Decimal) (*domain.InvestmentWallet, error) {
	if !deltaAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var wallet domain.InvestmentWallet
	err := s.ledger.apply("sell_delta", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		if deltaAmount.GreaterThan(st.Wallet.DeltaBalance) {
			return nil, domain.ErrInsufficientDelta
		}
		value := domain.DeltaToMain(deltaAmount)
		st.Wallet.DeltaBalance = st.Wallet.DeltaBalance.Sub(deltaAmount)
		st.Ledger.Balance = st.Ledger.Balance.Add(value)
		tx := st.RecordTransaction(now, domain.OpDeltaSell, value, domain.TxMeta{Category: investmentCategory},
			fmt.Sprintf("delta:%s", deltaAmount.String()))

		wallet = st.Wallet.Clone()
		return []events.Event{
			events.TransactionCreated(tx),
			events.InvestmentUpdated(wallet),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// BuyAsset spends Delta on quantity = value / price and merges the purchase
// into any existing holding at weighted-average cost
func (s *InvestmentService) BuyAsset(input BuyAssetInput) (*domain.AssetHolding, error) {
	symbol := domain.NormalizeSymbol(input.Symbol)
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if !validAssetType(input.AssetType) {
		return nil, fmt.Errorf("%w: unknown asset type %q", domain.ErrInvalidInput, input.AssetType)
	}
	if !input.DeltaAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !input.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	var holding domain.AssetHolding
	err := s.ledger.apply("buy_asset", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		if input.DeltaAmount.GreaterThan(st.Wallet.DeltaBalance) {
			return nil, domain.ErrInsufficientDelta
		}

		value := domain.DeltaToMain(input.DeltaAmount)
		quantity := value.Div(input.Price)
		if !quantity.IsPositive() {
			return nil, fmt.Errorf("%w: purchase is too small for the price", domain.ErrInvalidAmount)
		}

		idx := st.Wallet.Find(symbol)
		if idx >= 0 && st.Wallet.Holdings[idx].AssetType != input.AssetType {
			return nil, domain.ErrAssetTypeMismatch
		}
		if idx < 0 {
			st.Wallet.Holdings = append(st.Wallet.Holdings, domain.AssetHolding{
				AssetType:        input.AssetType,
				Symbol:           symbol,
				Amount:           decimal.Zero,
				AvgPurchasePrice: decimal.Zero,
				TotalInvested:    decimal.Zero,
				PurchaseDate:     now,
			})
			idx = len(st.Wallet.Holdings) - 1
		}
		h := &st.Wallet.Holdings[idx]
		h.Amount = h.Amount.Add(quantity)
		h.TotalInvested = h.TotalInvested.Add(value)
		h.AvgPurchasePrice = h.TotalInvested.Div(h.Amount)

		st.Wallet.DeltaBalance = st.Wallet.DeltaBalance.Sub(input.DeltaAmount)
		tx := st.RecordTransaction(now, domain.OpAssetBuy, value, domain.TxMeta{Category: investmentCategory},
			fmt.Sprintf("%s %s@%s", symbol, quantity.String(), input.Price.String()))

		holding = *h
		return []events.Event{
			events.TransactionCreated(tx),
			events.InvestmentUpdated(st.Wallet.Clone()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// SellAsset sells quantity at price into Delta. A partial sale prorates
// totalInvested by the fraction kept and leaves the average price unchanged;
// selling everything removes the holding.
func (s *InvestmentService) SellAsset(input SellAssetInput) (*SaleResult, error) {
	symbol := domain.NormalizeSymbol(input.Symbol)
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if !validAssetType(input.AssetType) {
		return nil, fmt.Errorf("%w: unknown asset type %q", domain.ErrInvalidInput, input.AssetType)
	}
	if !input.Quantity.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !input.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	var result SaleResult
	err := s.ledger.apply("sell_asset", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		idx := st.Wallet.Find(symbol)
		if idx < 0 {
			return nil, domain.ErrHoldingNotFound
		}
		h := &st.Wallet.Holdings[idx]
		if h.AssetType != input.AssetType {
			return nil, domain.ErrAssetTypeMismatch
		}
		if input.Quantity.GreaterThan(h.Amount) {
			return nil, domain.ErrInsufficientHolding
		}

		proceeds := input.Quantity.Mul(input.Price)
		var costRemoved decimal.Decimal
		if input.Quantity.Equal(h.Amount) {
			costRemoved = h.TotalInvested
			st.Wallet.Holdings = append(st.Wallet.Holdings[:idx], st.Wallet.Holdings[idx+1:]...)
		} else {
			remaining := h.Amount.Sub(input.Quantity)
			kept := h.TotalInvested.Mul(remaining).Div(h.Amount)
			costRemoved = h.TotalInvested.Sub(kept)
			h.Amount = remaining
			h.TotalInvested = kept
		}

		deltaCredited := domain.MainToDelta(proceeds)
		st.Wallet.DeltaBalance = st.Wallet.DeltaBalance.Add(deltaCredited)
		tx := st.RecordTransaction(now, domain.OpAssetSell, proceeds, domain.TxMeta{Category: investmentCategory},
			fmt.Sprintf("%s %s@%s", symbol, input.Quantity.String(), input.Price.String()))

		result = SaleResult{
			Proceeds:      proceeds,
			DeltaCredited: deltaCredited,
			CostRemoved:   costRemoved,
			RealizedGain:  proceeds.Sub(costRemoved),
		}
		return []events.Event{
			events.TransactionCreated(tx),
			events.InvestmentUpdated(st.Wallet.Clone()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetInvestmentWallet returns a copy of the wallet
func (s *InvestmentService) GetInvestmentWallet() domain.InvestmentWallet {
	var wallet domain.InvestmentWallet
	s.ledger.view(func(st *domain.State, _ time.Time) {
		wallet = st.Wallet.Clone()
	})
	return wallet
}

// GetPortfolioValue values the wallet in main currency. Holdings without a
// supplied price are valued at their average cost.
func (s *InvestmentService) GetPortfolioValue(prices map[string]decimal.Decimal) domain.PortfolioValue {
	quotes := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		quotes[domain.NormalizeSymbol(symbol)] = price
	}

	wallet := s.GetInvestmentWallet()
	result := domain.PortfolioValue{
		DeltaBalance: wallet.DeltaBalance,
		DeltaValue:   domain.DeltaToMain(wallet.DeltaBalance),
		Holdings:     make([]domain.HoldingValuation, 0, len(wallet.Holdings)),
	}
	total := result.DeltaValue
	for _, h := range wallet.Holdings {
		price, quoted := quotes[h.Symbol]
		if !quoted {
			price = h.AvgPurchasePrice
		}
		marketValue := h.Amount.Mul(price)
		result.Holdings = append(result.Holdings, domain.HoldingValuation{
			Symbol:       h.Symbol,
			Amount:       h.Amount,
			Price:        price,
			MarketValue:  marketValue,
			CostBasis:    h.TotalInvested,
			UnrealizedPL: marketValue.Sub(h.TotalInvested),
			PriceQuoted:  quoted,
		})
		total = total.Add(marketValue)
	}
	result.TotalValue = total
	return result
}
