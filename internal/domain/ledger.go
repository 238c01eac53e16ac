package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/shopspring/decimal"
)

// MoneyPrecision is the number of decimal places kept for accrued interest
const MoneyPrecision int32 = 10

// Tiered rate schedule
var (
	TierOneLimit = decimal.NewFromInt(10000)
	TierTwoLimit = decimal.NewFromInt(100000)
	RateTierOne  = decimal.NewFromFloat(0.03)
	RateTierTwo  = decimal.NewFromFloat(0.05)
	RateTierTop  = decimal.NewFromFloat(0.07)

	// MaxRate caps a rate override at 100% a year
	MaxRate = decimal.NewFromInt(1)
)

// MaxProjectionYears is the longest accepted projection horizon
const MaxProjectionYears = 100.0

// LedgerState is the single liquidity pool
type LedgerState struct {
	Balance         decimal.Decimal  `json:"balance"`
	PendingInterest decimal.Decimal  `json:"pendingInterest"`
	LastUpdate      time.Time        `json:"lastUpdate"`
	LastCompound    time.Time        `json:"lastCompound"`
	RateOverride    *decimal.Decimal `json:"rateOverride,omitempty"`
}

// TieredRate returns the annual rate for a settled balance:
// 3% below 10,000, 5% below 100,000, 7% otherwise
func TieredRate(balance decimal.Decimal) decimal.Decimal {
	switch {
	case balance.LessThan(TierOneLimit):
		return RateTierOne
	case balance.LessThan(TierTwoLimit):
		return RateTierTwo
	default:
		return RateTierTop
	}
}

// Rate returns the override when set, otherwise the tiered rate. Overrides
// above MaxRate, which only legacy documents can carry, are capped.
func (l *LedgerState) Rate() decimal.Decimal {
	if l.RateOverride != nil {
		return decimal.Min(*l.RateOverride, MaxRate)
	}
	return TieredRate(l.Balance)
}

// ContinuousGrowth returns principal * (e^(rate * years) - 1) for the elapsed duration
func ContinuousGrowth(principal, rate decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	if !principal.IsPositive() || elapsed <= 0 || rate.IsZero() {
		return decimal.Zero
	}
	factor := math.Expm1(rate.InexactFloat64() * util.YearFraction(elapsed))
	if math.IsInf(factor, 0) || math.IsNaN(factor) {
		return decimal.Zero
	}
	return principal.Mul(decimal.NewFromFloat(factor)).Round(MoneyPrecision)
}

// UncompoundedGrowth is the interest earned since LastUpdate that has not been
// folded into PendingInterest yet
func (l *LedgerState) UncompoundedGrowth(now time.Time) decimal.Decimal {
	return ContinuousGrowth(l.Balance, l.Rate(), now.Sub(l.LastUpdate))
}

// LiveBalance returns balance + pending interest + uncompounded growth
func (l *LedgerState) LiveBalance(now time.Time) decimal.Decimal {
	return l.Balance.Add(l.PendingInterest).Add(l.UncompoundedGrowth(now))
}

// Projection is a projected live balance after a number of years
type Projection struct {
	Years float64         `json:"years"`
	Value decimal.Decimal `json:"value"`
}

// Project applies the current rate continuously for each horizon
func Project(live, rate decimal.Decimal, years []float64) ([]Projection, error) {
	result := make([]Projection, len(years))
	for i, y := range years {
		factor := math.Exp(rate.InexactFloat64() * y)
		if math.IsInf(factor, 0) || math.IsNaN(factor) {
			return nil, fmt.Errorf("%w: projection of %v years is out of range", ErrInvalidInput, y)
		}
		result[i] = Projection{
			Years: y,
			Value: live.Mul(decimal.NewFromFloat(factor)).Round(2),
		}
	}
	return result, nil
}
