package service

import (
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Health score weights
const (
	liquidityMax       = 40
	liquidityMid       = 25
	liquidityLow       = 10
	savingsProgressMax = 20
	debtRepaidMax      = 20
	pointsPerGoal      = 5
	goalPointsMax      = 10
	investedPoints     = 10
)

// HealthReport breaks the financial health score into its components
type HealthReport struct {
	Score           int    `json:"score"`
	Liquidity       int    `json:"liquidity"`
	SavingsProgress int    `json:"savingsProgress"`
	DebtRepaid      int    `json:"debtRepaid"`
	Diversification int    `json:"diversification"`
	Rating          string `json:"rating"`
}

// MetricsService derives read-only metrics from the ledger
type MetricsService struct {
	ledger *LedgerService
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(ledger *LedgerService) *MetricsService {
	return &MetricsService{ledger: ledger}
}

// GetFinancialHealth scores the ledger from 0 to 100
func (s *MetricsService) GetFinancialHealth() HealthReport {
	var report HealthReport
	s.ledger.view(func(st *domain.State, now time.Time) {
		report = healthOf(st, now)
	})
	return report
}

// GetAchievements returns the catalogue with unlock times
func (s *MetricsService) GetAchievements() []domain.Achievement {
	var result []domain.Achievement
	s.ledger.view(func(st *domain.State, _ time.Time) {
		result = st.AchievementList()
	})
	return result
}

func healthOf(st *domain.State, now time.Time) HealthReport {
	var r HealthReport

	live := st.Ledger.LiveBalance(now)
	switch {
	case live.GreaterThanOrEqual(domain.TierTwoLimit):
		r.Liquidity = liquidityMax
	case live.GreaterThanOrEqual(domain.TierOneLimit):
		r.Liquidity = liquidityMid
	case live.IsPositive():
		r.Liquidity = liquidityLow
	}

	one := decimal.NewFromInt(1)
	var savingsSum, debtSum decimal.Decimal
	var savingsCount, debtCount, activeCount int64
	for _, g := range st.Goals {
		progress := decimal.Min(g.Progress(), one)
		switch g.Kind {
		case domain.GoalKindSavings:
			savingsSum = savingsSum.Add(progress)
			savingsCount++
		case domain.GoalKindEMI:
			debtSum = debtSum.Add(progress)
			debtCount++
		}
		if g.Status == domain.GoalStatusActive {
			activeCount++
		}
	}

	if savingsCount > 0 {
		r.SavingsProgress = int(savingsSum.Div(decimal.NewFromInt(savingsCount)).
			Mul(decimal.NewFromInt(savingsProgressMax)).IntPart())
	}
	if debtCount > 0 {
		r.DebtRepaid = int(debtSum.Div(decimal.NewFromInt(debtCount)).
			Mul(decimal.NewFromInt(debtRepaidMax)).IntPart())
	} else {
		r.DebtRepaid = debtRepaidMax
	}

	r.Diversification = int(activeCount) * pointsPerGoal
	if r.Diversification > goalPointsMax {
		r.Diversification = goalPointsMax
	}
	if len(st.Wallet.Holdings) > 0 || st.Wallet.DeltaBalance.IsPositive() {
		r.Diversification += investedPoints
	}

	r.Score = r.Liquidity + r.SavingsProgress + r.DebtRepaid + r.Diversification
	if r.Score > 100 {
		r.Score = 100
	}
	if r.Score < 0 {
		r.Score = 0
	}
	r.Rating = ratingFor(r.Score)
	return r
}

func ratingFor(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "poor"
	}
}
