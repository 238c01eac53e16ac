package migration

import (
	"strings"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/shopspring/decimal"
)

// upgradeV1 adds transaction category/tags/extension, goal and archive
// categories, and an empty investment wallet
func upgradeV1(slots *domain.UpgradeSlots) {
	v1 := slots.V1
	v2 := &domain.StateV2{
		Ledger:         v1.Ledger,
		Transactions:   make([]domain.TransactionV2, 0, len(v1.Transactions)),
		Goals:          make([]domain.GoalV2, 0, len(v1.Goals)),
		CompletedGoals: make([]domain.CompletedGoalV2, 0, len(v1.CompletedGoals)),
		Wallet:         domain.InvestmentWallet{DeltaBalance: decimal.Zero, Holdings: []domain.AssetHolding{}},
		NextGoalID:     v1.NextGoalID,
		TxSequence:     v1.TxSequence,
	}

	for _, tx := range v1.Transactions {
		v2.Transactions = append(v2.Transactions, domain.TransactionV2{
			ID:           tx.ID,
			Op:           tx.Op,
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Timestamp:    tx.Timestamp,
			Category:     domain.DefaultCategory,
			Tags:         []string{},
			Memo:         tx.Memo,
			Extension:    "",
		})
	}
	for _, g := range v1.Goals {
		v2.Goals = append(v2.Goals, domain.GoalV2{GoalV1: g, Category: domain.DefaultSavingsCategory})
	}
	for _, c := range v1.CompletedGoals {
		v2.CompletedGoals = append(v2.CompletedGoals, domain.CompletedGoalV2{CompletedGoalV1: c, Category: domain.DefaultSavingsCategory})
	}

	slots.V2 = v2
	slots.V1 = nil
}

// upgradeV2 splits the shared paid amount into kind-specific terms and adds
// status, priority, schedule and auto-pay fields. Times derive from the
// capture time so the step stays deterministic.
func upgradeV2(slots *domain.UpgradeSlots) {
	v2 := slots.V2
	state := &domain.State{
		Ledger:         v2.Ledger,
		Transactions:   make([]domain.Transaction, 0, len(v2.Transactions)),
		Goals:          make(map[domain.GoalID]*domain.Goal, len(v2.Goals)),
		CompletedGoals: make([]domain.CompletedGoal, 0, len(v2.CompletedGoals)),
		Wallet:         v2.Wallet.Clone(),
		Achievements:   map[string]time.Time{},
		NextGoalID:     v2.NextGoalID,
		TxSequence:     v2.TxSequence,
	}

	for _, tx := range v2.Transactions {
		tags := make([]string, len(tx.Tags))
		copy(tags, tx.Tags)
		category := tx.Category
		if category == "" {
			category = domain.DefaultCategory
		}
		state.Transactions = append(state.Transactions, domain.Transaction{
			ID:           tx.ID,
			Op:           domain.TransactionOp(tx.Op),
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			Timestamp:    tx.Timestamp,
			Category:     category,
			Tags:         tags,
			Memo:         tx.Memo,
			Extension:    tx.Extension,
		})
	}

	for _, g := range v2.Goals {
		kind := goalKind(g.Kind)
		goal := &domain.Goal{
			ID:                g.ID,
			Name:              g.Name,
			Kind:              kind,
			Status:            domain.GoalStatusActive,
			TargetAmount:      g.TargetAmount,
			CurrentAmount:     g.CurrentAmount,
			PendingInterest:   g.PendingInterest,
			InterestRate:      g.InterestRate,
			LockedUntil:       g.LockedUntil,
			NextDueDate:       slots.CapturedAt.Add(util.DefaultFrequency),
			Frequency:         util.DefaultFrequency,
			MonthlyCommitment: g.MonthlyCommitment,
			PenaltyRate:       decimal.Zero,
			Category:          g.Category,
			Priority:          0,
			AutoPay:           g.MonthlyCommitment.IsPositive(),
			LastAccrual:       v2.Ledger.LastUpdate,
			CreatedAt:         slots.CapturedAt,
		}
		if g.DueDate != nil {
			d := *g.DueDate
			goal.DueDate = &d
			goal.NextDueDate = d
		}
		if goal.Category == "" {
			goal.Category = domain.DefaultSavingsCategory
		}
		if kind == domain.GoalKindEMI {
			goal.EMI = &domain.EMITerms{Repaid: g.PaidAmount}
		} else {
			goal.Savings = &domain.SavingsTerms{Contributed: g.PaidAmount}
			goal.PenaltyRate = domain.DefaultPenaltyRate
		}
		state.Goals[goal.ID] = goal
		if goal.ID >= state.NextGoalID {
			state.NextGoalID = goal.ID + 1
		}
	}

	for _, c := range v2.CompletedGoals {
		category := c.Category
		if category == "" {
			category = domain.DefaultSavingsCategory
		}
		state.CompletedGoals = append(state.CompletedGoals, domain.CompletedGoal{
			Name:           c.Name,
			Amount:         c.Amount,
			TargetAmount:   c.TargetAmount,
			PaidAmount:     c.PaidAmount,
			Kind:           goalKind(c.Kind),
			CompletionDate: c.CompletionDate,
			Category:       category,
		})
	}

	slots.V3 = state
	slots.V2 = nil
}

func goalKind(kind string) domain.GoalKind {
	if strings.EqualFold(strings.TrimSpace(kind), string(domain.GoalKindEMI)) {
		return domain.GoalKindEMI
	}
	return domain.GoalKindSavings
}
