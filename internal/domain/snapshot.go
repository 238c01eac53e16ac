package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Generation identifies a persisted record shape
type Generation int

const (
	GenerationV1 Generation = 1
	GenerationV2 Generation = 2
	GenerationV3 Generation = 3

	CurrentGeneration = GenerationV3
)

// Generation 1: flat goals with a shared paidAmount, untagged transactions,
// no investment wallet.

type TransactionV1 struct {
	ID           string          `json:"id"`
	Op           string          `json:"op"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Timestamp    time.Time       `json:"timestamp"`
	Memo         string          `json:"memo"`
}

type GoalV1 struct {
	ID                GoalID          `json:"id"`
	Name              string          `json:"name"`
	Kind              string          `json:"kind"`
	TargetAmount      decimal.Decimal `json:"targetAmount"`
	CurrentAmount     decimal.Decimal `json:"currentAmount"`
	PendingInterest   decimal.Decimal `json:"pendingInterest"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	LockedUntil       time.Time       `json:"lockedUntil"`
	DueDate           *time.Time      `json:"dueDate,omitempty"`
	MonthlyCommitment decimal.Decimal `json:"monthlyCommitment"`
}

type CompletedGoalV1 struct {
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	TargetAmount   decimal.Decimal `json:"targetAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	Kind           string          `json:"kind"`
	CompletionDate time.Time       `json:"completionDate"`
}

type StateV1 struct {
	Ledger         LedgerState       `json:"ledger"`
	Transactions   []TransactionV1   `json:"transactions"`
	Goals          []GoalV1          `json:"goals"`
	CompletedGoals []CompletedGoalV1 `json:"completedGoals"`
	NextGoalID     GoalID            `json:"nextGoalId"`
	TxSequence     uint64            `json:"txSequence"`
}

// Generation 2: transactions gain category/tags/extension, goals and archive
// records gain a category, and the investment wallet appears.

type TransactionV2 struct {
	ID           string          `json:"id"`
	Op           string          `json:"op"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Timestamp    time.Time       `json:"timestamp"`
	Category     string          `json:"category"`
	Tags         []string        `json:"tags"`
	Memo         string          `json:"memo"`
	Extension    string          `json:"extension"`
}

type GoalV2 struct {
	GoalV1
	Category string `json:"category"`
}

type CompletedGoalV2 struct {
	CompletedGoalV1
	Category string `json:"category"`
}

type StateV2 struct {
	Ledger         LedgerState       `json:"ledger"`
	Transactions   []TransactionV2   `json:"transactions"`
	Goals          []GoalV2          `json:"goals"`
	CompletedGoals []CompletedGoalV2 `json:"completedGoals"`
	Wallet         InvestmentWallet  `json:"wallet"`
	NextGoalID     GoalID            `json:"nextGoalId"`
	TxSequence     uint64            `json:"txSequence"`
}

// UpgradeSlots holds at most one state per generation across an upgrade.
// Generation 3 is the live State shape.
type UpgradeSlots struct {
	CapturedAt time.Time `json:"capturedAt"`
	V1         *StateV1  `json:"v1,omitempty"`
	V2         *StateV2  `json:"v2,omitempty"`
	V3         *State    `json:"v3,omitempty"`
}

// Oldest returns the oldest populated generation
func (u *UpgradeSlots) Oldest() (Generation, bool) {
	switch {
	case u == nil:
		return 0, false
	case u.V1 != nil:
		return GenerationV1, true
	case u.V2 != nil:
		return GenerationV2, true
	case u.V3 != nil:
		return GenerationV3, true
	default:
		return 0, false
	}
}

// Empty reports whether no slot is populated
func (u *UpgradeSlots) Empty() bool {
	_, ok := u.Oldest()
	return !ok
}

// SnapshotRepository stores upgrade slots between upgrade-start and upgrade-complete
type SnapshotRepository interface {
	SaveSlots(ctx context.Context, slots *UpgradeSlots) error
	LoadSlots(ctx context.Context) (*UpgradeSlots, error)
	ClearSlots(ctx context.Context) error
}

// SnapshotArchive keeps an off-site copy of captured snapshots
type SnapshotArchive interface {
	Archive(ctx context.Context, key string, data []byte) (string, error)
}
