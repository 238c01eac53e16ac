package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type GoalID int64

type GoalKind string

const (
	GoalKindSavings GoalKind = "savings"
	GoalKindEMI     GoalKind = "emi"
)

type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusPaused   GoalStatus = "paused"
	GoalStatusAchieved GoalStatus = "achieved"
	GoalStatusArchived GoalStatus = "archived"
)

// Goal defaults
var (
	SavingsInterestRate    = decimal.NewFromFloat(0.08)
	DefaultPenaltyRate     = decimal.NewFromFloat(0.05)
	DefaultSavingsCategory = "Savings"
	DefaultEMICategory     = "Debt"
)

// SavingsTerms holds the savings-only accounting: lifetime contributions
type SavingsTerms struct {
	Contributed decimal.Decimal `json:"contributed"`
}

// EMITerms holds the debt-only accounting: cumulative debt repaid
type EMITerms struct {
	Repaid decimal.Decimal `json:"repaid"`
}

// Goal is a savings or EMI bucket. Exactly one of Savings and EMI is set,
// matching Kind.
type Goal struct {
	ID                GoalID          `json:"id"`
	Name              string          `json:"name"`
	Kind              GoalKind        `json:"kind"`
	Status            GoalStatus      `json:"status"`
	TargetAmount      decimal.Decimal `json:"targetAmount"`
	CurrentAmount     decimal.Decimal `json:"currentAmount"`
	PendingInterest   decimal.Decimal `json:"pendingInterest"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	LockedUntil       time.Time       `json:"lockedUntil"`
	DueDate           *time.Time      `json:"dueDate,omitempty"`
	NextDueDate       time.Time       `json:"nextDueDate"`
	Frequency         time.Duration   `json:"frequency"`
	MonthlyCommitment decimal.Decimal `json:"monthlyCommitment"`
	PenaltyRate       decimal.Decimal `json:"penaltyRate"`
	Category          string          `json:"category"`
	Priority          int             `json:"priority"`
	AutoPay           bool            `json:"autoPay"`
	LastAccrual       time.Time       `json:"lastAccrual"`
	CreatedAt         time.Time       `json:"createdAt"`
	Savings           *SavingsTerms   `json:"savings,omitempty"`
	EMI               *EMITerms       `json:"emi,omitempty"`
}

// NewGoalTerms returns the kind-specific payloads for a new goal
func NewGoalTerms(kind GoalKind) (*SavingsTerms, *EMITerms, error) {
	switch kind {
	case GoalKindSavings:
		return &SavingsTerms{Contributed: decimal.Zero}, nil, nil
	case GoalKindEMI:
		return nil, &EMITerms{Repaid: decimal.Zero}, nil
	default:
		return nil, nil, ErrInvalidGoalKind
	}
}

// PaidAmount returns lifetime contributions for savings goals and cumulative
// debt repaid for EMI goals
func (g *Goal) PaidAmount() decimal.Decimal {
	switch {
	case g.Savings != nil:
		return g.Savings.Contributed
	case g.EMI != nil:
		return g.EMI.Repaid
	default:
		return decimal.Zero
	}
}

// Progress returns the completion ratio against the target
func (g *Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	achieved := g.CurrentAmount
	if g.Kind == GoalKindEMI {
		achieved = g.PaidAmount()
	}
	return achieved.DivRound(g.TargetAmount, 4)
}

// EffectiveStatus derives Achieved from progress; it is never stored
func (g *Goal) EffectiveStatus() GoalStatus {
	if g.Status == GoalStatusArchived {
		return g.Status
	}
	if g.Progress().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return GoalStatusAchieved
	}
	return g.Status
}

// IsLocked reports whether withdrawals are still blocked at now
func (g *Goal) IsLocked(now time.Time) bool {
	return now.Before(g.LockedUntil)
}

// Value is what closing the goal would return to the main balance
func (g *Goal) Value() decimal.Decimal {
	return g.CurrentAmount.Add(g.PendingInterest)
}

// Validate checks the caller-editable fields
func (g *Goal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > MaxGoalNameLength {
		return ErrNameTooLong
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.MonthlyCommitment.IsNegative() {
		return ErrInvalidAmount
	}
	if g.Frequency <= 0 {
		return ErrInvalidFrequency
	}
	if g.PenaltyRate.IsNegative() || g.PenaltyRate.GreaterThan(decimal.NewFromInt(1)) {
		return ErrInvalidPenaltyRate
	}
	if (g.Kind == GoalKindSavings) != (g.Savings != nil) || (g.Kind == GoalKindEMI) != (g.EMI != nil) {
		return ErrInvalidGoalKind
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers
func (g *Goal) Clone() Goal {
	c := *g
	if g.DueDate != nil {
		d := *g.DueDate
		c.DueDate = &d
	}
	if g.Savings != nil {
		s := *g.Savings
		c.Savings = &s
	}
	if g.EMI != nil {
		e := *g.EMI
		c.EMI = &e
	}
	return c
}

// CompletedGoal is the append-only archive record of a closed or deleted goal
type CompletedGoal struct {
	GoalID         GoalID          `json:"goalId"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	TargetAmount   decimal.Decimal `json:"targetAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	Kind           GoalKind        `json:"kind"`
	CompletionDate time.Time       `json:"completionDate"`
	Category       string          `json:"category"`
}
