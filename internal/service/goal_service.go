package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/shopspring/decimal"
)

// GoalService handles goal lifecycle operations on the ledger
type GoalService struct {
	ledger *LedgerService
}

// NewGoalService creates a new GoalService
func NewGoalService(ledger *LedgerService) *GoalService {
	return &GoalService{ledger: ledger}
}

// CreateGoalInput holds the input for creating a goal
type CreateGoalInput struct {
	Name              string
	Kind              domain.GoalKind
	TargetAmount      decimal.Decimal
	LockDuration      time.Duration
	DueDate           *time.Time
	MonthlyCommitment decimal.Decimal
	InitialDeposit    decimal.Decimal
	AutoPay           bool
	Frequency         time.Duration    // defaults to 30 days
	NextDueDate       *time.Time       // defaults to now + frequency
	PenaltyRate       *decimal.Decimal // defaults to 5% for savings, 0 for EMI
	Category          string
	Priority          int
}

// UpdateGoalInput holds the editable goal fields; nil leaves a field unchanged
type UpdateGoalInput struct {
	Name              *string
	TargetAmount      *decimal.Decimal
	MonthlyCommitment *decimal.Decimal
	Frequency         *time.Duration
	NextDueDate       *time.Time
	DueDate           *time.Time
	PenaltyRate       *decimal.Decimal
	Category          *string
	Priority          *int
	AutoPay           *bool
}

// LiquidationResult reports the split of a partial liquidation
type LiquidationResult struct {
	Goal     domain.Goal     `json:"goal"`
	Credited decimal.Decimal `json:"credited"`
	Penalty  decimal.Decimal `json:"penalty"`
}

func goalExtension(id domain.GoalID) string {
	return fmt.Sprintf("goal:%d", id)
}

func lookupGoal(s *domain.State, id domain.GoalID) (*domain.Goal, error) {
	g, ok := s.Goals[id]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}
	return g, nil
}

func fundOp(kind domain.GoalKind) domain.TransactionOp {
	if kind == domain.GoalKindEMI {
		return domain.OpEMIFund
	}
	return domain.OpGoalFund
}

// CreateGoal allocates a goal and optionally pre-funds it from the main balance.
// Pre-funding is capped at the available balance.
func (s *GoalService) CreateGoal(input CreateGoalInput) (*domain.Goal, error) {
	if input.InitialDeposit.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if input.LockDuration < 0 {
		return nil, fmt.Errorf("%w: lock duration must not be negative", domain.ErrInvalidInput)
	}

	savings, emi, err := domain.NewGoalTerms(input.Kind)
	if err != nil {
		return nil, err
	}

	goal := &domain.Goal{
		Name:              strings.TrimSpace(input.Name),
		Kind:              input.Kind,
		Status:            domain.GoalStatusActive,
		TargetAmount:      input.TargetAmount,
		CurrentAmount:     decimal.Zero,
		PendingInterest:   decimal.Zero,
		MonthlyCommitment: input.MonthlyCommitment,
		Frequency:         input.Frequency,
		Category:          strings.TrimSpace(input.Category),
		Priority:          input.Priority,
		AutoPay:           input.AutoPay,
		Savings:           savings,
		EMI:               emi,
	}
	if goal.Frequency == 0 {
		goal.Frequency = util.DefaultFrequency
	}
	if input.DueDate != nil {
		d := input.DueDate.UTC()
		goal.DueDate = &d
	}

	switch input.Kind {
	case domain.GoalKindEMI:
		goal.InterestRate = decimal.Zero
		goal.PenaltyRate = decimal.Zero
		if goal.Category == "" {
			goal.Category = domain.DefaultEMICategory
		}
	default:
		goal.InterestRate = domain.SavingsInterestRate
		goal.PenaltyRate = domain.DefaultPenaltyRate
		if goal.Category == "" {
			goal.Category = domain.DefaultSavingsCategory
		}
	}
	if input.PenaltyRate != nil {
		goal.PenaltyRate = *input.PenaltyRate
	}

	if err := goal.Validate(); err != nil {
		return nil, err
	}

	var created domain.Goal
	err = s.ledger.apply("create_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		goal.ID = st.AllocateGoalID()
		goal.CreatedAt = now
		goal.LastAccrual = now
		goal.LockedUntil = now.Add(input.LockDuration)
		if input.NextDueDate != nil {
			goal.NextDueDate = input.NextDueDate.UTC()
		} else {
			goal.NextDueDate = util.NextOccurrence(now, goal.Frequency)
		}
		st.Goals[goal.ID] = goal

		evts := []events.Event{}
		funding := decimal.Min(input.InitialDeposit, st.Ledger.Balance)
		if funding.IsPositive() {
			st.Ledger.Balance = st.Ledger.Balance.Sub(funding)
			goal.CurrentAmount = goal.CurrentAmount.Add(funding)
			if goal.Savings != nil {
				goal.Savings.Contributed = goal.Savings.Contributed.Add(funding)
			}
			if goal.EMI != nil {
				goal.EMI.Repaid = goal.EMI.Repaid.Add(funding)
			}
			tx := st.RecordTransaction(now, fundOp(goal.Kind), funding, domain.TxMeta{Category: goal.Category}, goalExtension(goal.ID))
			evts = append(evts, events.TransactionCreated(tx))
		}

		created = goal.Clone()
		return append(evts, events.GoalCreated(created), events.LedgerUpdated(summarize(st, now))), nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateGoal edits a goal's terms. Monetary buckets are never edited here.
func (s *GoalService) UpdateGoal(id domain.GoalID, input UpdateGoalInput) (*domain.Goal, error) {
	var updated domain.Goal
	err := s.ledger.apply("update_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}

		draft := g.Clone()
		if input.Name != nil {
			draft.Name = strings.TrimSpace(*input.Name)
		}
		if input.TargetAmount != nil {
			draft.TargetAmount = *input.TargetAmount
		}
		if input.MonthlyCommitment != nil {
			draft.MonthlyCommitment = *input.MonthlyCommitment
		}
		if input.Frequency != nil {
			draft.Frequency = *input.Frequency
		}
		if input.NextDueDate != nil {
			draft.NextDueDate = input.NextDueDate.UTC()
		}
		if input.DueDate != nil {
			d := input.DueDate.UTC()
			draft.DueDate = &d
		}
		if input.PenaltyRate != nil {
			draft.PenaltyRate = *input.PenaltyRate
		}
		if input.Category != nil && strings.TrimSpace(*input.Category) != "" {
			draft.Category = strings.TrimSpace(*input.Category)
		}
		if input.Priority != nil {
			draft.Priority = *input.Priority
		}
		if input.AutoPay != nil {
			draft.AutoPay = *input.AutoPay
		}
		if err := draft.Validate(); err != nil {
			return nil, err
		}

		*g = draft
		updated = g.Clone()
		return []events.Event{events.GoalUpdated(updated)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ToggleGoalStatus flips a goal between Active and Paused
func (s *GoalService) ToggleGoalStatus(id domain.GoalID) (*domain.Goal, error) {
	var updated domain.Goal
	err := s.ledger.apply("toggle_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		switch g.Status {
		case domain.GoalStatusActive:
			g.Status = domain.GoalStatusPaused
		case domain.GoalStatusPaused:
			g.Status = domain.GoalStatusActive
		default:
			return nil, fmt.Errorf("%w: goal status %s cannot be toggled", domain.ErrPreconditionFailed, g.Status)
		}
		updated = g.Clone()
		return []events.Event{events.GoalUpdated(updated)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// FundGoal moves amount from the main balance into the goal bucket
func (s *GoalService) FundGoal(id domain.GoalID, amount decimal.Decimal) (*domain.Goal, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var updated domain.Goal
	err := s.ledger.apply("fund_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(st.Ledger.Balance) {
			return nil, domain.ErrInsufficientFunds
		}

		st.Ledger.Balance = st.Ledger.Balance.Sub(amount)
		g.CurrentAmount = g.CurrentAmount.Add(amount)
		if g.Savings != nil {
			g.Savings.Contributed = g.Savings.Contributed.Add(amount)
		}
		tx := st.RecordTransaction(now, fundOp(g.Kind), amount, domain.TxMeta{Category: g.Category}, goalExtension(g.ID))

		updated = g.Clone()
		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalUpdated(updated),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// WithdrawFromGoal moves amount from an unlocked goal bucket back to the main balance
func (s *GoalService) WithdrawFromGoal(id domain.GoalID, amount decimal.Decimal) (*domain.Goal, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var updated domain.Goal
	err := s.ledger.apply("withdraw_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		if g.IsLocked(now) {
			return nil, domain.ErrGoalLocked
		}
		if amount.GreaterThan(g.CurrentAmount) {
			return nil, domain.ErrGoalInsufficient
		}

		g.CurrentAmount = g.CurrentAmount.Sub(amount)
		st.Ledger.Balance = st.Ledger.Balance.Add(amount)
		tx := st.RecordTransaction(now, domain.OpGoalWithdraw, amount, domain.TxMeta{Category: g.Category}, goalExtension(g.ID))

		updated = g.Clone()
		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalUpdated(updated),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// PartialLiquidateGoal withdraws regardless of the lock. While locked, the
// penalty share of amount is forfeited and only the remainder is credited.
func (s *GoalService) PartialLiquidateGoal(id domain.GoalID, amount decimal.Decimal) (*LiquidationResult, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var result LiquidationResult
	err := s.ledger.apply("liquidate_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(g.CurrentAmount) {
			return nil, domain.ErrGoalInsufficient
		}

		penalty := decimal.Zero
		if g.IsLocked(now) {
			penalty = amount.Mul(g.PenaltyRate).Round(domain.MoneyPrecision)
		}
		credited := amount.Sub(penalty)

		g.CurrentAmount = g.CurrentAmount.Sub(amount)
		st.Ledger.Balance = st.Ledger.Balance.Add(credited)
		tx := st.RecordTransaction(now, domain.OpGoalLiquidate, credited, domain.TxMeta{Category: g.Category},
			fmt.Sprintf("%s penalty:%s", goalExtension(g.ID), penalty.String()))

		result = LiquidationResult{Goal: g.Clone(), Credited: credited, Penalty: penalty}
		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalUpdated(result.Goal),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PayEMI records a debt repayment, either from the goal's own bucket or
// directly from the main balance. Paying from main never touches the bucket.
func (s *GoalService) PayEMI(id domain.GoalID, amount decimal.Decimal, fromBucket bool) (*domain.Goal, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var updated domain.Goal
	err := s.ledger.apply("pay_emi", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		if g.EMI == nil {
			return nil, domain.ErrGoalNotEMI
		}

		source := "main"
		if fromBucket {
			if amount.GreaterThan(g.CurrentAmount) {
				return nil, domain.ErrGoalInsufficient
			}
			g.CurrentAmount = g.CurrentAmount.Sub(amount)
			source = "bucket"
		} else {
			if amount.GreaterThan(st.Ledger.Balance) {
				return nil, domain.ErrInsufficientFunds
			}
			st.Ledger.Balance = st.Ledger.Balance.Sub(amount)
		}
		g.EMI.Repaid = g.EMI.Repaid.Add(amount)

		tx := st.RecordTransaction(now, domain.OpEMIPayment, amount, domain.TxMeta{Category: g.Category},
			fmt.Sprintf("%s source:%s", goalExtension(g.ID), source))

		updated = g.Clone()
		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalUpdated(updated),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CloseGoal refunds the bucket and its pending interest to the main balance
// and archives the goal
func (s *GoalService) CloseGoal(id domain.GoalID) (*domain.CompletedGoal, error) {
	var record domain.CompletedGoal
	err := s.ledger.apply("close_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}

		value := g.Value()
		st.Ledger.Balance = st.Ledger.Balance.Add(value)
		tx := st.RecordTransaction(now, domain.OpGoalClose, value, domain.TxMeta{Category: g.Category}, goalExtension(g.ID))
		record = st.ArchiveGoal(g, value, now)

		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalClosed(record),
			events.LedgerUpdated(summarize(st, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteGoal archives an empty goal with a zero-value record. Any accrued
// interest left on the empty bucket returns to the main balance.
func (s *GoalService) DeleteGoal(id domain.GoalID) error {
	return s.ledger.apply("delete_goal", s.ledger.config.CompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		g, err := lookupGoal(st, id)
		if err != nil {
			return nil, err
		}
		if !g.CurrentAmount.IsZero() {
			return nil, domain.ErrGoalNotEmpty
		}

		refund := g.PendingInterest
		st.Ledger.Balance = st.Ledger.Balance.Add(refund)
		tx := st.RecordTransaction(now, domain.OpGoalDelete, refund, domain.TxMeta{Category: g.Category}, goalExtension(g.ID))
		record := st.ArchiveGoal(g, decimal.Zero, now)

		return []events.Event{
			events.TransactionCreated(tx),
			events.GoalDeleted(record),
		}, nil
	})
}

// GetGoals returns all live goals ordered by id
func (s *GoalService) GetGoals() []domain.Goal {
	var goals []domain.Goal
	s.ledger.view(func(st *domain.State, _ time.Time) {
		goals = st.GoalList()
	})
	return goals
}

// GetGoal returns a single live goal
func (s *GoalService) GetGoal(id domain.GoalID) (*domain.Goal, error) {
	var goal domain.Goal
	var err error
	s.ledger.view(func(st *domain.State, _ time.Time) {
		var g *domain.Goal
		g, err = lookupGoal(st, id)
		if err == nil {
			goal = g.Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetCompletedGoals returns the archive in completion order
func (s *GoalService) GetCompletedGoals() []domain.CompletedGoal {
	var result []domain.CompletedGoal
	s.ledger.view(func(st *domain.State, _ time.Time) {
		result = make([]domain.CompletedGoal, len(st.CompletedGoals))
		copy(result, st.CompletedGoals)
	})
	return result
}
