package service

import (
	"sort"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/shopspring/decimal"
)

// AutomationService runs recurring goal transfers on each heartbeat
type AutomationService struct {
	ledger *LedgerService
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(ledger *LedgerService) *AutomationService {
	return &AutomationService{ledger: ledger}
}

// AutomatedTransfer is one recurring transfer applied by a tick
type AutomatedTransfer struct {
	GoalID      domain.GoalID        `json:"goalId"`
	Op          domain.TransactionOp `json:"op"`
	Amount      decimal.Decimal      `json:"amount"`
	NextDueDate time.Time            `json:"nextDueDate"`
}

// AutomationResult summarizes a tick
type AutomationResult struct {
	RanAt      time.Time           `json:"ranAt"`
	Compounded bool                `json:"compounded"`
	Processed  []AutomatedTransfer `json:"processed"`
	Deferred   []domain.GoalID     `json:"deferred"`
}

// dueGoals returns the goals owed a transfer at now, highest priority first.
// Selection uses the stored status, so a goal past its target keeps receiving
// contributions until it is paused or closed.
func dueGoals(s *domain.State, now time.Time) []*domain.Goal {
	var due []*domain.Goal
	for _, g := range s.Goals {
		if g.Status != domain.GoalStatusActive || !g.AutoPay {
			continue
		}
		if !g.MonthlyCommitment.IsPositive() || now.Before(g.NextDueDate) {
			continue
		}
		due = append(due, g)
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ID < due[j].ID
	})
	return due
}

// RunDue realizes gains on the heartbeat cadence and applies every due
// recurring transfer the main balance can cover. An unfunded transfer keeps
// its due date and is retried on the next tick.
func (s *AutomationService) RunDue() (*AutomationResult, error) {
	result := &AutomationResult{
		Processed: []AutomatedTransfer{},
		Deferred:  []domain.GoalID{},
	}

	err := s.ledger.apply("heartbeat", s.ledger.config.HeartbeatCompoundInterval, func(st *domain.State, now time.Time) ([]events.Event, error) {
		result.RanAt = now
		result.Compounded = st.Ledger.LastCompound.Equal(now)

		var evts []events.Event
		for _, g := range dueGoals(st, now) {
			commitment := g.MonthlyCommitment
			if commitment.GreaterThan(st.Ledger.Balance) {
				result.Deferred = append(result.Deferred, g.ID)
				continue
			}

			op := domain.OpAutoSave
			st.Ledger.Balance = st.Ledger.Balance.Sub(commitment)
			g.CurrentAmount = g.CurrentAmount.Add(commitment)
			if g.Savings != nil {
				g.Savings.Contributed = g.Savings.Contributed.Add(commitment)
			}
			if g.EMI != nil {
				g.EMI.Repaid = g.EMI.Repaid.Add(commitment)
				op = domain.OpAutoPayEMI
			}
			g.NextDueDate = util.NextOccurrence(g.NextDueDate, g.Frequency)

			tx := st.RecordTransaction(now, op, commitment, domain.TxMeta{Category: g.Category}, goalExtension(g.ID))
			result.Processed = append(result.Processed, AutomatedTransfer{
				GoalID:      g.ID,
				Op:          op,
				Amount:      commitment,
				NextDueDate: g.NextDueDate,
			})
			evts = append(evts, events.TransactionCreated(tx), events.GoalUpdated(g.Clone()))
		}

		if len(result.Processed) > 0 {
			evts = append(evts, events.LedgerUpdated(summarize(st, now)))
		}
		return append(evts, events.AutomationRan(result)), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
