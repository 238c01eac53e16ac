package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// State is the whole ledger: the liquidity pool, the transaction log, goals,
// the completed-goal archive and the investment wallet. It is owned by exactly
// one writer at a time.
type State struct {
	Ledger         LedgerState          `json:"ledger"`
	Transactions   []Transaction        `json:"transactions"` // oldest first; read newest first
	Goals          map[GoalID]*Goal     `json:"goals"`
	CompletedGoals []CompletedGoal      `json:"completedGoals"`
	Wallet         InvestmentWallet     `json:"wallet"`
	Achievements   map[string]time.Time `json:"achievements"`
	NextGoalID     GoalID               `json:"nextGoalId"`
	TxSequence     uint64               `json:"txSequence"`
}

// NewState returns an empty ledger whose timers start at now
func NewState(now time.Time) *State {
	return &State{
		Ledger: LedgerState{
			Balance:         decimal.Zero,
			PendingInterest: decimal.Zero,
			LastUpdate:      now,
			LastCompound:    now,
		},
		Transactions:   []Transaction{},
		Goals:          make(map[GoalID]*Goal),
		CompletedGoals: []CompletedGoal{},
		Wallet:         InvestmentWallet{DeltaBalance: decimal.Zero, Holdings: []AssetHolding{}},
		Achievements:   make(map[string]time.Time),
		NextGoalID:     1,
	}
}

// EnsureInitialized fills nil collections, e.g. after decoding an older document
func (s *State) EnsureInitialized() {
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Goals == nil {
		s.Goals = make(map[GoalID]*Goal)
	}
	if s.CompletedGoals == nil {
		s.CompletedGoals = []CompletedGoal{}
	}
	if s.Wallet.Holdings == nil {
		s.Wallet.Holdings = []AssetHolding{}
	}
	if s.Achievements == nil {
		s.Achievements = make(map[string]time.Time)
	}
	if s.NextGoalID <= 0 {
		s.NextGoalID = 1
	}
}

// RecordTransaction appends a transaction stamped with the current main balance.
// The id combines a monotonic sequence with the timestamp.
func (s *State) RecordTransaction(now time.Time, op TransactionOp, amount decimal.Decimal, meta TxMeta, extension string) Transaction {
	s.TxSequence++
	meta = meta.Normalize()
	tx := Transaction{
		ID:           fmt.Sprintf("TX-%d-%d", s.TxSequence, now.UnixNano()),
		Op:           op,
		Amount:       amount,
		BalanceAfter: s.Ledger.Balance,
		Timestamp:    now,
		Category:     meta.Category,
		Tags:         meta.Tags,
		Memo:         meta.Memo,
		Extension:    extension,
	}
	s.Transactions = append(s.Transactions, tx)
	return tx
}

// TransactionsNewestFirst returns a reverse-chronological copy of the log
func (s *State) TransactionsNewestFirst() []Transaction {
	result := make([]Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		result[len(s.Transactions)-1-i] = tx
	}
	return result
}

// AllocateGoalID returns the next unused goal id
func (s *State) AllocateGoalID() GoalID {
	id := s.NextGoalID
	s.NextGoalID++
	return id
}

// GoalList returns copies of all goals ordered by id
func (s *State) GoalList() []Goal {
	ids := make([]GoalID, 0, len(s.Goals))
	for id := range s.Goals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]Goal, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.Goals[id].Clone())
	}
	return result
}

// ArchiveGoal removes the goal and appends its archive record
func (s *State) ArchiveGoal(g *Goal, amount decimal.Decimal, now time.Time) CompletedGoal {
	record := CompletedGoal{
		GoalID:         g.ID,
		Name:           g.Name,
		Amount:         amount,
		TargetAmount:   g.TargetAmount,
		PaidAmount:     g.PaidAmount(),
		Kind:           g.Kind,
		CompletionDate: now,
		Category:       g.Category,
	}
	s.CompletedGoals = append(s.CompletedGoals, record)
	delete(s.Goals, g.ID)
	return record
}

// HeldValue is the main balance plus everything parked in goal buckets
func (s *State) HeldValue() decimal.Decimal {
	total := s.Ledger.Balance.Add(s.Ledger.PendingInterest)
	for _, g := range s.Goals {
		total = total.Add(g.CurrentAmount).Add(g.PendingInterest)
	}
	return total
}

// MonetaryTotal is the value that must survive an upgrade unchanged:
// ledger balance and pending interest, goal buckets and pending interest,
// completed-goal amounts and the Delta balance in main currency
func (s *State) MonetaryTotal() decimal.Decimal {
	total := s.HeldValue()
	for _, c := range s.CompletedGoals {
		total = total.Add(c.Amount)
	}
	return total.Add(DeltaToMain(s.Wallet.DeltaBalance))
}

// Clone returns a deep copy
func (s *State) Clone() *State {
	c := &State{
		Ledger:         s.Ledger,
		Transactions:   make([]Transaction, len(s.Transactions)),
		Goals:          make(map[GoalID]*Goal, len(s.Goals)),
		CompletedGoals: make([]CompletedGoal, len(s.CompletedGoals)),
		Wallet:         s.Wallet.Clone(),
		Achievements:   make(map[string]time.Time, len(s.Achievements)),
		NextGoalID:     s.NextGoalID,
		TxSequence:     s.TxSequence,
	}
	if s.Ledger.RateOverride != nil {
		r := *s.Ledger.RateOverride
		c.Ledger.RateOverride = &r
	}
	for i, tx := range s.Transactions {
		tags := make([]string, len(tx.Tags))
		copy(tags, tx.Tags)
		tx.Tags = tags
		c.Transactions[i] = tx
	}
	for id, g := range s.Goals {
		gc := g.Clone()
		c.Goals[id] = &gc
	}
	copy(c.CompletedGoals, s.CompletedGoals)
	for k, v := range s.Achievements {
		c.Achievements[k] = v
	}
	return c
}

// StateRepository persists the live ledger document
type StateRepository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}
