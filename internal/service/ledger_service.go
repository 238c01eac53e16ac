package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerConfig holds the compounding cadence for each caller
type LedgerConfig struct {
	CompoundInterval          time.Duration // user-initiated operations
	HeartbeatCompoundInterval time.Duration // automation ticks
}

// DefaultLedgerConfig returns the standard cadence: daily for user operations,
// hourly for the heartbeat
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		CompoundInterval:          24 * time.Hour,
		HeartbeatCompoundInterval: 1 * time.Hour,
	}
}

// LedgerSummary is a point-in-time view of the main pool
type LedgerSummary struct {
	Balance         decimal.Decimal  `json:"balance"`
	PendingInterest decimal.Decimal  `json:"pendingInterest"`
	LiveBalance     decimal.Decimal  `json:"liveBalance"`
	Rate            decimal.Decimal  `json:"rate"`
	RateOverride    *decimal.Decimal `json:"rateOverride,omitempty"`
	LastUpdate      time.Time        `json:"lastUpdate"`
	LastCompound    time.Time        `json:"lastCompound"`
	AsOf            time.Time        `json:"asOf"`
}

// mutation changes state at now and returns the events it produced.
// It must validate before touching state so a rejected call leaves no trace.
type mutation func(s *domain.State, now time.Time) ([]events.Event, error)

// LedgerService owns the ledger state. Every state change goes through apply,
// which serializes writers, realizes gains first and persists afterwards.
type LedgerService struct {
	mu             sync.Mutex
	state          *domain.State
	stateRepo      domain.StateRepository
	clock          Clock
	config         LedgerConfig
	logger         zerolog.Logger
	eventPublisher events.Publisher
}

// NewLedgerService creates a ledger over an already loaded state
func NewLedgerService(
	state *domain.State,
	stateRepo domain.StateRepository,
	clock Clock,
	logger zerolog.Logger,
	config LedgerConfig,
) *LedgerService {
	if config.CompoundInterval <= 0 {
		config.CompoundInterval = 24 * time.Hour
	}
	if config.HeartbeatCompoundInterval <= 0 {
		config.HeartbeatCompoundInterval = 1 * time.Hour
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if state == nil {
		state = domain.NewState(clock.Now())
	}
	state.EnsureInitialized()

	return &LedgerService{
		state:          state,
		stateRepo:      stateRepo,
		clock:          clock,
		config:         config,
		logger:         logger.With().Str("component", "ledger").Logger(),
		eventPublisher: events.NoOpPublisher{},
	}
}

// SetEventPublisher sets the sink for ledger events
func (l *LedgerService) SetEventPublisher(publisher events.Publisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if publisher == nil {
		publisher = events.NoOpPublisher{}
	}
	l.eventPublisher = publisher
}

// apply runs fn as one atomic ledger operation
func (l *LedgerService) apply(op string, compoundEvery time.Duration, fn mutation) error {
	pending, publisher, err := l.mutate(op, compoundEvery, fn)
	if err != nil {
		l.logger.Debug().Err(err).Str("op", op).Msg("Ledger operation rejected")
	}
	for _, e := range pending {
		publisher.Publish(e)
	}
	return err
}

// mutate realizes gains, runs fn and persists while holding mu
func (l *LedgerService) mutate(op string, compoundEvery time.Duration, fn mutation) ([]events.Event, events.Publisher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	var pending []events.Event
	if tx := realizeGains(l.state, now, compoundEvery); tx != nil {
		pending = append(pending, events.LedgerCompounded(*tx))
	}

	produced, err := fn(l.state, now)
	if err == nil {
		pending = append(pending, produced...)
		for _, id := range l.state.UnlockAchievements(now) {
			pending = append(pending, events.AchievementUnlocked(map[string]string{"id": id}))
		}
		if verr := verifyInvariants(l.state); verr != nil {
			l.logger.Error().Err(verr).Str("op", op).Msg("Ledger invariant violated")
		}
	}
	l.persist(op)
	return pending, l.eventPublisher, err
}

// view runs fn against the state without realizing gains
func (l *LedgerService) view(fn func(s *domain.State, now time.Time)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.state, l.clock.Now())
}

// persist must be called with mu held
func (l *LedgerService) persist(op string) {
	if l.stateRepo == nil {
		return
	}
	if err := l.stateRepo.Save(context.Background(), l.state); err != nil {
		l.logger.Error().Err(err).Str("op", op).Msg("Failed to persist ledger state")
	}
}

// realizeGains folds uncompounded growth into pending interest, accrues
// savings goals, and merges pending interest into the balance once
// compoundEvery has elapsed since the last compound. It returns the compound
// transaction when one was recorded.
func realizeGains(s *domain.State, now time.Time, compoundEvery time.Duration) *domain.Transaction {
	if now.Before(s.Ledger.LastUpdate) {
		return nil
	}

	growth := s.Ledger.UncompoundedGrowth(now)
	s.Ledger.PendingInterest = s.Ledger.PendingInterest.Add(growth)
	s.Ledger.LastUpdate = now

	accrueGoals(s, now)

	if now.Sub(s.Ledger.LastCompound) < compoundEvery {
		return nil
	}

	var compounded *domain.Transaction
	if s.Ledger.PendingInterest.IsPositive() {
		interest := s.Ledger.PendingInterest
		s.Ledger.Balance = s.Ledger.Balance.Add(interest)
		s.Ledger.PendingInterest = decimal.Zero
		tx := s.RecordTransaction(now, domain.OpCompound, interest, domain.TxMeta{Category: "Interest"}, "")
		compounded = &tx
	}
	s.Ledger.LastCompound = now
	return compounded
}

// accrueGoals grows each savings bucket at its own rate. EMI buckets never earn.
func accrueGoals(s *domain.State, now time.Time) {
	for _, g := range s.Goals {
		if g.Kind != domain.GoalKindSavings {
			g.LastAccrual = now
			continue
		}
		if now.After(g.LastAccrual) {
			growth := domain.ContinuousGrowth(g.CurrentAmount, g.InterestRate, now.Sub(g.LastAccrual))
			g.PendingInterest = g.PendingInterest.Add(growth)
		}
		g.LastAccrual = now
	}
}

// verifyInvariants reports state that no sequence of operations may produce
func verifyInvariants(s *domain.State) error {
	if s.Ledger.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", domain.ErrInternalError, s.Ledger.Balance)
	}
	if s.Ledger.PendingInterest.IsNegative() {
		return fmt.Errorf("%w: negative pending interest", domain.ErrInternalError)
	}
	if s.Wallet.DeltaBalance.IsNegative() {
		return fmt.Errorf("%w: negative delta balance", domain.ErrInternalError)
	}
	for _, g := range s.Goals {
		if g.CurrentAmount.IsNegative() {
			return fmt.Errorf("%w: goal %d has a negative bucket", domain.ErrInternalError, g.ID)
		}
		if g.Kind == domain.GoalKindEMI && !g.PendingInterest.IsZero() {
			return fmt.Errorf("%w: emi goal %d accrued interest", domain.ErrInternalError, g.ID)
		}
	}
	for _, h := range s.Wallet.Holdings {
		if !h.Amount.IsPositive() {
			return fmt.Errorf("%w: holding %s has no quantity", domain.ErrInternalError, h.Symbol)
		}
	}
	return nil
}

func validateMeta(meta domain.TxMeta) error {
	if len(meta.Memo) > domain.MaxMemoLength {
		return fmt.Errorf("%w: memo exceeds maximum length", domain.ErrInvalidInput)
	}
	return nil
}

func summarize(s *domain.State, now time.Time) LedgerSummary {
	summary := LedgerSummary{
		Balance:         s.Ledger.Balance,
		PendingInterest: s.Ledger.PendingInterest.Add(s.Ledger.UncompoundedGrowth(now)),
		LiveBalance:     s.Ledger.LiveBalance(now),
		Rate:            s.Ledger.Rate(),
		LastUpdate:      s.Ledger.LastUpdate,
		LastCompound:    s.Ledger.LastCompound,
		AsOf:            now,
	}
	if s.Ledger.RateOverride != nil {
		r := *s.Ledger.RateOverride
		summary.RateOverride = &r
	}
	return summary
}

// Deposit credits the main balance
func (l *LedgerService) Deposit(amount decimal.Decimal, meta domain.TxMeta) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if err := validateMeta(meta); err != nil {
		return nil, err
	}

	var result domain.Transaction
	err := l.apply("deposit", l.config.CompoundInterval, func(s *domain.State, now time.Time) ([]events.Event, error) {
		s.Ledger.Balance = s.Ledger.Balance.Add(amount)
		result = s.RecordTransaction(now, domain.OpDeposit, amount, meta, "")
		return []events.Event{
			events.TransactionCreated(result),
			events.LedgerUpdated(summarize(s, now)),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Withdraw debits the main balance and returns the new balance.
// Only the settled balance can be withdrawn; pending interest is not spendable.
func (l *LedgerService) Withdraw(amount decimal.Decimal, meta domain.TxMeta) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if err := validateMeta(meta); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := l.apply("withdraw", l.config.CompoundInterval, func(s *domain.State, now time.Time) ([]events.Event, error) {
		if amount.GreaterThan(s.Ledger.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		s.Ledger.Balance = s.Ledger.Balance.Sub(amount)
		tx := s.RecordTransaction(now, domain.OpWithdraw, amount, meta, "")
		balance = s.Ledger.Balance
		return []events.Event{
			events.TransactionCreated(tx),
			events.LedgerUpdated(summarize(s, now)),
		}, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// SetRate overrides the tiered rate. Growth up to now is realized at the old rate.
func (l *LedgerService) SetRate(rate decimal.Decimal) (LedgerSummary, error) {
	if rate.IsNegative() || rate.GreaterThan(domain.MaxRate) {
		return LedgerSummary{}, domain.ErrInvalidRate
	}

	var summary LedgerSummary
	err := l.apply("set_rate", l.config.CompoundInterval, func(s *domain.State, now time.Time) ([]events.Event, error) {
		r := rate
		s.Ledger.RateOverride = &r
		summary = summarize(s, now)
		return []events.Event{events.LedgerUpdated(summary)}, nil
	})
	return summary, err
}

// ResetRate clears the override so the tiered rate applies again
func (l *LedgerService) ResetRate() (LedgerSummary, error) {
	var summary LedgerSummary
	err := l.apply("reset_rate", l.config.CompoundInterval, func(s *domain.State, now time.Time) ([]events.Event, error) {
		s.Ledger.RateOverride = nil
		summary = summarize(s, now)
		return []events.Event{events.LedgerUpdated(summary)}, nil
	})
	return summary, err
}

// GetLiveBalance returns balance + pending interest + growth since the last update.
// It never mutates state.
func (l *LedgerService) GetLiveBalance() decimal.Decimal {
	var live decimal.Decimal
	l.view(func(s *domain.State, now time.Time) {
		live = s.Ledger.LiveBalance(now)
	})
	return live
}

// GetSummary returns the main pool without realizing gains
func (l *LedgerService) GetSummary() LedgerSummary {
	var summary LedgerSummary
	l.view(func(s *domain.State, now time.Time) {
		summary = summarize(s, now)
	})
	return summary
}

// GetTransactions returns a newest-first page of the log
func (l *LedgerService) GetTransactions(filters *domain.TransactionFilters) *domain.PaginatedTransactions {
	page, pageSize := int32(1), int32(domain.DefaultPageSize)
	var op *domain.TransactionOp
	var category *string
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
		}
		op = filters.Op
		category = filters.Category
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	var matched []domain.Transaction
	l.view(func(s *domain.State, _ time.Time) {
		for _, tx := range s.TransactionsNewestFirst() {
			if op != nil && tx.Op != *op {
				continue
			}
			if category != nil && !strings.EqualFold(tx.Category, *category) {
				continue
			}
			matched = append(matched, tx)
		}
	})

	total := int64(len(matched))
	totalPages := int32(math.Ceil(float64(total) / float64(pageSize)))
	start := int64(page-1) * int64(pageSize)
	data := []domain.Transaction{}
	if start < total {
		end := start + int64(pageSize)
		if end > total {
			end = total
		}
		data = matched[start:end]
	}

	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// ListTransactions returns the whole log newest first
func (l *LedgerService) ListTransactions() []domain.Transaction {
	var result []domain.Transaction
	l.view(func(s *domain.State, _ time.Time) {
		result = s.TransactionsNewestFirst()
	})
	return result
}

// ProjectedBalances applies the current rate to the live balance for each horizon
func (l *LedgerService) ProjectedBalances(years []float64) ([]domain.Projection, error) {
	for _, y := range years {
		if y < 0 || y > domain.MaxProjectionYears || math.IsNaN(y) {
			return nil, fmt.Errorf("%w: projection years must be between 0 and %v", domain.ErrInvalidInput, domain.MaxProjectionYears)
		}
	}

	var (
		result []domain.Projection
		err    error
	)
	l.view(func(s *domain.State, now time.Time) {
		result, err = domain.Project(s.Ledger.LiveBalance(now), s.Ledger.Rate(), years)
	})
	return result, err
}

// Snapshot returns a deep copy of the entire state
func (l *LedgerService) Snapshot() *domain.State {
	var snapshot *domain.State
	l.view(func(s *domain.State, _ time.Time) {
		snapshot = s.Clone()
	})
	return snapshot
}

// Replace swaps in a restored state, e.g. after an upgrade completes
func (l *LedgerService) Replace(state *domain.State) {
	state.EnsureInitialized()
	l.mu.Lock()
	l.state = state.Clone()
	l.persist("replace")
	publisher := l.eventPublisher
	summary := summarize(l.state, l.clock.Now())
	l.mu.Unlock()

	publisher.Publish(events.LedgerRestored(summary))
}

// Flush writes the current state to the repository
func (l *LedgerService) Flush(ctx context.Context) error {
	if l.stateRepo == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.stateRepo.Save(ctx, l.state); err != nil {
		return fmt.Errorf("flush ledger state: %w", err)
	}
	return nil
}

// Now returns the ledger clock's current time
func (l *LedgerService) Now() time.Time {
	return l.clock.Now()
}
