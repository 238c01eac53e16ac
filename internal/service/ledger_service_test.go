package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/dafibh/fortuna/vault-backend/internal/repository/memory"
	"github.com/dafibh/fortuna/vault-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	ledger    *LedgerService
	clock     *testutil.FakeClock
	repo      *memory.StateRepository
	publisher *testutil.RecordingPublisher
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	clock := testutil.NewFakeClock(testStart)
	repo := memory.NewStateRepository()
	publisher := testutil.NewRecordingPublisher()

	ledger := NewLedgerService(domain.NewState(clock.Now()), repo, clock, zerolog.Nop(), DefaultLedgerConfig())
	ledger.SetEventPublisher(publisher)
	return &ledgerFixture{ledger: ledger, clock: clock, repo: repo, publisher: publisher}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *ledgerFixture) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := f.ledger.Deposit(dec(amount), domain.TxMeta{})
	require.NoError(t, err)
}

func (f *ledgerFixture) requireConsistent(t *testing.T) {
	t.Helper()
	require.NoError(t, verifyInvariants(f.ledger.Snapshot()))
}

func TestLedgerService_Deposit(t *testing.T) {
	f := setupLedger(t)

	tx, err := f.ledger.Deposit(dec("1500"), domain.TxMeta{Category: "Salary", Tags: []string{"work", ""}, Memo: "january"})
	require.NoError(t, err)

	assert.Equal(t, domain.OpDeposit, tx.Op)
	assert.True(t, tx.Amount.Equal(dec("1500")))
	assert.True(t, tx.BalanceAfter.Equal(dec("1500")))
	assert.Equal(t, "Salary", tx.Category)
	assert.Equal(t, []string{"work"}, tx.Tags)
	assert.Equal(t, "january", tx.Memo)

	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("1500")))
	assert.Contains(t, f.publisher.Types(), "transaction.created")
	assert.Contains(t, f.publisher.Types(), "ledger.updated")
	assert.Contains(t, f.publisher.Types(), "achievement.unlocked")
	assert.Equal(t, 1, f.repo.SaveCount())
}

func TestLedgerService_DepositDefaultsCategory(t *testing.T) {
	f := setupLedger(t)

	tx, err := f.ledger.Deposit(dec("10"), domain.TxMeta{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategory, tx.Category)
	assert.Empty(t, tx.Tags)
}

func TestLedgerService_DepositInvalid(t *testing.T) {
	f := setupLedger(t)

	tests := []struct {
		name   string
		amount decimal.Decimal
		meta   domain.TxMeta
	}{
		{"zero", decimal.Zero, domain.TxMeta{}},
		{"negative", dec("-5"), domain.TxMeta{}},
		{"memo too long", dec("5"), domain.TxMeta{Memo: string(make([]byte, domain.MaxMemoLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Deposit(tt.amount, tt.meta)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, f.ledger.ListTransactions())
	assert.Equal(t, 0, f.repo.SaveCount())
}

func TestLedgerService_Withdraw(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "100")

	balance, err := f.ledger.Withdraw(dec("40"), domain.TxMeta{Memo: "groceries"})
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("60")))

	_, err = f.ledger.Withdraw(dec("60.01"), domain.TxMeta{})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err = f.ledger.Withdraw(dec("60"), domain.TxMeta{})
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	f.requireConsistent(t)
}

func TestLedgerService_WithdrawCannotSpendPendingInterest(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "1000")
	f.clock.Advance(12 * time.Hour)

	assert.True(t, f.ledger.GetLiveBalance().GreaterThan(dec("1000")))
	_, err := f.ledger.Withdraw(dec("1000.001"), domain.TxMeta{})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestLedgerService_LiveBalanceMonotonic(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "25000")

	previous := f.ledger.GetLiveBalance()
	for i := 0; i < 50; i++ {
		f.clock.Advance(7 * time.Hour)
		if i%5 == 0 {
			f.deposit(t, "1")
		}
		current := f.ledger.GetLiveBalance()
		assert.True(t, current.GreaterThanOrEqual(previous), "step %d: %s < %s", i, current, previous)
		previous = current
	}
}

func TestLedgerService_ReadsDoNotRealize(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "5000")
	f.clock.Advance(36 * time.Hour)

	before := f.ledger.Snapshot()
	first := f.ledger.GetLiveBalance()
	second := f.ledger.GetLiveBalance()
	summary := f.ledger.GetSummary()
	after := f.ledger.Snapshot()

	assert.True(t, first.Equal(second))
	assert.True(t, summary.LiveBalance.Equal(first))
	assert.True(t, before.Ledger.Balance.Equal(after.Ledger.Balance))
	assert.True(t, before.Ledger.PendingInterest.Equal(after.Ledger.PendingInterest))
	assert.Equal(t, before.Ledger.LastUpdate, after.Ledger.LastUpdate)
}

func TestLedgerService_CompoundsAfterInterval(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "1000")

	f.clock.Advance(23 * time.Hour)
	f.deposit(t, "1")
	snap := f.ledger.Snapshot()
	assert.True(t, snap.Ledger.PendingInterest.IsPositive())
	assert.True(t, snap.Ledger.Balance.Equal(dec("1001")))

	f.clock.Advance(2 * time.Hour)
	f.deposit(t, "1")
	snap = f.ledger.Snapshot()
	assert.True(t, snap.Ledger.PendingInterest.IsZero())
	assert.True(t, snap.Ledger.Balance.GreaterThan(dec("1002")))

	compounds := 0
	for _, tx := range snap.Transactions {
		if tx.Op == domain.OpCompound {
			compounds++
			assert.Equal(t, "Interest", tx.Category)
		}
	}
	assert.Equal(t, 1, compounds)
	assert.Contains(t, f.publisher.Types(), "ledger.compounded")
}

func TestLedgerService_InterestMatchesContinuousFormula(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "1000")
	f.clock.Advance(25 * time.Hour)
	f.deposit(t, "1")

	years := 25.0 / (365 * 24)
	expected := 1000*math.Expm1(0.03*years) + 1001
	assert.InDelta(t, expected, f.ledger.GetSummary().Balance.InexactFloat64(), 1e-6)
}

func TestLedgerService_NoCompoundTransactionWithoutInterest(t *testing.T) {
	f := setupLedger(t)
	f.clock.Advance(48 * time.Hour)
	f.deposit(t, "10")

	for _, tx := range f.ledger.ListTransactions() {
		assert.NotEqual(t, domain.OpCompound, tx.Op)
	}
}

func TestLedgerService_SetAndResetRate(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "500")

	summary, err := f.ledger.SetRate(dec("0.12"))
	require.NoError(t, err)
	assert.True(t, summary.Rate.Equal(dec("0.12")))
	require.NotNil(t, summary.RateOverride)

	_, err = f.ledger.SetRate(dec("-0.01"))
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	_, err = f.ledger.SetRate(dec("1000000000000"))
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	summary, err = f.ledger.ResetRate()
	require.NoError(t, err)
	assert.Nil(t, summary.RateOverride)
	assert.True(t, summary.Rate.Equal(domain.RateTierOne))
}

func TestLedgerService_TieredRate(t *testing.T) {
	tests := []struct {
		deposit string
		rate    decimal.Decimal
	}{
		{"9999", domain.RateTierOne},
		{"10001", domain.RateTierTwo},
		{"100001", domain.RateTierTop},
	}
	for _, tt := range tests {
		t.Run(tt.deposit, func(t *testing.T) {
			f := setupLedger(t)
			f.deposit(t, tt.deposit)
			assert.True(t, f.ledger.GetSummary().Rate.Equal(tt.rate))
		})
	}
}

func TestLedgerService_ProjectedBalances(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "1000")

	projections, err := f.ledger.ProjectedBalances([]float64{0, 1, 10})
	require.NoError(t, err)
	require.Len(t, projections, 3)

	assert.True(t, projections[0].Value.Equal(dec("1000")))
	assert.InDelta(t, 1000*math.Exp(0.03), projections[1].Value.InexactFloat64(), 0.01)
	assert.InDelta(t, 1000*math.Exp(0.3), projections[2].Value.InexactFloat64(), 0.01)

	_, err = f.ledger.ProjectedBalances([]float64{-1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.ProjectedBalances([]float64{50000})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedgerService_MaxRateKeepsAccruing(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "100")

	_, err := f.ledger.SetRate(domain.MaxRate)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	f.deposit(t, "1")
	assert.True(t, f.ledger.GetLiveBalance().GreaterThan(dec("101")))

	projections, err := f.ledger.ProjectedBalances([]float64{domain.MaxProjectionYears})
	require.NoError(t, err)
	assert.True(t, projections[0].Value.IsPositive())
}

func TestLedgerService_PanicInMutationReleasesLock(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "100")

	assert.Panics(t, func() {
		_ = f.ledger.apply("boom", f.ledger.config.CompoundInterval, func(*domain.State, time.Time) ([]events.Event, error) {
			panic("boom")
		})
	})

	done := make(chan decimal.Decimal, 1)
	go func() { done <- f.ledger.GetLiveBalance() }()
	select {
	case live := <-done:
		assert.True(t, live.Equal(dec("100")))
	case <-time.After(2 * time.Second):
		t.Fatal("ledger still locked after a panicking mutation")
	}
	f.deposit(t, "1")
}

func TestLedgerService_GetTransactions(t *testing.T) {
	f := setupLedger(t)
	for i := 0; i < 25; i++ {
		f.deposit(t, "1")
	}
	_, err := f.ledger.Withdraw(dec("2"), domain.TxMeta{Category: "Food"})
	require.NoError(t, err)

	page := f.ledger.GetTransactions(&domain.TransactionFilters{Page: 1, PageSize: 10})
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(26), page.TotalItems)
	assert.Equal(t, int32(3), page.TotalPages)
	assert.Equal(t, domain.OpWithdraw, page.Data[0].Op, "newest first")

	last := f.ledger.GetTransactions(&domain.TransactionFilters{Page: 3, PageSize: 10})
	assert.Len(t, last.Data, 6)

	beyond := f.ledger.GetTransactions(&domain.TransactionFilters{Page: 9, PageSize: 10})
	assert.Empty(t, beyond.Data)

	food := "food"
	filtered := f.ledger.GetTransactions(&domain.TransactionFilters{Category: &food})
	assert.Len(t, filtered.Data, 1)

	op := domain.OpDeposit
	deposits := f.ledger.GetTransactions(&domain.TransactionFilters{Op: &op, PageSize: 500})
	assert.Equal(t, int32(domain.MaxPageSize), deposits.PageSize)
	assert.Equal(t, int64(25), deposits.TotalItems)

	defaults := f.ledger.GetTransactions(nil)
	assert.Equal(t, int32(1), defaults.Page)
	assert.Len(t, defaults.Data, domain.DefaultPageSize)
}

func TestLedgerService_PersistFailureKeepsOperating(t *testing.T) {
	clock := testutil.NewFakeClock(testStart)
	repo := &testutil.FailingStateRepository{}
	ledger := NewLedgerService(nil, repo, clock, zerolog.Nop(), DefaultLedgerConfig())

	_, err := ledger.Deposit(dec("10"), domain.TxMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.SaveCalls)
	assert.True(t, ledger.GetSummary().Balance.Equal(dec("10")))

	assert.ErrorIs(t, ledger.Flush(context.Background()), testutil.ErrRepositoryUnavailable)
}

func TestLedgerService_ReplaceAndFlush(t *testing.T) {
	f := setupLedger(t)
	restored := domain.NewState(testStart)
	restored.Ledger.Balance = dec("777")

	f.ledger.Replace(restored)
	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("777")))
	assert.Contains(t, f.publisher.Types(), "ledger.restored")

	restored.Ledger.Balance = dec("1")
	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("777")), "replace keeps its own copy")

	require.NoError(t, f.ledger.Flush(context.Background()))
	stored, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Ledger.Balance.Equal(dec("777")))
}

func TestLedgerService_SnapshotIsIsolated(t *testing.T) {
	f := setupLedger(t)
	f.deposit(t, "10")

	snap := f.ledger.Snapshot()
	snap.Ledger.Balance = dec("99999")
	snap.Transactions[0].Tags = append(snap.Transactions[0].Tags, "mutated")

	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("10")))
	assert.Empty(t, f.ledger.ListTransactions()[0].Tags)
}
