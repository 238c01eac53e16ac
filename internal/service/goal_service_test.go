package service

import (
	"math"
	"testing"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGoalService(t *testing.T) (*GoalService, *ledgerFixture) {
	t.Helper()
	f := setupLedger(t)
	return NewGoalService(f.ledger), f
}

func savingsInput(name, target string) CreateGoalInput {
	return CreateGoalInput{
		Name:         name,
		Kind:         domain.GoalKindSavings,
		TargetAmount: dec(target),
	}
}

// heldTotal is main balance plus every bucket and its pending interest
func heldTotal(f *ledgerFixture) decimal.Decimal {
	return f.ledger.Snapshot().HeldValue()
}

func TestGoalService_CreateSavingsGoal(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "300")

	input := savingsInput("  Holiday ", "1000")
	input.InitialDeposit = dec("500")
	input.LockDuration = 48 * time.Hour
	goal, err := svc.CreateGoal(input)
	require.NoError(t, err)

	assert.Equal(t, domain.GoalID(1), goal.ID)
	assert.Equal(t, "Holiday", goal.Name)
	assert.Equal(t, domain.GoalStatusActive, goal.Status)
	assert.True(t, goal.InterestRate.Equal(domain.SavingsInterestRate))
	assert.True(t, goal.PenaltyRate.Equal(domain.DefaultPenaltyRate))
	assert.Equal(t, domain.DefaultSavingsCategory, goal.Category)
	assert.Equal(t, testStart.Add(48*time.Hour), goal.LockedUntil)
	assert.Equal(t, testStart.Add(util.DefaultFrequency), goal.NextDueDate)

	// Pre-funding is capped at the available balance
	assert.True(t, goal.CurrentAmount.Equal(dec("300")))
	assert.True(t, goal.Savings.Contributed.Equal(dec("300")))
	assert.True(t, f.ledger.GetSummary().Balance.IsZero())

	txs := f.ledger.ListTransactions()
	assert.Equal(t, domain.OpGoalFund, txs[0].Op)
	assert.Equal(t, "goal:1", txs[0].Extension)
	assert.Equal(t, domain.DefaultSavingsCategory, txs[0].Category)
	assert.Contains(t, f.publisher.Types(), "goal.created")
}

func TestGoalService_CreateEMIGoal(t *testing.T) {
	svc, _ := setupGoalService(t)

	goal, err := svc.CreateGoal(CreateGoalInput{
		Name:              "Car loan",
		Kind:              domain.GoalKindEMI,
		TargetAmount:      dec("12000"),
		MonthlyCommitment: dec("1000"),
		AutoPay:           true,
	})
	require.NoError(t, err)

	assert.True(t, goal.InterestRate.IsZero())
	assert.True(t, goal.PenaltyRate.IsZero())
	assert.Equal(t, domain.DefaultEMICategory, goal.Category)
	require.NotNil(t, goal.EMI)
	assert.Nil(t, goal.Savings)
	assert.True(t, goal.CurrentAmount.IsZero())
}

func TestGoalService_CreateGoalValidation(t *testing.T) {
	svc, _ := setupGoalService(t)

	tests := []struct {
		name  string
		input CreateGoalInput
		err   error
	}{
		{"missing name", savingsInput(" ", "10"), domain.ErrNameRequired},
		{"zero target", savingsInput("x", "0"), domain.ErrInvalidAmount},
		{"bad kind", CreateGoalInput{Name: "x", Kind: "bond", TargetAmount: dec("1")}, domain.ErrInvalidGoalKind},
		{"negative initial", CreateGoalInput{Name: "x", Kind: domain.GoalKindSavings, TargetAmount: dec("1"), InitialDeposit: dec("-1")}, domain.ErrInvalidAmount},
		{"negative frequency", CreateGoalInput{Name: "x", Kind: domain.GoalKindSavings, TargetAmount: dec("1"), Frequency: -time.Hour}, domain.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGoal(tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Empty(t, svc.GetGoals())
}

func TestGoalService_FundAndWithdrawConserveValue(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "1000")
	goal, err := svc.CreateGoal(savingsInput("Fund", "500"))
	require.NoError(t, err)

	before := heldTotal(f)

	_, err = svc.FundGoal(goal.ID, dec("400"))
	require.NoError(t, err)
	_, err = svc.WithdrawFromGoal(goal.ID, dec("150"))
	require.NoError(t, err)
	_, err = svc.FundGoal(goal.ID, dec("600.01"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = svc.WithdrawFromGoal(goal.ID, dec("250.01"))
	assert.ErrorIs(t, err, domain.ErrGoalInsufficient)

	assert.True(t, before.Equal(heldTotal(f)))

	updated, err := svc.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(dec("250")))
	assert.True(t, updated.Savings.Contributed.Equal(dec("400")), "withdrawals do not reduce lifetime contributions")
	f.requireConsistent(t)
}

func TestGoalService_GoalNotFound(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "10")

	_, err := svc.FundGoal(42, dec("1"))
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)
	_, err = svc.WithdrawFromGoal(42, dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.CloseGoal(42)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)
	assert.ErrorIs(t, svc.DeleteGoal(42), domain.ErrGoalNotFound)
	_, err = svc.GetGoal(42)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)
}

func TestGoalService_LockEnforcement(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "1000")

	input := savingsInput("Locked", "1000")
	input.InitialDeposit = dec("1000")
	input.LockDuration = 72 * time.Hour
	goal, err := svc.CreateGoal(input)
	require.NoError(t, err)

	for _, offset := range []time.Duration{0, time.Hour, 71 * time.Hour} {
		f.clock.Set(testStart.Add(offset))
		_, err := svc.WithdrawFromGoal(goal.ID, dec("10"))
		assert.ErrorIs(t, err, domain.ErrGoalLocked, "offset %s", offset)
	}

	result, err := svc.PartialLiquidateGoal(goal.ID, dec("100"))
	require.NoError(t, err)
	assert.True(t, result.Penalty.Equal(dec("5")))
	assert.True(t, result.Credited.Equal(dec("95")))
	assert.True(t, result.Goal.CurrentAmount.Equal(dec("900")))

	f.clock.Set(testStart.Add(72 * time.Hour))
	_, err = svc.WithdrawFromGoal(goal.ID, dec("10"))
	require.NoError(t, err)

	result, err = svc.PartialLiquidateGoal(goal.ID, dec("100"))
	require.NoError(t, err)
	assert.True(t, result.Penalty.IsZero())
	assert.True(t, result.Credited.Equal(dec("100")))
}

func TestGoalService_EMIScenario(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "200")

	due := testStart.Add(365 * 24 * time.Hour)
	goal, err := svc.CreateGoal(CreateGoalInput{
		Name:              "Car",
		Kind:              domain.GoalKindEMI,
		TargetAmount:      dec("1000"),
		DueDate:           &due,
		MonthlyCommitment: dec("100"),
		InitialDeposit:    dec("200"),
		AutoPay:           true,
	})
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.Equal(dec("200")))
	assert.True(t, goal.PaidAmount().Equal(dec("200")))
	assert.Equal(t, domain.OpEMIFund, f.ledger.ListTransactions()[0].Op)

	goal, err = svc.PayEMI(goal.ID, dec("50"), true)
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.Equal(dec("150")))
	assert.True(t, goal.PaidAmount().Equal(dec("250")))

	record, err := svc.CloseGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, record.Amount.Equal(dec("150")))
	assert.True(t, record.PaidAmount.Equal(dec("250")))
	assert.Equal(t, domain.GoalKindEMI, record.Kind)
	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("150")))
	assert.Empty(t, svc.GetGoals())
	assert.Len(t, svc.GetCompletedGoals(), 1)
}

func TestGoalService_PayEMIFromMain(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "500")
	goal, err := svc.CreateGoal(CreateGoalInput{Name: "Loan", Kind: domain.GoalKindEMI, TargetAmount: dec("1000")})
	require.NoError(t, err)

	goal, err = svc.PayEMI(goal.ID, dec("300"), false)
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.IsZero(), "paying from main never touches the bucket")
	assert.True(t, goal.EMI.Repaid.Equal(dec("300")))
	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("200")))
	assert.True(t, goal.Progress().Equal(dec("0.3")))

	_, err = svc.PayEMI(goal.ID, dec("300"), false)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = svc.PayEMI(goal.ID, dec("1"), true)
	assert.ErrorIs(t, err, domain.ErrGoalInsufficient)
}

func TestGoalService_PayEMIRejectsSavingsGoal(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "100")
	goal, err := svc.CreateGoal(savingsInput("Savings", "100"))
	require.NoError(t, err)

	_, err = svc.PayEMI(goal.ID, dec("10"), false)
	assert.ErrorIs(t, err, domain.ErrGoalNotEMI)
	assert.True(t, f.ledger.GetSummary().Balance.Equal(dec("100")))
}

func TestGoalService_DeleteGuard(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "100")
	input := savingsInput("Delete me", "100")
	input.InitialDeposit = dec("40")
	goal, err := svc.CreateGoal(input)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteGoal(goal.ID), domain.ErrGoalNotEmpty)
	_, err = svc.GetGoal(goal.ID)
	require.NoError(t, err)

	_, err = svc.WithdrawFromGoal(goal.ID, dec("40"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteGoal(goal.ID))

	completed := svc.GetCompletedGoals()
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Amount.IsZero())
	assert.Equal(t, "Delete me", completed[0].Name)
	assert.Contains(t, f.publisher.Types(), "goal.deleted")
}

func TestGoalService_ToggleStatus(t *testing.T) {
	svc, _ := setupGoalService(t)
	goal, err := svc.CreateGoal(savingsInput("Toggle", "100"))
	require.NoError(t, err)

	goal, err = svc.ToggleGoalStatus(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalStatusPaused, goal.Status)

	goal, err = svc.ToggleGoalStatus(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalStatusActive, goal.Status)
}

func TestGoalService_UpdateGoal(t *testing.T) {
	svc, _ := setupGoalService(t)
	goal, err := svc.CreateGoal(savingsInput("Old", "100"))
	require.NoError(t, err)

	name := "New"
	target := dec("250")
	priority := 3
	autoPay := true
	updated, err := svc.UpdateGoal(goal.ID, UpdateGoalInput{Name: &name, TargetAmount: &target, Priority: &priority, AutoPay: &autoPay})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.True(t, updated.TargetAmount.Equal(target))
	assert.Equal(t, 3, updated.Priority)
	assert.True(t, updated.AutoPay)

	badRate := dec("1.5")
	_, err = svc.UpdateGoal(goal.ID, UpdateGoalInput{PenaltyRate: &badRate})
	assert.ErrorIs(t, err, domain.ErrInvalidPenaltyRate)

	unchanged, err := svc.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.PenaltyRate.Equal(domain.DefaultPenaltyRate), "rejected update leaves the goal untouched")
}

func TestGoalService_SavingsAccrualAndClose(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "1000")
	input := savingsInput("Grow", "5000")
	input.InitialDeposit = dec("1000")
	goal, err := svc.CreateGoal(input)
	require.NoError(t, err)

	f.clock.Advance(util.YearDuration)
	record, err := svc.CloseGoal(goal.ID)
	require.NoError(t, err)

	expected := 1000 * math.Exp(0.08)
	assert.InDelta(t, expected, record.Amount.InexactFloat64(), 1e-6)
	assert.True(t, f.ledger.GetSummary().Balance.Equal(record.Amount))
}

func TestGoalService_EMINeverAccrues(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "1000")
	goal, err := svc.CreateGoal(CreateGoalInput{
		Name:           "Debt",
		Kind:           domain.GoalKindEMI,
		TargetAmount:   dec("5000"),
		InitialDeposit: dec("1000"),
	})
	require.NoError(t, err)

	f.clock.Advance(90 * 24 * time.Hour)
	f.deposit(t, "1")

	goal, err = svc.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, goal.PendingInterest.IsZero())
	f.requireConsistent(t)
}

func TestGoalService_AchievementsUnlock(t *testing.T) {
	svc, f := setupGoalService(t)
	f.deposit(t, "100")
	_, err := svc.CreateGoal(savingsInput("First", "100"))
	require.NoError(t, err)

	unlocked := map[string]bool{}
	for _, a := range f.ledger.Snapshot().AchievementList() {
		unlocked[a.ID] = a.Unlocked
	}
	assert.True(t, unlocked["first_deposit"])
	assert.True(t, unlocked["first_goal"])
	assert.False(t, unlocked["saver_10k"])
}
