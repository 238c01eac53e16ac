package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type automationFixture struct {
	*ledgerFixture
	goals      *GoalService
	automation *AutomationService
}

func setupAutomation(t *testing.T) *automationFixture {
	t.Helper()
	f := setupLedger(t)
	return &automationFixture{
		ledgerFixture: f,
		goals:         NewGoalService(f.ledger),
		automation:    NewAutomationService(f.ledger),
	}
}

func (f *automationFixture) recurringGoal(t *testing.T, kind domain.GoalKind, commitment string, priority int) *domain.Goal {
	t.Helper()
	goal, err := f.goals.CreateGoal(CreateGoalInput{
		Name:              "Recurring",
		Kind:              kind,
		TargetAmount:      dec("100000"),
		MonthlyCommitment: dec(commitment),
		AutoPay:           true,
		Priority:          priority,
	})
	require.NoError(t, err)
	return goal
}

func TestAutomationService_NothingDue(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "1000")
	f.recurringGoal(t, domain.GoalKindSavings, "100", 0)

	f.clock.Advance(util.DefaultFrequency - time.Minute)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	assert.Empty(t, result.Processed)
	assert.Empty(t, result.Deferred)
	assert.Contains(t, f.publisher.Types(), "automation.ran")
}

func TestAutomationService_AutoSave(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "1000")
	goal := f.recurringGoal(t, domain.GoalKindSavings, "100", 0)

	f.clock.Advance(util.DefaultFrequency)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	assert.Equal(t, domain.OpAutoSave, result.Processed[0].Op)
	assert.Equal(t, goal.NextDueDate.Add(util.DefaultFrequency), result.Processed[0].NextDueDate)

	updated, err := f.goals.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(dec("100")))
	assert.True(t, updated.Savings.Contributed.Equal(dec("100")))

	// A second tick at the same instant is a no-op
	result, err = f.automation.RunDue()
	require.NoError(t, err)
	assert.Empty(t, result.Processed)

	updated, err = f.goals.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(dec("100")))

	unlocked := false
	for _, a := range f.ledger.Snapshot().AchievementList() {
		if a.ID == "autopilot" {
			unlocked = a.Unlocked
		}
	}
	assert.True(t, unlocked)
}

func TestAutomationService_AutoPayEMI(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "1000")
	goal := f.recurringGoal(t, domain.GoalKindEMI, "250", 0)

	f.clock.Advance(util.DefaultFrequency)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	assert.Equal(t, domain.OpAutoPayEMI, result.Processed[0].Op)

	updated, err := f.goals.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(dec("250")), "auto-pay funds the bucket")
	assert.True(t, updated.EMI.Repaid.Equal(dec("250")))
}

func TestAutomationService_InsufficientFundsRetries(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "50")
	goal := f.recurringGoal(t, domain.GoalKindSavings, "100", 0)
	due := goal.NextDueDate

	f.clock.Advance(util.DefaultFrequency)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	assert.Empty(t, result.Processed)
	assert.Equal(t, []domain.GoalID{goal.ID}, result.Deferred)

	updated, err := f.goals.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, due, updated.NextDueDate, "due date is not advanced while unfunded")

	f.clock.Advance(time.Minute)
	f.deposit(t, "100")
	f.clock.Advance(time.Minute)
	result, err = f.automation.RunDue()
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	assert.Equal(t, due.Add(util.DefaultFrequency), result.Processed[0].NextDueDate)
}

func TestAutomationService_SkipsPausedAndManualGoals(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "1000")

	paused := f.recurringGoal(t, domain.GoalKindSavings, "100", 0)
	_, err := f.goals.ToggleGoalStatus(paused.ID)
	require.NoError(t, err)

	manual, err := f.goals.CreateGoal(CreateGoalInput{
		Name:              "Manual",
		Kind:              domain.GoalKindSavings,
		TargetAmount:      dec("1000"),
		MonthlyCommitment: dec("100"),
		AutoPay:           false,
	})
	require.NoError(t, err)

	f.clock.Advance(util.DefaultFrequency)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	assert.Empty(t, result.Processed)

	for _, id := range []domain.GoalID{paused.ID, manual.ID} {
		g, err := f.goals.GetGoal(id)
		require.NoError(t, err)
		assert.True(t, g.CurrentAmount.IsZero())
	}
}

func TestAutomationService_PriorityOrderWhenFundsAreShort(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "150")
	low := f.recurringGoal(t, domain.GoalKindSavings, "100", 1)
	high := f.recurringGoal(t, domain.GoalKindSavings, "100", 5)

	f.clock.Advance(util.DefaultFrequency)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	assert.Equal(t, high.ID, result.Processed[0].GoalID)
	assert.Equal(t, []domain.GoalID{low.ID}, result.Deferred)
}

func TestAutomationService_HeartbeatCompoundsHourly(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "10000")

	f.clock.Advance(30 * time.Minute)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	assert.False(t, result.Compounded)

	f.clock.Advance(45 * time.Minute)
	result, err = f.automation.RunDue()
	require.NoError(t, err)
	assert.True(t, result.Compounded)

	snap := f.ledger.Snapshot()
	assert.True(t, snap.Ledger.PendingInterest.IsZero())
	assert.True(t, snap.Ledger.Balance.GreaterThan(dec("10000")))
	assert.Equal(t, domain.OpCompound, snap.TransactionsNewestFirst()[0].Op)
}

func TestAutomationWorker_StartStop(t *testing.T) {
	f := setupAutomation(t)
	worker := NewAutomationWorker(f.automation, zerolog.Nop(), AutomationWorkerConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	worker.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())

	// Stopping twice is safe
	worker.Stop()
	assert.Contains(t, f.publisher.Types(), "automation.ran")
}

func TestAutomationWorker_DefaultConfig(t *testing.T) {
	assert.Equal(t, time.Minute, DefaultAutomationWorkerConfig().Interval)

	worker := NewAutomationWorker(nil, zerolog.Nop(), AutomationWorkerConfig{})
	assert.Equal(t, time.Minute, worker.interval)
	assert.False(t, worker.IsRunning())
}

func TestAutomationWorker_RunNow(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "500")
	f.recurringGoal(t, domain.GoalKindSavings, "100", 0)
	worker := NewAutomationWorker(f.automation, zerolog.Nop(), DefaultAutomationWorkerConfig())

	f.clock.Advance(util.DefaultFrequency)
	result, err := worker.RunNow()
	require.NoError(t, err)
	assert.Len(t, result.Processed, 1)
}

func TestAutomationService_AchievedGoalKeepsContributing(t *testing.T) {
	f := setupAutomation(t)
	f.deposit(t, "1000")
	goal, err := f.goals.CreateGoal(CreateGoalInput{
		Name:              "Done",
		Kind:              domain.GoalKindSavings,
		TargetAmount:      dec("100"),
		InitialDeposit:    dec("100"),
		MonthlyCommitment: dec("50"),
		AutoPay:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GoalStatusActive, goal.Status)
	assert.Equal(t, domain.GoalStatusAchieved, goal.EffectiveStatus())

	f.clock.Advance(31 * 24 * time.Hour)
	result, err := f.automation.RunDue()
	require.NoError(t, err)
	require.Len(t, result.Processed, 1)
	assert.Empty(t, result.Deferred)

	updated, err := f.goals.GetGoal(goal.ID)
	require.NoError(t, err)
	assert.True(t, updated.CurrentAmount.Equal(dec("150")))
}
