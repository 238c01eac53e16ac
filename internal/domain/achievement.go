package domain

import "time"

type AchievementDefinition struct {
	ID    string
	Title string
	check func(s *State) bool
}

type Achievement struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// AchievementDefinitions is the fixed catalogue, in display order
var AchievementDefinitions = []AchievementDefinition{
	{ID: "first_deposit", Title: "First Deposit", check: func(s *State) bool {
		return hasOp(s, OpDeposit)
	}},
	{ID: "first_goal", Title: "Goal Setter", check: func(s *State) bool {
		return len(s.Goals) > 0 || len(s.CompletedGoals) > 0
	}},
	{ID: "saver_10k", Title: "Five Figures", check: func(s *State) bool {
		return s.Ledger.Balance.GreaterThanOrEqual(TierOneLimit)
	}},
	{ID: "saver_100k", Title: "Six Figures", check: func(s *State) bool {
		return s.Ledger.Balance.GreaterThanOrEqual(TierTwoLimit)
	}},
	{ID: "goal_completed", Title: "Finish Line", check: func(s *State) bool {
		for _, g := range s.Goals {
			if g.EffectiveStatus() == GoalStatusAchieved {
				return true
			}
		}
		for _, c := range s.CompletedGoals {
			reached := c.Amount
			if c.Kind == GoalKindEMI {
				reached = c.PaidAmount
			}
			if c.TargetAmount.IsPositive() && reached.GreaterThanOrEqual(c.TargetAmount) {
				return true
			}
		}
		return false
	}},
	{ID: "debt_free", Title: "Debt Free", check: func(s *State) bool {
		for _, g := range s.Goals {
			if g.Kind == GoalKindEMI && g.PaidAmount().GreaterThanOrEqual(g.TargetAmount) {
				return true
			}
		}
		for _, c := range s.CompletedGoals {
			if c.Kind == GoalKindEMI && c.PaidAmount.GreaterThanOrEqual(c.TargetAmount) && c.TargetAmount.IsPositive() {
				return true
			}
		}
		return false
	}},
	{ID: "investor", Title: "Investor", check: func(s *State) bool {
		return len(s.Wallet.Holdings) > 0
	}},
	{ID: "autopilot", Title: "Autopilot", check: func(s *State) bool {
		return hasOp(s, OpAutoSave) || hasOp(s, OpAutoPayEMI)
	}},
}

func hasOp(s *State, op TransactionOp) bool {
	for i := range s.Transactions {
		if s.Transactions[i].Op == op {
			return true
		}
	}
	return false
}

// UnlockAchievements records the first unlock time of every newly satisfied
// achievement and returns their ids
func (s *State) UnlockAchievements(now time.Time) []string {
	var unlocked []string
	for _, def := range AchievementDefinitions {
		if _, ok := s.Achievements[def.ID]; ok {
			continue
		}
		if def.check(s) {
			s.Achievements[def.ID] = now
			unlocked = append(unlocked, def.ID)
		}
	}
	return unlocked
}

// AchievementList projects the catalogue against the recorded unlocks
func (s *State) AchievementList() []Achievement {
	result := make([]Achievement, 0, len(AchievementDefinitions))
	for _, def := range AchievementDefinitions {
		a := Achievement{ID: def.ID, Title: def.Title}
		if at, ok := s.Achievements[def.ID]; ok {
			t := at
			a.Unlocked = true
			a.UnlockedAt = &t
		}
		result = append(result, a)
	}
	return result
}
