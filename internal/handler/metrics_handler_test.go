package handler

import (
	"net/http"
	"testing"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/dafibh/fortuna/vault-backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "20000")

	rec := s.do(http.MethodGet, "/api/v1/metrics/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report service.HealthReport
	decodeJSON(t, rec, &report)
	assert.Equal(t, report.Liquidity+report.SavingsProgress+report.DebtRepaid+report.Diversification, report.Score)
	assert.NotEmpty(t, report.Rating)
}

func TestGetAchievements(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "1")

	rec := s.do(http.MethodGet, "/api/v1/metrics/achievements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var achievements []domain.Achievement
	decodeJSON(t, rec, &achievements)
	require.Len(t, achievements, len(domain.AchievementDefinitions))

	unlocked := map[string]bool{}
	for _, a := range achievements {
		unlocked[a.ID] = a.Unlocked
	}
	assert.True(t, unlocked["first_deposit"])
	assert.False(t, unlocked["saver_100k"])
}

func TestRunAutomation(t *testing.T) {
	s := newTestServer(t)
	s.fundMain(t, "500")
	goal := s.createGoal(t, `{"name": "Rainy day", "kind": "savings", "targetAmount": "5000", "monthlyCommitment": "75", "autoPay": true}`)

	s.clock.Advance(util.DefaultFrequency)
	rec := s.do(http.MethodPost, "/api/v1/automation/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result service.AutomationResult
	decodeJSON(t, rec, &result)
	require.Len(t, result.Processed, 1)
	assert.Equal(t, goal.ID, result.Processed[0].GoalID)
	assert.Equal(t, "75", result.Processed[0].Amount.String())
}
