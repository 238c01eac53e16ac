package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// MetricsHandler serves derived read-only metrics and the manual heartbeat
type MetricsHandler struct {
	metricsService    *service.MetricsService
	automationService *service.AutomationService
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metricsService *service.MetricsService, automationService *service.AutomationService) *MetricsHandler {
	return &MetricsHandler{
		metricsService:    metricsService,
		automationService: automationService,
	}
}

// GetHealth godoc
// @Summary Get financial health
// @Description Score from 0 to 100 with its components
// @Tags metrics
// @Produce json
// @Success 200 {object} service.HealthReport
// @Router /metrics/health [get]
func (h *MetricsHandler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, h.metricsService.GetFinancialHealth())
}

// GetAchievements godoc
// @Summary List achievements
// @Tags metrics
// @Produce json
// @Success 200 {array} domain.Achievement
// @Router /metrics/achievements [get]
func (h *MetricsHandler) GetAchievements(c echo.Context) error {
	return c.JSON(http.StatusOK, h.metricsService.GetAchievements())
}

// RunAutomation godoc
// @Summary Run the heartbeat now
// @Description Applies due recurring transfers immediately
// @Tags automation
// @Produce json
// @Success 200 {object} service.AutomationResult
// @Failure 429 {object} ProblemDetails
// @Router /automation/run [post]
func (h *MetricsHandler) RunAutomation(c echo.Context) error {
	result, err := h.automationService.RunDue()
	if err != nil {
		return respondError(c, err, "run automation")
	}
	return c.JSON(http.StatusOK, result)
}
