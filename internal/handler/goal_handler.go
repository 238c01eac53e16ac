package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// GoalHandler handles savings and EMI goal requests
type GoalHandler struct {
	goalService *service.GoalService
}

// NewGoalHandler creates a new GoalHandler
func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// CreateGoalRequest represents the create goal request body.
// Durations are expressed in whole days.
type CreateGoalRequest struct {
	Name              string  `json:"name"`
	Kind              string  `json:"kind"`
	TargetAmount      string  `json:"targetAmount"`
	LockDays          int     `json:"lockDays,omitempty"`
	DueDate           *string `json:"dueDate,omitempty"`
	MonthlyCommitment *string `json:"monthlyCommitment,omitempty"`
	InitialDeposit    *string `json:"initialDeposit,omitempty"`
	AutoPay           bool    `json:"autoPay"`
	FrequencyDays     int     `json:"frequencyDays,omitempty"`
	NextDueDate       *string `json:"nextDueDate,omitempty"`
	PenaltyRate       *string `json:"penaltyRate,omitempty"`
	Category          string  `json:"category,omitempty"`
	Priority          int     `json:"priority,omitempty"`
}

// UpdateGoalRequest represents the update goal request body; omitted fields are unchanged
type UpdateGoalRequest struct {
	Name              *string `json:"name,omitempty"`
	TargetAmount      *string `json:"targetAmount,omitempty"`
	MonthlyCommitment *string `json:"monthlyCommitment,omitempty"`
	FrequencyDays     *int    `json:"frequencyDays,omitempty"`
	NextDueDate       *string `json:"nextDueDate,omitempty"`
	DueDate           *string `json:"dueDate,omitempty"`
	PenaltyRate       *string `json:"penaltyRate,omitempty"`
	Category          *string `json:"category,omitempty"`
	Priority          *int    `json:"priority,omitempty"`
	AutoPay           *bool   `json:"autoPay,omitempty"`
}

// GoalAmountRequest is the body for fund, withdraw and liquidate
type GoalAmountRequest struct {
	Amount string `json:"amount"`
}

// PayEMIRequest is the body for an EMI payment
type PayEMIRequest struct {
	Amount     string `json:"amount"`
	FromBucket bool   `json:"fromBucket"`
}

// CreateGoal godoc
// @Summary Create a goal
// @Description Creates a savings or EMI goal, optionally pre-funded from the main balance
// @Tags goals
// @Accept json
// @Produce json
// @Param request body CreateGoalRequest true "Request body"
// @Success 201 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals [post]
func (h *GoalHandler) CreateGoal(c echo.Context) error {
	var req CreateGoalRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	target, targetErr := parseDecimal("targetAmount", req.TargetAmount)
	commitment, commitmentErr := parseOptionalDecimal("monthlyCommitment", req.MonthlyCommitment)
	initial, initialErr := parseOptionalDecimal("initialDeposit", req.InitialDeposit)
	penalty, penaltyErr := parseOptionalDecimal("penaltyRate", req.PenaltyRate)
	dueDate, dueErr := parseOptionalDate("dueDate", req.DueDate)
	nextDue, nextDueErr := parseOptionalDate("nextDueDate", req.NextDueDate)
	lock, lockErr := parseDays("lockDays", req.LockDays)
	frequency, frequencyErr := parseDays("frequencyDays", req.FrequencyDays)
	if errs := collect(targetErr, commitmentErr, initialErr, penaltyErr, dueErr, nextDueErr, lockErr, frequencyErr); len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	input := service.CreateGoalInput{
		Name:         req.Name,
		Kind:         domain.GoalKind(req.Kind),
		TargetAmount: target,
		LockDuration: lock,
		DueDate:      dueDate,
		AutoPay:      req.AutoPay,
		Frequency:    frequency,
		NextDueDate:  nextDue,
		PenaltyRate:  penalty,
		Category:     req.Category,
		Priority:     req.Priority,
	}
	if commitment != nil {
		input.MonthlyCommitment = *commitment
	}
	if initial != nil {
		input.InitialDeposit = *initial
	}

	goal, err := h.goalService.CreateGoal(input)
	if err != nil {
		return respondError(c, err, "create goal")
	}
	return c.JSON(http.StatusCreated, goal)
}

// GetGoals godoc
// @Summary List goals
// @Description Live goals ordered by id
// @Tags goals
// @Produce json
// @Success 200 {array} domain.Goal
// @Router /goals [get]
func (h *GoalHandler) GetGoals(c echo.Context) error {
	return c.JSON(http.StatusOK, h.goalService.GetGoals())
}

// GetCompletedGoals godoc
// @Summary List completed goals
// @Description Archived goal records
// @Tags goals
// @Produce json
// @Success 200 {array} domain.CompletedGoal
// @Router /goals/completed [get]
func (h *GoalHandler) GetCompletedGoals(c echo.Context) error {
	return c.JSON(http.StatusOK, h.goalService.GetCompletedGoals())
}

// GetGoal godoc
// @Summary Get a goal
// @Tags goals
// @Produce json
// @Param id path integer true "Goal ID"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /goals/{id} [get]
func (h *GoalHandler) GetGoal(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	goal, err := h.goalService.GetGoal(id)
	if err != nil {
		return respondError(c, err, "get goal")
	}
	return c.JSON(http.StatusOK, goal)
}

// UpdateGoal godoc
// @Summary Update a goal
// @Description Omitted fields are unchanged
// @Tags goals
// @Accept json
// @Produce json
// @Param id path integer true "Goal ID"
// @Param request body UpdateGoalRequest true "Request body"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	var req UpdateGoalRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	target, targetErr := parseOptionalDecimal("targetAmount", req.TargetAmount)
	commitment, commitmentErr := parseOptionalDecimal("monthlyCommitment", req.MonthlyCommitment)
	penalty, penaltyErr := parseOptionalDecimal("penaltyRate", req.PenaltyRate)
	dueDate, dueErr := parseOptionalDate("dueDate", req.DueDate)
	nextDue, nextDueErr := parseOptionalDate("nextDueDate", req.NextDueDate)
	var frequency *time.Duration
	var frequencyErr *ValidationError
	if req.FrequencyDays != nil {
		var freq time.Duration
		freq, frequencyErr = parseDays("frequencyDays", *req.FrequencyDays)
		frequency = &freq
	}
	if errs := collect(targetErr, commitmentErr, penaltyErr, dueErr, nextDueErr, frequencyErr); len(errs) > 0 {
		return NewValidationError(c, "Validation failed", errs)
	}

	input := service.UpdateGoalInput{
		Name:              req.Name,
		TargetAmount:      target,
		MonthlyCommitment: commitment,
		NextDueDate:       nextDue,
		DueDate:           dueDate,
		PenaltyRate:       penalty,
		Category:          req.Category,
		Priority:          req.Priority,
		AutoPay:           req.AutoPay,
		Frequency:         frequency,
	}

	goal, err := h.goalService.UpdateGoal(id, input)
	if err != nil {
		return respondError(c, err, "update goal")
	}
	return c.JSON(http.StatusOK, goal)
}

// ToggleGoalStatus godoc
// @Summary Pause or resume a goal
// @Tags goals
// @Produce json
// @Param id path integer true "Goal ID"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/toggle-status [patch]
func (h *GoalHandler) ToggleGoalStatus(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	goal, err := h.goalService.ToggleGoalStatus(id)
	if err != nil {
		return respondError(c, err, "toggle goal status")
	}
	return c.JSON(http.StatusOK, goal)
}

// FundGoal godoc
// @Summary Fund a goal
// @Description Moves money from the main balance into the goal bucket
// @Tags goals
// @Accept json
// @Produce json
// @Param id path integer true "Goal ID"
// @Param request body GoalAmountRequest true "Request body"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/fund [post]
func (h *GoalHandler) FundGoal(c echo.Context) error {
	id, amount, ok, err := h.bindAmount(c)
	if !ok {
		return err
	}
	goal, err := h.goalService.FundGoal(id, amount)
	if err != nil {
		return respondError(c, err, "fund goal")
	}
	return c.JSON(http.StatusOK, goal)
}

// WithdrawFromGoal godoc
// @Summary Withdraw from a goal
// @Description Returns bucket money to the main balance once the lock has expired
// @Tags goals
// @Accept json
// @Produce json
// @Param id path integer true "Goal ID"
// @Param request body GoalAmountRequest true "Request body"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/withdraw [post]
func (h *GoalHandler) WithdrawFromGoal(c echo.Context) error {
	id, amount, ok, err := h.bindAmount(c)
	if !ok {
		return err
	}
	goal, err := h.goalService.WithdrawFromGoal(id, amount)
	if err != nil {
		return respondError(c, err, "withdraw from goal")
	}
	return c.JSON(http.StatusOK, goal)
}

// LiquidateGoal godoc
// @Summary Liquidate part of a goal
// @Description Ignores the lock; a penalty is forfeited while locked
// @Tags goals
// @Accept json
// @Produce json
// @Param id path integer true "Goal ID"
// @Param request body GoalAmountRequest true "Request body"
// @Success 200 {object} service.LiquidationResult
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/liquidate [post]
func (h *GoalHandler) LiquidateGoal(c echo.Context) error {
	id, amount, ok, err := h.bindAmount(c)
	if !ok {
		return err
	}
	result, err := h.goalService.PartialLiquidateGoal(id, amount)
	if err != nil {
		return respondError(c, err, "liquidate goal")
	}
	return c.JSON(http.StatusOK, result)
}

// PayEMI godoc
// @Summary Pay an EMI installment
// @Description Pays from the goal bucket or directly from the main balance
// @Tags goals
// @Accept json
// @Produce json
// @Param id path integer true "Goal ID"
// @Param request body PayEMIRequest true "Request body"
// @Success 200 {object} domain.Goal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/pay-emi [post]
func (h *GoalHandler) PayEMI(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	var req PayEMIRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return NewValidationError(c, "Invalid amount", collect(verr))
	}

	goal, err := h.goalService.PayEMI(id, amount, req.FromBucket)
	if err != nil {
		return respondError(c, err, "pay emi")
	}
	return c.JSON(http.StatusOK, goal)
}

// CloseGoal godoc
// @Summary Close a goal
// @Description Refunds the bucket and pending interest, then archives the goal
// @Tags goals
// @Produce json
// @Param id path integer true "Goal ID"
// @Success 200 {object} domain.CompletedGoal
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id}/close [post]
func (h *GoalHandler) CloseGoal(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	completed, err := h.goalService.CloseGoal(id)
	if err != nil {
		return respondError(c, err, "close goal")
	}
	return c.JSON(http.StatusOK, completed)
}

// DeleteGoal godoc
// @Summary Delete an empty goal
// @Tags goals
// @Produce json
// @Param id path integer true "Goal ID"
// @Success 204
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c echo.Context) error {
	id, ok := parseGoalID(c)
	if !ok {
		return invalidGoalID(c)
	}
	if err := h.goalService.DeleteGoal(id); err != nil {
		return respondError(c, err, "delete goal")
	}
	return c.NoContent(http.StatusNoContent)
}

// bindAmount reads the goal id and amount body shared by the bucket operations.
// When ok is false the error response has already been written.
func (h *GoalHandler) bindAmount(c echo.Context) (id domain.GoalID, amount decimal.Decimal, ok bool, err error) {
	id, ok = parseGoalID(c)
	if !ok {
		return 0, decimal.Zero, false, invalidGoalID(c)
	}
	var req GoalAmountRequest
	if err := c.Bind(&req); err != nil {
		return 0, decimal.Zero, false, NewValidationError(c, "Invalid request body", nil)
	}
	amount, verr := parseDecimal("amount", req.Amount)
	if verr != nil {
		return 0, decimal.Zero, false, NewValidationError(c, "Invalid amount", collect(verr))
	}
	return id, amount, true, nil
}

func invalidGoalID(c echo.Context) error {
	return NewValidationError(c, "Invalid goal ID", []ValidationError{
		{Field: "id", Message: "Must be a positive integer"},
	})
}
