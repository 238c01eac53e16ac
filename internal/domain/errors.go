package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy roots. Specific errors wrap one of these so callers can
// classify with errors.Is.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotFound           = errors.New("resource not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternalError      = errors.New("internal error")
)

// Domain errors
var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrInvalidRate         = fmt.Errorf("%w: rate must be between 0 and 1", ErrInvalidInput)
	ErrNameRequired        = fmt.Errorf("%w: name is required", ErrInvalidInput)
	ErrNameTooLong         = fmt.Errorf("%w: name exceeds maximum length", ErrInvalidInput)
	ErrInvalidGoalKind     = fmt.Errorf("%w: goal kind must be savings or emi", ErrInvalidInput)
	ErrInvalidFrequency    = fmt.Errorf("%w: frequency must be positive", ErrInvalidInput)
	ErrInvalidPenaltyRate  = fmt.Errorf("%w: penalty rate must be between 0 and 1", ErrInvalidInput)
	ErrInvalidSymbol       = fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	ErrInvalidPrice        = fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	ErrAssetTypeMismatch   = fmt.Errorf("%w: asset type does not match the holding", ErrInvalidInput)
	ErrGoalNotFound        = fmt.Errorf("%w: goal not found", ErrNotFound)
	ErrHoldingNotFound     = fmt.Errorf("%w: holding not found", ErrNotFound)
	ErrStateNotFound       = fmt.Errorf("%w: ledger state not found", ErrNotFound)
	ErrGoalLocked          = fmt.Errorf("%w: goal is locked", ErrPreconditionFailed)
	ErrGoalNotEmpty        = fmt.Errorf("%w: goal bucket is not empty", ErrPreconditionFailed)
	ErrGoalNotEMI          = fmt.Errorf("%w: goal is not an emi goal", ErrPreconditionFailed)
	ErrGoalInsufficient    = fmt.Errorf("%w: goal bucket too small", ErrInsufficientFunds)
	ErrInsufficientDelta   = fmt.Errorf("%w: delta balance too small", ErrInsufficientFunds)
	ErrInsufficientHolding = fmt.Errorf("%w: holding quantity too small", ErrInsufficientFunds)
)

// Validation constants
const (
	MaxGoalNameLength = 120
	MaxMemoLength     = 500
)
