// Package econerr defines the typed error taxonomy for the economy engine.
// Expected business failures are returned as *EconomyError values with a
// stable machine-readable code so callers can map them to user-facing text.
package econerr

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Code is the stable machine-readable failure classification.
type Code string

const (
	CodeInvalidAmount    Code = "INVALID_AMOUNT"
	CodeInvalidCurrency  Code = "INVALID_CURRENCY"
	CodeSelfTarget       Code = "SELF_TARGET"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientPerms Code = "INSUFFICIENT_PERMISSIONS"
	CodeTargetNotFound   Code = "TARGET_NOT_FOUND"
	CodeTargetBlocked    Code = "TARGET_BLOCKED"
	CodeTargetBanned     Code = "TARGET_BANNED"
	CodeUpdateFailed     Code = "UPDATE_FAILED"
	CodeCooldownActive   Code = "COOLDOWN_ACTIVE"
	CodeCapReached       Code = "CAP_REACHED"
	CodePairCooldown     Code = "PAIR_COOLDOWN"
	CodeFeatureDisabled  Code = "FEATURE_DISABLED"
	CodeBetOutOfBounds   Code = "BET_OUT_OF_BOUNDS"
	CodeTargetTooPoor    Code = "TARGET_TOO_POOR"
	CodeSectorInsufficient Code = "SECTOR_INSUFFICIENT"
	CodeConfigInvalid    Code = "CONFIG_INVALID"
	CodeStorage          Code = "STORAGE_ERROR"
)

// EconomyError is the engine's error type. Severity and Retryable steer
// logging and the bounded retry helper; cause preserves the wrapped error.
type EconomyError struct {
	Code      Code
	Message   string
	Severity  Severity
	Retryable bool
	cause     error
}

func (e *EconomyError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *EconomyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches two economy errors by code so errors.Is works against sentinels.
func (e *EconomyError) Is(target error) bool {
	var other *EconomyError
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// New builds a non-retryable business failure with the given code.
func New(code Code, msg string) *EconomyError {
	return &EconomyError{
		Code:     code,
		Message:  msg,
		Severity: SeverityLow,
	}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *EconomyError {
	return New(code, fmt.Sprintf(format, args...))
}

// NewValidation rejects bad input before any I/O happens.
func NewValidation(code Code, msg string) *EconomyError {
	return &EconomyError{
		Code:     code,
		Message:  msg,
		Severity: SeverityLow,
	}
}

// NewConflict reports a state conflict observed after a read (insufficient
// funds, cooldown, cap). No mutation was attempted.
func NewConflict(code Code, msg string) *EconomyError {
	return &EconomyError{
		Code:     code,
		Message:  msg,
		Severity: SeverityLow,
	}
}

// NewUpdateFailed reports that the optimistic-concurrency guard kept failing
// after bounded retries were exhausted.
func NewUpdateFailed(msg string) *EconomyError {
	return &EconomyError{
		Code:     CodeUpdateFailed,
		Message:  msg,
		Severity: SeverityMedium,
	}
}

// NewStorage wraps an unexpected storage failure.
func NewStorage(op string, cause error) *EconomyError {
	return &EconomyError{
		Code:      CodeStorage,
		Message:   fmt.Sprintf("storage failure in %s: %v", op, cause),
		Severity:  SeverityHigh,
		Retryable: true,
		cause:     cause,
	}
}

// CodeOf extracts the machine code from err, or CodeStorage for foreign errors.
func CodeOf(err error) Code {
	var econ *EconomyError
	if errors.As(err, &econ) && econ != nil {
		return econ.Code
	}
	return CodeStorage
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var econ *EconomyError
	if errors.As(err, &econ) && econ != nil {
		return econ.Retryable
	}
	return false
}
