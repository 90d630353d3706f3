package game

import "fmt"

// ErrorCode is the stable machine-readable rejection code sent to clients.
type ErrorCode string

const (
	// ErrValidation marks a missing or malformed field. Rejected before any
	// state mutation, no penalty.
	ErrValidation ErrorCode = "validation_error"
	// ErrTurnOrder marks acting out of turn or while interrupt-restricted.
	// Rejected, no mutation, no penalty.
	ErrTurnOrder ErrorCode = "turn_order_violation"
	// ErrRuleViolation marks an illegal card, a bad UNO declaration, an
	// invalid call-out target, or acting when no action is legal. Costs the
	// offender a fixed penalty draw.
	ErrRuleViolation ErrorCode = "rule_violation"
)

// Error is a structured game rejection. Rejections are synchronous and local
// to the offending action; the Desk is never partially applied.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func turnOrderError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrTurnOrder, Message: fmt.Sprintf(format, args...)}
}

func ruleViolation(format string, args ...interface{}) *Error {
	return &Error{Code: ErrRuleViolation, Message: fmt.Sprintf(format, args...)}
}
