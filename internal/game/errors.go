package game

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a rule violation.
type ErrorCategory string

const (
	CategoryIdentity   ErrorCategory = "identity"
	CategoryPhase      ErrorCategory = "phase"
	CategorySelection  ErrorCategory = "selection"
	CategoryArithmetic ErrorCategory = "arithmetic"
)

// ErrNotLegal is returned for unknown or contextually invalid action names.
var ErrNotLegal = &RuleError{Category: CategoryPhase, Msg: "not a legal action right now"}

// RuleError is a domain-rule violation. The state is never mutated when one is returned.
type RuleError struct {
	Category ErrorCategory
	Msg      string
}

func (e *RuleError) Error() string {
	return e.Msg
}

// Is matches any RuleError with the same category and message, so wrapped
// copies of ErrNotLegal still compare equal.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Msg == t.Msg
}

// IsRuleError reports whether err is, or wraps, a RuleError.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

func identityErr(format string, args ...any) error {
	return &RuleError{Category: CategoryIdentity, Msg: fmt.Sprintf(format, args...)}
}

func phaseErr(format string, args ...any) error {
	return &RuleError{Category: CategoryPhase, Msg: fmt.Sprintf(format, args...)}
}

func selectionErr(format string, args ...any) error {
	return &RuleError{Category: CategorySelection, Msg: fmt.Sprintf(format, args...)}
}

func arithmeticErr(format string, args ...any) error {
	return &RuleError{Category: CategoryArithmetic, Msg: fmt.Sprintf(format, args...)}
}
