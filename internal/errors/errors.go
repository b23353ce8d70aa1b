package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeUnavailable Code = 12

	CodeUnknownMission    Code = 20
	CodeInvalidTransition Code = 21
	CodeHashConflict      Code = 22
	CodeNoViableRoute     Code = 23
	CodeMalformedAmount   Code = 24
	CodeNotFound          Code = 25
	CodeConflict          Code = 26
)

// Codes lists every code in exit-code order.
func Codes() []Code {
	return []Code{
		CodeSuccess, CodeInternal, CodeUsage, CodeUnavailable,
		CodeUnknownMission, CodeInvalidTransition, CodeHashConflict,
		CodeNoViableRoute, CodeMalformedAmount, CodeNotFound, CodeConflict,
	}
}

// Kind returns the discriminator string the presentation layer switches on.
func (c Code) Kind() string {
	switch c {
	case CodeSuccess:
		return "ok"
	case CodeUsage:
		return "usage_error"
	case CodeUnavailable:
		return "unavailable"
	case CodeUnknownMission:
		return "unknown_mission"
	case CodeInvalidTransition:
		return "invalid_transition"
	case CodeHashConflict:
		return "hash_conflict"
	case CodeNoViableRoute:
		return "no_viable_route"
	case CodeMalformedAmount:
		return "malformed_amount"
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HasCode reports whether the outermost typed error in err's chain has code.
func HasCode(err error, code Code) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if typed, ok := As(err); ok {
		return int(typed.Code)
	}
	return int(CodeInternal)
}
