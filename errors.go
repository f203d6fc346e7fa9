package aura

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for action operations.
var (
	ErrDecode                = errors.New("aura: action definition decode failed")
	ErrUnsupportedActionType = errors.New("aura: unsupported action type")
	ErrInvalidParameter      = errors.New("aura: invalid action parameters")
	ErrUnknownAction         = errors.New("aura: unknown action")
	ErrDuplicateController   = errors.New("aura: duplicate controller")
	ErrInvalidDescriptor     = errors.New("aura: invalid descriptor")
	ErrTransport             = errors.New("aura: transport failed")
	ErrAlreadyRun            = errors.New("aura: action instance already run")
	ErrNoQueue               = errors.New("aura: server action run without a queue")
	ErrNotPending            = errors.New("aura: action is not awaiting dispatch")
)

// Severity tells the reporting side how loudly an error should surface.
type Severity int

const (
	// SeverityQuiet errors are logged and otherwise ignored; the hosting
	// page keeps working.
	SeverityQuiet Severity = iota
	// SeverityWarning errors are surfaced to the user but are recoverable.
	SeverityWarning
	// SeverityFatal errors abort the operation that produced them.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityQuiet:
		return "quiet"
	case SeverityWarning:
		return "warning"
	default:
		return "fatal"
	}
}

// SeverityOf returns the severity carried by err, or SeverityFatal when err
// does not carry one.
func SeverityOf(err error) Severity {
	var s interface{ Severity() Severity }
	if errors.As(err, &s) {
		return s.Severity()
	}
	return SeverityFatal
}

// ActionDefDecodeError is returned when a client action's source cannot be
// compiled into a method.
type ActionDefDecodeError struct {
	Descriptor string
	Source     string
	Cause      error
}

func (e *ActionDefDecodeError) Error() string {
	return fmt.Sprintf("aura: decode client action %s: %v", e.Descriptor, e.Cause)
}

func (e *ActionDefDecodeError) Unwrap() error { return e.Cause }

func (e *ActionDefDecodeError) Is(target error) bool { return target == ErrDecode }

// Severity is always quiet: a broken client action must not take the page down.
func (e *ActionDefDecodeError) Severity() Severity { return SeverityQuiet }

// UnsupportedActionTypeError is returned when a definition names an action
// type other than CLIENT or SERVER.
type UnsupportedActionTypeError struct {
	Descriptor string
	ActionType string
}

func (e *UnsupportedActionTypeError) Error() string {
	return fmt.Sprintf("aura: unsupported action type %q for %s", e.ActionType, e.Descriptor)
}

func (e *UnsupportedActionTypeError) Is(target error) bool {
	return target == ErrUnsupportedActionType
}

func (e *UnsupportedActionTypeError) Severity() Severity { return SeverityWarning }

// InvalidParameterError lists the parameter names that did not match an
// action's parameter definitions.
type InvalidParameterError struct {
	Descriptor string
	Unknown    []string
	Missing    []string
}

func (e *InvalidParameterError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("aura: invalid parameters for %s: %s", e.Descriptor, strings.Join(parts, "; "))
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func (e *InvalidParameterError) Severity() Severity { return SeverityWarning }

// ServerError carries the error messages the server reported for an action.
type ServerError struct {
	Descriptor string
	Messages   []string
}

func (e *ServerError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("aura: server action %s failed", e.Descriptor)
	}
	return fmt.Sprintf("aura: server action %s failed: %s", e.Descriptor, strings.Join(e.Messages, "; "))
}

func (e *ServerError) Severity() Severity { return SeverityWarning }

// IsDecodeError checks if err is a client action decode error.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsInvalidParameter checks if err is a parameter validation error.
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsUnknownAction checks if err is an unknown action or controller lookup error.
func IsUnknownAction(err error) bool {
	return errors.Is(err, ErrUnknownAction)
}
