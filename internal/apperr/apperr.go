// Package apperr is the error taxonomy shared by the core services.
// Expected failures (out of stock, incomplete selection, invalid transition)
// are returned as *Error values, never panics.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindContention
	KindTransient
	KindInvalidTransition
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindContention:
		return "contention"
	case KindTransient:
		return "transient"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindNotFound:
		return "not_found"
	default:
		return "infrastructure"
	}
}

const (
	CodeOutOfStock           = "OUT_OF_STOCK"
	CodeSelectionIncomplete  = "SELECTION_INCOMPLETE"
	CodeDropNotActive        = "DROP_NOT_ACTIVE"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeInvalidDiscountRange = "INVALID_DISCOUNT_RANGE"
	CodeInvalidValueRange    = "INVALID_VALUE_RANGE"
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeInfrastructure       = "INFRASTRUCTURE"
	CodePaymentFailed        = "PAYMENT_FAILED"
)

// Action tells a caller what the user should do after a failure.
type Action string

const (
	ActionNone     Action = "none"
	ActionReselect Action = "reselect"
	ActionRefresh  Action = "refresh"
	ActionRetry    Action = "retry"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so sentinels compare equal to wrapped copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrOutOfStock          = New(KindContention, CodeOutOfStock, "stock changed, refresh and try again")
	ErrSelectionIncomplete = New(KindValidation, CodeSelectionIncomplete, "select every offered option first")
	ErrDropNotActive       = New(KindContention, CodeDropNotActive, "drop is not accepting claims")
	ErrInvalidTransition   = New(KindInvalidTransition, CodeInvalidTransition, "transition not allowed")
	ErrNotFound            = New(KindNotFound, CodeNotFound, "not found")
)

func Validation(code, msg string) *Error {
	return New(KindValidation, code, msg)
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeInfrastructure, Message: "temporary failure, try again", Err: err}
}

func Payment(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodePaymentFailed, Message: "payment provider failed", Err: err}
}

// Wrap converts an unexpected collaborator error into an infrastructure error.
// Errors that already belong to the taxonomy pass through unchanged.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Code: CodeInfrastructure, Message: msg, Err: err}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInfrastructure
}

func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInfrastructure
}

func ActionFor(err error) Action {
	if err == nil {
		return ActionNone
	}
	switch CodeOf(err) {
	case CodeSelectionIncomplete:
		return ActionReselect
	case CodeOutOfStock, CodeDropNotActive, CodeInvalidTransition:
		return ActionRefresh
	case CodeValidation, CodeInvalidDiscountRange, CodeInvalidValueRange, CodeNotFound:
		return ActionNone
	default:
		return ActionRetry
	}
}
