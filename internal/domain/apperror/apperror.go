package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can branch without matching messages.
type Kind string

const (
	KindInvalidField       Kind = "invalid_field"
	KindInvalidArgument    Kind = "invalid_argument"
	KindNotFound           Kind = "not_found"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindPersistenceFailure Kind = "persistence_failure"
)

// Error is the canonical error carried out of the application and
// repository layers.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", op, msg, e.Cause)
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s", op, msg)
	case msg != "":
		return msg
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an error of the given kind with no underlying cause.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message)}
}

// Wrap annotates cause with kind. A nil cause yields nil.
func Wrap(kind Kind, op, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Cause: cause}
}

// Is reports whether err, or anything it wraps, is an *Error of kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return ""
	}
	return appErr.Kind
}

// MessageOf returns the human-readable message without op or cause.
func MessageOf(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	return appErr.Message
}
