// Package symerr generalizes the teacher's internal/errors package into
// the five error kinds spec §7 enumerates: configuration, data, parse,
// structural, and allocation. Each kind has a distinct propagation
// policy (warn-and-continue vs. abort vs. fatal); see Kind's doc.
package symerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of spec §7's error categories an Error belongs
// to, which in turn determines how a caller should react.
type Kind string

const (
	// Configuration errors (unknown operator name, malformed
	// complexity entry, descriptor parse failure): the caller should
	// warn, leave the option at its default, and continue.
	Configuration Kind = "configuration"
	// Data errors (missing or malformed CSV): the caller should warn
	// and abort the run before the main loop starts.
	Data Kind = "data"
	// Parse errors in expression strings: the caller should warn with
	// the offending substring and position, free partial state, and
	// return without a tree.
	Parse Kind = "parse"
	// Structural errors from tree validation (bad links, arity
	// mismatch, unset value, leaked slots): diagnostics only, logged
	// and otherwise ignored — they indicate a bug, not a user error.
	Structural Kind = "structural"
	// Allocation errors (pool free-list corruption, head null after
	// growth): fatal, the process should abort.
	Allocation Kind = "allocation"
)

// Error is the concrete error type symreg returns for all five kinds.
// Position and Offending are only meaningful for Kind == Parse.
type Error struct {
	Kind      Kind
	Message   string
	Offending string
	Position  int
	cause     error
}

func (e *Error) Error() string {
	if e.Kind == Parse && e.Offending != "" {
		return fmt.Sprintf("%s: %s (at %q, position %d)", e.Kind, e.Message, e.Offending, e.Position)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// New creates a bare error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches cause with context via github.com/pkg/errors.Wrap. The
// cause is reachable through Unwrap (errors.Is/As/Unwrap); *Error has no
// Cause method, so pkg/errors.Cause stops at the *Error itself.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.Wrap(cause, message)}
}

// NewParse builds a Parse error carrying the offending substring and
// its position within the original input, per §7.3.
func NewParse(message, offending string, position int) *Error {
	return &Error{Kind: Parse, Message: message, Offending: offending, Position: position}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
