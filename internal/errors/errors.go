// Package errors implements the error kinds of spec.md §7: a typed kind, a
// message, and an optional source location, generalized to the translator's
// fatal-vs-user-visible split. Wrapped causes use golang.org/x/xerrors
// instead of bare fmt.Errorf so %w-style chains carry frame info into the
// ANALYSIS_ERROR diagnostic path.
package errors

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind is one of the error kinds spec.md §7 enumerates.
type Kind string

const (
	InvalidParameter  Kind = "INVALID_PARAMETER"
	InvalidState      Kind = "INVALID_STATE"
	InternalError     Kind = "INTERNAL_ERROR"
	NotImplemented    Kind = "NOT_IMPLEMENTED"
	ObjallocFailure   Kind = "OBJALLOC_FAILURE"
	MemallocFailure   Kind = "MEMALLOC_FAILURE"
	AnalysisError     Kind = "ANALYSIS_ERROR"
	IteratorEnd       Kind = "ITERATOR_END"

	// Layout-oracle specific kinds (spec.md §4.1).
	TypeIncomplete  Kind = "TYPE_INCOMPLETE"
	TypeUnsupported Kind = "TYPE_UNSUPPORTED"

	// Value-translator specific kinds (spec.md §4.6).
	LoadVoid          Kind = "LOAD_VOID"
	StoreVoid         Kind = "STORE_VOID"
	StoreFunction     Kind = "STORE_FUNCTION"
	UnexpectedAutoType Kind = "UNEXPECTED_AUTO_TYPE"
	BitfieldTooWide   Kind = "BITFIELD_TOO_WIDE"

	// Temporary-allocator specific kind (spec.md §4.4).
	UnallocatedTemporary Kind = "UNALLOCATED_TEMPORARY"

	// IR block builder (spec.md §4.2).
	OOM Kind = "OOM"
)

// Location is a source position for diagnostic pretty-printing
// (spec.md §7 "User-visible failures include a source location").
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// TranslatorError is the tagged outcome every translator operation returns
// on failure.
type TranslatorError struct {
	Kind     Kind
	Message  string
	Location Location
	cause    error
}

func (e *TranslatorError) Error() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TranslatorError) Unwrap() error { return e.cause }

// Fatal reports whether the kind represents a translator/analyzer/allocator
// invariant violation (spec.md §7: every kind except ANALYSIS_ERROR and
// ITERATOR_END is fatal).
func (e *TranslatorError) Fatal() bool {
	return e.Kind != AnalysisError && e.Kind != IteratorEnd
}

// New creates a TranslatorError with no location and no cause.
func New(kind Kind, message string) *TranslatorError {
	return &TranslatorError{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *TranslatorError {
	return &TranslatorError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithLocation attaches a source location, for ANALYSIS_ERROR surfacing.
func (e *TranslatorError) WithLocation(loc Location) *TranslatorError {
	e.Location = loc
	return e
}

// Wrap chains cause into a new TranslatorError using x/xerrors so %+v
// formatting (and errors.Is/As) see the full chain.
func Wrap(kind Kind, message string, cause error) *TranslatorError {
	return &TranslatorError{Kind: kind, Message: message, cause: xerrors.Errorf("%s: %w", message, cause)}
}

// Is reports whether err is a *TranslatorError of the given kind.
func Is(err error, kind Kind) bool {
	var te *TranslatorError
	if xerrors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
