package snapshot

import (
	"fmt"
	"strings"
)

// ErrorKind classifies failures of the export/import pipeline.
type ErrorKind string

const (
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindMalformedInput     ErrorKind = "malformed_input"
	KindSchemaMismatch     ErrorKind = "schema_mismatch"
	KindOwnerNotFound      ErrorKind = "owner_not_found"
	KindValidation         ErrorKind = "validation_error"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrUnsupportedFormat  = &Error{Kind: KindUnsupportedFormat}
	ErrMalformedInput     = &Error{Kind: KindMalformedInput}
	ErrSchemaMismatch     = &Error{Kind: KindSchemaMismatch}
	ErrOwnerNotFound      = &Error{Kind: KindOwnerNotFound}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
)

// Error is a pipeline failure with optional record coordinates.
type Error struct {
	Kind     ErrorKind
	Message  string
	Category Category
	Index    int // -1 when not tied to a record
	Field    string
	Err      error
}

// NewError creates an error that is not tied to a specific record.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Index: -1}
}

// WrapError attaches a cause to a new error of the given kind.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	e := NewError(kind, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Category != "" {
		fmt.Fprintf(&b, " [%s", e.Category)
		if e.Index >= 0 {
			fmt.Fprintf(&b, "#%d", e.Index)
		}
		if e.Field != "" {
			fmt.Fprintf(&b, ".%s", e.Field)
		}
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
