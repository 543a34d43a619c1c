package card

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Callers receive exactly one Kind per failed operation.
type Kind int

const (
	// Other covers resource exhaustion and unexpected failures.
	Other Kind = iota
	// InvalidFile is a stream or file level failure (bad extension, unreadable input, oversized line).
	InvalidFile
	// InvalidRecord is a BEGIN/END/VERSION framing violation or an incomplete record.
	InvalidRecord
	// InvalidProperty is a property grammar or schema violation.
	InvalidProperty
	// InvalidDateTime is a BDAY/ANNIVERSARY shape violation.
	InvalidDateTime
	// WriteFailure is raised when a serialized record cannot be written.
	WriteFailure
)

var kindNames = map[Kind]string{
	Other:           "OTHER_ERROR",
	InvalidFile:     "INV_FILE",
	InvalidRecord:   "INV_CARD",
	InvalidProperty: "INV_PROP",
	InvalidDateTime: "INV_DT",
	WriteFailure:    "WRITE_ERROR",
}

// String returns the stable identifier of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by every operation of this package.
type Error struct {
	Kind Kind
	// Line is the physical line number where the offending logical line starts, 0 when unknown.
	Line    int
	Message string
	Err     error
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrOther           = &Error{Kind: Other}
	ErrInvalidFile     = &Error{Kind: InvalidFile}
	ErrInvalidRecord   = &Error{Kind: InvalidRecord}
	ErrInvalidProperty = &Error{Kind: InvalidProperty}
	ErrInvalidDateTime = &Error{Kind: InvalidDateTime}
	ErrWriteFailure    = &Error{Kind: WriteFailure}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel (or any *Error) of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf extracts the Kind of err. Errors not produced by this package are Other.
func KindOf(err error) Kind {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Kind
	}
	return Other
}

func newError(kind Kind, line int, msg string) *Error {
	return &Error{Kind: kind, Line: line, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
