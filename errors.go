package scar

import (
	"errors"
	"strings"
)

// Error is the scar error domain type.
//
// Errors coming from scar components should be inspectable as ([errors.As])
// an *Error at some point in the error chain.
//
// Implementers of scar components should create an Error at the system
// boundary (e.g. a failed stream read/write/seek, a bad checksum) and
// intermediate layers should not wrap in another Error except to add
// additional [ErrorKind] information. That is to say, use [fmt.Errorf] with
// a "%w" verb in preference to creating a containing Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrIO, ErrMalformed, ErrUnsupportedCodec, ErrUnsupportedFeature, ErrInvalid:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is]. It compares the error kind. Callers should compare
// against a declared [ErrorKind], not a specific error value.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors a caller can check against.
type ErrorKind string

// Defined error kinds, per the format's error model.
var (
	ErrIO                 = ErrorKind("io error")              // underlying stream failed
	ErrMalformed          = ErrorKind("malformed archive")     // bytes do not conform to the format
	ErrUnsupportedCodec   = ErrorKind("unsupported codec")     // EOF marker identifies no known codec
	ErrUnsupportedFeature = ErrorKind("unsupported feature")   // entry type the engine cannot represent
	ErrInvalid            = ErrorKind("invalid argument")      // bad caller input
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
