package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// KindError attaches an internal cause to a public error kind.
// errors.Is(err, Kind) holds for any wrapping of a KindError; the cause is only reachable with errors.Unwrap / errors.As.
type KindError struct {
	Kind error
	Err  error
}

// NewKindError returns nil if kind is nil.
func NewKindError(kind, cause error) error {
	if kind == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: cause}
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *KindError) Is(target error) bool { return target == e.Kind }

func (e *KindError) Unwrap() error { return e.Err }

// ErrorKind returns the public kind carried by err, or nil.
func ErrorKind(err error) error {
	var kErr *KindError
	if errors.As(err, &kErr) {
		return kErr.Kind
	}
	return nil
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
