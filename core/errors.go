package core

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// IsValidationError reports whether the cause of err is a *ValidationError.
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// StoreError is a failure reported by the backing store.
// Its message is shown to the operator as is.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (err StoreError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err StoreError) Unwrap() error { return err.Err }

// Message is the store's own error message.
func (err StoreError) Message() string {
	if pqErr, ok := err.Err.(*pq.Error); ok && pqErr.Detail != "" {
		return pqErr.Message + ": " + pqErr.Detail
	}
	return err.Err.Error()
}

// IsConstraintViolation reports whether the store rejected the write because of an integrity
// constraint (postgres error class 23).
func (err StoreError) IsConstraintViolation() bool {
	if pqErr, ok := err.Err.(*pq.Error); ok {
		return pqErr.Code.Class() == "23"
	}
	return false
}

// AsStoreError returns the *StoreError in err's chain, if any.
func AsStoreError(err error) (*StoreError, bool) {
	var sErr *StoreError
	if errors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
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
