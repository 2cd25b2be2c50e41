package core

import "github.com/pkg/errors"

// FieldError ties a validation message to the offending input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a request-level validation failure carrying zero or more
// per-field messages alongside the root cause.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldMap flattens the field errors for JSON responses.
func (err *ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(err.Fields))
	for _, fe := range err.Fields {
		m[fe.Field] = fe.Error
	}
	return m
}

type shutdownError string

// NewShutdownError reports an integrity failure that should bring the whole
// service down for a restart.
func NewShutdownError(msg string) error {
	return shutdownError(msg)
}

func (s shutdownError) Error() string { return string(s) }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(shutdownError)
	return ok
}
