package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported  ErrorCode = "NOT_SUPPORTED"
)

// DomainError is the error type returned across package boundaries.
// Context carries small key/value hints (rule name, path) for log lines.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxRule      = "rule"
	CtxUnit      = "unit"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches key/value context, wrapping foreign errors as internal.
func AddContext(err error, key string, value interface{}) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode reports whether any DomainError in err's tree, following both
// wrapped and joined errors, has the code.
func IsCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *DomainError:
		return e.Code == code || IsCode(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsCode(e.Unwrap(), code)
	default:
		return false
	}
}

// Join combines errors the same way errors.Join does. Nil entries are dropped.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
