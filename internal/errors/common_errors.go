package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMalformedRow ErrorType = "MALFORMED_ROW"
	ErrTypeUnmatchedKey ErrorType = "UNMATCHED_KEY"
	ErrTypeModelFit     ErrorType = "MODEL_FIT"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMalformedRowError reports a source row that cannot be parsed or validated.
// line is the 1-based line (CSV) or row (XLSX) number including the header.
func NewMalformedRowError(file string, line int, column string, cause error) *AppError {
	msg := fmt.Sprintf("malformed row %d in %s", line, file)
	if column != "" {
		msg = fmt.Sprintf("malformed row %d in %s (column %s)", line, file, column)
	}
	return NewAppError(ErrTypeMalformedRow, msg, cause).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column)
}

// NewUnmatchedKeyError reports a join that produced no rows.
func NewUnmatchedKeyError(message string) *AppError {
	return NewAppError(ErrTypeUnmatchedKey, message, nil)
}

// NewModelFitError reports a model that could not be fitted.
func NewModelFitError(model string, cause error) *AppError {
	return NewAppError(ErrTypeModelFit, fmt.Sprintf("fit %s", model), cause).
		WithContext("model", model)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// TypeOf returns the type of the outermost AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
