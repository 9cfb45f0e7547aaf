package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Caller mistakes, rejected before any computation
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Missing data and numerically degenerate inputs
	ErrorCategoryData      ErrorCategory = "DATA"
	ErrorCategoryNumerical ErrorCategory = "NUMERICAL"

	// Optimizer did not reach an acceptable solution
	ErrorCategorySolver ErrorCategory = "SOLVER"

	// Backing store and remote market data
	ErrorCategoryStorage ErrorCategory = "STORAGE"
	ErrorCategoryNetwork ErrorCategory = "NETWORK"
	ErrorCategoryTimeout ErrorCategory = "TIMEOUT"
)

// AppError represents a categorized error with context
type AppError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AppError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// NewAppError creates a new categorized error
func NewAppError(category ErrorCategory, component, operation, message string) *AppError {
	return &AppError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with component context
func WrapError(err error, category ErrorCategory, component, operation string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryStorage:
		return true
	default:
		return false
	}
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "database") || strings.Contains(errMsg, "sql") {
		return WrapError(err, ErrorCategoryStorage, component, operation)
	}

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "missing") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	return WrapError(err, ErrorCategoryData, component, operation)
}

// HasCategory reports whether err is, or wraps, an AppError of the given category
func HasCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	return HasCategory(err, ErrorCategoryValidation)
}

// Common error constructors
func NewValidationError(component, operation, message string) *AppError {
	return NewAppError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *AppError {
	return NewAppError(ErrorCategoryConfiguration, component, operation, message)
}

func NewStorageError(component, operation string, err error) *AppError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

func NewNetworkError(component, operation string, err error) *AppError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

func NewSolverError(component, operation, message string) *AppError {
	return NewAppError(ErrorCategorySolver, component, operation, message)
}

func NewDataError(component, operation, message string) *AppError {
	return NewAppError(ErrorCategoryData, component, operation, message)
}
