package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage error")
	ErrCorrupt      = errors.New("stored data is unreadable")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// StorageError marks err as a key-value store failure.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError("STORAGE_ERROR", op, errors.Join(ErrStorage, err))
}

// IsStorage reports whether err came from the key-value store.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
