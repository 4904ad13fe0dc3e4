package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrLayerNotFound      = fmt.Errorf("layer: %w", ErrNotFound)
	ErrPayloadNotFound    = fmt.Errorf("payload: %w", ErrNotFound)
	ErrInvalidPayload     = fmt.Errorf("payload: %w", ErrInvalidInput)
	ErrCatalogUnavailable = fmt.Errorf("catalog: %w", ErrUnavailable)
	ErrStoreUnavailable   = fmt.Errorf("store: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// StorageError represents an error during payload store operations.
type StorageError struct {
	Operation string // Operation that failed (save, archive, delete, read)
	Filename  string // Payload filename
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Filename, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// CatalogError represents an error during layer catalog operations.
type CatalogError struct {
	Operation string // Operation that failed (create, list, find, delete)
	ID        string // Record id, if known
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("catalog error during %s for %s: %v",
			e.Operation, e.ID, e.Err)
	}
	return fmt.Sprintf("catalog error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// FetchError represents a failed payload fetch on the viewer side.
type FetchError struct {
	Filename   string // Requested payload filename
	StatusCode int    // HTTP status, 0 when the transport failed
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error for %s: status %d", e.Filename, e.StatusCode)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.Filename, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
