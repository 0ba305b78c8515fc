package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during storage and
// configuration interactions.
var (
	// ErrStoreClosed indicates that an operation was attempted on a closed store.
	ErrStoreClosed = errors.New("store closed")

	// ErrCorruptRecord indicates that a stored record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StorageError represents a failure of the underlying store, as opposed to a
// domain outcome such as not-found or duplicate. It includes the collection
// and operation that failed.
type StorageError struct {
	// Collection is the collection that was involved in the failed operation.
	Collection string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the store operation to fail.
	Err error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s, collection=%s, err=%v", e.Operation, e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(collection, operation string, err error) *StorageError {
	return &StorageError{
		Collection: collection,
		Operation:  operation,
		Err:        err,
	}
}

// IsStorageFailure reports whether err originates from the store itself.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	// Metric is the name of the metric that was being collected when the
	// error occurred.
	Metric string

	// Operation is the name of the metrics operation that failed.
	Operation string

	// Err is the underlying error that caused the metrics operation to fail.
	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{
		Metric:    metric,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
