// errors.go: structured error codes for cache operations.
//
// Every error leaving this package carries a stable code via the
// go-errors library so callers can branch on kind without string
// matching, and context fields for operability.
package cache

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for cache operations.
const (
	// Configuration errors.
	ErrCodeInvalidConfig errors.ErrorCode = "COLLCACHE_INVALID_CONFIG"

	// Loading errors.
	ErrCodeNoLoader   errors.ErrorCode = "COLLCACHE_NO_LOADER"
	ErrCodeLoadFailed errors.ErrorCode = "COLLCACHE_LOAD_FAILED"

	// Persistence errors.
	ErrCodeWriteFailed   errors.ErrorCode = "COLLCACHE_WRITE_FAILED"
	ErrCodeDroppedWrites errors.ErrorCode = "COLLCACHE_DROPPED_WRITES"

	// Lifecycle errors.
	ErrCodeClosed errors.ErrorCode = "COLLCACHE_CLOSED"
)

const (
	msgInvalidConfig = "invalid cache configuration"
	msgNoLoader      = "no loader configured"
	msgLoadFailed    = "loader failed"
	msgWriteFailed   = "writer failed"
	msgDroppedWrites = "write-behind items dropped after retry exhaustion"
	msgClosed        = "cache is closed"
)

// NewErrInvalidConfig creates a construction-time validation error.
func NewErrInvalidConfig(field string, value interface{}, reason string) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field":  field,
		"value":  fmt.Sprintf("%v", value),
		"reason": reason,
	})
}

// NewErrNoLoader creates an error for loader-backed operations on a cache
// constructed without a loader.
func NewErrNoLoader(operation string) error {
	return errors.NewWithField(ErrCodeNoLoader, msgNoLoader, "operation", operation)
}

// NewErrLoadFailed wraps a loader error. Retryable: the failure is not
// cached and a later access runs the loader again.
func NewErrLoadFailed(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeLoadFailed, msgLoadFailed).
		WithContext("key", fmt.Sprintf("%v", key)).
		AsRetryable()
}

// NewErrWriteFailed wraps a write-through writer error; the put it aborted
// was not installed.
func NewErrWriteFailed(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeWriteFailed, msgWriteFailed).
		WithContext("key", fmt.Sprintf("%v", key)).
		AsRetryable()
}

// NewErrDroppedWrites reports write-behind items lost to retry exhaustion
// or the shutdown deadline.
func NewErrDroppedWrites(count int) error {
	return errors.NewWithField(ErrCodeDroppedWrites, msgDroppedWrites, "count", count)
}

// NewErrClosed creates the fail-fast error for operations after Close.
func NewErrClosed(operation string) error {
	return errors.NewWithField(ErrCodeClosed, msgClosed, "operation", operation)
}

// IsClosed reports whether err is the after-Close error kind.
func IsClosed(err error) bool {
	return errors.HasCode(err, ErrCodeClosed)
}

// IsLoadFailed reports whether err wraps a loader failure.
func IsLoadFailed(err error) bool {
	return errors.HasCode(err, ErrCodeLoadFailed)
}

// IsWriteFailed reports whether err wraps a write-through failure.
func IsWriteFailed(err error) bool {
	return errors.HasCode(err, ErrCodeWriteFailed)
}

// IsDroppedWrites reports whether err records lost write-behind items.
func IsDroppedWrites(err error) bool {
	return errors.HasCode(err, ErrCodeDroppedWrites)
}

// IsConfigError reports whether err is a construction-time validation
// failure.
func IsConfigError(err error) bool {
	return errors.HasCode(err, ErrCodeInvalidConfig)
}

// ErrorCode extracts the structured code from err, or "" for foreign
// errors.
func ErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
