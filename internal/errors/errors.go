package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/3grands/habitflow/internal/logger"
)

var (
	// ErrNotFound is returned when a habit id does not exist or is inactive
	ErrNotFound = stderrors.New("not found")
	// ErrValidation is returned for rejected input; never retried
	ErrValidation = stderrors.New("validation failed")
	// ErrNetwork is returned for transient transport failures; retried on the next sync
	ErrNetwork = stderrors.New("network unavailable")
	// ErrStorage is returned when local persistence fails
	ErrStorage = stderrors.New("storage write failed")
	// ErrSyncInProgress is returned when another process holds the sync lock
	ErrSyncInProgress = stderrors.New("sync already in progress")
)

// NotFound wraps ErrNotFound with a formatted message
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validation wraps ErrValidation with a formatted message
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Network wraps ErrNetwork around the underlying transport error
func Network(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Storage wraps ErrStorage around the underlying persistence error
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// IsRetryable reports whether err should leave a pending action queued for the next sync.
func IsRetryable(err error) bool {
	return stderrors.Is(err, ErrNetwork)
}

// IsPermanent reports whether err means the server will never accept the request.
func IsPermanent(err error) bool {
	return stderrors.Is(err, ErrValidation) || stderrors.Is(err, ErrNotFound)
}

// Is and As re-export the standard helpers so callers need a single import
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
