// Package common provides shared constants, types, and utilities
// used across wgconv.
package common

import "errors"

// Sentinel errors for host operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Profile errors.
	ErrProfileNotFound = errors.New("profile not found")
	ErrDuplicateName   = errors.New("profile name already exists")
	ErrInvalidProfile  = errors.New("invalid profile data")

	// Kernel errors.
	ErrKernelNotRunning     = errors.New("kernel is not running")
	ErrKernelAlreadyRunning = errors.New("kernel is already running")
	ErrKernelStart          = errors.New("failed to start kernel")

	// Output errors.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrEncryption          = errors.New("encryption error")
	ErrDecryption          = errors.New("decryption error")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")

	// Interaction errors.
	ErrCancelled      = errors.New("operation cancelled")
	ErrNotInteractive = errors.New("no interactive terminal")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
