// Package common provides shared constants, types, and utilities
// used across wgconv.
package common

import "context"

// ClipboardSink receives converted text instead of a profile.
type ClipboardSink interface {
	// WriteText replaces the clipboard contents.
	WriteText(text string) error
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// Notify sends a notification with the given title and message.
	Notify(title, message string) error
}

// Option is one entry offered by a Prompter picker.
type Option struct {
	Label string
	Value string
}

// Prompter asks the user for input.
type Prompter interface {
	// PromptConfig asks for configuration text. initial prefills the editor.
	PromptConfig(ctx context.Context, title, initial string) (string, error)
	// Pick asks the user to choose one option and returns its Value.
	Pick(ctx context.Context, title string, options []Option) (string, error)
}

// CredentialStore defines the interface for secret storage.
// Implementations may use system keyring, encrypted files, etc.
type CredentialStore interface {
	// Store saves a secret under key.
	Store(key, secret string) error
	// Get retrieves the secret stored under key.
	Get(key string) (string, error)
	// Delete removes the secret stored under key.
	Delete(key string) error
}

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...interface{})
	// Info logs an informational message.
	Info(msg string, args ...interface{})
	// Warn logs a warning message.
	Warn(msg string, args ...interface{})
	// Error logs an error message.
	Error(msg string, args ...interface{})
}
