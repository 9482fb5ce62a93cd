// Package common provides shared constants, types, utilities, and interfaces
// used throughout wgconv.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: Application-wide constants like timeouts and file names
//   - Errors: Sentinel errors for consistent error handling across packages
//   - Interfaces: Abstractions for clipboard, notifications, prompts and secrets
//   - Logger: Leveled logging with optional rotated file output
//   - Utils: Common utility functions for directories and identifiers
//
// # Usage
//
//	common.LogInfo("Converted config for %s", profileName)
//
//	if errors.Is(err, common.ErrProfileNotFound) {
//	    // Handle missing profile
//	}
//
// The conversion core in package converter does not depend on this
// package; only the host side logs.
package common
