package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrEntryNotFound indicates the requested entry does not exist
	ErrEntryNotFound = errors.New("entry not found")

	// ErrServerOffline indicates the dashboard API is unreachable
	ErrServerOffline = errors.New("dashboard server is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrInvalidEntry indicates an entry failed validation before saving
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrNotConfigured indicates no server URL or token has been set
	ErrNotConfigured = errors.New("server is not configured")
)
