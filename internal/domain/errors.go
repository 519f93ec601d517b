package domain

import "errors"

// Sentinel errors shared by adapters and use cases. Check with errors.Is.
var (
	// ErrValidation marks an item that cannot be ingested as given.
	ErrValidation = errors.New("validation failed")

	// ErrTransient marks timeouts, rate limiting and 5xx responses.
	ErrTransient = errors.New("transient failure")

	// ErrAuth marks a rejected credential. It will not resolve by retrying,
	// so a batch stops when it sees one.
	ErrAuth = errors.New("authentication failed")

	// ErrParse marks an unreadable date token or classifier payload.
	ErrParse = errors.New("parse failed")

	// ErrConflict is returned by stores that enforce link uniqueness.
	ErrConflict = errors.New("record already exists")

	// ErrNotConfigured marks a collaborator without credentials or endpoint.
	ErrNotConfigured = errors.New("not configured")
)
