package service

import "errors"

var (
	// ErrValidation rejects a malformed mutation before any write happens.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for updates or deletes of unknown event ids.
	ErrNotFound = errors.New("event not found")

	// ErrAuthRequired is returned when a mutation has no owning identity.
	ErrAuthRequired = errors.New("authentication required")
)
