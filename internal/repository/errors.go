package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateConnection is returned when a (profile, provider) pair already exists
	ErrDuplicateConnection = errors.New("connection for this profile and provider already exists")

	// ErrDuplicateCredentials is returned when BYOK credentials for a (profile, provider) pair already exist
	ErrDuplicateCredentials = errors.New("api credentials for this profile and provider already exist")
)
