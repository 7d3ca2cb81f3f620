package service

import "errors"

// Service error taxonomy. Handlers map these onto HTTP status codes; raw
// provider errors never cross the HTTP boundary.
var (
	// ErrNotConnected means no stored connection exists; the user must start
	// the OAuth flow. Never retried.
	ErrNotConnected = errors.New("provider is not connected")

	// ErrReauthRequired means the provider rejected the stored refresh token;
	// the user must reconnect. Never retried automatically.
	ErrReauthRequired = errors.New("provider connection requires re-authentication")

	// ErrProviderUnavailable means refresh failed transiently after bounded
	// retries; callers may retry later.
	ErrProviderUnavailable = errors.New("provider is temporarily unavailable")

	// ErrValidation marks malformed input to a service operation
	ErrValidation = errors.New("validation failed")
)
