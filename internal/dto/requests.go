package dto

import "time"

// HealthCheckRequest asks for the health of a single platform connection
type HealthCheckRequest struct {
	Platform string `json:"platform" binding:"required"`
}

// PlatformStatus is one connected platform in a status response
type PlatformStatus struct {
	Platform    string     `json:"platform"`
	DisplayName string     `json:"displayName"`
	Username    string     `json:"username,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	IsActive    bool       `json:"isActive"`
}

// StatusResponse lists a profile's connected platforms
type StatusResponse struct {
	ConnectedPlatforms []PlatformStatus `json:"connectedPlatforms"`
	TotalConnected     int              `json:"totalConnected"`
}

// HealthResponse reports the health of one connection
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// SaveCredentialsRequest stores user-supplied app credentials (BYOK)
type SaveCredentialsRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
	AppName      string `json:"app_name"`
}

// RateLimitExceededResponse is the 429 body on rejected requests
type RateLimitExceededResponse struct {
	Error      string    `json:"error"`
	Code       string    `json:"code"`
	Limit      int       `json:"limit"`
	Current    int64     `json:"current"`
	RetryAfter int64     `json:"retryAfter"`
	ResetAt    time.Time `json:"resetAt"`
}

// DataDeletionResponse is the acknowledgement Meta expects from a
// data-deletion callback
type DataDeletionResponse struct {
	URL              string `json:"url"`
	ConfirmationCode string `json:"confirmation_code"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
