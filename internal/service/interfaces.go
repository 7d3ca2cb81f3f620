package service

import (
	"context"
	"time"

	"github.com/repurpost/oauth-service/internal/domain"
	"golang.org/x/oauth2"
)

// Refresher exchanges refresh tokens against provider token endpoints
type Refresher interface {
	Configured(p domain.Provider) bool
	Refresh(ctx context.Context, p domain.Provider, refreshToken string) (*oauth2.Token, error)
	RefreshWithClient(ctx context.Context, p domain.Provider, clientID, clientSecret, refreshToken string) (*oauth2.Token, error)
}

// HealthStatus is the result of a local connection health check
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// ConnectionSummary is the token-free view of a connection used by status
// and dashboard endpoints
type ConnectionSummary struct {
	Platform    string     `json:"platform"`
	DisplayName string     `json:"display_name"`
	Username    string     `json:"username,omitempty"`
	ConnectedAt time.Time  `json:"connected_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
}

// SaveConnectionParams carries plaintext token material from an OAuth
// callback into the encrypted store
type SaveConnectionParams struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       []string
	Metadata     []byte
}

// TokenManager owns the token lifecycle for provider connections
type TokenManager interface {
	GetValidAccessToken(ctx context.Context, profileID, providerName string) (string, error)
	CheckConnectionHealth(ctx context.Context, profileID, providerName string) (*HealthStatus, error)
	GetConnections(ctx context.Context, profileID string) ([]ConnectionSummary, error)
	SaveConnection(ctx context.Context, profileID, providerName string, params SaveConnectionParams) error
	Disconnect(ctx context.Context, profileID, providerName string) error
	DisconnectAll(ctx context.Context, profileID string) error
	DisconnectByProviderUser(ctx context.Context, providerName, providerUserID string) (int64, error)
}

// CredentialsSummary is the masked view of stored BYOK credentials
type CredentialsSummary struct {
	Provider       string     `json:"provider"`
	AppName        string     `json:"app_name"`
	ClientIDMasked string     `json:"client_id_masked"`
	IsValid        bool       `json:"is_valid"`
	LastError      *string    `json:"last_error,omitempty"`
	LastTestedAt   *time.Time `json:"last_tested_at"`
}

// CredentialsService manages user-supplied app credentials (BYOK)
type CredentialsService interface {
	Save(ctx context.Context, profileID, providerName, clientID, clientSecret, appName string) error
	Describe(ctx context.Context, profileID, providerName string) (*CredentialsSummary, error)
	Delete(ctx context.Context, profileID, providerName string) error
}
