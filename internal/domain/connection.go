package domain

import "time"

// Connection represents an OAuth connection between a profile and a provider.
// Token fields hold ciphertext; plaintext tokens are never persisted.
type Connection struct {
	ID              string     `json:"id" db:"id"`
	ProfileID       string     `json:"profile_id" db:"profile_id"`
	Provider        Provider   `json:"provider" db:"provider"`
	AccessTokenEnc  string     `json:"-" db:"access_token_enc"`
	RefreshTokenEnc string     `json:"-" db:"refresh_token_enc"`
	ExpiresAt       *time.Time `json:"expires_at" db:"expires_at"` // nil means non-expiring
	Scopes          []string   `json:"scopes" db:"scopes"`
	Metadata        []byte     `json:"metadata" db:"metadata"` // provider-specific blob, opaque here
	IsActive        bool       `json:"is_active" db:"is_active"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the access token is past its expiry.
// Non-expiring tokens are never expired.
func (c *Connection) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// NeedsRefresh reports whether the access token is expired or expires within margin
func (c *Connection) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return c.ExpiresAt != nil && now.Add(margin).After(*c.ExpiresAt)
}

// APICredentials represents user-supplied app-level OAuth credentials (BYOK),
// used for providers that require a paid developer app. Distinct from a
// Connection: this is the client id/secret, not a per-session token.
type APICredentials struct {
	ID              string     `json:"id" db:"id"`
	ProfileID       string     `json:"profile_id" db:"profile_id"`
	Provider        Provider   `json:"provider" db:"provider"`
	ClientIDEnc     string     `json:"-" db:"client_id_enc"`
	ClientSecretEnc string     `json:"-" db:"client_secret_enc"`
	AppName         string     `json:"app_name" db:"app_name"`
	IsValid         bool       `json:"is_valid" db:"is_valid"`
	LastError       *string    `json:"last_error" db:"last_error"`
	LastTestedAt    *time.Time `json:"last_tested_at" db:"last_tested_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
