package repository

import (
	"context"

	"github.com/repurpost/oauth-service/internal/domain"
)

// ConnectionRepository defines methods for OAuth connection storage.
// Token fields are stored as ciphertext; encryption happens above this layer.
type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *domain.Connection) error
	Get(ctx context.Context, profileID string, provider domain.Provider) (*domain.Connection, error)
	GetByProfile(ctx context.Context, profileID string) ([]*domain.Connection, error)
	SetActive(ctx context.Context, profileID string, provider domain.Provider, active bool) error
	Delete(ctx context.Context, profileID string, provider domain.Provider) error
	DeleteAllForProfile(ctx context.Context, profileID string) error
	DeleteByProviderUser(ctx context.Context, provider domain.Provider, providerUserID string) (int64, error)
}

// APICredentialsRepository defines methods for BYOK app credential storage
type APICredentialsRepository interface {
	Upsert(ctx context.Context, creds *domain.APICredentials) error
	Get(ctx context.Context, profileID string, provider domain.Provider) (*domain.APICredentials, error)
	MarkTested(ctx context.Context, profileID string, provider domain.Provider, valid bool, lastError *string) error
	Delete(ctx context.Context, profileID string, provider domain.Provider) error
}
