package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/pkg/database"
)

// apiCredentialsRepository implements APICredentialsRepository interface
type apiCredentialsRepository struct {
	db *database.Postgres
}

// NewAPICredentialsRepository creates a new BYOK credentials repository
func NewAPICredentialsRepository(db *database.Postgres) APICredentialsRepository {
	return &apiCredentialsRepository{db: db}
}

// Upsert creates or replaces BYOK credentials for a (profile, provider) pair
func (r *apiCredentialsRepository) Upsert(ctx context.Context, creds *domain.APICredentials) error {
	query := `
		INSERT INTO user_api_credentials
			(id, profile_id, provider, client_id_enc, client_secret_enc, app_name, is_valid, last_error, last_tested_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (profile_id, provider) DO UPDATE SET
			client_id_enc     = EXCLUDED.client_id_enc,
			client_secret_enc = EXCLUDED.client_secret_enc,
			app_name          = EXCLUDED.app_name,
			is_valid          = EXCLUDED.is_valid,
			last_error        = EXCLUDED.last_error,
			last_tested_at    = EXCLUDED.last_tested_at,
			updated_at        = EXCLUDED.updated_at
	`

	// Generate UUID if not provided
	if creds.ID == "" {
		creds.ID = uuid.New().String()
	}

	now := time.Now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		creds.ID,
		creds.ProfileID,
		string(creds.Provider),
		creds.ClientIDEnc,
		creds.ClientSecretEnc,
		creds.AppName,
		creds.IsValid,
		creds.LastError,
		creds.LastTestedAt,
		creds.CreatedAt,
		creds.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert api credentials: %w", err)
	}

	return nil
}

// Get retrieves BYOK credentials for a (profile, provider) pair
func (r *apiCredentialsRepository) Get(ctx context.Context, profileID string, provider domain.Provider) (*domain.APICredentials, error) {
	query := `
		SELECT id, profile_id, provider, client_id_enc, client_secret_enc, app_name, is_valid, last_error, last_tested_at, created_at, updated_at
		FROM user_api_credentials
		WHERE profile_id = $1 AND provider = $2
	`

	creds := &domain.APICredentials{}
	var providerStr string
	var lastError sql.NullString
	var lastTestedAt sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, profileID, string(provider)).Scan(
		&creds.ID,
		&creds.ProfileID,
		&providerStr,
		&creds.ClientIDEnc,
		&creds.ClientSecretEnc,
		&creds.AppName,
		&creds.IsValid,
		&lastError,
		&lastTestedAt,
		&creds.CreatedAt,
		&creds.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("api credentials for provider %s not found: %w", provider, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get api credentials: %w", err)
	}

	creds.Provider = domain.Provider(providerStr)
	if lastError.Valid {
		creds.LastError = &lastError.String
	}
	if lastTestedAt.Valid {
		creds.LastTestedAt = &lastTestedAt.Time
	}

	return creds, nil
}

// MarkTested records the outcome of a credential validation attempt
func (r *apiCredentialsRepository) MarkTested(ctx context.Context, profileID string, provider domain.Provider, valid bool, lastError *string) error {
	query := `
		UPDATE user_api_credentials
		SET is_valid = $3, last_error = $4, last_tested_at = $5, updated_at = $5
		WHERE profile_id = $1 AND provider = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, profileID, string(provider), valid, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark api credentials tested: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("api credentials for provider %s not found: %w", provider, ErrNotFound)
	}

	return nil
}

// Delete deletes BYOK credentials for a (profile, provider) pair
func (r *apiCredentialsRepository) Delete(ctx context.Context, profileID string, provider domain.Provider) error {
	query := `DELETE FROM user_api_credentials WHERE profile_id = $1 AND provider = $2`

	result, err := r.db.DB.ExecContext(ctx, query, profileID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete api credentials: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("api credentials for provider %s not found: %w", provider, ErrNotFound)
	}

	return nil
}
