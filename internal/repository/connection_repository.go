package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/pkg/database"
)

// connectionRepository implements ConnectionRepository interface
type connectionRepository struct {
	db *database.Postgres
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.Postgres) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert creates or replaces the connection for a (profile, provider) pair.
// Last write wins: refresh and re-auth both land here, so a concurrent reader
// always sees either the old row or the new row, never a partial update.
func (r *connectionRepository) Upsert(ctx context.Context, conn *domain.Connection) error {
	query := `
		INSERT INTO oauth_connections
			(id, profile_id, provider, access_token_enc, refresh_token_enc, expires_at, scopes, metadata, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (profile_id, provider) DO UPDATE SET
			access_token_enc  = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			expires_at        = EXCLUDED.expires_at,
			scopes            = EXCLUDED.scopes,
			metadata          = EXCLUDED.metadata,
			is_active         = EXCLUDED.is_active,
			updated_at        = EXCLUDED.updated_at
	`

	// Generate UUID if not provided
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	metadata := conn.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		conn.ID,
		conn.ProfileID,
		string(conn.Provider),
		conn.AccessTokenEnc,
		conn.RefreshTokenEnc,
		conn.ExpiresAt,
		pq.Array(conn.Scopes),
		metadata,
		conn.IsActive,
		conn.CreatedAt,
		conn.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// Get retrieves the connection for a (profile, provider) pair
func (r *connectionRepository) Get(ctx context.Context, profileID string, provider domain.Provider) (*domain.Connection, error) {
	query := `
		SELECT id, profile_id, provider, access_token_enc, refresh_token_enc, expires_at, scopes, metadata, is_active, created_at, updated_at
		FROM oauth_connections
		WHERE profile_id = $1 AND provider = $2
	`

	conn, err := scanConnection(r.db.DB.QueryRowContext(ctx, query, profileID, string(provider)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("connection for provider %s not found: %w", provider, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, nil
}

// GetByProfile retrieves all connections for a profile
func (r *connectionRepository) GetByProfile(ctx context.Context, profileID string) ([]*domain.Connection, error) {
	query := `
		SELECT id, profile_id, provider, access_token_enc, refresh_token_enc, expires_at, scopes, metadata, is_active, created_at, updated_at
		FROM oauth_connections
		WHERE profile_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connections by profile id: %w", err)
	}
	defer rows.Close()

	var conns []*domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}

	return conns, nil
}

// SetActive flips the active flag for a connection
func (r *connectionRepository) SetActive(ctx context.Context, profileID string, provider domain.Provider, active bool) error {
	query := `
		UPDATE oauth_connections
		SET is_active = $3, updated_at = $4
		WHERE profile_id = $1 AND provider = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, profileID, string(provider), active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update connection active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("connection for provider %s not found: %w", provider, ErrNotFound)
	}

	return nil
}

// Delete deletes the connection for a (profile, provider) pair
func (r *connectionRepository) Delete(ctx context.Context, profileID string, provider domain.Provider) error {
	query := `DELETE FROM oauth_connections WHERE profile_id = $1 AND provider = $2`

	result, err := r.db.DB.ExecContext(ctx, query, profileID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("connection for provider %s not found: %w", provider, ErrNotFound)
	}

	return nil
}

// DeleteAllForProfile deletes all connections for a profile. Used by
// account-removal and data-deletion compliance flows; deleting zero rows is
// not an error there.
func (r *connectionRepository) DeleteAllForProfile(ctx context.Context, profileID string) error {
	query := `DELETE FROM oauth_connections WHERE profile_id = $1`

	_, err := r.db.DB.ExecContext(ctx, query, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete connections for profile: %w", err)
	}

	return nil
}

// DeleteByProviderUser deletes connections matching a provider-side user id,
// as reported by a data-deletion webhook. The id lives inside the metadata
// blob because the manager itself never interprets provider identities.
func (r *connectionRepository) DeleteByProviderUser(ctx context.Context, provider domain.Provider, providerUserID string) (int64, error) {
	query := `
		DELETE FROM oauth_connections
		WHERE provider = $1 AND metadata->>'user_id' = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, string(provider), providerUserID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete connections by provider user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	conn := &domain.Connection{}
	var provider string
	var expiresAt sql.NullTime
	var scopes pq.StringArray

	err := row.Scan(
		&conn.ID,
		&conn.ProfileID,
		&provider,
		&conn.AccessTokenEnc,
		&conn.RefreshTokenEnc,
		&expiresAt,
		&scopes,
		&conn.Metadata,
		&conn.IsActive,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conn.Provider = domain.Provider(provider)
	conn.Scopes = scopes
	if expiresAt.Valid {
		conn.ExpiresAt = &expiresAt.Time
	}

	return conn, nil
}
