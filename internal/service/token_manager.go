package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/repurpost/oauth-service/internal/provider"
	"github.com/repurpost/oauth-service/internal/repository"
	"github.com/repurpost/oauth-service/internal/utils"
	"github.com/repurpost/oauth-service/pkg/observability"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshMargin is the safety window: tokens expiring within it are
	// refreshed eagerly so adapters never receive an about-to-expire token
	refreshMargin = 5 * time.Minute

	// refreshAttempts bounds retries on transient refresh failures.
	// Terminal provider rejections are never retried.
	refreshAttempts = 3

	refreshBackoffBase = 250 * time.Millisecond
)

// tokenManager implements TokenManager
type tokenManager struct {
	connRepo  repository.ConnectionRepository
	credsRepo repository.APICredentialsRepository
	refresher Refresher
	cipher    *utils.TokenCipher
	logger    *zap.Logger
	metrics   *observability.Metrics

	// refreshGroup de-duplicates concurrent refreshes per (profile, provider)
	// pair: the second caller awaits the first caller's in-flight result
	// instead of issuing a duplicate refresh, which would invalidate the
	// rotated refresh token with some providers.
	refreshGroup singleflight.Group
}

// NewTokenManager creates a new token manager
func NewTokenManager(
	connRepo repository.ConnectionRepository,
	credsRepo repository.APICredentialsRepository,
	refresher Refresher,
	cipher *utils.TokenCipher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) TokenManager {
	return &tokenManager{
		connRepo:  connRepo,
		credsRepo: credsRepo,
		refresher: refresher,
		cipher:    cipher,
		logger:    logger,
		metrics:   metrics,
	}
}

// GetValidAccessToken returns a currently valid access token for the
// (profile, provider) pair, refreshing transparently if needed
func (m *tokenManager) GetValidAccessToken(ctx context.Context, profileID, providerName string) (string, error) {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return "", err
	}

	conn, err := m.loadConnection(ctx, profileID, p)
	if err != nil {
		return "", err
	}

	// Non-expiring tokens and tokens outside the safety margin are served
	// straight from the store
	if !conn.NeedsRefresh(time.Now(), refreshMargin) {
		accessToken, err := m.cipher.Decrypt(conn.AccessTokenEnc)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt access token: %w", err)
		}
		return accessToken, nil
	}

	key := profileID + ":" + p.String()
	token, err, _ := m.refreshGroup.Do(key, func() (interface{}, error) {
		return m.refreshConnection(ctx, profileID, p)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// CheckConnectionHealth performs a cheap local health check; it does not
// call the provider
func (m *tokenManager) CheckConnectionHealth(ctx context.Context, profileID, providerName string) (*HealthStatus, error) {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return nil, err
	}

	conn, err := m.connRepo.Get(ctx, profileID, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("%s is not connected", p.DisplayName()),
			}, nil
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	if !conn.IsActive {
		return &HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("%s connection needs to be reconnected", p.DisplayName()),
		}, nil
	}

	if conn.IsExpired(time.Now()) {
		return &HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("%s access token has expired", p.DisplayName()),
		}, nil
	}

	return &HealthStatus{
		Healthy: true,
		Message: fmt.Sprintf("%s is connected", p.DisplayName()),
	}, nil
}

// GetConnections returns token-free connection summaries for a profile
func (m *tokenManager) GetConnections(ctx context.Context, profileID string) ([]ConnectionSummary, error) {
	conns, err := m.connRepo.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	summaries := make([]ConnectionSummary, 0, len(conns))
	for _, conn := range conns {
		summaries = append(summaries, ConnectionSummary{
			Platform:    conn.Provider.String(),
			DisplayName: conn.Provider.DisplayName(),
			Username:    utils.MaskUsername(usernameFromMetadata(conn.Metadata)),
			ConnectedAt: conn.CreatedAt,
			ExpiresAt:   conn.ExpiresAt,
			IsActive:    conn.IsActive,
		})
	}

	return summaries, nil
}

// SaveConnection encrypts token material from an OAuth callback and stores it
func (m *tokenManager) SaveConnection(ctx context.Context, profileID, providerName string, params SaveConnectionParams) error {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return err
	}

	if params.AccessToken == "" {
		return fmt.Errorf("access token is required: %w", ErrValidation)
	}

	accessEnc, err := m.cipher.Encrypt(params.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var refreshEnc string
	if params.RefreshToken != "" {
		refreshEnc, err = m.cipher.Encrypt(params.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	conn := &domain.Connection{
		ProfileID:       profileID,
		Provider:        p,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		ExpiresAt:       params.ExpiresAt,
		Scopes:          params.Scopes,
		Metadata:        params.Metadata,
		IsActive:        true,
	}

	if err := m.connRepo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	m.logger.Info("Connection saved",
		zap.String("profile_id", profileID),
		zap.String("provider", p.String()),
	)

	return nil
}

// Disconnect deletes the connection for a (profile, provider) pair
func (m *tokenManager) Disconnect(ctx context.Context, profileID, providerName string) error {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return err
	}

	if err := m.connRepo.Delete(ctx, profileID, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", p, ErrNotConnected)
		}
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	return nil
}

// DisconnectAll deletes every connection for a profile. Used by account
// removal and data-deletion compliance flows.
func (m *tokenManager) DisconnectAll(ctx context.Context, profileID string) error {
	if err := m.connRepo.DeleteAllForProfile(ctx, profileID); err != nil {
		return fmt.Errorf("failed to disconnect all providers: %w", err)
	}
	return nil
}

// DisconnectByProviderUser deletes connections matching a provider-side user
// id, as delivered by a data-deletion compliance webhook
func (m *tokenManager) DisconnectByProviderUser(ctx context.Context, providerName, providerUserID string) (int64, error) {
	p, err := domain.ResolveProvider(providerName)
	if err != nil {
		return 0, err
	}

	deleted, err := m.connRepo.DeleteByProviderUser(ctx, p, providerUserID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete connections for provider user: %w", err)
	}

	m.logger.Info("Connections removed by provider deletion request",
		zap.String("provider", p.String()),
		zap.Int64("deleted", deleted),
	)

	return deleted, nil
}

func (m *tokenManager) loadConnection(ctx context.Context, profileID string, p domain.Provider) (*domain.Connection, error) {
	conn, err := m.connRepo.Get(ctx, profileID, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotConnected)
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	if !conn.IsActive {
		return nil, fmt.Errorf("%s: %w", p, ErrReauthRequired)
	}

	return conn, nil
}

// refreshConnection runs inside the singleflight group. It re-reads the
// connection so a caller that queued behind a completed refresh gets the
// fresh token without a second provider round-trip.
func (m *tokenManager) refreshConnection(ctx context.Context, profileID string, p domain.Provider) (string, error) {
	conn, err := m.loadConnection(ctx, profileID, p)
	if err != nil {
		return "", err
	}

	if !conn.NeedsRefresh(time.Now(), refreshMargin) {
		return m.cipher.Decrypt(conn.AccessTokenEnc)
	}

	if conn.RefreshTokenEnc == "" {
		// Expired with nothing to refresh with
		if err := m.connRepo.SetActive(ctx, profileID, p, false); err != nil {
			m.logger.Error("Failed to mark connection inactive", zap.Error(err))
		}
		return "", fmt.Errorf("%s token expired and no refresh token is stored: %w", p, ErrReauthRequired)
	}

	refreshToken, err := m.cipher.Decrypt(conn.RefreshTokenEnc)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token, err := m.refreshWithRetry(ctx, profileID, p, refreshToken)
	if err != nil {
		return "", err
	}

	if err := m.persistRefreshedToken(ctx, conn, token); err != nil {
		return "", err
	}

	m.metrics.RecordTokenRefresh(ctx, p.String(), "success")
	m.logger.Info("Access token refreshed",
		zap.String("profile_id", profileID),
		zap.String("provider", p.String()),
		zap.Time("expires_at", token.Expiry),
	)

	return token.AccessToken, nil
}

func (m *tokenManager) refreshWithRetry(ctx context.Context, profileID string, p domain.Provider, refreshToken string) (*oauth2.Token, error) {
	var lastErr error

	for attempt := 0; attempt < refreshAttempts; attempt++ {
		if attempt > 0 {
			backoff := refreshBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("refresh cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		token, err := m.doRefresh(ctx, profileID, p, refreshToken)
		if err == nil {
			return token, nil
		}
		lastErr = err

		// Missing BYOK credentials already carry the re-auth sentinel and
		// cannot be retried into existence
		if errors.Is(err, ErrReauthRequired) {
			return nil, err
		}

		if provider.IsTerminal(err) {
			// The provider rejected the grant; retrying cannot help and the
			// user has to reconnect
			m.metrics.RecordTokenRefresh(ctx, p.String(), "reauth_required")
			if markErr := m.connRepo.SetActive(ctx, profileID, p, false); markErr != nil {
				m.logger.Error("Failed to mark connection inactive",
					zap.String("provider", p.String()),
					zap.Error(markErr),
				)
			}
			return nil, fmt.Errorf("%s rejected the refresh token, reconnect at /connect/%s: %w", p.DisplayName(), p, ErrReauthRequired)
		}
	}

	m.metrics.RecordTokenRefresh(ctx, p.String(), "transient_failure")
	return nil, fmt.Errorf("failed to refresh %s token after %d attempts: %v: %w", p, refreshAttempts, lastErr, ErrProviderUnavailable)
}

// doRefresh picks the app credentials for the provider: the shared registry
// app for first-party providers, the user's own app for BYOK providers.
func (m *tokenManager) doRefresh(ctx context.Context, profileID string, p domain.Provider, refreshToken string) (*oauth2.Token, error) {
	if p != domain.ProviderTwitter {
		return m.refresher.Refresh(ctx, p, refreshToken)
	}

	creds, err := m.credsRepo.Get(ctx, profileID, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s requires user-supplied api credentials: %w", p, ErrReauthRequired)
		}
		return nil, fmt.Errorf("failed to load api credentials: %w", err)
	}

	clientID, err := m.cipher.Decrypt(creds.ClientIDEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt client id: %w", err)
	}
	clientSecret, err := m.cipher.Decrypt(creds.ClientSecretEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt client secret: %w", err)
	}

	token, err := m.refresher.RefreshWithClient(ctx, p, clientID, clientSecret, refreshToken)
	if err != nil && provider.IsTerminal(err) {
		msg := err.Error()
		if markErr := m.credsRepo.MarkTested(ctx, profileID, p, false, &msg); markErr != nil {
			m.logger.Error("Failed to mark api credentials invalid", zap.Error(markErr))
		}
	}
	return token, err
}

// persistRefreshedToken stores the rotated token material in a single upsert
// before the new access token is returned, so a concurrent reader sees
// either the old or the new row, never a partial update
func (m *tokenManager) persistRefreshedToken(ctx context.Context, conn *domain.Connection, token *oauth2.Token) error {
	accessEnc, err := m.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	conn.AccessTokenEnc = accessEnc

	// Providers that rotate refresh tokens return a new one; others omit it
	// and the stored one stays valid
	if token.RefreshToken != "" {
		refreshEnc, err := m.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		conn.RefreshTokenEnc = refreshEnc
	}

	if token.Expiry.IsZero() {
		conn.ExpiresAt = nil
	} else {
		expiry := token.Expiry
		conn.ExpiresAt = &expiry
	}
	conn.IsActive = true

	if err := m.connRepo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return nil
}

// usernameFromMetadata pulls a display identity out of the opaque provider
// metadata blob, best effort
func usernameFromMetadata(metadata []byte) string {
	if len(metadata) == 0 {
		return ""
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(metadata, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"username", "name", "display_name", "channel_title"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
