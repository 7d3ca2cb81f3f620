package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/repurpost/oauth-service/internal/config"
	"github.com/repurpost/oauth-service/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNotConfigured is returned when a provider's client credentials are
// absent from the environment. The feature fails closed instead of degrading.
var ErrNotConfigured = errors.New("provider is not configured")

// tokenEndpoints holds the token URL and auth style per provider. Snapchat
// and TikTok reject client credentials in the Authorization header, so they
// are forced to the params style.
var tokenEndpoints = map[domain.Provider]oauth2.Endpoint{
	domain.ProviderMeta: {
		TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
	},
	domain.ProviderGoogle: {
		TokenURL: "https://oauth2.googleapis.com/token",
	},
	domain.ProviderTikTok: {
		TokenURL:  "https://open.tiktokapis.com/v2/oauth/token/",
		AuthStyle: oauth2.AuthStyleInParams,
	},
	domain.ProviderDiscord: {
		TokenURL: "https://discord.com/api/oauth2/token",
	},
	domain.ProviderSnapchat: {
		TokenURL:  "https://accounts.snapchat.com/accounts/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	},
	domain.ProviderTwitter: {
		TokenURL: "https://api.twitter.com/2/oauth2/token",
	},
}

// Registry holds the OAuth client configuration for every configured
// provider and performs token refresh against provider token endpoints.
// Twitter is absent from the static registry: it is BYOK-only and refreshed
// through RefreshWithClient using user-supplied credentials.
type Registry struct {
	configs map[domain.Provider]*oauth2.Config
	timeout time.Duration
	logger  *zap.Logger
}

// NewRegistry builds a registry from environment configuration. Providers
// with missing credentials are left out and later fail with ErrNotConfigured.
func NewRegistry(cfg config.ProvidersConfig, logger *zap.Logger) *Registry {
	configs := make(map[domain.Provider]*oauth2.Config)

	add := func(p domain.Provider, clientID, clientSecret string) {
		if clientID == "" || clientSecret == "" {
			logger.Warn("Provider credentials missing, provider disabled",
				zap.String("provider", p.String()))
			return
		}
		configs[p] = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     tokenEndpoints[p],
		}
	}

	add(domain.ProviderMeta, cfg.Meta.ClientID, cfg.Meta.ClientSecret)
	add(domain.ProviderGoogle, cfg.Google.ClientID, cfg.Google.ClientSecret)
	add(domain.ProviderTikTok, cfg.TikTok.ClientID, cfg.TikTok.ClientSecret)
	add(domain.ProviderDiscord, cfg.Discord.ClientID, cfg.Discord.ClientSecret)
	add(domain.ProviderSnapchat, cfg.Snapchat.ClientID, cfg.Snapchat.ClientSecret)

	timeout := cfg.RefreshTimeout.Duration
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &Registry{
		configs: configs,
		timeout: timeout,
		logger:  logger,
	}
}

// Configured reports whether the provider has app-level credentials
func (r *Registry) Configured(p domain.Provider) bool {
	_, ok := r.configs[p]
	return ok
}

// Refresh exchanges a refresh token for a fresh access token. The returned
// token may carry a rotated refresh token (TikTok and Snapchat rotate on
// every refresh); callers must persist whatever comes back.
func (r *Registry) Refresh(ctx context.Context, p domain.Provider, refreshToken string) (*oauth2.Token, error) {
	conf, ok := r.configs[p]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", p, ErrNotConfigured)
	}
	return r.refresh(ctx, p, conf, refreshToken)
}

// RefreshWithClient refreshes using caller-supplied client credentials.
// Used for BYOK providers where the user brings their own developer app.
func (r *Registry) RefreshWithClient(ctx context.Context, p domain.Provider, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     tokenEndpoints[p],
	}
	return r.refresh(ctx, p, conf, refreshToken)
}

func (r *Registry) refresh(ctx context.Context, p domain.Provider, conf *oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: r.timeout})

	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		r.logger.Warn("Token refresh failed",
			zap.String("provider", p.String()),
			zap.Bool("terminal", IsTerminal(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to refresh %s token: %w", p, err)
	}

	return token, nil
}

// IsTerminal reports whether a refresh failure is a provider rejection
// (revoked or invalid grant) rather than a transient fault. Terminal
// failures must never be retried; the user has to re-authenticate.
func IsTerminal(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response == nil {
			return false
		}
		code := retrieveErr.Response.StatusCode
		return code >= 400 && code < 500
	}
	return false
}
