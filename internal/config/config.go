package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server     ServerConfig     `env:",prefix=SERVER_"`
	Postgres   PostgresConfig   `env:",prefix=POSTGRES_"`
	Redis      RedisConfig      `env:",prefix=REDIS_"`
	JWT        JWTConfig        `env:",prefix=JWT_"`
	Encryption EncryptionConfig `env:",prefix=ENCRYPTION_"`
	RateLimit  RateLimitConfig  `env:",prefix=RATE_LIMIT_"`
	Providers  ProvidersConfig  `env:",prefix=PROVIDER_"`
	Webhook    WebhookConfig    `env:",prefix=WEBHOOK_"`
	CORS       CORSConfig       `env:",prefix=CORS_"`
	Env        string           `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=oauth_service"`
	Password string `env:"PASSWORD,default=oauth_service_password"`
	DBName   string `env:"DB,default=oauth_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret      string   `env:"SECRET,required"`
	TokenExpiry Duration `env:"TOKEN_EXPIRY,default=15m"`
}

// EncryptionConfig holds the server-held secret protecting stored tokens.
// Losing or rotating the secret invalidates all stored tokens; every user
// must reconnect.
type EncryptionConfig struct {
	Secret string `env:"SECRET,required"`
}

// RateLimitConfig holds tier-indexed fixed-window rate limit policies
type RateLimitConfig struct {
	Backend string     `env:"BACKEND,default=memory"` // memory or redis
	Free    TierPolicy `env:",prefix=FREE_"`
	Creator TierPolicy `env:",prefix=CREATOR_"`
	Pro     TierPolicy `env:",prefix=PRO_"`
}

// TierPolicy is a (limit, window) pair for one subscription tier
type TierPolicy struct {
	Requests int      `env:"REQUESTS,default=10"`
	Window   Duration `env:"WINDOW,default=1m"`
}

// ProvidersConfig holds OAuth client credentials per provider. A provider
// with missing credentials is treated as not configured and fails closed.
type ProvidersConfig struct {
	Meta           OAuthClientConfig `env:",prefix=META_"`
	Google         OAuthClientConfig `env:",prefix=GOOGLE_"`
	TikTok         OAuthClientConfig `env:",prefix=TIKTOK_"`
	Discord        DiscordConfig     `env:",prefix=DISCORD_"`
	Snapchat       OAuthClientConfig `env:",prefix=SNAPCHAT_"`
	RefreshTimeout Duration          `env:"REFRESH_TIMEOUT,default=12s"`
}

// OAuthClientConfig is a client id/secret pair for one provider app
type OAuthClientConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Configured reports whether both credential halves are present
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DiscordConfig extends the client pair with the bot token Discord requires
// for guild-level API calls
type DiscordConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	BotToken     string `env:"BOT_TOKEN"`
}

// Configured reports whether both credential halves are present
func (c DiscordConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// WebhookConfig holds secrets and URLs for provider-initiated webhooks
type WebhookConfig struct {
	MetaAppSecret     string `env:"META_APP_SECRET"`
	DeletionStatusURL string `env:"DELETION_STATUS_URL,default=https://app.repurpost.com/data-deletion"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Secrets short enough to brute-force are treated as absent
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if len(config.Encryption.Secret) < 32 {
		return nil, fmt.Errorf("ENCRYPTION_SECRET must be at least 32 characters long")
	}

	if config.RateLimit.Backend != "memory" && config.RateLimit.Backend != "redis" {
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be either memory or redis, got %q", config.RateLimit.Backend)
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
