package domain

import "fmt"

// Provider is a canonical provider key. Connections are always stored and
// looked up under the canonical key, never under an alias.
type Provider string

const (
	ProviderMeta     Provider = "meta"
	ProviderGoogle   Provider = "google"
	ProviderTikTok   Provider = "tiktok"
	ProviderDiscord  Provider = "discord"
	ProviderSnapchat Provider = "snapchat"
	ProviderTwitter  Provider = "twitter"
)

// ErrUnknownProvider is returned when a provider name cannot be resolved
var ErrUnknownProvider = fmt.Errorf("unknown provider")

// providerAliases maps user-facing platform names to canonical keys.
// Canonical keys map to themselves so resolution is idempotent.
var providerAliases = map[string]Provider{
	"meta":      ProviderMeta,
	"instagram": ProviderMeta,
	"facebook":  ProviderMeta,
	"google":    ProviderGoogle,
	"youtube":   ProviderGoogle,
	"tiktok":    ProviderTikTok,
	"discord":   ProviderDiscord,
	"snapchat":  ProviderSnapchat,
	"twitter":   ProviderTwitter,
	"x":         ProviderTwitter,
}

// ResolveProvider resolves a platform name or alias to its canonical provider key
func ResolveProvider(name string) (Provider, error) {
	provider, ok := providerAliases[name]
	if !ok {
		return "", fmt.Errorf("unsupported provider %q: %w", name, ErrUnknownProvider)
	}
	return provider, nil
}

// SupportedProviders returns all canonical provider keys
func SupportedProviders() []Provider {
	return []Provider{
		ProviderMeta,
		ProviderGoogle,
		ProviderTikTok,
		ProviderDiscord,
		ProviderSnapchat,
		ProviderTwitter,
	}
}

// DisplayName returns the user-facing platform name for a canonical key
func (p Provider) DisplayName() string {
	switch p {
	case ProviderMeta:
		return "Instagram / Facebook"
	case ProviderGoogle:
		return "YouTube"
	case ProviderTikTok:
		return "TikTok"
	case ProviderDiscord:
		return "Discord"
	case ProviderSnapchat:
		return "Snapchat"
	case ProviderTwitter:
		return "Twitter / X"
	default:
		return string(p)
	}
}

// String returns the canonical key
func (p Provider) String() string {
	return string(p)
}
