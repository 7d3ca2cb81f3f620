package domain

import "strings"

// Tier is a subscription level used to select rate-limit policy
type Tier string

const (
	TierFree    Tier = "FREE"
	TierCreator Tier = "CREATOR"
	TierPro     Tier = "PRO"
)

// ParseTier parses a tier claim, defaulting to FREE for unknown values
func ParseTier(s string) Tier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TierCreator):
		return TierCreator
	case string(TierPro):
		return TierPro
	default:
		return TierFree
	}
}

// String returns the tier name
func (t Tier) String() string {
	return string(t)
}
