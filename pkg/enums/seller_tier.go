package enums

import "fmt"

// SellerTier maps to the seller_tier enum in Postgres. Sellers without a
// recognized tier are scheduled with the conservative default delays, so
// parsing failures are not fatal to fan-out.
type SellerTier string

const (
	SellerTierBasic      SellerTier = "basic"
	SellerTierPremium    SellerTier = "premium"
	SellerTierEnterprise SellerTier = "enterprise"
)

var validSellerTiers = []SellerTier{SellerTierBasic, SellerTierPremium, SellerTierEnterprise}

// IsValid checks whether the given tier matches the canonical enum.
func (t SellerTier) IsValid() bool {
	for _, candidate := range validSellerTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSellerTier converts raw strings into SellerTier.
func ParseSellerTier(value string) (SellerTier, error) {
	for _, candidate := range validSellerTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller tier %q", value)
}
