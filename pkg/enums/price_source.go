package enums

import "fmt"

// PriceSource records which branch of the resolver produced a selection.
type PriceSource string

const (
	PriceSourceCustomer     PriceSource = "customer"
	PriceSourceTierChoice   PriceSource = "tier_choice"
	PriceSourceTierFallback PriceSource = "tier_fallback"
	PriceSourceManual       PriceSource = "manual"
	PriceSourceUnpriced     PriceSource = "unpriced"
)

var validPriceSources = []PriceSource{
	PriceSourceCustomer,
	PriceSourceTierChoice,
	PriceSourceTierFallback,
	PriceSourceManual,
	PriceSourceUnpriced,
}

// String implements fmt.Stringer.
func (s PriceSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PriceSource.
func (s PriceSource) IsValid() bool {
	for _, candidate := range validPriceSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceSource converts raw input into a PriceSource.
func ParsePriceSource(value string) (PriceSource, error) {
	for _, candidate := range validPriceSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price source %q", value)
}
