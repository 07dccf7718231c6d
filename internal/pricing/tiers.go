package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinTier = 1
	MaxTier = 6
)

// ValidTier reports whether n is one of the six list tiers.
func ValidTier(n int) bool {
	return n >= MinTier && n <= MaxTier
}

// PriceTier is one rung of an item's six-tier ladder.
type PriceTier struct {
	Number           int             `json:"tier"`
	CessionMarkupPct decimal.Decimal `json:"cession_markup_pct"`
	CessionPrice     decimal.Decimal `json:"cession_price"`
	PublicMarkupPct  decimal.Decimal `json:"public_markup_pct"`
	PublicPrice      decimal.Decimal `json:"public_price"`
	ValidFrom        time.Time       `json:"valid_from"`
	ValidTo          *time.Time      `json:"valid_to,omitempty"`
}

// ActiveAt reports whether the tier's validity window covers t.
func (t PriceTier) ActiveAt(at time.Time) bool {
	if !t.ValidFrom.IsZero() && at.Before(t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && at.After(*t.ValidTo) {
		return false
	}
	return true
}

// TierTable indexes an already-loaded tier ladder. It has no mutators.
type TierTable struct {
	itemID uuid.UUID
	tiers  map[int]PriceTier
}

// NewTierTable validates and indexes tiers for one item.
func NewTierTable(itemID uuid.UUID, tiers []PriceTier) (*TierTable, error) {
	indexed := make(map[int]PriceTier, len(tiers))
	for _, tier := range tiers {
		if err := checkTier(tier); err != nil {
			return nil, err
		}
		if _, dup := indexed[tier.Number]; dup {
			return nil, invalidInput("tier %d appears more than once", tier.Number)
		}
		indexed[tier.Number] = tier
	}
	return &TierTable{itemID: itemID, tiers: indexed}, nil
}

func checkTier(tier PriceTier) error {
	if !ValidTier(tier.Number) {
		return invalidInput("tier number must be between %d and %d, got %d", MinTier, MaxTier, tier.Number)
	}
	if tier.ValidTo != nil && tier.ValidTo.Before(tier.ValidFrom) {
		return invalidInput("tier %d valid_to precedes valid_from", tier.Number)
	}
	return nil
}

func (t *TierTable) ItemID() uuid.UUID {
	if t == nil {
		return uuid.Nil
	}
	return t.itemID
}

// Tier returns the tier with the given number, if loaded.
func (t *TierTable) Tier(n int) (PriceTier, bool) {
	if t == nil {
		return PriceTier{}, false
	}
	tier, ok := t.tiers[n]
	return tier, ok
}

// Tiers lists the loaded tiers ordered by tier number.
func (t *TierTable) Tiers() []PriceTier {
	if t == nil {
		return nil
	}
	out := make([]PriceTier, 0, len(t.tiers))
	for _, tier := range t.tiers {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (t *TierTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.tiers)
}

// Options projects the table into the choices offered by the tier chooser.
func (t *TierTable) Options() []TierOption {
	tiers := t.Tiers()
	options := make([]TierOption, 0, len(tiers))
	for _, tier := range tiers {
		options = append(options, TierOption{
			Tier:         tier.Number,
			CessionPrice: tier.CessionPrice,
			PublicPrice:  tier.PublicPrice,
		})
	}
	return options
}
