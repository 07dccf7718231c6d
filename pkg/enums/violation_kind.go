package enums

// ViolationKind identifies which tier consistency rule failed.
type ViolationKind string

const (
	// ViolationCessionBelowCost: cession price lower than the item's base cost.
	ViolationCessionBelowCost ViolationKind = "cession_below_cost"
	// ViolationPublicBelowCessionVAT: public price lower than cession price plus VAT.
	ViolationPublicBelowCessionVAT ViolationKind = "public_below_cession_vat"
)

// String implements fmt.Stringer.
func (k ViolationKind) String() string {
	return string(k)
}
