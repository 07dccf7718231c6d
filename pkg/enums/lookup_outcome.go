package enums

import "fmt"

// LookupOutcome tags the result of a calculated-price lookup.
type LookupOutcome string

const (
	LookupOutcomeFound          LookupOutcome = "found"
	LookupOutcomeChoiceRequired LookupOutcome = "choice_required"
	LookupOutcomeNotFound       LookupOutcome = "not_found"
)

var validLookupOutcomes = []LookupOutcome{
	LookupOutcomeFound,
	LookupOutcomeChoiceRequired,
	LookupOutcomeNotFound,
}

// String implements fmt.Stringer.
func (o LookupOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known LookupOutcome.
func (o LookupOutcome) IsValid() bool {
	for _, candidate := range validLookupOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseLookupOutcome converts raw input into a LookupOutcome.
func ParseLookupOutcome(value string) (LookupOutcome, error) {
	for _, candidate := range validLookupOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lookup outcome %q", value)
}
