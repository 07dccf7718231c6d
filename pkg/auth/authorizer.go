package auth

import (
	"strings"

	"github.com/angelmondragon/listini-pricing/pkg/config"
)

// Authorizer answers capability questions for the acting operator. Every
// price-editing path asks the same question through it.
type Authorizer interface {
	CanEditPrices() bool
}

// PriceEditPolicy decides who may edit prices: holders of the named permission,
// or users above the legacy level threshold when one is configured.
type PriceEditPolicy struct {
	Permission     string
	LegacyMinLevel int
}

func PolicyFromConfig(cfg config.PricingConfig) PriceEditPolicy {
	return PriceEditPolicy{
		Permission:     strings.ToUpper(strings.TrimSpace(cfg.EditPermission)),
		LegacyMinLevel: cfg.LegacyEditMinLevel,
	}
}

// Allows evaluates the policy for a level and permission set.
func (p PriceEditPolicy) Allows(level int, permissions []string) bool {
	if p.Permission != "" {
		for _, perm := range permissions {
			if strings.EqualFold(perm, p.Permission) {
				return true
			}
		}
	}
	// legacy threshold is strict: level 60 is not enough when the minimum is 60
	return p.LegacyMinLevel > 0 && level > p.LegacyMinLevel
}

// For binds the policy to a parsed token.
func (p PriceEditPolicy) For(claims *AccessTokenClaims) Authorizer {
	if claims == nil {
		return Deny
	}
	return claimsAuthorizer{allowed: p.Allows(claims.Level, claims.Permissions)}
}

type claimsAuthorizer struct {
	allowed bool
}

func (a claimsAuthorizer) CanEditPrices() bool { return a.allowed }

type staticAuthorizer bool

func (s staticAuthorizer) CanEditPrices() bool { return bool(s) }

var (
	// Deny refuses every capability. It stands in for anonymous callers.
	Deny Authorizer = staticAuthorizer(false)
	// AllowAll grants every capability. Intended for tooling and tests.
	AllowAll Authorizer = staticAuthorizer(true)
)

// CanEditPrices is nil-safe: a missing authorizer never grants the capability.
func CanEditPrices(a Authorizer) bool {
	return a != nil && a.CanEditPrices()
}
