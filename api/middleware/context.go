package middleware

import (
	"context"

	"github.com/angelmondragon/listini-pricing/pkg/auth"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxAuthorizer contextKey = "authorizer"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// AuthorizerFromContext never returns nil; unauthenticated requests get auth.Deny.
func AuthorizerFromContext(ctx context.Context) auth.Authorizer {
	if ctx == nil {
		return auth.Deny
	}
	if v, ok := ctx.Value(ctxAuthorizer).(auth.Authorizer); ok && v != nil {
		return v
	}
	return auth.Deny
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithAuthorizer injects the caller's capabilities for downstream handlers.
func WithAuthorizer(ctx context.Context, authz auth.Authorizer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAuthorizer, authz)
}
