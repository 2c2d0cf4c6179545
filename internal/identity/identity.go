// Package identity carries the signed-in shopper through request contexts.
package identity

import (
	"context"
	"strings"
)

type Identity struct {
	ID    string
	Name  string
	Email string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || strings.TrimSpace(id.ID) == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextSource resolves the current identity from the request context,
// which the auth middleware populates from the bearer token.
type ContextSource struct{}

func (ContextSource) Current(ctx context.Context) (Identity, bool) {
	return FromContext(ctx)
}
