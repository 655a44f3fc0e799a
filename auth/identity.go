package auth

import (
	"context"
	"time"

	"food-delivery-backend/models"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    uint
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// Can reports whether the caller's role grants the capability.
func (id Identity) Can(c models.Capability) bool {
	return id.Role.Can(c)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
