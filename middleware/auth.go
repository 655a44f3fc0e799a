package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/models"
)

const identityKey = "identity"

// AuthRequired validates the bearer token and injects the caller identity
// into both the gin context and the request context.
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			Abort(c, apperr.Unauthenticated("authorization header required (Bearer <token>)"))
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		id, err := tokens.Verify(c.Request.Context(), tokenStr)
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
			Abort(c, apperr.Unauthenticated("%s", err.Error()))
			return
		case err != nil:
			Abort(c, apperr.Internal("middleware.AuthRequired", err))
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// CapabilityRequired lets the request through when the caller holds any of
// the listed capabilities.
func CapabilityRequired(caps ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			Abort(c, apperr.Unauthenticated("authentication required"))
			return
		}
		for _, cp := range caps {
			if id.Can(cp) {
				c.Next()
				return
			}
		}
		Abort(c, apperr.Forbidden("access denied: role %s lacks %s", id.Role, capsString(caps)))
	}
}

func capsString(caps []models.Capability) string {
	names := make([]string, len(caps))
	for i, cp := range caps {
		names[i] = cp.String()
	}
	return strings.Join(names, " or ")
}

// CurrentIdentity returns the identity stored by AuthRequired.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// GetUserID extracts the caller's user ID. Only valid behind AuthRequired.
func GetUserID(c *gin.Context) uint {
	id, _ := CurrentIdentity(c)
	return id.UserID
}
