package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/order-assistant/internal/auth"
	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/identity"
)

const UserIDKey = "user_id"

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, secret) {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthOptional attaches the identity when a valid token is present and
// lets anonymous requests through.
func AuthOptional(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, secret)
		c.Next()
	}
}

func authenticate(c *gin.Context, secret string) bool {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return false
	}
	uid, claims, err := auth.ParseJWT(strings.TrimSpace(token), secret)
	if err != nil {
		return false
	}
	c.Set(UserIDKey, uid)
	who := identity.Identity{
		ID:    strconv.FormatUint(uid, 10),
		Name:  claims.Name,
		Email: claims.Email,
	}
	c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), who))
	return true
}
