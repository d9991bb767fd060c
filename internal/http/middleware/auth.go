// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication. The middleware validates
// the Authorization header, resolves the token into an identity, and stores
// the user id and role in the Gin context for downstream handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity is the resolved principal of an authenticated request.
type Identity struct {
	UserID string
	Role   string
}

// TokenParser validates a raw bearer token and returns the identity it
// carries. Implementations must reject expired or tampered tokens.
type TokenParser interface {
	Identify(raw string) (Identity, error)
}

// TokenParserFunc adapts a plain function to the TokenParser interface.
type TokenParserFunc func(raw string) (Identity, error)

// Identify calls f.
func (f TokenParserFunc) Identify(raw string) (Identity, error) { return f(raw) }

// RequireAuth returns middleware that enforces a valid bearer token. On
// success it sets "userID" and "userRole" in the Gin context; on failure it
// aborts with a 401 JSON envelope matching the handlers' error shape.
//
// If roles is non-empty, the identity's role must additionally be one of
// them, otherwise the request is rejected with 403.
func RequireAuth(parser TokenParser, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		id, err := parser.Identify(raw)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[id.Role]; !ok {
				abortAuth(c, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
		}
		c.Set("userID", id.UserID)
		c.Set("userRole", id.Role)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// The scheme comparison is case-insensitive; an empty result means absent.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": asString(rid),
		"code":       code,
		"message":    msg,
	})
}
