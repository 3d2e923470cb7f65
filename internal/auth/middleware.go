package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// RequireAuth enforces bearer JWT tokens signed with HS256. Missing, malformed
// and invalid tokens all produce the same 401 response.
func RequireAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, signingKey, issuer)
		if !ok {
			abortAuth(c)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin is RequireAuth plus an admin role check. A non-admin caller
// receives the identical 401, not a distinct forbidden signal.
func RequireAdmin(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, signingKey, issuer)
		if !ok || !claims.IsAdmin {
			abortAuth(c)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// FromContext returns the claims stored by the middleware.
func FromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func parseBearer(c *gin.Context, signingKey, issuer string) (Claims, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return Claims{}, false
	}
	tokenStr := strings.TrimSpace(authz[len("bearer "):])
	claims, err := Parse(tokenStr, signingKey, issuer)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

func abortAuth(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
}
