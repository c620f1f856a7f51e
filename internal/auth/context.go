package auth

import "github.com/gin-gonic/gin"

// ContextClaims is the gin context key the JWT middleware stores claims under.
const ContextClaims = "claims"

// ClaimsFrom returns the authenticated claims set by the JWT middleware, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func claimsFrom(c *gin.Context) *Claims { return ClaimsFrom(c) }
