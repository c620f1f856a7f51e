package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRoles is the key for the user's role names in gin context.
	ContextUserRoles = "user_roles"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// JWT returns a middleware that validates an access token, rejects revoked
// tokens and sets user claims in context.
func JWT(jwtService *auth.JWTService, revoker *auth.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.ValidateAccess(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if revoker != nil {
			if revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID); err == nil && revoked {
				response.Unauthorized(c, "token revoked")
				c.Abort()
				return
			}
		}
		c.Set(auth.ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRoles, claims.Roles)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
