package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cybercon/speaker-portal/internal/audit"
	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// RequireRole returns a middleware that allows only users holding at least one
// of the given roles. Denials are written to the audit log.
func RequireRole(auditRepo *audit.Repository, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := auth.ClaimsFrom(c)
		if claims == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		for _, r := range claims.Roles {
			if _, ok := allowed[r]; ok {
				c.Next()
				return
			}
		}
		if auditRepo != nil {
			auditRepo.Record(c.Request.Context(), audit.Entry{
				UserID:       &claims.UserID,
				Action:       "access.denied",
				ResourceType: "endpoint",
				ResourceID:   c.Request.Method + " " + c.FullPath(),
				Details: map[string]interface{}{
					"required_roles": strings.Join(roles, ","),
					"user_roles":     strings.Join(claims.Roles, ","),
				},
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
