// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventra/eventra-backend/internal/utils"
)

// AuthRequired validates the bearer token and stores the actor identity in
// the request context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authorization required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.UnauthorizedResponse(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("actor_id", claims.ActorID)
		c.Set("actor_type", claims.ActorType)
		c.Set("organization_id", claims.OrganizationID)
		c.Next()
	}
}

// OptionalAuth attaches the actor identity when a valid token is present but
// lets anonymous requests through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := utils.ValidateJWT(parts[1]); err == nil {
				c.Set("actor_id", claims.ActorID)
				c.Set("actor_type", claims.ActorType)
				c.Set("organization_id", claims.OrganizationID)
			}
		}
		c.Next()
	}
}

func requireActorType(c *gin.Context, want string) bool {
	actorType, ok := utils.GetActorTypeFromContext(c)
	if !ok || actorType != want {
		utils.ForbiddenResponse(c, "Insufficient permissions")
		c.Abort()
		return false
	}
	return true
}

// SellerRequired allows only seller tokens past.
func SellerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireActorType(c, utils.ActorTypeSeller) {
			return
		}
		c.Next()
	}
}

// OrganizationRequired allows only organization tokens past.
func OrganizationRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireActorType(c, utils.ActorTypeOrganization) {
			return
		}
		c.Next()
	}
}
