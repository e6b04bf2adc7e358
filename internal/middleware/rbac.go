package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classgrid-api/internal/models"
	appErrors "github.com/noah-isme/classgrid-api/pkg/errors"
	"github.com/noah-isme/classgrid-api/pkg/response"
)

// RequireRoles only lets through callers holding one of the roles. ADMIN is
// always accepted.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	allowed[models.RoleAdmin] = struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CanRead accepts every known role.
func CanRead() gin.HandlerFunc {
	return RequireRoles(models.RoleScheduler, models.RoleViewer)
}

// CanSchedule accepts roles allowed to generate and persist schedules.
func CanSchedule() gin.HandlerFunc {
	return RequireRoles(models.RoleScheduler)
}
