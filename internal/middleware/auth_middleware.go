package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/pkg/jwt"
)

// UserContextKey is the key used to store operator context in gin.Context
const UserContextKey = "user"

// UserContext represents the authenticated operator context
type UserContext struct {
	OperatorID uuid.UUID
	Name       string
	Roles      []string
}

// AuthMiddleware creates a middleware that validates JWT tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, models.NewUnauthorizedError("Authorization header is required"))
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortWithError(c, models.NewUnauthorizedError("Authorization header format must be Bearer {token}"))
			return
		}
		tokenString := parts[1]

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			message := "Invalid or malformed token"
			if jwtService.IsTokenExpired(tokenString) {
				message = "Token has expired"
			}
			logger.WithFields(logrus.Fields{
				"path":  c.FullPath(),
				"error": err.Error(),
			}).Warn("Rejected bearer token")
			abortWithError(c, models.NewUnauthorizedError(message))
			return
		}

		c.Set(UserContextKey, &UserContext{
			OperatorID: claims.OperatorID,
			Name:       claims.Name,
			Roles:      claims.Roles,
		})

		c.Next()
	}
}

// RequireRole creates a middleware that checks if the operator has any of the required roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abortWithError(c, models.NewUnauthorizedError("Operator context not found"))
			return
		}

		for _, required := range roles {
			for _, role := range userCtx.Roles {
				if role == required {
					c.Next()
					return
				}
			}
		}

		abortWithError(c, models.NewForbiddenError("You don't have permission to access this resource"))
	}
}

// GetUserContext retrieves operator context from gin.Context
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}

	userCtx, ok := value.(*UserContext)
	return userCtx, ok
}

func abortWithError(c *gin.Context, appErr *models.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode(), appErr.Response())
}
