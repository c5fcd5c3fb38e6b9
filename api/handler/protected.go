package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/recipescrape/api/middleware"
	"github.com/use-agent/recipescrape/auth"
	"github.com/use-agent/recipescrape/models"
)

// Protected returns a handler for GET /api/v1/protected that echoes the
// authenticated caller.
func Protected() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ProtectedResponse{
			Message: "This is protected data",
			User:    caller(c),
		})
	}
}

func caller(c *gin.Context) map[string]any {
	if v, ok := c.Get(middleware.KeyClaims); ok {
		claims := v.(*auth.Claims)
		user := map[string]any{"user": claims.User}
		if claims.IssuedAt != nil {
			user["iat"] = claims.IssuedAt.Unix()
		}
		if claims.ExpiresAt != nil {
			user["exp"] = claims.ExpiresAt.Unix()
		}
		return user
	}
	if key := c.GetString(middleware.KeyIdentity); key != "" {
		return map[string]any{"api_key": maskKey(key)}
	}
	return map[string]any{}
}

// maskKey keeps the first four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
