package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/recipescrape/auth"
	"github.com/use-agent/recipescrape/models"
)

// Context keys set by Auth.
const (
	// KeyIdentity is the rate-limit identity: the API key, or "user:<name>"
	// for bearer tokens.
	KeyIdentity = "api_key"
	// KeyClaims holds *auth.Claims when the caller used a bearer token.
	KeyClaims = "claims"
)

// TokenVerifier validates bearer tokens. *auth.Issuer implements it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth returns authentication middleware accepting static API keys and,
// when verifier is non-nil, signed bearer tokens.
//
// Supported header styles:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//	Authorization: Bearer <token>
//
// With no API keys and no verifier the middleware is a no-op (open access).
func Auth(apiKeys []string, verifier TokenVerifier) gin.HandlerFunc {
	keySet := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keySet[k] = struct{}{}
		}
	}
	if len(keySet) == 0 && verifier == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		cred, bearer := extractCredential(c)
		if cred == "" {
			unauthorized(c, "missing credentials: provide X-API-Key header or Authorization: Bearer <key|token>")
			return
		}

		if _, ok := keySet[cred]; ok {
			c.Set(KeyIdentity, cred)
			c.Next()
			return
		}

		if bearer && verifier != nil && auth.LooksLikeToken(cred) {
			claims, err := verifier.Verify(cred)
			if err == nil {
				c.Set(KeyIdentity, "user:"+claims.User)
				c.Set(KeyClaims, claims)
				c.Next()
				return
			}
			if errors.Is(err, auth.ErrExpiredToken) {
				unauthorized(c, "token expired")
				return
			}
			unauthorized(c, "invalid token")
			return
		}

		unauthorized(c, "invalid API key")
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}

// extractCredential tries X-API-Key first, then Authorization: Bearer. The
// second result reports whether the credential came from the bearer header.
func extractCredential(c *gin.Context) (string, bool) {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key, false
	}
	if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}
