package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/recipescrape/models"
)

// tokenUser is the identity embedded in tokens minted from the admin secret.
const tokenUser = "admin"

// TokenIssuer is implemented by *auth.Issuer.
type TokenIssuer interface {
	Issue(user string) (string, time.Time, error)
}

// Token returns a handler for POST /api/v1/token, exchanging the admin
// secret (query parameter or JSON body "secret_key") for a bearer token.
func Token(issuer TokenIssuer, adminSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if issuer == nil || adminSecret == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "token issuance is not configured", nil))
			return
		}

		var req models.TokenRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if req.SecretKey == "" && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
				return
			}
		}

		if subtle.ConstantTimeCompare([]byte(req.SecretKey), []byte(adminSecret)) != 1 {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "Incorrect secret key", nil))
			return
		}

		token, expires, err := issuer.Issue(tokenUser)
		if err != nil {
			slog.Error("token issuance failed", "error", err)
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "failed to issue token", err))
			return
		}

		resp := models.TokenResponse{AccessToken: token, TokenType: "bearer"}
		if !expires.IsZero() {
			resp.ExpiresAt = expires.Unix()
		}
		c.JSON(http.StatusOK, resp)
	}
}
