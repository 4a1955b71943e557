package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// AuthService guards the mutating API endpoints with TOTP codes. Read-only
// endpoints stay open; anything that changes the queue requires a valid code
// in the X-Auth-Code header.
type AuthService struct {
	logger     *zap.Logger
	totpSecret string
	enabled    bool
}

func NewAuthService(logger *zap.Logger, totpSecret string, enabled bool) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
		enabled:    enabled && totpSecret != "",
	}
}

// GenerateSecret creates a fresh TOTP secret for operator enrollment.
func GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Syndicate",
		AccountName: "operator",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), nil
}

func (a *AuthService) ValidateCode(code string) bool {
	valid := totp.Validate(code, a.totpSecret)
	if valid {
		a.logger.Info("TOTP code validation successful")
	} else {
		a.logger.Warn("TOTP code validation failed")
	}
	return valid
}

func (a *AuthService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Next()
			return
		}

		code := c.GetHeader("X-Auth-Code")
		if code == "" || !a.ValidateCode(code) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
