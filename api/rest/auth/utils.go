package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/restage/users"
)

// returns a random six digit code
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(email))
	}

	return strings.ToLower(addr.Address)
}

func isValidProvider(enabled []string, provider string) bool {
	return slices.Contains(enabled, provider)
}

// issues a token for the user and mirrors it into the session cookie
func issueToken(c *gin.Context, user *users.User) (string, error) {
	token, err := auth.GenerateJWT(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", err
	}

	// header clients still work without the cookie
	if err := auth.SetSessionToken(c.Writer, c.Request, token); err != nil {
		logger.Warn("failed to set session cookie", "error", err, "user_id", user.ID)
	}

	return token, nil
}

// sets the provider query param gothic reads
func withProvider(c *gin.Context, provider string) {
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
}
