package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mchurichi/logdash/internal/logger"
)

const usernameKey = "username"

// Credentials guard every page and API route except health and metrics.
// PasswordHash, a bcrypt hash, takes precedence over Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// Enabled reports whether authentication is configured at all.
func (c Credentials) Enabled() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

// Verify checks a username and password pair.
func (c Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1

	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// requireAuth enforces HTTP Basic authentication.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.creds.Enabled() {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok || !s.creds.Verify(username, password) {
			if ok {
				logger.Get(c.Request.Context()).Infow("rejected credentials", "username", username)
			}
			c.Header("WWW-Authenticate", `Basic realm="logdash"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}
