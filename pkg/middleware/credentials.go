package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TokenKey      = "credential_token"
	RefererKey    = "credential_referer"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// UserTokenHeader carries a platform user token when the page cannot
	// set Authorization itself (embedded iframes).
	UserTokenHeader = "X-User-Token"
	// UserTokenCookie is set by the hosting platform on embedded pages.
	UserTokenCookie = "user_token"
)

// Credentials returns a Gin middleware that extracts credential material
// without enforcing it. Identity resolution decides what the token is worth.
// Sources, in order: Authorization bearer, X-User-Token header, user_token cookie.
func Credentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			c.Set(TokenKey, token)
		}
		if referer := c.GetHeader("Referer"); referer != "" {
			c.Set(RefererKey, referer)
		}
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader(AuthHeaderKey); strings.HasPrefix(authHeader, BearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix)); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(c.GetHeader(UserTokenHeader)); token != "" {
		return token
	}
	if cookie, err := c.Cookie(UserTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return ""
}

// GetToken extracts the credential token from Gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}

// GetReferer extracts the referring URL from Gin context.
func GetReferer(c *gin.Context) string {
	return c.GetString(RefererKey)
}
