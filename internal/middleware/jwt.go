package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeySession is the Gin context key for the resolved session.
	ContextKeySession = "session"
)

var errTokenMissing = errors.New("session cookie, authorization header or token query required")

// TokenFromRequest returns the gateway token carried by the request. The
// session cookie wins, then the Authorization bearer header, then ?token=
// for WebSocket upgrades, which cannot send headers from a browser.
func TokenFromRequest(c *gin.Context, cookieName string) (string, error) {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v, nil
	}

	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1], nil
		}
	}

	if v := c.Query("token"); v != "" {
		return v, nil
	}
	return "", errTokenMissing
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetSession retrieves the session stored by RequireSession.
func GetSession(c *gin.Context) (service.Session, bool) {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return service.Session{}, false
	}
	sess, ok := val.(service.Session)
	return sess, ok
}
