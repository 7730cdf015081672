package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"parking-service/internal/auth"
	"parking-service/internal/model"
)

const (
	claimsContextKey    = "tokenClaims"
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// Auth extracts the principal from a bearer token when one is present. It
// never aborts: the access gate decides whether the request needed one, so
// public endpoints work without credentials.
func Auth(parser *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawHeader := c.GetHeader(authorizationHeader)
		if rawHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(rawHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
			c.Next()
			return
		}

		claims, err := parser.Parse(parts[1])
		if err != nil {
			c.Next()
			return
		}

		principal := model.Principal{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     model.Role(claims.Role),
		}
		if claims.ExpiresAt != nil {
			principal.ExpiresAt = claims.ExpiresAt.Time
		}

		c.Set(claimsContextKey, claims)
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}

	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}

	return principal, true
}
