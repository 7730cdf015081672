package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessPolicy lists the path patterns each tier may reach. A pattern is an
// exact path or a prefix ending in "*". Matching is case-insensitive.
type AccessPolicy struct {
	Public []string
	Staff  []string
	Admin  []string
}

func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.ToLower(strings.TrimSuffix(pattern, "*"))
		return strings.HasPrefix(path, prefix)
	}
	return strings.EqualFold(pattern, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// AccessControl gates every request against the policy: public paths pass
// through, everything else requires a principal whose token has not expired
// and whose role matches the staff or admin pattern list.
func AccessControl(policy AccessPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.ToLower(c.Request.URL.Path)

		if matchAny(policy.Public, path) {
			c.Next()
			return
		}

		principal, ok := MustPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "you are not authenticated"})
			return
		}

		if !principal.ExpiresAt.IsZero() && principal.ExpiresAt.Before(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has expired"})
			return
		}

		isStaffEndpoint := matchAny(policy.Staff, path)
		isAdminEndpoint := matchAny(policy.Admin, path)

		hasAccess := (isStaffEndpoint && principal.IsStaff()) ||
			(isAdminEndpoint && principal.IsAdmin())
		if !hasAccess {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role permissions"})
			return
		}

		c.Next()
	}
}
