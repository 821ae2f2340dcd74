package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET,POST,OPTIONS"
	corsHeaders = "Content-Type, X-Request-Id"
)

type originSet struct {
	any   bool
	exact map[string]struct{}
}

func newOriginSet(list []string) originSet {
	set := originSet{exact: make(map[string]struct{}, len(list))}
	for _, raw := range list {
		o := strings.TrimRight(strings.TrimSpace(raw), "/")
		switch o {
		case "":
		case "*":
			set.any = true
		default:
			set.exact[o] = struct{}{}
		}
	}
	return set
}

func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if s.any {
		return true
	}
	_, ok := s.exact[origin]
	return ok
}

// CORS echoes allowed origins and answers preflight requests with 204.
// A "*" entry allows every origin; the response still echoes the caller's origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := newOriginSet(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if origin := c.GetHeader("Origin"); origins.allows(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", "X-Request-Id, Location")
			h.Set("Access-Control-Max-Age", "600")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
