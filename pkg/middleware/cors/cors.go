package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/pkg/config"
)

const (
	allowHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// Policy decides which browser origins may call the API. An empty policy allows every origin.
type Policy struct {
	origins map[string]struct{}
}

// NewPolicy builds a policy from configuration.
func NewPolicy(cfg config.CORSConfig) *Policy {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origins[normalise(origin)] = struct{}{}
	}
	return &Policy{origins: origins}
}

// AllowsAll reports whether the policy is unrestricted.
func (p *Policy) AllowsAll() bool {
	return p == nil || len(p.origins) == 0
}

// Allowed reports whether origin may receive CORS headers.
func (p *Policy) Allowed(origin string) bool {
	if p.AllowsAll() {
		return true
	}
	_, ok := p.origins[normalise(origin)]
	return ok
}

// Middleware applies the policy and short-circuits preflight requests.
func (p *Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && p.Allowed(origin):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && p.AllowsAll():
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func normalise(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
