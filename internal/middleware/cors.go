package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, DELETE, OPTIONS"
	corsHeaders = "Content-Type, X-Request-Id"
	corsExpose  = "Retry-After"
	corsMaxAge  = "600"
)

// originMatcher holds the configured origins. An entry like
// "https://*.pages.dev" admits any subdomain over that scheme, which covers
// preview deployments of the app.
type originMatcher struct {
	exact    map[string]struct{}
	suffixes []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string
	suffix string
}

func newOriginMatcher(allowlist []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(allowlist))}
	for _, origin := range allowlist {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		if scheme, host, ok := strings.Cut(trimmed, "://*."); ok && host != "" {
			m.suffixes = append(m.suffixes, wildcardOrigin{scheme: scheme, suffix: "." + host})
			continue
		}
		m.exact[trimmed] = struct{}{}
	}
	return m
}

func (m originMatcher) empty() bool {
	return len(m.exact) == 0 && len(m.suffixes) == 0
}

func (m originMatcher) allows(origin string) bool {
	if _, ok := m.exact[origin]; ok {
		return true
	}
	if len(m.suffixes) == 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, w := range m.suffixes {
		if u.Scheme == w.scheme && strings.HasSuffix(u.Host, w.suffix) {
			return true
		}
	}
	return false
}

// CORS answers for the configured origins, or for every origin when none are
// configured.
func CORS(allowlist []string) gin.HandlerFunc {
	matcher := newOriginMatcher(allowlist)
	allowAll := matcher.empty()
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		allowed := false
		if allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
			allowed = true
		} else if origin != "" && matcher.allows(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
			allowed = true
		}
		if allowed {
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExpose)
		}
		if c.Request.Method == http.MethodOptions {
			if allowed {
				h.Set("Access-Control-Max-Age", corsMaxAge)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
