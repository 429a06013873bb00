// Package origin validates browser Origin headers for the websocket
// signaling endpoint.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Checker matches normalized Origin headers against a configured allowlist.
//
// An empty allowlist allows every origin, matching the permissive CORS
// posture the signaling surface has always had; operators opt into
// restriction via ALLOWED_ORIGINS.
type Checker struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewChecker(allowedOrigins []string) *Checker {
	c := &Checker{allowed: make(map[string]struct{})}
	if len(allowedOrigins) == 0 {
		c.allowAll = true
		return c
	}
	for _, raw := range allowedOrigins {
		if raw == "*" {
			c.allowAll = true
			continue
		}
		if norm, ok := Normalize(raw); ok {
			c.allowed[norm] = struct{}{}
		}
	}
	return c
}

// Allow reports whether a request carrying the given Origin header may
// connect. A missing Origin header is allowed; non-browser clients don't
// send one.
func (c *Checker) Allow(originHeader string) bool {
	if strings.TrimSpace(originHeader) == "" || c.allowAll {
		return true
	}
	norm, ok := Normalize(originHeader)
	if !ok {
		return false
	}
	_, ok = c.allowed[norm]
	return ok
}

// Normalize canonicalizes an origin to scheme://host[:port], lowercased,
// with default ports stripped. The special value "null" passes through.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if trimmed == "null" {
		return "null", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", false
	}

	port := u.Port()
	if port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		if (scheme == "http" && n == 80) || (scheme == "https" && n == 443) {
			port = ""
		}
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}
