package cookie

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-analyze/bulk"
)

// Matches reports whether c is sent on a request to target: domain, path,
// and secure constraints only, expiry is not considered.
func (c Cookie) Matches(target *url.URL) bool {
	host := normalizeHost(target.Hostname())
	if host == "" {
		return false
	} else if !hostMatchesCookieDomain(host, c.Domain) {
		return false
	} else if c.Secure && !secureScheme(target.Scheme) {
		return false
	}
	return pathMatchesCookiePath(target.EscapedPath(), c.Path)
}

// Filter returns the cookies sent on a request to target at now, in input
// order.
func Filter(cookies []Cookie, target *url.URL, now time.Time) []Cookie {
	return bulk.SliceFilter(func(c Cookie) bool {
		return !c.Expired(now) && c.Matches(target)
	}, cookies)
}

func secureScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "https", "wss":
		return true
	}
	return false
}

// hostMatchesCookieDomain applies exact matching to host-only cookies and
// label-boundary suffix matching to domain cookies.
func hostMatchesCookieDomain(host, cookieDomain string) bool {
	domain := normalizeHost(cookieDomain)
	if domain == "" {
		return false
	} else if host == domain {
		return true
	} else if !strings.HasPrefix(strings.TrimSpace(cookieDomain), ".") {
		return false
	}
	return strings.HasSuffix(host, "."+domain) && !isIP(host)
}

// pathMatchesCookiePath is the RFC 6265 path-match.
func pathMatchesCookiePath(requestPath, cookiePath string) bool {
	requestPath = normalizePath(requestPath)
	cookiePath = normalizePath(cookiePath)
	if cookiePath == "/" || requestPath == cookiePath {
		return true
	} else if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	} else if cookiePath[len(cookiePath)-1] == '/' {
		return true
	}
	return requestPath[len(cookiePath)] == '/'
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '/' {
		return "/"
	}
	return path
}

func isIP(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}
