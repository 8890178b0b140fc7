package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"github.com/go-appsec/pageproxy/pageproxy/cookie"
)

// CookieStore reads and writes the cookie jar of the browser the context is
// attached to. The context passed to each call must carry a chromedp target
// executor, as the contexts handed to interception handlers and
// chromedp.ActionFunc do.
type CookieStore struct {
	// Now decides which written cookies are already expired. Defaults to
	// time.Now.
	Now func() time.Time
}

// Cookies returns the browser cookies sent on a request to target.
func (s *CookieStore) Cookies(ctx context.Context, target *url.URL) ([]cookie.Cookie, error) {
	found, err := network.GetCookies().WithUrls([]string{target.String()}).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	cookies := make([]cookie.Cookie, len(found))
	for i, nc := range found {
		cookies[i] = fromNetworkCookie(nc)
	}
	return cookies, nil
}

// SetCookies writes each cookie with its own call. A cookie already expired is
// deleted from the browser instead.
func (s *CookieStore) SetCookies(ctx context.Context, cookies []cookie.Cookie) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	for _, c := range cookies {
		if c.Expired(now()) {
			if err := deleteCookieParams(c).Do(ctx); err != nil {
				return fmt.Errorf("delete cookie %s: %w", c.Name, err)
			}
			continue
		}
		if err := setCookieParams(c).Do(ctx); err != nil {
			return fmt.Errorf("set cookie %s: %w", c.Name, err)
		}
	}
	return nil
}

func fromNetworkCookie(nc *network.Cookie) cookie.Cookie {
	c := cookie.Cookie{
		Name:     nc.Name,
		Value:    nc.Value,
		Domain:   nc.Domain,
		Path:     nc.Path,
		Expires:  cookie.SessionExpiry,
		Secure:   nc.Secure,
		HTTPOnly: nc.HTTPOnly,
	}
	if !nc.Session && nc.Expires > 0 {
		c.Expires = int64(nc.Expires)
	}
	switch nc.SameSite {
	case network.CookieSameSiteStrict:
		c.SameSite = cookie.SameSiteStrict
	case network.CookieSameSiteLax:
		c.SameSite = cookie.SameSiteLax
	case network.CookieSameSiteNone:
		c.SameSite = cookie.SameSiteNone
	}
	return c
}

// setCookieParams builds the write for c. Host-only cookies are bound
// through a URL since any explicit domain makes the browser store a domain
// cookie.
func setCookieParams(c cookie.Cookie) *network.SetCookieParams {
	params := network.SetCookie(c.Name, c.Value).
		WithPath(c.Path).
		WithSecure(c.Secure).
		WithHTTPOnly(c.HTTPOnly)
	if c.HostOnly() {
		params = params.WithURL(cookieURL(c))
	} else {
		params = params.WithDomain(c.Domain)
	}
	if !c.Session() {
		expires := cdp.TimeSinceEpoch(c.ExpiresTime())
		params = params.WithExpires(&expires)
	}

	var sameSite network.CookieSameSite
	switch c.SameSite {
	case cookie.SameSiteStrict:
		sameSite = network.CookieSameSiteStrict
	case cookie.SameSiteLax:
		sameSite = network.CookieSameSiteLax
	case cookie.SameSiteNone:
		sameSite = network.CookieSameSiteNone
	}
	if sameSite != "" {
		params = params.WithSameSite(sameSite)
	}
	return params
}

func deleteCookieParams(c cookie.Cookie) *network.DeleteCookiesParams {
	return network.DeleteCookies(c.Name).WithDomain(c.Domain).WithPath(c.Path)
}

// cookieURL is the URL a host-only cookie is bound through. IPv6 hosts are
// stored bare and need brackets back.
func cookieURL(c cookie.Cookie) string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	host := c.Domain
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: c.Path}
	return u.String()
}
