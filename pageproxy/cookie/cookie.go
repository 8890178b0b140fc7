// Package cookie converts between browser cookie records and the Cookie and
// Set-Cookie header forms, and provides an in-memory cookie store.
package cookie

import (
	"strings"
	"time"
)

// SessionExpiry is the Expires value of a cookie without an absolute
// expiration.
const SessionExpiry int64 = -1

// SameSite is the cookie SameSite attribute.
type SameSite string

const (
	SameSiteDefault SameSite = ""
	SameSiteStrict  SameSite = "Strict"
	SameSiteLax     SameSite = "Lax"
	SameSiteNone    SameSite = "None"
)

// Cookie is a browser cookie record.
//
// Domain follows the browser convention: a leading dot marks a domain cookie
// sent to the host and its subdomains, no leading dot marks a host-only
// cookie sent to that exact host.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  int64 // epoch seconds, or SessionExpiry
	Secure   bool
	HTTPOnly bool
	SameSite SameSite
}

// Key identifies a cookie within a store. Writing a cookie with the same key
// replaces the stored one.
type Key struct {
	Name   string
	Domain string
	Path   string
}

// Key returns the (name, domain, path) identity of c.
func (c Cookie) Key() Key {
	return Key{Name: c.Name, Domain: strings.ToLower(c.Domain), Path: c.Path}
}

// Session reports whether c lives until the browser session ends.
func (c Cookie) Session() bool {
	return c.Expires == SessionExpiry
}

// Expired reports whether c has an absolute expiration at or before now.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Session() && c.Expires <= now.Unix()
}

// ExpiresTime returns the expiration as a time, or the zero time for a
// session cookie.
func (c Cookie) ExpiresTime() time.Time {
	if c.Session() {
		return time.Time{}
	}
	return time.Unix(c.Expires, 0).UTC()
}

// HostOnly reports whether c is sent to its exact host only.
func (c Cookie) HostOnly() bool {
	return !strings.HasPrefix(c.Domain, ".")
}

// WirePair is the part of a cookie carried in a Cookie request header.
type WirePair struct {
	Name  string
	Value string
}

func (p WirePair) String() string {
	return p.Name + "=" + p.Value
}
