package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

var (
	ErrDomainMismatch = errors.New("domain attribute does not match request host")
	ErrPublicSuffix   = errors.New("domain attribute is a public suffix")
	ErrInvalidExpires = errors.New("expires attribute is not an HTTP-date")
	ErrInvalidMaxAge  = errors.New("max-age attribute is not an integer")
)

// MaxAgeLimit caps a Max-Age lifetime, following RFC 6265bis.
const MaxAgeLimit = 400 * 24 * time.Hour

// DecodeError reports a Set-Cookie line that was dropped.
type DecodeError struct {
	Index int // position of the line in the input
	Name  string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("set-cookie line %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("set-cookie line %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WirePairs returns the name/value pairs of the cookies sent on a request to
// target at now, in input order.
func WirePairs(cookies []Cookie, target *url.URL, now time.Time) []WirePair {
	matched := Filter(cookies, target, now)
	if len(matched) == 0 {
		return nil
	}
	pairs := make([]WirePair, len(matched))
	for i, c := range matched {
		pairs[i] = WirePair{Name: c.Name, Value: c.Value}
	}
	return pairs
}

// ToWireHeader returns the Cookie header value for a request to target at
// now, or "" when no cookie applies and the header should be omitted.
func ToWireHeader(cookies []Cookie, target *url.URL, now time.Time) string {
	pairs := WirePairs(cookies, target, now)
	if len(pairs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

// ParseSetCookie decodes Set-Cookie header lines received in response to a
// request for requestURL. Each line yields at most one cookie.
//
// Missing Domain means a host-only cookie for the request host and missing
// Path means "/". Max-Age is relative to received and wins over Expires when
// both are present; neither makes a session cookie. A cookie that is already
// expired on arrival gets an expiration one second before received so that
// writing it replaces and expires the stored cookie.
//
// Lines that cannot be decoded are dropped; the returned error joins one
// *DecodeError per dropped line while the decoded cookies are still returned.
func ParseSetCookie(lines []string, requestURL *url.URL, received time.Time) ([]Cookie, error) {
	host := normalizeHost(requestURL.Hostname())
	cookies := make([]Cookie, 0, len(lines))
	var errs []error
	for i, line := range lines {
		c, err := parseLine(line, host, received)
		if err != nil {
			errs = append(errs, &DecodeError{Index: i, Name: lineName(line), Err: err})
			continue
		}
		cookies = append(cookies, c)
	}
	return cookies, errors.Join(errs...)
}

func parseLine(line, host string, received time.Time) (Cookie, error) {
	hc, err := http.ParseSetCookie(line)
	if err != nil {
		return Cookie{}, err
	}

	c := Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Path:     hc.Path,
		Expires:  SessionExpiry,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
		SameSite: sameSiteFromHTTP(hc.SameSite),
	}
	if c.Domain, err = cookieDomain(hc.Domain, host); err != nil {
		return Cookie{}, err
	}
	if c.Path == "" || c.Path[0] != '/' {
		c.Path = "/"
	}

	maxAge, hasMaxAge, err := parseMaxAge(line)
	if err != nil {
		return Cookie{}, err
	}
	expires, hasExpires, err := parseExpires(line)
	if err != nil {
		return Cookie{}, err
	}

	switch {
	case hasMaxAge && maxAge > 0:
		c.Expires = received.Unix() + maxAge
	case hasMaxAge:
		c.Expires = received.Unix() - 1
	case hasExpires:
		c.Expires = expires.Unix()
		if c.Expires <= received.Unix() {
			c.Expires = received.Unix() - 1
		}
	}
	return c, nil
}

// parseMaxAge returns the last Max-Age attribute of line in seconds, capped
// at MaxAgeLimit. Digit strings too long for int64 are capped as well.
func parseMaxAge(line string) (int64, bool, error) {
	raw, ok := attrValue(line, "max-age")
	if !ok {
		return 0, false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, false, ErrInvalidMaxAge
		}
	}
	if limit := int64(MaxAgeLimit / time.Second); secs > limit {
		secs = limit
	}
	return secs, true, nil
}

// expiresLayouts are the HTTP-date forms followed by the zone-tolerant and
// dashed forms older servers still send.
var expiresLayouts = []string{
	http.TimeFormat,
	time.RFC850,
	time.ANSIC,
	time.RFC1123,
	"Mon, 02-Jan-2006 15:04:05 MST",
}

// parseExpires returns the last Expires attribute of line. All three
// HTTP-date forms are accepted: IMF-fixdate, RFC 850, and asctime.
func parseExpires(line string) (time.Time, bool, error) {
	raw, ok := attrValue(line, "expires")
	if !ok {
		return time.Time{}, false, nil
	}
	for _, layout := range expiresLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, ErrInvalidExpires
}

// attrValue returns the trimmed value of the last attribute named name
// (case-insensitive) in a Set-Cookie line. An attribute with an empty value
// counts as absent.
func attrValue(line, name string) (string, bool) {
	var value string
	var found bool
	parts := strings.Split(line, ";")
	for _, part := range parts[1:] {
		attr, val, _ := strings.Cut(part, "=")
		if !strings.EqualFold(strings.TrimSpace(attr), name) {
			continue
		}
		val = strings.TrimSpace(val)
		value, found = val, val != ""
	}
	return value, found
}

// cookieDomain resolves the Domain attribute against the request host.
// The result carries a leading dot for domain cookies and none for host-only
// cookies.
func cookieDomain(attr, host string) (string, error) {
	domain := normalizeHost(attr)
	if domain == "" {
		return host, nil
	} else if isIP(host) {
		if domain != host {
			return "", ErrDomainMismatch
		}
		return host, nil
	} else if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", ErrDomainMismatch
	}

	if ps, _ := publicsuffix.PublicSuffix(domain); ps == domain {
		if domain != host {
			return "", ErrPublicSuffix
		}
		return host, nil
	}
	return "." + domain, nil
}

// FormatSetCookie encodes c as a Set-Cookie header value. An absolute
// expiration is written as an HTTP-date; a cookie already expired at now
// also carries Max-Age=0.
func FormatSetCookie(c Cookie, now time.Time) string {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: sameSiteToHTTP(c.SameSite),
	}
	if !c.HostOnly() {
		hc.Domain = strings.TrimPrefix(c.Domain, ".")
	}
	if !c.Session() {
		hc.Expires = c.ExpiresTime()
		if c.Expired(now) {
			hc.MaxAge = -1
		}
	}
	return hc.String()
}

func sameSiteFromHTTP(s http.SameSite) SameSite {
	switch s {
	case http.SameSiteStrictMode:
		return SameSiteStrict
	case http.SameSiteLaxMode:
		return SameSiteLax
	case http.SameSiteNoneMode:
		return SameSiteNone
	default:
		return SameSiteDefault
	}
}

func sameSiteToHTTP(s SameSite) http.SameSite {
	switch s {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteLax:
		return http.SameSiteLaxMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return 0
	}
}

// lineName extracts the cookie name for error reporting without touching the
// value.
func lineName(line string) string {
	name, _, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	name = strings.TrimSpace(name)
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
