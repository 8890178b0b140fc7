package bridge

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/go-analyze/bulk"

	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// outbound is a request ready for the transport together with the proxy it
// is routed through.
type outbound struct {
	req   *transport.Request
	proxy *url.URL
}

// parseTarget parses the intercepted request URL. Only absolute http and
// https URLs can be forwarded; the fragment is never sent.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// ParseProxyURL parses a forward proxy address. An empty string means no
// proxy and yields nil.
func ParseProxyURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("proxy url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("proxy url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("proxy url: missing host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// buildRequest copies the intercepted method, headers, and body onto target.
// Any Cookie header from the page is replaced by cookieHeader, or removed
// when cookieHeader is empty. Header names collide case-insensitively and the
// last one in name order wins, so the result does not depend on map order.
func buildRequest(ir InterceptedRequest, target, proxy *url.URL, cookieHeader string) *outbound {
	src := ir.Headers()
	names := bulk.MapKeysSlice(src)
	slices.Sort(names)

	headers := make(transport.Headers, 0, len(names)+1)
	for _, name := range names {
		headers.Set(name, src[name])
	}
	headers.Remove("Cookie")
	if cookieHeader != "" {
		headers.Set("Cookie", cookieHeader)
	}

	return &outbound{
		req: &transport.Request{
			Method:  ir.Method(),
			URL:     target,
			Headers: headers,
			Body:    ir.PostData(),
		},
		proxy: proxy,
	}
}
