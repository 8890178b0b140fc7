package transport

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-analyze/bulk"
)

// Header represents a single HTTP header preserving original name casing.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers is an ordered header list with case-insensitive helpers.
// Order and duplicates are preserved so multi-valued headers such as
// Set-Cookie survive a round trip.
type Headers []Header

// Get returns the first header value with the given name (case-insensitive).
// Returns empty string if not found.
func (h *Headers) Get(name string) string {
	for _, hdr := range *h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value
		}
	}
	return ""
}

// Values returns every value for the given name in wire order.
func (h *Headers) Values(name string) []string {
	var values []string
	for _, hdr := range *h {
		if strings.EqualFold(hdr.Name, name) {
			values = append(values, hdr.Value)
		}
	}
	return values
}

// Set replaces all headers with the given name (case-insensitive) by a single
// header holding value. The first occurrence keeps its position; if not
// found, the header is appended.
func (h *Headers) Set(name, value string) {
	for i, hdr := range *h {
		if strings.EqualFold(hdr.Name, name) {
			(*h)[i].Value = value
			rest := (*h)[i+1:]
			rest = bulk.SliceFilterInPlace(func(hdr Header) bool {
				return !strings.EqualFold(hdr.Name, name)
			}, rest)
			*h = (*h)[:i+1+len(rest)]
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Add appends a header without touching existing ones.
func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Remove removes all headers with the given name (case-insensitive).
func (h *Headers) Remove(name string) {
	*h = bulk.SliceFilterInPlace(func(hdr Header) bool {
		return !strings.EqualFold(hdr.Name, name)
	}, *h)
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Request is an outbound HTTP/1.1 request.
type Request struct {
	Method  string
	URL     *url.URL
	Headers Headers
	Body    []byte
}

// Response is a fully read HTTP/1.1 response.
type Response struct {
	Version    string  // "HTTP/1.1" or "HTTP/1.0"
	StatusCode int     // 200, 404, etc.
	StatusText string  // "OK", "Not Found", etc.
	Headers    Headers // wire order, duplicates kept
	Body       []byte  // decoded from chunked framing
}

// GetHeader returns the first header value with the given name (case-insensitive).
func (r *Response) GetHeader(name string) string { return r.Headers.Get(name) }

// SetCookies returns every Set-Cookie line in the order received.
func (r *Response) SetCookies() []string { return r.Headers.Values("Set-Cookie") }

// TimeoutConfig holds dial, read, and write timeouts.
// Zero values mean no timeout.
type TimeoutConfig struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
