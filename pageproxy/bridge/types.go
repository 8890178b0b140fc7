package bridge

import (
	"context"
	"net/url"
	"time"

	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// InterceptedRequest is a page request paused by the browser before
// dispatch. It is owned by the automation surface; the Bridge only reads it
// and fulfills it once.
type InterceptedRequest interface {
	Method() string
	URL() string
	// Headers maps header names to values. Names are case-insensitive.
	Headers() map[string]string
	// PostData returns the request body, nil when there is none.
	PostData() []byte
	// Respond fulfills the request. It fails when the request can no longer
	// be fulfilled, for example after the page navigated away.
	Respond(ctx context.Context, status int, statusText string, headers transport.Headers, body []byte) error
}

// CookieStore reads and writes the browser's cookie jar.
type CookieStore interface {
	// Cookies returns the stored cookies applicable to target.
	Cookies(ctx context.Context, target *url.URL) ([]cookie.Cookie, error)
	// SetCookies writes cookies, each replacing any stored cookie with the
	// same name, domain, and path.
	SetCookies(ctx context.Context, cookies []cookie.Cookie) error
}

// Sender performs one outbound HTTP exchange, through proxy when non-nil.
type Sender interface {
	Send(ctx context.Context, req *transport.Request, proxy *url.URL) (*transport.Response, error)
}

// Recorder receives a summary of every completed invocation.
type Recorder interface {
	Record(ex Exchange)
}

// Exchange summarizes one ProxyRequest invocation. Cookie values are never
// included.
type Exchange struct {
	Started         time.Time
	Duration        time.Duration
	Method          string
	URL             string
	Proxy           string
	State           State
	StatusCode      int
	ResponseBytes   int
	CookiesSent     int
	CookiesReceived int
	CookiesDropped  int
	Error           string
}

// State is a step of one ProxyRequest invocation.
type State string

const (
	StateIdle        State = "idle"
	StateCookiesRead State = "cookies_read"
	StateRequestSent State = "request_sent"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
)
