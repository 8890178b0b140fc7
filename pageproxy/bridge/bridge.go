// Package bridge forwards browser-intercepted requests through a forward
// proxy and keeps the browser cookie store in step with the cookies the
// proxied exchanges send and receive.
package bridge

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// Bridge drives one outbound exchange per intercepted request.
//
// ProxyRequest is safe for concurrent use. Concurrent invocations read and
// write the cookie store without coordination, so two responses for the same
// domain racing to set cookies resolve as last write wins.
type Bridge struct {
	sender   Sender
	store    CookieStore
	now      func() time.Time
	recorder Recorder
	verbose  bool
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithClock sets the time source used for cookie expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// WithRecorder records a summary of every invocation.
func WithRecorder(r Recorder) Option {
	return func(b *Bridge) {
		b.recorder = r
	}
}

// WithVerbose logs every state transition.
func WithVerbose(verbose bool) Option {
	return func(b *Bridge) {
		b.verbose = verbose
	}
}

// New creates a Bridge sending through sender and syncing cookies with store.
func New(sender Sender, store CookieStore, opts ...Option) *Bridge {
	b := &Bridge{
		sender: sender,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProxyRequest forwards ir through proxyURL and fulfills it with the
// upstream response. An empty proxyURL dials the origin directly.
//
// Stored cookies for the request URL replace any Cookie header the page
// sent. On success the response Set-Cookie lines are written to the store
// before the request is fulfilled; lines that cannot be decoded are logged
// and skipped. A transport failure leaves the store untouched and ir
// unfulfilled: the caller decides whether to abort it.
//
// Errors are *ForwardError values matching ErrInvalidRequest, ErrTransport,
// ErrRelay, or ErrCookieStore.
func (b *Bridge) ProxyRequest(ctx context.Context, ir InterceptedRequest, proxyURL string) error {
	inv := &invocation{
		b:  b,
		ir: ir,
		ex: Exchange{
			Started: b.now(),
			Method:  ir.Method(),
			URL:     ir.URL(),
			Proxy:   redactProxy(proxyURL),
			State:   StateIdle,
		},
	}
	err := inv.run(ctx, proxyURL)
	inv.finish(err)
	return err
}

// invocation is one traversal of idle, cookies read, request sent, and
// succeeded or failed.
type invocation struct {
	b  *Bridge
	ir InterceptedRequest
	ex Exchange
}

func (inv *invocation) run(ctx context.Context, proxyURL string) error {
	b := inv.b
	target, err := parseTarget(inv.ex.URL)
	if err != nil {
		return inv.fail(KindInvalidRequest, err)
	}
	proxy, err := ParseProxyURL(proxyURL)
	if err != nil {
		return inv.fail(KindInvalidRequest, err)
	}

	stored, err := b.store.Cookies(ctx, target)
	if err != nil {
		return inv.fail(KindCookieStore, err)
	}
	now := b.now()
	inv.ex.CookiesSent = len(cookie.WirePairs(stored, target, now))
	inv.transition(StateCookiesRead)

	out := buildRequest(inv.ir, target, proxy, cookie.ToWireHeader(stored, target, now))
	inv.transition(StateRequestSent)
	resp, err := b.sender.Send(ctx, out.req, out.proxy)
	received := b.now()
	if err != nil {
		return inv.fail(KindTransport, err)
	}
	inv.ex.StatusCode = resp.StatusCode
	inv.ex.ResponseBytes = len(resp.Body)

	if err := inv.syncCookies(ctx, resp, target, received); err != nil {
		return err
	}

	if err := relay(ctx, inv.ir, resp); err != nil {
		return inv.fail(KindRelay, err)
	}
	inv.transition(StateSucceeded)
	return nil
}

// syncCookies writes the cookies set by resp. Nothing is written when the
// response carries no Set-Cookie line that decodes.
func (inv *invocation) syncCookies(ctx context.Context, resp *transport.Response, target *url.URL, received time.Time) error {
	lines := resp.SetCookies()
	if len(lines) == 0 {
		return nil
	}

	cookies, decodeErr := cookie.ParseSetCookie(lines, target, received)
	if decodeErr != nil {
		inv.ex.CookiesDropped = len(lines) - len(cookies)
		log.Printf("bridge: %s %s dropped Set-Cookie: %v", inv.ex.Method, inv.ex.URL, decodeErr)
	}
	inv.ex.CookiesReceived = len(cookies)
	if len(cookies) == 0 {
		return nil
	}

	if err := inv.b.store.SetCookies(ctx, cookies); err != nil {
		return inv.fail(KindCookieStore, err)
	}
	return nil
}

func (inv *invocation) transition(s State) {
	if inv.b.verbose {
		log.Printf("bridge: %s %s %s -> %s", inv.ex.Method, inv.ex.URL, inv.ex.State, s)
	}
	inv.ex.State = s
}

func (inv *invocation) fail(kind Kind, err error) error {
	inv.transition(StateFailed)
	return &ForwardError{Kind: kind, URL: inv.ex.URL, Err: err}
}

func (inv *invocation) finish(err error) {
	inv.ex.Duration = inv.b.now().Sub(inv.ex.Started)
	if err != nil {
		inv.ex.Error = err.Error()
		var fe *ForwardError
		if errors.As(err, &fe) && fe.Kind == KindRelay {
			// the page request is gone, nothing left to fulfill
			log.Printf("bridge: %s %s not fulfilled: %v", inv.ex.Method, inv.ex.URL, fe.Err)
		}
	}
	if inv.b.recorder != nil {
		inv.b.recorder.Record(inv.ex)
	}
}

// redactProxy drops credentials from a proxy URL before it is recorded.
func redactProxy(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
