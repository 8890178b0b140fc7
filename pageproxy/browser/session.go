// Package browser drives a Chrome instance over the DevTools protocol and
// routes every page request it makes through a Bridge.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"
	"syscall"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/go-appsec/pageproxy/pageproxy/bridge"
	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// Forwarder handles one intercepted request. *bridge.Bridge implements it.
type Forwarder interface {
	ProxyRequest(ctx context.Context, ir bridge.InterceptedRequest, proxyURL string) error
}

// Options configures a Session.
type Options struct {
	// ProxyURL is passed to the Forwarder for every request.
	ProxyURL string
	// DevToolsURL attaches to a running browser instead of launching one.
	DevToolsURL string
	// Headless launches the browser without a window.
	Headless bool
	// Flags are extra command line flags for a launched browser, either
	// "name" or "name=value".
	Flags []string
	// Verbose logs every intercepted request.
	Verbose bool
}

// Session is one browser tab whose requests are paused at the request stage
// and handed to a Forwarder, each on its own goroutine.
type Session struct {
	fwd  Forwarder
	opts Options

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Start launches or attaches to a browser, opens a tab, and enables request
// interception for every URL.
func Start(ctx context.Context, fwd Forwarder, opts Options) (*Session, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.DevToolsURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.DevToolsURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		fwd:         fwd,
		opts:        opts,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	patterns := []*fetch.RequestPattern{{URLPattern: "*", RequestStage: fetch.RequestStageRequest}}
	if err := chromedp.Run(tabCtx, fetch.Enable().WithPatterns(patterns)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("enable interception: %w", err)
	}
	return s, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
	for _, flag := range opts.Flags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(flag, "-"), "=")
		if name == "" {
			continue
		} else if hasValue {
			allocOpts = append(allocOpts, chromedp.Flag(name, value))
		} else {
			allocOpts = append(allocOpts, chromedp.Flag(name, true))
		}
	}
	return allocOpts
}

// Navigate loads rawURL in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	return s.run(ctx, chromedp.Navigate(rawURL))
}

// Cookies returns the browser cookies sent on a request to target.
func (s *Session) Cookies(ctx context.Context, target *url.URL) ([]cookie.Cookie, error) {
	var cookies []cookie.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = (&CookieStore{}).Cookies(ctx, target)
		return err
	}))
	return cookies, err
}

// run executes actions on the tab, bounded by both ctx and the session.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Wait blocks until every intercepted request handed out so far is done.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops interception, waits for in-flight requests, and shuts the
// browser down (or detaches from it).
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.allocCancel()
	return nil
}

func (s *Session) onEvent(ev interface{}) {
	paused, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go s.handlePaused(paused)
}

func (s *Session) handlePaused(ev *fetch.EventRequestPaused) {
	defer s.wg.Done()

	ctx := cdp.WithExecutor(s.ctx, chromedp.FromContext(s.ctx).Target)
	ir := &pausedRequest{ev: ev}
	if s.opts.Verbose {
		log.Printf("browser: paused %s %s %s", ev.RequestID, ir.Method(), ir.URL())
	}

	err := s.fwd.ProxyRequest(ctx, ir, s.opts.ProxyURL)
	if err == nil {
		return
	} else if errors.Is(err, bridge.ErrRelay) {
		// nothing left to fail, the bridge already logged it
		return
	}

	reason := failReason(err)
	log.Printf("browser: failing %s %s with %s: %v", ir.Method(), ir.URL(), reason, err)
	if ferr := fetch.FailRequest(ev.RequestID, reason).Do(ctx); ferr != nil && ctx.Err() == nil {
		log.Printf("browser: fail request %s: %v", ev.RequestID, ferr)
	}
}

// failReason picks the network error the page sees for a failed forward.
func failReason(err error) network.ErrorReason {
	var dnsErr *net.DNSError
	var connectErr *transport.ConnectStatusError
	switch {
	case errors.Is(err, bridge.ErrInvalidRequest):
		return network.ErrorReasonBlockedByClient
	case errors.Is(err, context.Canceled):
		return network.ErrorReasonAborted
	case errors.Is(err, context.DeadlineExceeded) || transport.IsTimeout(err):
		return network.ErrorReasonTimedOut
	case errors.As(err, &dnsErr):
		return network.ErrorReasonNameNotResolved
	case errors.Is(err, syscall.ECONNREFUSED):
		return network.ErrorReasonConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return network.ErrorReasonConnectionReset
	case errors.As(err, &connectErr):
		return network.ErrorReasonConnectionFailed
	default:
		return network.ErrorReasonFailed
	}
}
