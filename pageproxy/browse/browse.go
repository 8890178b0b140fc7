package browse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/go-analyze/bulk"

	"github.com/go-appsec/pageproxy/pageproxy/bridge"
	"github.com/go-appsec/pageproxy/pageproxy/browser"
	"github.com/go-appsec/pageproxy/pageproxy/cliutil"
	"github.com/go-appsec/pageproxy/pageproxy/config"
	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/history"
	"github.com/go-appsec/pageproxy/pageproxy/report"
	"github.com/go-appsec/pageproxy/pageproxy/store"
)

func run(opts options) error {
	cfg, _, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	sessOpts := sessionOptions(cfg, opts)
	navTimeout := time.Duration(cfg.NavigateTimeout)
	if opts.timeout > 0 {
		navTimeout = opts.timeout
	}

	sender := cfg.Sender()
	if opts.insecure {
		sender.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	hist := history.NewLog(store.NewMemStorage(), cfg.HistoryLimit)
	defer func() { _ = hist.Close() }()
	b := bridge.New(sender, &browser.CookieStore{}, bridge.WithRecorder(hist), bridge.WithVerbose(opts.verbose))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := browser.Start(ctx, b, sessOpts)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	var errs []error
	for _, u := range opts.urls {
		if err := visit(ctx, sess, u, navTimeout, opts.settle); err != nil {
			log.Printf("browse: %s: %v", u, err)
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	sess.Wait()

	report.Exchanges(os.Stdout, hist.List(0, 0))
	_, _ = fmt.Fprintf(os.Stdout, "\n%s\n", cliutil.Bold("Browser cookies"))
	cookies, err := visitedCookies(context.WithoutCancel(ctx), sess, opts.urls)
	if err != nil {
		errs = append(errs, fmt.Errorf("read browser cookies: %w", err))
	}
	report.Cookies(os.Stdout, cookies, time.Now())
	return errors.Join(errs...)
}

// sessionOptions merges the config with flags. Flags win when given.
func sessionOptions(cfg *config.Config, opts options) browser.Options {
	so := browser.Options{
		ProxyURL:    cfg.ProxyURL,
		DevToolsURL: cfg.DevToolsURL,
		Headless:    cfg.IsHeadless(),
		Flags:       append(append([]string(nil), cfg.ChromeFlags...), opts.chromeFlags...),
		Verbose:     opts.verbose,
	}
	if opts.proxyURL != "" {
		so.ProxyURL = opts.proxyURL
	} else if opts.noProxy {
		so.ProxyURL = ""
	}
	if opts.devToolsURL != "" {
		so.DevToolsURL = opts.devToolsURL
	}
	if opts.headlessSet {
		so.Headless = opts.headless
	}
	return so
}

// visit loads rawURL and then gives late subresource requests settle to
// arrive before moving on.
func visit(ctx context.Context, sess *browser.Session, rawURL string, timeout, settle time.Duration) error {
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sess.Navigate(navCtx, rawURL); err != nil {
		return err
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// visitedCookies reads the browser cookies for each URL, each cookie listed
// once.
func visitedCookies(ctx context.Context, sess *browser.Session, urls []string) ([]cookie.Cookie, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	seen := make(map[cookie.Key]struct{})
	var result []cookie.Cookie
	for _, raw := range urls {
		target, err := url.Parse(raw)
		if err != nil {
			continue
		}
		cookies, err := sess.Cookies(ctx, target)
		if err != nil {
			return result, err
		}
		result = append(result, bulk.SliceFilter(func(c cookie.Cookie) bool {
			if _, ok := seen[c.Key()]; ok {
				return false
			}
			seen[c.Key()] = struct{}{}
			return true
		}, cookies)...)
	}
	return result, nil
}
