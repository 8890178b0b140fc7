package browse

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

type options struct {
	configPath  string
	proxyURL    string
	noProxy     bool
	devToolsURL string
	headless    bool
	chromeFlags []string
	settle      time.Duration
	timeout     time.Duration
	insecure    bool
	verbose     bool
	urls        []string

	headlessSet bool
}

func Parse(args []string) error {
	var opts options
	fs := pflag.NewFlagSet("browse", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	fs.StringVar(&opts.configPath, "config", "", "config file (default ~/.pageproxy/config.json)")
	fs.StringVar(&opts.proxyURL, "proxy", "", "forward proxy URL, overrides the config")
	fs.BoolVar(&opts.noProxy, "no-proxy", false, "connect directly even when a proxy is configured")
	fs.StringVar(&opts.devToolsURL, "devtools-url", "", "attach to a running browser at this DevTools websocket URL")
	fs.BoolVar(&opts.headless, "headless", true, "launch the browser without a window")
	fs.StringArrayVar(&opts.chromeFlags, "chrome-flag", nil, `extra browser flag "name" or "name=value" (repeatable)`)
	fs.DurationVar(&opts.settle, "settle", 2*time.Second, "time to wait after each load for late requests")
	fs.DurationVar(&opts.timeout, "timeout", 0, "navigation timeout, overrides the config")
	fs.BoolVarP(&opts.insecure, "insecure", "k", false, "skip TLS certificate verification")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log every intercepted request and state transition")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: pageproxy browse [options] <url> [url...]

Load pages in a browser tab whose requests are all sent through the bridge.
Cookies the responses set are written back to the browser, so later pages
and subresources carry them.

When the run ends the forwarded requests and the browser cookies for each
visited URL are printed.

Options:
`)
		fs.PrintDefaults()
		_, _ = fmt.Fprint(os.Stderr, `
Examples:
  pageproxy browse --proxy http://127.0.0.1:8080 https://example.com/
  pageproxy browse --headless=false --settle 5s https://example.com/login
  pageproxy browse --devtools-url ws://127.0.0.1:9222/devtools/browser/<id> https://example.com/
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.urls = fs.Args()
	opts.headlessSet = fs.Changed("headless")
	if len(opts.urls) == 0 {
		fs.Usage()
		return errors.New("at least one url is required")
	} else if opts.noProxy && opts.proxyURL != "" {
		return errors.New("--proxy and --no-proxy are mutually exclusive")
	} else if opts.settle < 0 || opts.timeout < 0 {
		return errors.New("--settle and --timeout must not be negative")
	}

	return run(opts)
}
