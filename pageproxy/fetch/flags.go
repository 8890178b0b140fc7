package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	proxyURL   string
	noProxy    bool
	method     string
	rawHeaders []string
	headers    map[string]string
	data       string
	include    bool
	noBody     bool
	rawJar     bool
	insecure   bool
	verbose    bool
	urls       []string
}

func Parse(args []string) error {
	var opts options
	fs := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	fs.StringVar(&opts.configPath, "config", "", "config file (default ~/.pageproxy/config.json)")
	fs.StringVar(&opts.proxyURL, "proxy", "", "forward proxy URL, overrides the config")
	fs.BoolVar(&opts.noProxy, "no-proxy", false, "connect directly even when a proxy is configured")
	fs.StringVarP(&opts.method, "request", "X", "GET", "request method")
	fs.StringArrayVarP(&opts.rawHeaders, "header", "H", nil, `request header "Name: Value" (repeatable)`)
	fs.StringVarP(&opts.data, "data", "d", "", "request body")
	fs.BoolVarP(&opts.include, "include", "i", false, "print response headers")
	fs.BoolVar(&opts.noBody, "no-body", false, "do not print the response body")
	fs.BoolVar(&opts.rawJar, "raw-jar", false, "print the cookie jar as Set-Cookie lines")
	fs.BoolVarP(&opts.insecure, "insecure", "k", false, "skip TLS certificate verification")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log every state transition")

	fs.Usage = func() {
		_, _ = fmt.Fprint(os.Stderr, `Usage: pageproxy fetch [options] <url> [url...]

Send requests through the bridge with an in-memory cookie jar. URLs are
fetched in order and share the jar, so a cookie set by one response is sent
on the next matching request.

Options:
`)
		fs.PrintDefaults()
		_, _ = fmt.Fprint(os.Stderr, `
Examples:
  pageproxy fetch --proxy http://127.0.0.1:8080 https://example.com/login https://example.com/account
  pageproxy fetch -X POST -H "Content-Type: application/json" -d '{"a":1}' https://example.com/api
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.urls = fs.Args()
	if len(opts.urls) == 0 {
		fs.Usage()
		return errors.New("at least one url is required")
	} else if opts.noProxy && opts.proxyURL != "" {
		return errors.New("--proxy and --no-proxy are mutually exclusive")
	}
	var err error
	if opts.headers, err = parseHeaders(opts.rawHeaders); err != nil {
		return err
	}

	return run(opts)
}

// parseHeaders turns "Name: Value" flags into a header map keyed by canonical
// name. A later flag for the same name wins regardless of case.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: Value\"", h)
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
