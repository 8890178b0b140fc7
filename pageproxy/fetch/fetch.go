package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-appsec/pageproxy/pageproxy/bridge"
	"github.com/go-appsec/pageproxy/pageproxy/cliutil"
	"github.com/go-appsec/pageproxy/pageproxy/config"
	"github.com/go-appsec/pageproxy/pageproxy/cookie"
	"github.com/go-appsec/pageproxy/pageproxy/history"
	"github.com/go-appsec/pageproxy/pageproxy/report"
	"github.com/go-appsec/pageproxy/pageproxy/store"
	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// request is an intercepted request built from the command line. It keeps
// the relayed response for printing.
type request struct {
	method   string
	url      string
	headers  map[string]string
	body     []byte
	response *response
}

type response struct {
	status     int
	statusText string
	headers    transport.Headers
	body       []byte
}

func (r *request) Method() string             { return r.method }
func (r *request) URL() string                { return r.url }
func (r *request) Headers() map[string]string { return r.headers }
func (r *request) PostData() []byte           { return r.body }

func (r *request) Respond(_ context.Context, status int, statusText string, headers transport.Headers, body []byte) error {
	r.response = &response{status: status, statusText: statusText, headers: headers, body: body}
	return nil
}

func run(opts options) error {
	cfg, _, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}

	proxyURL := cfg.ProxyURL
	if opts.proxyURL != "" {
		proxyURL = opts.proxyURL
	} else if opts.noProxy {
		proxyURL = ""
	}

	sender := cfg.Sender()
	if opts.insecure {
		sender.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	jar := cookie.NewMemoryStore(nil)
	hist := history.NewLog(store.NewMemStorage(), cfg.HistoryLimit)
	defer func() { _ = hist.Close() }()
	b := bridge.New(sender, jar, bridge.WithRecorder(hist), bridge.WithVerbose(opts.verbose))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	last, err := fetchAll(ctx, b, opts, proxyURL)

	report.Exchanges(os.Stdout, hist.List(0, 0))
	if last != nil && last.response != nil {
		_, _ = fmt.Fprintln(os.Stdout)
		printResponse(os.Stdout, last, opts.include, !opts.noBody)
	}

	_, _ = fmt.Fprintf(os.Stdout, "\n%s\n", cliutil.Bold("Cookie jar"))
	if opts.rawJar {
		report.SetCookieLines(os.Stdout, jar.All(), time.Now())
	} else {
		report.Cookies(os.Stdout, jar.All(), time.Now())
	}
	return err
}

// fetchAll forwards every URL in order, continuing past failures. The last
// request that got a response is returned along with the joined failures.
func fetchAll(ctx context.Context, b *bridge.Bridge, opts options, proxyURL string) (*request, error) {
	var last *request
	var errs []error
	for _, u := range opts.urls {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		req := &request{method: opts.method, url: u, headers: opts.headers}
		if opts.data != "" {
			req.body = []byte(opts.data)
		}
		if err := b.ProxyRequest(ctx, req, proxyURL); err != nil {
			errs = append(errs, err)
			continue
		}
		last = req
	}
	return last, errors.Join(errs...)
}

func printResponse(w io.Writer, req *request, include, body bool) {
	resp := req.response
	_, _ = fmt.Fprintf(w, "%s %s\n", cliutil.Bold(fmt.Sprintf("%d %s", resp.status, resp.statusText)), req.url)
	if include {
		for _, h := range resp.headers {
			_, _ = fmt.Fprintf(w, "%s: %s\n", h.Name, h.Value)
		}
	}
	if body && len(resp.body) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = w.Write(resp.body)
		if resp.body[len(resp.body)-1] != '\n' {
			_, _ = fmt.Fprintln(w)
		}
	}
}
