package bridge

import (
	"context"
	"strings"

	"github.com/go-analyze/bulk"

	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// hopHeaders describe the upstream connection, not the message. The body is
// handed over whole so they do not apply to the fulfilled response.
var hopHeaders = bulk.SliceToSet([]string{
	"connection",
	"keep-alive",
	"proxy-connection",
	"transfer-encoding",
})

// relay fulfills the intercepted request with the upstream response. Every
// Set-Cookie line is passed through verbatim.
func relay(ctx context.Context, ir InterceptedRequest, resp *transport.Response) error {
	headers := bulk.SliceFilter(func(h transport.Header) bool {
		_, hop := hopHeaders[strings.ToLower(h.Name)]
		return !hop
	}, resp.Headers)
	return ir.Respond(ctx, resp.StatusCode, resp.StatusText, headers, resp.Body)
}
