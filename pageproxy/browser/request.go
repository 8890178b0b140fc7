package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/chromedp/cdproto/fetch"

	"github.com/go-appsec/pageproxy/pageproxy/transport"
)

// pausedRequest exposes a Fetch.requestPaused event as a
// bridge.InterceptedRequest.
type pausedRequest struct {
	ev *fetch.EventRequestPaused
}

func (r *pausedRequest) Method() string { return r.ev.Request.Method }

// URL excludes the fragment, which the browser reports separately.
func (r *pausedRequest) URL() string { return r.ev.Request.URL }

func (r *pausedRequest) Headers() map[string]string {
	headers := make(map[string]string, len(r.ev.Request.Headers))
	for name, v := range r.ev.Request.Headers {
		switch val := v.(type) {
		case string:
			headers[name] = val
		default:
			headers[name] = fmt.Sprint(val)
		}
	}
	return headers
}

// PostData joins the request body entries. Entries that fail to decode are
// skipped and logged.
func (r *pausedRequest) PostData() []byte {
	var body []byte
	for _, entry := range r.ev.Request.PostDataEntries {
		if entry == nil || entry.Bytes == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			log.Printf("browser: request %s post data decode error: %v", r.ev.RequestID, err)
			continue
		}
		body = append(body, data...)
	}
	return body
}

func (r *pausedRequest) Respond(ctx context.Context, status int, statusText string, headers transport.Headers, body []byte) error {
	entries := make([]*fetch.HeaderEntry, len(headers))
	for i, h := range headers {
		entries[i] = &fetch.HeaderEntry{Name: h.Name, Value: h.Value}
	}

	action := fetch.FulfillRequest(r.ev.RequestID, int64(status)).WithResponseHeaders(entries)
	if statusText != "" {
		action = action.WithResponsePhrase(statusText)
	}
	if len(body) > 0 {
		action = action.WithBody(base64.StdEncoding.EncodeToString(body))
	}
	return action.Do(ctx)
}
